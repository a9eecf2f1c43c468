package repro

import "time"

// TarOption configures a TarStripper.
type TarOption func(*tarConfig)

type tarConfig struct {
	timestamp time.Time
	fixAttrs  bool
	subs      []patternStripper
}

// TarWithTimestamp sets the modification time stamped on every entry.
// Only the wall-clock reading of t matters: 2000-01-01 00:00:00 produces
// the same archive bytes whether t is in UTC, CET, or anything else.
// Sub-second precision is discarded. The default is 2000-01-01
// 00:00:00.
func TarWithTimestamp(t time.Time) TarOption {
	return func(c *tarConfig) {
		c.timestamp = t
	}
}

// TarWithFixAttributes controls rewriting of entry modes. When enabled,
// directories get mode drwxr-xr-x and regular files rw-r--r--, so output
// does not depend on the umask the artifact was built under. Other entry
// types keep their modes. Disabled by default.
func TarWithFixAttributes(fix bool) TarOption {
	return func(c *tarConfig) {
		c.fixAttrs = fix
	}
}

// TarWithStripper registers a stripper for regular-file entries whose
// full name matches pattern. Patterns use Go regular expression syntax
// and must match the entire entry name. When several patterns match an
// entry, the first registered wins.
func TarWithStripper(pattern string, stripper Stripper) TarOption {
	return func(c *tarConfig) {
		c.subs = append(c.subs, patternStripper{pattern: pattern, strip: stripper})
	}
}
