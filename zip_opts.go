package repro

import "time"

// ZipOption configures a ZipStripper.
type ZipOption func(*zipConfig)

type zipConfig struct {
	timestamp time.Time
	fixAttrs  bool
	workers   int
	subs      []patternStripper
}

type patternStripper struct {
	pattern string
	strip   Stripper
}

// ZipWithTimestamp sets the date and time stamped on every entry. Only
// the wall-clock reading of t matters: 2000-01-01 00:00:00 produces the
// same archive bytes whether t is in UTC, CET, or anything else.
// Sub-second precision is discarded. The default is 2000-01-01
// 00:00:00.
func ZipWithTimestamp(t time.Time) ZipOption {
	return func(c *zipConfig) {
		c.timestamp = t
	}
}

// ZipWithFixAttributes controls rewriting of external file attributes.
// When enabled, directories get mode drwxr-xr-x and files rw-r--r--, so
// output does not depend on the umask the artifact was built under.
// Attributes are only rewritten in archives named like packaged
// applications (.jar, .war). Disabled by default.
func ZipWithFixAttributes(fix bool) ZipOption {
	return func(c *zipConfig) {
		c.fixAttrs = fix
	}
}

// ZipWithStripper registers a stripper for entries whose full name
// matches pattern. Patterns use Go regular expression syntax and must
// match the entire entry name. When several patterns match an entry,
// the first registered wins.
func ZipWithStripper(pattern string, stripper Stripper) ZipOption {
	return func(c *zipConfig) {
		c.subs = append(c.subs, patternStripper{pattern: pattern, strip: stripper})
	}
}

// ZipWithWorkers sets the number of workers for parallel entry
// transformation. Values < 0 force serial processing. Zero uses
// automatic heuristics. Values > 0 force a specific worker count.
// The worker count never changes the output bytes.
func ZipWithWorkers(n int) ZipOption {
	return func(c *zipConfig) {
		c.workers = n
	}
}
