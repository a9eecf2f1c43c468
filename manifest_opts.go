package repro

import "strings"

// ManifestOption configures a ManifestStripper.
type ManifestOption func(*manifestConfig)

type manifestConfig struct {
	noDefaults bool
	rules      map[string]manifestRule
}

// ManifestWithDrop removes the named headers wherever they appear.
// Names match case-insensitively.
func ManifestWithDrop(names ...string) ManifestOption {
	return func(c *manifestConfig) {
		for _, name := range names {
			c.rules[strings.ToLower(name)] = manifestRule{}
		}
	}
}

// ManifestWithReplace rewrites the named header to a constant value.
// The header keeps its position and its original name spelling.
func ManifestWithReplace(name, value string) ManifestOption {
	return func(c *manifestConfig) {
		c.rules[strings.ToLower(name)] = manifestRule{replace: true, value: value}
	}
}

// ManifestWithoutDefaults starts from an empty rule table instead of
// the built-in volatile-header set. Combine with ManifestWithDrop and
// ManifestWithReplace to control exactly which headers are touched.
func ManifestWithoutDefaults() ManifestOption {
	return func(c *manifestConfig) {
		c.noDefaults = true
	}
}
