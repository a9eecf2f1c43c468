package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/meigma/repro"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Values for the top-level defaults key of a rules file.
const (
	defaultsJar  = "jar"
	defaultsNone = "none"
)

// timestampLayouts are the forms --timestamp and the rules file accept.
// Both are read as wall-clock values without a zone.
var timestampLayouts = []string{"2006-01-02T15:04:05", "2006-01-02"}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: want YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS", value)
}

// rulesFile is the YAML shape of a --rules document.
type rulesFile struct {
	Timestamp     string         `yaml:"timestamp"`
	FixAttributes *bool          `yaml:"fix-attributes"`
	Workers       *int           `yaml:"workers"`
	Defaults      string         `yaml:"defaults"`
	Strippers     []stripperRule `yaml:"strippers"`
}

// stripperRule registers one sub-stripper under an entry-name pattern.
// Which extra keys apply depends on the type: manifest rules take drop,
// replace, and no-defaults; text rules take line-ending and drop-lines.
type stripperRule struct {
	Pattern    string            `yaml:"pattern"`
	Type       string            `yaml:"type"`
	Drop       []string          `yaml:"drop"`
	Replace    map[string]string `yaml:"replace"`
	NoDefaults bool              `yaml:"no-defaults"`
	LineEnding string            `yaml:"line-ending"`
	DropLines  []string          `yaml:"drop-lines"`
}

// stripConfig is the merged stripper configuration from a rules file and
// command-line flags. Nil fields fall through to library defaults.
type stripConfig struct {
	timestamp *time.Time
	fixAttrs  *bool
	workers   *int
	defaults  string
	rules     []stripperRule
}

func loadRules(path string) (*stripConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	cfg, err := parseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return cfg, nil
}

func parseRules(data []byte) (*stripConfig, error) {
	var rf rulesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	cfg := &stripConfig{
		fixAttrs: rf.FixAttributes,
		workers:  rf.Workers,
		defaults: defaultsJar,
	}
	if rf.Timestamp != "" {
		t, err := parseTimestamp(rf.Timestamp)
		if err != nil {
			return nil, err
		}
		cfg.timestamp = &t
	}
	switch rf.Defaults {
	case "", defaultsJar:
	case defaultsNone:
		cfg.defaults = defaultsNone
	default:
		return nil, fmt.Errorf("unknown defaults %q: want %q or %q", rf.Defaults, defaultsJar, defaultsNone)
	}
	for i, rule := range rf.Strippers {
		if rule.Pattern == "" {
			return nil, fmt.Errorf("stripper %d: missing pattern", i)
		}
		if rule.Type == "" {
			return nil, fmt.Errorf("stripper %d (%s): missing type", i, rule.Pattern)
		}
	}
	cfg.rules = rf.Strippers
	return cfg, nil
}

// loadStripConfig reads the rules file when one is named and lays
// explicitly set command-line flags over it.
func loadStripConfig(cmd *cobra.Command, rulesPath, timestamp string, fixAttrs bool, workers int) (*stripConfig, error) {
	cfg := &stripConfig{defaults: defaultsJar}
	if rulesPath != "" {
		loaded, err := loadRules(rulesPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("timestamp") {
		t, err := parseTimestamp(timestamp)
		if err != nil {
			return nil, err
		}
		cfg.timestamp = &t
	}
	if flags.Changed("fix-attributes") {
		cfg.fixAttrs = &fixAttrs
	}
	if flags.Changed("workers") {
		cfg.workers = &workers
	}
	return cfg, nil
}

// zipStripper builds the engine for zip-family archives.
func (c *stripConfig) zipStripper() (*repro.ZipStripper, error) {
	opts := c.baseZipOptions()
	for _, rule := range c.rules {
		sub, err := c.buildStripper(rule)
		if err != nil {
			return nil, err
		}
		opts = append(opts, repro.ZipWithStripper(rule.Pattern, sub))
	}
	if c.defaults == defaultsNone {
		return repro.NewZipStripper(opts...)
	}
	return repro.NewJar(opts...)
}

// tarStripper builds the engine for tar-family archives. Under the jar
// defaults, archives carried inside the tarball are normalized too.
func (c *stripConfig) tarStripper() (*repro.TarStripper, error) {
	opts := c.baseTarOptions()
	for _, rule := range c.rules {
		sub, err := c.buildStripper(rule)
		if err != nil {
			return nil, err
		}
		opts = append(opts, repro.TarWithStripper(rule.Pattern, sub))
	}
	if c.defaults != defaultsNone {
		jar, err := repro.NewJar(c.baseZipOptions()...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, repro.TarWithStripper(`.*\.(jar|war|zip)`, jar))
	}
	return repro.NewTarStripper(opts...)
}

func (c *stripConfig) baseZipOptions() []repro.ZipOption {
	var opts []repro.ZipOption
	if c.timestamp != nil {
		opts = append(opts, repro.ZipWithTimestamp(*c.timestamp))
	}
	if c.fixAttrs != nil {
		opts = append(opts, repro.ZipWithFixAttributes(*c.fixAttrs))
	}
	if c.workers != nil {
		opts = append(opts, repro.ZipWithWorkers(*c.workers))
	}
	return opts
}

func (c *stripConfig) baseTarOptions() []repro.TarOption {
	var opts []repro.TarOption
	if c.timestamp != nil {
		opts = append(opts, repro.TarWithTimestamp(*c.timestamp))
	}
	if c.fixAttrs != nil {
		opts = append(opts, repro.TarWithFixAttributes(*c.fixAttrs))
	}
	return opts
}

// buildStripper constructs the sub-stripper a rule names. Container
// types inherit the timestamp and attribute settings.
func (c *stripConfig) buildStripper(rule stripperRule) (repro.Stripper, error) {
	switch rule.Type {
	case "manifest":
		var opts []repro.ManifestOption
		if rule.NoDefaults {
			opts = append(opts, repro.ManifestWithoutDefaults())
		}
		if len(rule.Drop) > 0 {
			opts = append(opts, repro.ManifestWithDrop(rule.Drop...))
		}
		for _, name := range slices.Sorted(maps.Keys(rule.Replace)) {
			opts = append(opts, repro.ManifestWithReplace(name, rule.Replace[name]))
		}
		return repro.NewManifestStripper(opts...), nil
	case "properties":
		return repro.NewPropertiesStripper(), nil
	case "text":
		var opts []repro.TextOption
		switch rule.LineEnding {
		case "":
		case "lf":
			opts = append(opts, repro.TextWithLineEnding(repro.LineEndingLF))
		case "crlf":
			opts = append(opts, repro.TextWithLineEnding(repro.LineEndingCRLF))
		case "keep":
			opts = append(opts, repro.TextWithLineEnding(repro.LineEndingKeep))
		default:
			return nil, fmt.Errorf("rule %s: unknown line ending %q", rule.Pattern, rule.LineEnding)
		}
		if len(rule.DropLines) > 0 {
			opts = append(opts, repro.TextWithDrop(rule.DropLines...))
		}
		return repro.NewTextStripper(opts...)
	case "jar":
		return repro.NewJar(c.baseZipOptions()...)
	case "zip":
		return repro.NewZipStripper(c.baseZipOptions()...)
	case "tar":
		return repro.NewTarStripper(c.baseTarOptions()...)
	default:
		return nil, fmt.Errorf("rule %s: unknown stripper type %q", rule.Pattern, rule.Type)
	}
}

// fileStripper is the archive-engine surface the commands drive.
type fileStripper interface {
	repro.Stripper
	StripFile(inPath, outPath string) error
}

// tarSuffixes are the names the tar engine claims; everything else goes
// through the zip engine.
var tarSuffixes = []string{".tar", ".tar.gz", ".tgz", ".tar.zst", ".tzst"}

func isTarName(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, suffix := range tarSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
