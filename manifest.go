package repro

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/meigma/repro/internal/lineio"
)

// defaultManifestDrops lists headers that record who built an artifact,
// when, and with what toolchain. They change from build to build without
// changing what was built.
var defaultManifestDrops = []string{
	"Archiver-Version",
	"Bnd-LastModified",
	"Build-Date",
	"Build-Host",
	"Build-Jdk",
	"Build-Jdk-Spec",
	"Build-Number",
	"Build-Time",
	"Built-By",
	"Built-Host",
	"Built-OS",
	"Created-By",
	"OpenIDE-Module-Build-Version",
}

// manifestRule is the action for one header name: drop it, or replace
// its value with a constant.
type manifestRule struct {
	replace bool
	value   string
}

// ManifestStripper normalizes JAR-style manifests. Headers listed in
// its rule table are dropped or rewritten to a constant value; every
// other byte of the manifest passes through unchanged, including line
// terminators, continuation folding, and section breaks.
//
// A header occupies one logical line: a name, a colon, a value, plus
// any following physical lines that start with a space. Rules apply to
// the whole logical line. Header names match case-insensitively.
type ManifestStripper struct {
	rules map[string]manifestRule
}

var _ Stripper = (*ManifestStripper)(nil)

// NewManifestStripper creates a ManifestStripper. Without options it
// drops a default set of volatile headers (Built-By, Build-Jdk,
// Created-By, and similar build-environment records).
func NewManifestStripper(opts ...ManifestOption) *ManifestStripper {
	cfg := manifestConfig{rules: make(map[string]manifestRule)}
	for _, opt := range opts {
		opt(&cfg)
	}

	rules := make(map[string]manifestRule, len(defaultManifestDrops)+len(cfg.rules))
	if !cfg.noDefaults {
		for _, name := range defaultManifestDrops {
			rules[strings.ToLower(name)] = manifestRule{}
		}
	}
	for name, rule := range cfg.rules {
		rules[name] = rule
	}
	return &ManifestStripper{rules: rules}
}

// Strip applies the rule table to a manifest. Empty input is returned
// unchanged. A manifest whose final line has no terminator is legal.
func (s *ManifestStripper) Strip(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	lines := lineio.Split(data)
	var out bytes.Buffer
	out.Grow(len(data))

	for i := 0; i < len(lines); {
		line := lines[i]

		// Blank lines separate manifest sections.
		if len(line.Text) == 0 {
			out.Write(line.End)
			i++
			continue
		}
		if line.Text[0] == ' ' {
			return nil, fmt.Errorf("%w: line %d: continuation without a preceding header", ErrFormat, i+1)
		}
		colon := bytes.IndexByte(line.Text, ':')
		if colon < 0 {
			return nil, fmt.Errorf("%w: line %d: header has no colon", ErrFormat, i+1)
		}

		// Extent of the logical line: this line plus continuations.
		j := i + 1
		for j < len(lines) && len(lines[j].Text) > 0 && lines[j].Text[0] == ' ' {
			j++
		}

		name := string(line.Text[:colon])
		rule, found := s.rules[strings.ToLower(name)]
		switch {
		case !found:
			for k := i; k < j; k++ {
				out.Write(lines[k].Text)
				out.Write(lines[k].End)
			}
		case rule.replace:
			writeManifestHeader(&out, name, rule.value, line.End, lines[j-1].End)
		}
		i = j
	}
	return out.Bytes(), nil
}

// writeManifestHeader emits "name: value" folded to the 72-byte line
// limit of the manifest format. fold is the terminator placed between
// folded lines, term the one after the last line; term may be nil when
// the header it replaces sat at EOF without a newline.
func writeManifestHeader(w *bytes.Buffer, name, value string, fold, term []byte) {
	const maxLine = 72
	if len(fold) == 0 {
		fold = []byte("\r\n")
	}
	line := name + ": " + value
	for len(line) > maxLine {
		w.WriteString(line[:maxLine])
		w.Write(fold)
		line = " " + line[maxLine:]
	}
	w.WriteString(line)
	w.Write(term)
}
