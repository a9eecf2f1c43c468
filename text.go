package repro

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/meigma/repro/internal/lineio"
)

// Line endings accepted by TextWithLineEnding.
const (
	// LineEndingLF rewrites every line terminator to "\n".
	LineEndingLF = "\n"
	// LineEndingCRLF rewrites every line terminator to "\r\n".
	LineEndingCRLF = "\r\n"
	// LineEndingKeep leaves each line's terminator as found.
	LineEndingKeep = ""
)

// TextStripper normalizes plain-text files: line terminators are
// rewritten to a single form and lines matching configured patterns are
// removed. A final line without a terminator stays that way.
//
// The default configuration rewrites terminators to "\n" and drops
// nothing.
type TextStripper struct {
	ending string
	drops  []*regexp.Regexp
}

var _ Stripper = (*TextStripper)(nil)

// NewTextStripper creates a TextStripper. It fails with ErrConfig if an
// option carries an invalid line ending or an unparseable pattern.
func NewTextStripper(opts ...TextOption) (*TextStripper, error) {
	cfg := textConfig{ending: LineEndingLF}
	for _, opt := range opts {
		opt(&cfg)
	}

	switch cfg.ending {
	case LineEndingLF, LineEndingCRLF, LineEndingKeep:
	default:
		return nil, fmt.Errorf("%w: line ending %q", ErrConfig, cfg.ending)
	}

	s := &TextStripper{ending: cfg.ending}
	for _, pattern := range cfg.drops {
		re, err := compileFullMatch(pattern)
		if err != nil {
			return nil, err
		}
		s.drops = append(s.drops, re)
	}
	return s, nil
}

// Strip rewrites the text. It never fails: every byte sequence is
// acceptable text input.
func (s *TextStripper) Strip(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	var out bytes.Buffer
	out.Grow(len(data))
	for _, line := range lineio.Split(data) {
		if s.dropLine(line.Text) {
			continue
		}
		out.Write(line.Text)
		switch {
		case line.End == nil:
		case s.ending == LineEndingKeep:
			out.Write(line.End)
		default:
			out.WriteString(s.ending)
		}
	}
	return out.Bytes(), nil
}

func (s *TextStripper) dropLine(text []byte) bool {
	for _, re := range s.drops {
		if re.Match(text) {
			return true
		}
	}
	return false
}
