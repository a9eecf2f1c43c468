package repro

import (
	"bytes"

	"github.com/meigma/repro/internal/lineio"
)

// PropertiesStripper removes comment lines from Java properties files.
// Build tools stamp properties files with a generation-date comment;
// the key/value pairs below it are what consumers read. Comment lines
// start with '#' or '!' after optional leading whitespace. All other
// bytes pass through unchanged.
type PropertiesStripper struct{}

var _ Stripper = (*PropertiesStripper)(nil)

// NewPropertiesStripper creates a PropertiesStripper.
func NewPropertiesStripper() *PropertiesStripper {
	return &PropertiesStripper{}
}

// Strip removes comment lines. It never fails: every byte sequence is a
// valid properties file.
func (s *PropertiesStripper) Strip(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	var out bytes.Buffer
	out.Grow(len(data))
	for _, line := range lineio.Split(data) {
		trimmed := bytes.TrimLeft(line.Text, " \t")
		if len(trimmed) > 0 && (trimmed[0] == '#' || trimmed[0] == '!') {
			continue
		}
		out.Write(line.Text)
		out.Write(line.End)
	}
	return out.Bytes(), nil
}
