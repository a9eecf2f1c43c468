// Package lineio splits byte streams into physical lines while
// preserving the exact terminator of each line. Text formats in this
// module rewrite some lines and must leave every other byte untouched,
// so the terminators travel with the lines instead of being thrown away
// by a scanner.
package lineio

// Line is one physical line of a byte stream.
type Line struct {
	// Text is the line content without its terminator.
	Text []byte
	// End holds the terminator bytes: "\r\n", "\n", "\r", or nil for a
	// final line that ends at EOF.
	End []byte
}

// Split cuts data into physical lines. Line terminators may be CRLF,
// bare LF, or bare CR, mixed freely. The returned slices alias data;
// callers must not modify them. Empty input yields no lines.
func Split(data []byte) []Line {
	var lines []Line
	start := 0
	for i := 0; i < len(data); {
		c := data[i]
		if c != '\r' && c != '\n' {
			i++
			continue
		}
		end := i + 1
		if c == '\r' && end < len(data) && data[end] == '\n' {
			end++
		}
		lines = append(lines, Line{Text: data[start:i], End: data[i:end]})
		start = end
		i = end
	}
	if start < len(data) {
		lines = append(lines, Line{Text: data[start:]})
	}
	return lines
}
