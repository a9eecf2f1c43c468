package repro

// TextOption configures a TextStripper.
type TextOption func(*textConfig)

type textConfig struct {
	ending string
	drops  []string
}

// TextWithLineEnding sets the terminator written after each line. Use
// LineEndingLF, LineEndingCRLF, or LineEndingKeep.
func TextWithLineEnding(ending string) TextOption {
	return func(c *textConfig) {
		c.ending = ending
	}
}

// TextWithDrop removes lines that a pattern matches in full. Patterns
// use Go regular expression syntax and are matched against the line
// content without its terminator.
func TextWithDrop(patterns ...string) TextOption {
	return func(c *textConfig) {
		c.drops = append(c.drops, patterns...)
	}
}
