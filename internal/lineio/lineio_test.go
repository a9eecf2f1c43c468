package lineio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rejoin reassembles lines into the original byte stream.
func rejoin(lines []Line) []byte {
	var out []byte
	for _, l := range lines {
		out = append(out, l.Text...)
		out = append(out, l.End...)
	}
	return out
}

func TestSplit(t *testing.T) {
	t.Parallel()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, Split(nil))
		assert.Empty(t, Split([]byte{}))
	})

	t.Run("mixed terminators", func(t *testing.T) {
		t.Parallel()
		lines := Split([]byte("a\r\nb\nc\rd"))
		require.Len(t, lines, 4)
		assert.Equal(t, "a", string(lines[0].Text))
		assert.Equal(t, "\r\n", string(lines[0].End))
		assert.Equal(t, "b", string(lines[1].Text))
		assert.Equal(t, "\n", string(lines[1].End))
		assert.Equal(t, "c", string(lines[2].Text))
		assert.Equal(t, "\r", string(lines[2].End))
		assert.Equal(t, "d", string(lines[3].Text))
		assert.Nil(t, lines[3].End)
	})

	t.Run("blank lines", func(t *testing.T) {
		t.Parallel()
		lines := Split([]byte("\n\r\n"))
		require.Len(t, lines, 2)
		assert.Empty(t, lines[0].Text)
		assert.Equal(t, "\n", string(lines[0].End))
		assert.Empty(t, lines[1].Text)
		assert.Equal(t, "\r\n", string(lines[1].End))
	})

	t.Run("no trailing terminator", func(t *testing.T) {
		t.Parallel()
		lines := Split([]byte("only"))
		require.Len(t, lines, 1)
		assert.Equal(t, "only", string(lines[0].Text))
		assert.Nil(t, lines[0].End)
	})

	t.Run("lossless round trip", func(t *testing.T) {
		t.Parallel()
		inputs := []string{
			"Manifest-Version: 1.0\r\nBuilt-By: jenkins\r\n\r\n",
			"a\rb\r\nc\n\nd",
			"\r",
			"no newline at all",
		}
		for _, in := range inputs {
			assert.Equal(t, in, string(rejoin(Split([]byte(in)))), "input %q", in)
		}
	})
}
