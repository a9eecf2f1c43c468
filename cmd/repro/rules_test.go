package main

import (
	"testing"
	"time"

	"github.com/meigma/repro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	t.Run("date and time", func(t *testing.T) {
		t.Parallel()
		ts, err := parseTimestamp("2024-01-02T03:04:05")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), ts)
	})

	t.Run("date only", func(t *testing.T) {
		t.Parallel()
		ts, err := parseTimestamp("2024-01-02")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), ts)
	})

	t.Run("rejects other forms", func(t *testing.T) {
		t.Parallel()
		_, err := parseTimestamp("01/02/2024")
		require.Error(t, err)
	})
}

func TestParseRules(t *testing.T) {
	t.Parallel()

	t.Run("full document", func(t *testing.T) {
		t.Parallel()

		cfg, err := parseRules([]byte(`
timestamp: 2023-06-01T12:00:00
fix-attributes: true
workers: 4
defaults: none
strippers:
  - pattern: 'META-INF/MANIFEST\.MF'
    type: manifest
    drop: [Built-By]
    replace:
      Build-Jdk: "17"
  - pattern: '.*\.properties'
    type: properties
  - pattern: 'docs/.*\.txt'
    type: text
    line-ending: lf
    drop-lines: ['Generated: .*']
`))
		require.NoError(t, err)

		require.NotNil(t, cfg.timestamp)
		assert.Equal(t, time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC), *cfg.timestamp)
		require.NotNil(t, cfg.fixAttrs)
		assert.True(t, *cfg.fixAttrs)
		require.NotNil(t, cfg.workers)
		assert.Equal(t, 4, *cfg.workers)
		assert.Equal(t, defaultsNone, cfg.defaults)
		require.Len(t, cfg.rules, 3)
		assert.Equal(t, "manifest", cfg.rules[0].Type)
		assert.Equal(t, map[string]string{"Build-Jdk": "17"}, cfg.rules[0].Replace)
	})

	t.Run("empty document", func(t *testing.T) {
		t.Parallel()

		cfg, err := parseRules(nil)
		require.NoError(t, err)
		assert.Nil(t, cfg.timestamp)
		assert.Nil(t, cfg.fixAttrs)
		assert.Nil(t, cfg.workers)
		assert.Equal(t, defaultsJar, cfg.defaults)
		assert.Empty(t, cfg.rules)
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()

		_, err := parseRules([]byte("timestamps: 2023-06-01\n"))
		require.Error(t, err, "misspelled keys must not be silently ignored")
	})

	t.Run("bad timestamp", func(t *testing.T) {
		t.Parallel()

		_, err := parseRules([]byte("timestamp: yesterday\n"))
		require.Error(t, err)
	})

	t.Run("bad defaults", func(t *testing.T) {
		t.Parallel()

		_, err := parseRules([]byte("defaults: everything\n"))
		require.Error(t, err)
	})

	t.Run("rule without pattern", func(t *testing.T) {
		t.Parallel()

		_, err := parseRules([]byte("strippers:\n  - type: properties\n"))
		require.Error(t, err)
	})

	t.Run("rule without type", func(t *testing.T) {
		t.Parallel()

		_, err := parseRules([]byte("strippers:\n  - pattern: '.*'\n"))
		require.Error(t, err)
	})
}

func TestStripConfigEngines(t *testing.T) {
	t.Parallel()

	t.Run("builds both engines", func(t *testing.T) {
		t.Parallel()

		cfg, err := parseRules([]byte(`
strippers:
  - pattern: '.*\.properties'
    type: properties
  - pattern: 'notes/.*'
    type: text
    line-ending: crlf
  - pattern: 'bundles/.*\.jar'
    type: jar
`))
		require.NoError(t, err)

		_, err = cfg.zipStripper()
		require.NoError(t, err)
		_, err = cfg.tarStripper()
		require.NoError(t, err)
	})

	t.Run("unknown stripper type", func(t *testing.T) {
		t.Parallel()

		cfg, err := parseRules([]byte("strippers:\n  - {pattern: '.*', type: png}\n"))
		require.NoError(t, err)
		_, err = cfg.zipStripper()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "png")
	})

	t.Run("bad line ending", func(t *testing.T) {
		t.Parallel()

		cfg, err := parseRules([]byte("strippers:\n  - {pattern: '.*', type: text, line-ending: cr}\n"))
		require.NoError(t, err)
		_, err = cfg.zipStripper()
		require.Error(t, err)
	})

	t.Run("bad pattern", func(t *testing.T) {
		t.Parallel()

		cfg, err := parseRules([]byte("strippers:\n  - {pattern: '[', type: properties}\n"))
		require.NoError(t, err)
		_, err = cfg.zipStripper()
		require.ErrorIs(t, err, repro.ErrConfig)
	})
}

func TestIsTarName(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		path string
		want bool
	}{
		{"dist/image.tar", true},
		{"dist/image.tar.gz", true},
		{"image.tgz", true},
		{"image.TAR.ZST", true},
		{"image.tzst", true},
		{"dist/app.jar", false},
		{"app.war", false},
		{"archive.zip", false},
		{"tarball.txt", false},
	} {
		assert.Equal(t, tc.want, isTarName(tc.path), "path %q", tc.path)
	}
}
