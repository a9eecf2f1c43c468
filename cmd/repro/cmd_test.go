package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/meigma/repro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestJar builds a small unnormalized archive on disk: entries out
// of order, real timestamps, a manifest with a volatile header.
func writeTestJar(tb testing.TB, path string) {
	tb.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := time.Date(2024, 3, 9, 14, 22, 31, 0, time.UTC)
	for _, e := range []struct{ name, content string }{
		{"b.txt", "b content\n"},
		{"a.txt", "a content\n"},
		{"META-INF/MANIFEST.MF", "Manifest-Version: 1.0\r\nBuilt-By: ci\r\n"},
	} {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: modified})
		require.NoError(tb, err)
		_, err = w.Write([]byte(e.content))
		require.NoError(tb, err)
	}
	require.NoError(tb, zw.Close())
	require.NoError(tb, os.WriteFile(path, buf.Bytes(), 0o644))
}

// runCommand executes the CLI with args and returns stdout.
func runCommand(tb testing.TB, args ...string) (string, error) {
	tb.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestStripCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "app.jar")
	out := filepath.Join(dir, "app.stripped.jar")
	writeTestJar(t, in)

	stdout, err := runCommand(t, "strip", "--digest", "-o", out, in)
	require.NoError(t, err)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(written), int64(len(written)))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"META-INF/MANIFEST.MF", "a.txt", "b.txt"}, names)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	manifest, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.NotContains(t, string(manifest), "Built-By", "volatile headers must be gone")

	assert.Regexp(t, regexp.MustCompile(`^sha256:[0-9a-f]{64}  `+regexp.QuoteMeta(out)), stdout)
}

func TestVerifyCommand(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.jar")
	normalized := filepath.Join(dir, "normalized.jar")
	writeTestJar(t, raw)

	s, err := repro.NewJar()
	require.NoError(t, err)
	require.NoError(t, s.StripFile(raw, normalized))

	_, err = runCommand(t, "verify", normalized)
	require.NoError(t, err, "a stripped archive must verify clean")

	_, err = runCommand(t, "verify", raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in normalized form")
}

func TestManifestCommand(t *testing.T) {
	input := "Manifest-Version: 1.0\r\nCustom-Header: keep\r\nBuilt-By: ci\r\n"
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs([]string{"manifest", "--replace", "Custom-Header=fixed", "-"})
	require.NoError(t, rootCmd.Execute())

	got := stdout.String()
	assert.Contains(t, got, "Manifest-Version: 1.0\r\n")
	assert.Contains(t, got, "Custom-Header: fixed\r\n")
	assert.NotContains(t, got, "Built-By", "volatile headers must be gone")
}
