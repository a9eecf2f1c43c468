package repro

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Stripper removes non-reproducible data from a byte sequence.
//
// Strip is deterministic: the same input and the same configuration
// produce the same output on any machine. Implementations never consult
// the clock, the environment, or any randomness source at strip time.
// The input slice is not modified.
type Stripper interface {
	Strip(data []byte) ([]byte, error)
}

// NamedStripper is a Stripper that also wants to know the name of the
// content it is given. Container strippers pass the entry name when
// delegating, which lets name-sensitive strippers (nested archives that
// gate behavior on their own file name) behave as if processing a file
// with that name.
type NamedStripper interface {
	Stripper
	StripNamed(data []byte, name string) ([]byte, error)
}

// StripFile reads inPath, strips it with s, and writes the result to
// outPath. The output is written to a temporary file in the destination
// directory and renamed into place, so a failed run never leaves a
// partial file at outPath. If s implements NamedStripper, the base name
// of inPath is passed along.
func StripFile(s Stripper, inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inPath, err)
	}

	out, err := stripNamed(s, data, filepath.Base(inPath))
	if err != nil {
		return fmt.Errorf("strip %s: %w", inPath, err)
	}
	return writeFileAtomic(outPath, out)
}

// stripNamed strips data through s, passing name along when s wants it.
func stripNamed(s Stripper, data []byte, name string) ([]byte, error) {
	if ns, ok := s.(NamedStripper); ok {
		return ns.StripNamed(data, name)
	}
	return s.Strip(data)
}

// compileFullMatch compiles pattern so it must cover its whole input,
// the way entry-dispatch and line-drop patterns are matched.
func compileFullMatch(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %v", ErrConfig, pattern, err)
	}
	return re, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place. The temp file is removed on every failure path.
func writeFileAtomic(path string, data []byte) error {
	return withAtomicFile(path, func(f *os.File) error {
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("write temp file: %w", err)
		}
		return nil
	})
}

// withAtomicFile creates a temp file next to path, hands it to fn, and
// renames it into place once fn succeeds. The temp file is removed on
// every failure path, so path either keeps its old content or gets the
// complete new content.
func withAtomicFile(path string, fn func(*os.File) error) error {
	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, ".repro-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if err := fn(tempFile); err != nil {
		_ = tempFile.Close()    //nolint:errcheck // we're cleaning up
		_ = os.Remove(tempPath) //nolint:errcheck // best-effort cleanup
		return err
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close temp file: %w", err)
	}

	// CreateTemp uses 0600; published artifacts follow umask-style defaults.
	if err := os.Chmod(tempPath, 0o644); err != nil {
		_ = os.Remove(tempPath) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
