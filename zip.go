package repro

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// defaultStripTime is the reference timestamp stamped on entries when
// no other is configured.
var defaultStripTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ZipStripper rebuilds ZIP-family archives into a canonical form:
// entries sorted into a fixed order, entry times set to a configured
// constant, timestamp extra fields removed, and (optionally) external
// file attributes pinned so the archive does not depend on the build
// umask. Entry content is copied without recompression unless a
// registered sub-stripper claims the entry, in which case the content
// is decoded, stripped, and recompressed with the entry's original
// method.
//
// Two runs over the same input produce the same bytes regardless of
// machine, timezone, or worker count. A ZipStripper is immutable after
// construction and safe for concurrent use.
type ZipStripper struct {
	dosDate  uint16
	dosTime  uint16
	fixAttrs bool
	workers  int
	subs     []entryStripper
}

// entryStripper pairs a compiled name pattern with the stripper applied
// to entries the pattern matches.
type entryStripper struct {
	pattern *regexp.Regexp
	strip   Stripper
}

var (
	_ Stripper      = (*ZipStripper)(nil)
	_ NamedStripper = (*ZipStripper)(nil)
)

// NewZipStripper creates a ZipStripper. The reference timestamp is
// converted to its archive representation here, once; Strip never
// consults the local timezone. It fails with ErrConfig if the
// timestamp cannot be represented in an archive or a sub-stripper
// pattern does not compile.
func NewZipStripper(opts ...ZipOption) (*ZipStripper, error) {
	cfg := zipConfig{timestamp: defaultStripTime}
	for _, opt := range opts {
		opt(&cfg)
	}

	ref := wallClockUTC(cfg.timestamp)
	if !dosRepresentable(ref) {
		return nil, fmt.Errorf("%w: timestamp %s outside the representable range (1980-2107)",
			ErrConfig, cfg.timestamp.Format(time.DateTime))
	}

	s := &ZipStripper{
		fixAttrs: cfg.fixAttrs,
		workers:  cfg.workers,
	}
	s.dosDate, s.dosTime = timeToDOS(ref)
	for _, ps := range cfg.subs {
		re, err := compileFullMatch(ps.pattern)
		if err != nil {
			return nil, err
		}
		s.subs = append(s.subs, entryStripper{pattern: re, strip: ps.strip})
	}
	return s, nil
}

// Strip rebuilds an in-memory archive. The empty name is used for
// attribute gating, so attribute fixing never applies on this path; use
// StripNamed or StripFile when the archive's file name matters.
func (s *ZipStripper) Strip(data []byte) ([]byte, error) {
	return s.StripNamed(data, "")
}

// StripNamed rebuilds an in-memory archive as if it were a file called
// name. Attribute fixing applies only when name marks a packaged
// application (.jar or .war).
func (s *ZipStripper) StripNamed(data []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, wrapZipErr(err)
	}

	var out bytes.Buffer
	out.Grow(len(data))
	if err := s.stripArchive(zr, name, &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// StripFile rebuilds the archive at inPath into outPath. The output is
// written to a temporary file in the destination directory and renamed
// into place, so a failed run never leaves a partial file at outPath.
func (s *ZipStripper) StripFile(inPath, outPath string) error {
	zr, err := zip.OpenReader(inPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", inPath, wrapZipErr(err))
	}
	defer zr.Close() //nolint:errcheck // read-only file

	return withAtomicFile(outPath, func(f *os.File) error {
		return s.stripArchive(&zr.Reader, filepath.Base(inPath), f)
	})
}

// stripArchive writes the canonical rebuild of zr to w.
func (s *ZipStripper) stripArchive(zr *zip.Reader, name string, w io.Writer) error {
	files := slices.Clone(zr.File)
	slices.SortStableFunc(files, func(a, b *zip.File) int {
		return compareEntryNames(a.Name, b.Name)
	})

	fixAttrs := s.fixAttrs && isPackagedName(name)

	zw := zip.NewWriter(w)
	workers := s.transformWorkers(files)
	var err error
	if workers < 2 {
		err = s.writeSerial(zw, files, fixAttrs)
	} else {
		err = s.writePipelined(zw, files, fixAttrs, workers)
	}
	if err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// writeSerial transforms and writes entries one at a time.
func (s *ZipStripper) writeSerial(zw *zip.Writer, files []*zip.File, fixAttrs bool) error {
	for _, f := range files {
		res, err := s.transformEntry(f, fixAttrs)
		if err != nil {
			return err
		}
		if err := writeEntry(zw, res); err != nil {
			return err
		}
	}
	return nil
}

// entryResult is one entry ready to be written: a scrubbed header plus
// either stripped content to recompress or the source entry to copy
// raw.
type entryResult struct {
	hdr  zip.FileHeader
	data []byte
	src  *zip.File
	raw  bool
}

// transformEntry scrubs the entry header and, when a sub-stripper
// claims the entry name, decodes and strips the content. Entries
// without a matching sub-stripper are marked for raw copy.
func (s *ZipStripper) transformEntry(f *zip.File, fixAttrs bool) (entryResult, error) {
	hdr := f.FileHeader
	s.scrubHeader(&hdr, fixAttrs)

	sub := firstMatch(s.subs, f.Name)
	if sub == nil {
		return entryResult{hdr: hdr, src: f, raw: true}, nil
	}

	rc, err := f.Open()
	if err != nil {
		return entryResult{}, fmt.Errorf("entry %s: %w", f.Name, wrapZipErr(err))
	}
	content, err := io.ReadAll(rc)
	closeErr := rc.Close()
	if err != nil {
		return entryResult{}, fmt.Errorf("entry %s: %w", f.Name, wrapZipErr(err))
	}
	if closeErr != nil {
		return entryResult{}, fmt.Errorf("entry %s: %w", f.Name, wrapZipErr(closeErr))
	}

	stripped, err := stripNamed(sub, content, f.Name)
	if err != nil {
		return entryResult{}, fmt.Errorf("entry %s: %w", f.Name, err)
	}
	return entryResult{hdr: hdr, data: stripped}, nil
}

// scrubHeader rewrites the volatile parts of an entry header in place.
// Everything else (name, comment, method, flags, remaining extra
// records) is preserved.
func (s *ZipStripper) scrubHeader(hdr *zip.FileHeader, fixAttrs bool) {
	// A zero Modified keeps the writer from re-deriving the DOS fields
	// and appending its own extended timestamp record.
	hdr.Modified = time.Time{}
	hdr.ModifiedDate = s.dosDate
	hdr.ModifiedTime = s.dosTime
	hdr.Extra = scrubExtra(hdr.Extra)

	if fixAttrs {
		// A trailing slash in the name is what marks a directory entry.
		if strings.HasSuffix(hdr.Name, "/") {
			hdr.SetMode(fs.ModeDir | 0o755)
		} else {
			hdr.SetMode(0o644)
		}
	}
}

// firstMatch returns the stripper for the first registered pattern that
// matches the whole entry name, or nil.
func firstMatch(subs []entryStripper, name string) Stripper {
	for _, es := range subs {
		if es.pattern.MatchString(name) {
			return es.strip
		}
	}
	return nil
}

// writeEntry appends one transformed entry to the output archive. Raw
// entries keep their compressed bytes; stripped entries are compressed
// with the method recorded in their header.
func writeEntry(zw *zip.Writer, res entryResult) error {
	if res.raw {
		w, err := zw.CreateRaw(&res.hdr)
		if err != nil {
			return fmt.Errorf("entry %s: %w", res.hdr.Name, err)
		}
		rr, err := res.src.OpenRaw()
		if err != nil {
			return fmt.Errorf("entry %s: %w", res.hdr.Name, wrapZipErr(err))
		}
		if _, err := io.Copy(w, rr); err != nil {
			return fmt.Errorf("entry %s: %w", res.hdr.Name, err)
		}
		return nil
	}

	w, err := zw.CreateHeader(&res.hdr)
	if err != nil {
		return fmt.Errorf("entry %s: %w", res.hdr.Name, err)
	}
	if len(res.data) == 0 {
		return nil
	}
	if _, err := w.Write(res.data); err != nil {
		return fmt.Errorf("entry %s: %w", res.hdr.Name, err)
	}
	return nil
}

// isPackagedName reports whether an archive name marks a packaged Java
// application, the only containers whose attributes get fixed.
func isPackagedName(name string) bool {
	return strings.HasSuffix(name, ".jar") || strings.HasSuffix(name, ".war")
}

// wrapZipErr maps archive parse and decode failures to ErrFormat,
// leaving I/O errors untouched.
func wrapZipErr(err error) error {
	if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrAlgorithm) {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return err
}
