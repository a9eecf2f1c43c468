package repro

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression wrapper magic numbers.
var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// PAX record keys that carry file timestamps.
const (
	paxMtime = "mtime"
	paxAtime = "atime"
	paxCtime = "ctime"
)

// TarStripper rewrites tar archives into a normalized form: entries are
// sorted by name, every timestamp is forced to a single reference time,
// and ownership is cleared. Plain, gzip-compressed, and zstd-compressed
// archives are detected automatically and rewritten with the same
// wrapper they arrived with.
type TarStripper struct {
	modTime  time.Time
	fixAttrs bool
	subs     []entryStripper
}

var _ Stripper = (*TarStripper)(nil)

// NewTarStripper returns a stripper for tar archives. By default entries
// keep their modes and the reference time is 2000-01-01 00:00:00 UTC.
func NewTarStripper(opts ...TarOption) (*TarStripper, error) {
	cfg := tarConfig{timestamp: defaultStripTime}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &TarStripper{
		modTime:  wallClockUTC(cfg.timestamp),
		fixAttrs: cfg.fixAttrs,
	}
	for _, ps := range cfg.subs {
		re, err := compileFullMatch(ps.pattern)
		if err != nil {
			return nil, err
		}
		s.subs = append(s.subs, entryStripper{pattern: re, strip: ps.strip})
	}
	return s, nil
}

// Strip normalizes a tar archive held in memory. The input may be a bare
// tar stream or one wrapped in gzip or zstd compression; the output uses
// the same wrapper.
func (s *TarStripper) Strip(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return s.stripGzip(data)
	case bytes.HasPrefix(data, zstdMagic):
		return s.stripZstd(data)
	default:
		return s.stripTar(data)
	}
}

// StripFile normalizes the archive at inPath and writes the result to
// outPath. The output file is replaced atomically and is left untouched
// when stripping fails.
func (s *TarStripper) StripFile(inPath, outPath string) error {
	return StripFile(s, inPath, outPath)
}

func (s *TarStripper) stripGzip(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	raw, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if err := gr.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	stripped, err := s.stripTar(raw)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}
	// The header encodes MTIME as uint32(ModTime.Unix()), so the Unix
	// epoch is what puts zero on the wire. OS 255 marks the producing
	// system as unknown.
	gw.ModTime = time.Unix(0, 0)
	gw.OS = 255
	if _, err := gw.Write(stripped); err != nil {
		return nil, fmt.Errorf("compress archive: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("compress archive: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *TarStripper) stripZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	stripped, err := s.stripTar(raw)
	if err != nil {
		return nil, err
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	defer enc.Close() //nolint:errcheck // nothing buffered in EncodeAll mode

	return enc.EncodeAll(stripped, nil), nil
}

type tarEntry struct {
	hdr  *tar.Header
	body []byte
}

func (s *TarStripper) stripTar(data []byte) ([]byte, error) {
	tr := tar.NewReader(bytes.NewReader(data))

	var entries []tarEntry
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %s: %v", ErrFormat, hdr.Name, err)
		}
		entries = append(entries, tarEntry{hdr: hdr, body: body})
	}

	slices.SortStableFunc(entries, func(a, b tarEntry) int {
		return strings.Compare(a.hdr.Name, b.hdr.Name)
	})

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		s.scrubTarHeader(e.hdr)

		body := e.body
		if e.hdr.Typeflag == tar.TypeReg {
			if sub := firstMatch(s.subs, e.hdr.Name); sub != nil {
				stripped, err := stripNamed(sub, body, e.hdr.Name)
				if err != nil {
					return nil, fmt.Errorf("entry %s: %w", e.hdr.Name, err)
				}
				body = stripped
				e.hdr.Size = int64(len(body))
			}
		}

		if err := tw.WriteHeader(e.hdr); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.hdr.Name, err)
		}
		if len(body) > 0 {
			if _, err := tw.Write(body); err != nil {
				return nil, fmt.Errorf("entry %s: %w", e.hdr.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// scrubTarHeader removes everything from a header that depends on the
// machine or the moment the archive was built.
func (s *TarStripper) scrubTarHeader(hdr *tar.Header) {
	hdr.ModTime = s.modTime
	hdr.AccessTime = time.Time{}
	hdr.ChangeTime = time.Time{}
	hdr.Uid = 0
	hdr.Gid = 0
	hdr.Uname = ""
	hdr.Gname = ""

	// The writer merges user records over the fields above, so stale
	// time records would win. Clearing the format lets the writer pick
	// the smallest encoding that fits the scrubbed header.
	if hdr.PAXRecords != nil {
		delete(hdr.PAXRecords, paxMtime)
		delete(hdr.PAXRecords, paxAtime)
		delete(hdr.PAXRecords, paxCtime)
		if len(hdr.PAXRecords) == 0 {
			hdr.PAXRecords = nil
		}
	}
	hdr.Format = tar.FormatUnknown

	if s.fixAttrs {
		switch hdr.Typeflag {
		case tar.TypeDir:
			hdr.Mode = 0o755
		case tar.TypeReg:
			hdr.Mode = 0o644
		}
	}
}
