package repro

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

var benchSinkBytes []byte

type benchPattern string

const (
	benchPatternCompressible benchPattern = "compressible"
	benchPatternRandom       benchPattern = "random"

	benchDirCount = 16
)

func init() {
	if os.Getenv("REPRO_PROFILE_BLOCK") == "1" {
		runtime.SetBlockProfileRate(1)
	}
	if os.Getenv("REPRO_PROFILE_MUTEX") == "1" {
		runtime.SetMutexProfileFraction(1)
	}
}

// makeBenchArchive builds a zip archive with entryCount entries of
// entrySize bytes spread over benchDirCount directories, plus a manifest
// and a pom.properties the default strippers match.
func makeBenchArchive(b *testing.B, entryCount, entrySize int, pattern benchPattern) []byte {
	b.Helper()
	rng := rand.New(rand.NewSource(1)) //nolint:gosec // deterministic content across runs
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := time.Date(2024, 3, 9, 14, 22, 31, 0, time.UTC)

	write := func(name string, content []byte) {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			b.Fatal(err)
		}
		if _, err := w.Write(content); err != nil {
			b.Fatal(err)
		}
	}

	write("META-INF/MANIFEST.MF", []byte("Manifest-Version: 1.0\r\nBuilt-By: bench\r\nBuild-Jdk: 21.0.2\r\n"))
	write("META-INF/maven/com.example/app/pom.properties", []byte("#Sat Mar 09 14:22:31 UTC 2024\nversion=1.0.0\n"))
	for i := range entryCount {
		write(fmt.Sprintf("dir%02d/file%04d.txt", i%benchDirCount, i), makeBenchContent(rng, entrySize, pattern, i))
	}
	if err := zw.Close(); err != nil {
		b.Fatal(err)
	}
	return buf.Bytes()
}

func makeBenchContent(rng *rand.Rand, size int, pattern benchPattern, seq int) []byte {
	if pattern == benchPatternRandom {
		content := make([]byte, size)
		rng.Read(content)
		return content
	}
	line := fmt.Sprintf("entry %d: the quick brown fox jumps over the lazy dog\n", seq)
	content := strings.Repeat(line, size/len(line)+1)
	return []byte(content[:size])
}

func BenchmarkZipStrip(b *testing.B) {
	cases := []struct {
		name       string
		entryCount int
		entrySize  int
		pattern    benchPattern
		workers    int
		matchAll   bool
	}{
		{
			name:       "entries=128/size=16k/raw",
			entryCount: 128,
			entrySize:  16 << 10,
			pattern:    benchPatternCompressible,
		},
		{
			name:       "entries=128/size=16k/matched/serial",
			entryCount: 128,
			entrySize:  16 << 10,
			pattern:    benchPatternCompressible,
			workers:    -1,
			matchAll:   true,
		},
		{
			name:       "entries=128/size=16k/matched/auto",
			entryCount: 128,
			entrySize:  16 << 10,
			pattern:    benchPatternCompressible,
			matchAll:   true,
		},
		{
			name:       "entries=128/size=16k/matched/random/auto",
			entryCount: 128,
			entrySize:  16 << 10,
			pattern:    benchPatternRandom,
			matchAll:   true,
		},
	}

	for _, bc := range cases {
		b.Run(bc.name, func(b *testing.B) {
			in := makeBenchArchive(b, bc.entryCount, bc.entrySize, bc.pattern)

			opts := []ZipOption{ZipWithWorkers(bc.workers)}
			if bc.matchAll {
				text, err := NewTextStripper()
				if err != nil {
					b.Fatal(err)
				}
				opts = append(opts, ZipWithStripper(`.*\.txt`, text))
			}
			s, err := NewJar(opts...)
			if err != nil {
				b.Fatal(err)
			}

			b.SetBytes(int64(len(in)))
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				out, err := s.Strip(in)
				if err != nil {
					b.Fatal(err)
				}
				benchSinkBytes = out
			}
		})
	}
}

func BenchmarkManifestStrip(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("Manifest-Version: 1.0\r\nBuilt-By: bench\r\nBuild-Jdk: 21.0.2\r\n")
	for i := range 256 {
		fmt.Fprintf(&sb, "X-Custom-Header-%04d: value %d\r\n", i, i)
	}
	in := []byte(sb.String())
	s := NewManifestStripper()

	b.SetBytes(int64(len(in)))
	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		out, err := s.Strip(in)
		if err != nil {
			b.Fatal(err)
		}
		benchSinkBytes = out
	}
}

func BenchmarkTarStrip(b *testing.B) {
	entries := make([]tarTestEntry, 0, 128)
	rng := rand.New(rand.NewSource(1)) //nolint:gosec // deterministic content across runs
	for i := range 128 {
		entries = append(entries, tarTestEntry{
			name: fmt.Sprintf("dir%02d/file%04d.txt", i%benchDirCount, i),
			body: string(makeBenchContent(rng, 16<<10, benchPatternCompressible, i)),
			uid:  1000,
			gid:  1000,
		})
	}
	in := buildTar(b, entries)
	s, err := NewTarStripper()
	if err != nil {
		b.Fatal(err)
	}

	b.SetBytes(int64(len(in)))
	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		out, err := s.Strip(in)
		if err != nil {
			b.Fatal(err)
		}
		benchSinkBytes = out
	}
}
