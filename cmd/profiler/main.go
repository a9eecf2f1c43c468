package main

import (
	"archive/tar"
	"bytes"
	"flag"
	"fmt"
	"log"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"
	"time"

	"github.com/felixge/fgprof"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/meigma/repro"
)

type config struct {
	mode       string
	entries    int
	entrySize  int
	dirCount   int
	pattern    string
	workers    int
	duration   time.Duration
	iterations int
	fgProfile  string
	pprofAddr  string
	cpuProfile string
	memProfile string
	traceFile  string
	randomSeed int64
}

//nolint:unused // sink variable prevents compiler optimizations in profiling
var sinkBytes []byte

func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	input, err := makeInput(cfg)
	if err != nil {
		log.Fatal(err)
	}
	s, err := makeStripper(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.fgProfile != "" {
		fgFile, fgErr := os.Create(cfg.fgProfile)
		if fgErr != nil {
			log.Fatal(fgErr)
		}
		stopFG := fgprof.Start(fgFile, fgprof.FormatPprof)
		defer func() {
			if err := stopFG(); err != nil {
				log.Printf("fgprof stop error: %v", err)
			}
			_ = fgFile.Close()
		}()
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr) //nolint:gocritic // exitAfterDefer is intentional - profiles are best-effort
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(cfg, s, input)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s ops=%d bytes=%d elapsed=%s throughput=%.2f MB/s\n",
		cfg.mode,
		stats.ops,
		stats.bytes,
		stats.elapsed,
		float64(stats.bytes)/(1024*1024)/stats.elapsed.Seconds(),
	)
}

type profileStats struct {
	ops     int
	bytes   int64
	elapsed time.Duration
}

func runProfile(cfg config, s repro.Stripper, input []byte) (profileStats, error) {
	start := time.Now()
	ops := 0
	var byteCount int64

	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	for shouldContinue() {
		out, err := s.Strip(input)
		if err != nil {
			return profileStats{}, err
		}
		sinkBytes = out
		byteCount += int64(len(input))
		ops++
	}

	return profileStats{
		ops:     ops,
		bytes:   byteCount,
		elapsed: time.Since(start),
	}, nil
}

func makeStripper(cfg config) (repro.Stripper, error) {
	switch cfg.mode {
	case "strip":
		return repro.NewJar(repro.ZipWithWorkers(cfg.workers))
	case "strip-matched":
		text, err := repro.NewTextStripper()
		if err != nil {
			return nil, err
		}
		return repro.NewJar(
			repro.ZipWithWorkers(cfg.workers),
			repro.ZipWithStripper(`.*\.txt`, text),
		)
	case "strip-raw":
		return repro.NewZipStripper(repro.ZipWithWorkers(cfg.workers))
	case "tar", "tar-gzip":
		return repro.NewTarStripper()
	case "manifest":
		return repro.NewManifestStripper(), nil
	default:
		return nil, fmt.Errorf("unknown mode: %s", cfg.mode)
	}
}

func makeInput(cfg config) ([]byte, error) {
	switch cfg.mode {
	case "strip", "strip-matched", "strip-raw":
		return makeZipInput(cfg)
	case "tar", "tar-gzip":
		return makeTarInput(cfg)
	case "manifest":
		return makeManifestInput(cfg), nil
	default:
		return nil, fmt.Errorf("unknown mode: %s", cfg.mode)
	}
}

func makeZipInput(cfg config) ([]byte, error) {
	rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional for reproducible benchmarks
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := time.Date(2024, 3, 9, 14, 22, 31, 0, time.UTC)

	manifest := "Manifest-Version: 1.0\r\nBuilt-By: profiler\r\nBuild-Jdk: 21.0.2\r\n"
	if err := writeZipEntry(zw, "META-INF/MANIFEST.MF", []byte(manifest), modified); err != nil {
		return nil, err
	}
	props := "#Generated by profiler\n#Sat Mar 09 14:22:31 UTC 2024\nversion=1.0.0\ngroupId=com.example\nartifactId=app\n"
	if err := writeZipEntry(zw, "META-INF/maven/com.example/app/pom.properties", []byte(props), modified); err != nil {
		return nil, err
	}

	for i := range cfg.entries {
		name := fmt.Sprintf("dir%02d/file%04d.txt", i%cfg.dirCount, i)
		if err := writeZipEntry(zw, name, makeContent(rng, cfg.entrySize, cfg.pattern, i), modified); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeZipEntry(zw *zip.Writer, name string, content []byte, modified time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

func makeTarInput(cfg config) ([]byte, error) {
	rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional for reproducible benchmarks
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	modified := time.Date(2024, 3, 9, 14, 22, 31, 0, time.UTC)

	for i := range cfg.entries {
		content := makeContent(rng, cfg.entrySize, cfg.pattern, i)
		hdr := &tar.Header{
			Name:    fmt.Sprintf("dir%02d/file%04d.txt", i%cfg.dirCount, i),
			Mode:    0o644,
			Size:    int64(len(content)),
			ModTime: modified,
			Uid:     1000,
			Gid:     1000,
			Uname:   "profiler",
			Gname:   "profiler",
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if _, err := tw.Write(content); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if cfg.mode != "tar-gzip" {
		return buf.Bytes(), nil
	}

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	if _, err := gw.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return gzBuf.Bytes(), nil
}

func makeManifestInput(cfg config) []byte {
	var sb strings.Builder
	sb.WriteString("Manifest-Version: 1.0\r\nBuilt-By: profiler\r\nBuild-Jdk: 21.0.2\r\n")
	for i := range cfg.entries {
		fmt.Fprintf(&sb, "X-Custom-Header-%04d: value %d\r\n", i, i)
	}
	return []byte(sb.String())
}

func makeContent(rng *rand.Rand, size int, pattern string, seq int) []byte {
	if pattern == "random" {
		content := make([]byte, size)
		rng.Read(content)
		return content
	}
	line := fmt.Sprintf("entry %d: the quick brown fox jumps over the lazy dog\n", seq)
	content := strings.Repeat(line, size/len(line)+1)
	return []byte(content[:size])
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.mode, "mode", "strip", "mode: strip, strip-matched, strip-raw, tar, tar-gzip, manifest")
	flag.IntVar(&cfg.entries, "entries", 512, "number of content entries")
	flag.IntVar(&cfg.entrySize, "entry-size", 16<<10, "entry size in bytes")
	flag.IntVar(&cfg.dirCount, "dir-count", 16, "number of directories")
	flag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	flag.IntVar(&cfg.workers, "workers", 0, "transform workers: <0 serial, 0 auto, >0 fixed")
	flag.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	flag.Parse()
	if cfg.dirCount < 1 {
		cfg.dirCount = 1
	}
	return cfg
}
