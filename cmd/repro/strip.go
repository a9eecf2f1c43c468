package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
)

var stripOpts struct {
	output    string
	timestamp string
	fixAttrs  bool
	workers   int
	rules     string
	digest    bool
}

var stripCmd = &cobra.Command{
	Use:   "strip <archive>...",
	Short: "Normalize archives for reproducible builds",
	Long: `Strip rewrites archives so that two builds of the same content produce
identical bytes: entries come out in a canonical order, timestamps are
forced to a fixed reference, and volatile metadata is removed. Files
are rewritten in place unless --output is given.

Zip-family archives (.zip, .jar, .war) get the Java archive defaults:
manifest normalization, Maven pom.properties cleanup, and recursive
treatment of nested archives. Names ending in .tar, .tar.gz, .tgz,
.tar.zst, or .tzst go through the tar engine instead.`,
	Example: `  repro strip target/app.jar
  repro strip --timestamp 2024-01-01 --digest -o out.jar target/app.jar
  repro strip --rules ci/repro.yaml dist/*.jar`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStrip,
}

func init() {
	rootCmd.AddCommand(stripCmd)
	f := stripCmd.Flags()
	f.StringVarP(&stripOpts.output, "output", "o", "", "write the result here instead of in place (single input only)")
	f.StringVar(&stripOpts.timestamp, "timestamp", "", "reference time, YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS")
	f.BoolVar(&stripOpts.fixAttrs, "fix-attributes", false, "force rw-r--r-- files and rwxr-xr-x directories")
	f.IntVar(&stripOpts.workers, "workers", 0, "entry transform workers (0 = automatic, <0 = serial)")
	f.StringVar(&stripOpts.rules, "rules", "", "YAML rules file with stripper registrations")
	f.BoolVar(&stripOpts.digest, "digest", false, "print the canonical digest of each output")
}

func runStrip(cmd *cobra.Command, args []string) error {
	if stripOpts.output != "" && len(args) != 1 {
		return errors.New("--output takes exactly one input archive")
	}
	cfg, err := loadStripConfig(cmd, stripOpts.rules, stripOpts.timestamp, stripOpts.fixAttrs, stripOpts.workers)
	if err != nil {
		return err
	}
	zipEngine, err := cfg.zipStripper()
	if err != nil {
		return err
	}
	tarEngine, err := cfg.tarStripper()
	if err != nil {
		return err
	}

	for _, in := range args {
		out := in
		if stripOpts.output != "" {
			out = stripOpts.output
		}

		var s fileStripper = zipEngine
		if isTarName(in) {
			s = tarEngine
		}

		start := time.Now()
		if err := s.StripFile(in, out); err != nil {
			return fmt.Errorf("strip %s: %w", in, err)
		}
		slog.Debug("stripped", "input", in, "output", out, "elapsed", time.Since(start))

		if stripOpts.digest {
			dgst, err := fileDigest(out)
			if err != nil {
				return fmt.Errorf("digest %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", dgst, out)
		}
	}
	return nil
}

func fileDigest(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck // read-only file
	return digest.FromReader(f)
}
