package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meigma/repro"
	"github.com/spf13/cobra"
)

var manifestOpts struct {
	output     string
	drops      []string
	replaces   []string
	noDefaults bool
}

var manifestCmd = &cobra.Command{
	Use:   "manifest <file>",
	Short: "Normalize a JAR manifest",
	Long: `Manifest normalizes META-INF/MANIFEST.MF content outside an archive.
It reads a manifest file ("-" for stdin), removes or rewrites volatile
headers, and writes the result to stdout or --output. Headers not
named by any rule keep their bytes, order, and folding.`,
	Example: `  repro manifest META-INF/MANIFEST.MF
  repro manifest --drop Built-By --replace Build-Jdk=17 - < MANIFEST.MF`,
	Args: cobra.ExactArgs(1),
	RunE: runManifest,
}

func init() {
	rootCmd.AddCommand(manifestCmd)
	f := manifestCmd.Flags()
	f.StringVarP(&manifestOpts.output, "output", "o", "", "write the result to this file instead of stdout")
	f.StringArrayVar(&manifestOpts.drops, "drop", nil, "drop a header by name (repeatable)")
	f.StringArrayVar(&manifestOpts.replaces, "replace", nil, "rewrite a header to a constant, name=value (repeatable)")
	f.BoolVar(&manifestOpts.noDefaults, "no-defaults", false, "start from an empty header table")
}

func runManifest(cmd *cobra.Command, args []string) error {
	opts, err := manifestOptions()
	if err != nil {
		return err
	}
	ms := repro.NewManifestStripper(opts...)

	in := args[0]
	if in != "-" && manifestOpts.output != "" {
		return repro.StripFile(ms, in, manifestOpts.output)
	}

	var data []byte
	if in == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(in)
	}
	if err != nil {
		return err
	}

	out, err := ms.Strip(data)
	if err != nil {
		return err
	}
	if manifestOpts.output != "" {
		return os.WriteFile(manifestOpts.output, out, 0o644)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func manifestOptions() ([]repro.ManifestOption, error) {
	var opts []repro.ManifestOption
	if manifestOpts.noDefaults {
		opts = append(opts, repro.ManifestWithoutDefaults())
	}
	if len(manifestOpts.drops) > 0 {
		opts = append(opts, repro.ManifestWithDrop(manifestOpts.drops...))
	}
	for _, pair := range manifestOpts.replaces {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --replace %q: want name=value", pair)
		}
		opts = append(opts, repro.ManifestWithReplace(name, value))
	}
	return opts, nil
}
