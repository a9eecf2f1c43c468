package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootOpts struct {
	verbose bool
}

var rootCmd = &cobra.Command{
	Use:   "repro",
	Short: "Make build artifacts byte-for-byte reproducible",
	Long: `repro rewrites archives and metadata files produced by build tools so
that identical inputs give identical bytes, whatever machine, user, or
moment produced them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level := slog.LevelInfo
		if rootOpts.verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	},
}

func execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "repro:", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootOpts.verbose, "verbose", "v", false, "log debug detail to stderr")
}
