package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Register the built-in formats.
	_ "polaris-hq/polaris/pkg/format/flat"
	_ "polaris-hq/polaris/pkg/format/jsonfmt"
	_ "polaris-hq/polaris/pkg/format/paf"
	_ "polaris-hq/polaris/pkg/format/yamlfmt"
	"polaris-hq/polaris/pkg/telemetry/logging"
)

var (
	// Global flags
	verbose   bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "polaris",
	Short: "Polaris - hierarchical policy document toolkit",
	Long: `Polaris reads, writes, and converts hierarchical policy documents.

A policy is an ordered tree of named entries, each holding a sequence of
booleans, integers, doubles, strings, file references, or nested
policies. Polaris understands several interchangeable serializations:
  - paf:  indentation-based text with @file references
  - json: one JSON object per document
  - yaml: one YAML mapping per document, !file tags for references
  - flat: name=value lines, no nesting

For more information, visit: https://github.com/polaris-hq/polaris`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		return logging.Setup(logging.Config{Level: level, Format: logFormat})
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format: text, json")
}
