package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/source"
)

var checkFlags struct {
	format     string
	fileFormat string
}

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Validate policy files",
	Long: `Parse policy files and report errors.

Each file is parsed with its detected format. Errors carry the source
position and, where the parser can tell, a suggested fix. The exit
code is non-zero when any file fails.

Examples:
  # Check a set of files
  polaris check defaults/*.paf

  # JSON output for CI/CD
  polaris check --format json pipeline.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFlags.format, "format", "text", "output format: text, json")
	checkCmd.Flags().StringVar(&checkFlags.fileFormat, "file-format", "", "force the policy format instead of detecting it")
}

// checkResult is the validation outcome for one file.
type checkResult struct {
	File       string `json:"file"`
	Valid      bool   `json:"valid"`
	Entries    int    `json:"entries,omitempty"`
	Error      string `json:"error,omitempty"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	results := make([]checkResult, 0, len(args))
	failures := 0

	for _, file := range args {
		result := checkResult{File: file, Valid: true}
		src := source.NewFile(source.FileConfig{Path: file, Format: checkFlags.fileFormat})
		p, err := src.Load(cmd.Context())
		if err != nil {
			failures++
			result.Valid = false
			result.Error = err.Error()
			var pe *format.ParseError
			if errors.As(err, &pe) {
				result.Line = pe.Location.Line
				result.Column = pe.Location.Column
				result.Suggestion = pe.Suggestion
			}
		} else {
			result.Entries = len(p.Paths())
		}
		results = append(results, result)
	}

	if checkFlags.format == "json" {
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%d entries)\n", r.File, r.Entries)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s\n%s\n", r.File, r.Error)
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d files failed validation", failures, len(args))
	}
	return nil
}
