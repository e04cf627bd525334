package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"polaris-hq/polaris/pkg/source"
)

var showFlags struct {
	fileFormat string
	inline     bool
}

var showCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Summarize a policy document",
	Long: `Parse a policy document and list its leaf entries.

Each line shows the dotted path, the value kind, the number of values,
and the last value of the entry.

Example:
  polaris show pipeline.paf`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVar(&showFlags.fileFormat, "file-format", "", "force the policy format instead of detecting it")
	showCmd.Flags().BoolVar(&showFlags.inline, "inline", false, "inline @file references before summarizing")
}

func runShow(cmd *cobra.Command, args []string) error {
	src := source.NewFile(source.FileConfig{
		Path:       args[0],
		Format:     showFlags.fileFormat,
		InlineRefs: showFlags.inline,
	})
	p, err := src.Load(cmd.Context())
	if err != nil {
		return err
	}

	paths := p.Paths()
	if len(paths) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(empty policy)")
		return nil
	}
	for _, path := range paths {
		kind, _ := p.KindOf(path)
		vs, _ := p.Values(path)
		last, _ := p.Get(path)
		fmt.Fprintf(cmd.OutOrStdout(), "%-40s %-8s x%-3d %s\n", path, kind, len(vs), last)
	}
	return nil
}
