package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/source"
)

var convertFlags struct {
	input  string
	output string
	from   string
	to     string
	decl   bool
	inline bool
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a policy document between formats",
	Long: `Convert a policy document from one serialization to another.

The input format is detected from the document's content declaration
first and the file extension second; --from forces a specific one. The
output format defaults to the extension of --output.

Examples:
  # paf to JSON
  polaris convert -i pipeline.paf -o pipeline.json

  # Force formats, write to stdout
  polaris convert -i policy.txt --from paf --to yaml

  # Inline @file references while converting
  polaris convert -i main.paf -o merged.json --inline`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertFlags.input, "input", "i", "", "input policy file (required)")
	convertCmd.Flags().StringVarP(&convertFlags.output, "output", "o", "", "output file (default stdout)")
	convertCmd.Flags().StringVar(&convertFlags.from, "from", "", "input format (default: detect)")
	convertCmd.Flags().StringVar(&convertFlags.to, "to", "", "output format (default: from --output extension)")
	convertCmd.Flags().BoolVar(&convertFlags.decl, "decl", true, "emit the content declaration")
	convertCmd.Flags().BoolVar(&convertFlags.inline, "inline", false, "inline @file references into nested policies")
	convertCmd.MarkFlagRequired("input")
}

func runConvert(cmd *cobra.Command, args []string) error {
	outFmt, err := resolveOutputFormat()
	if err != nil {
		return err
	}

	src := source.NewFile(source.FileConfig{
		Path:       convertFlags.input,
		Format:     convertFlags.from,
		InlineRefs: convertFlags.inline,
	})
	p, err := src.Load(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if convertFlags.output != "" {
		f, err := os.Create(convertFlags.output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return outFmt.NewWriter(out).Write(p, convertFlags.decl)
}

func resolveOutputFormat() (format.Format, error) {
	if convertFlags.to != "" {
		impl, ok := format.Lookup(convertFlags.to)
		if !ok {
			return nil, fmt.Errorf("unknown output format %q (have %v)", convertFlags.to, format.Names())
		}
		return impl, nil
	}
	if convertFlags.output != "" {
		if impl, ok := format.ByExtension(filepath.Ext(convertFlags.output)); ok {
			return impl, nil
		}
		return nil, fmt.Errorf("cannot infer output format from %q; use --to", convertFlags.output)
	}
	return nil, fmt.Errorf("either --to or --output with a known extension is required")
}
