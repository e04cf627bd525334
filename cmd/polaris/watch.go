package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"polaris-hq/polaris/pkg/policy"
	"polaris-hq/polaris/pkg/source"
)

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Watch a policy file and report changes",
	Long: `Watch FILE and print a summary every time it is reloaded.

Reloads are debounced, and a reload that fails to parse keeps the
previous tree. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := source.NewReloading(cmd.Context(),
			source.NewFile(source.FileConfig{Path: args[0]}),
			source.ReloadingConfig{Path: args[0]})
		if err != nil {
			return err
		}
		defer r.Stop()

		initial, err := r.Load(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "watching %s (%d entries)\n", args[0], len(initial.Paths()))

		return r.Watch(cmd.Context(), func(p *policy.Policy) {
			fmt.Fprintf(cmd.OutOrStdout(), "reloaded %s (%d entries)\n", args[0], len(p.Paths()))
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
