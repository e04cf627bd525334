package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/source"
	"polaris-hq/polaris/pkg/store"
)

var snapshotFlags struct {
	db       string
	name     string
	format   string
	schedule string
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage policy snapshots in a database",
	Long: `Capture, list, restore, and delete named policy snapshots.

Snapshots live in a SQLite database as serialized policy documents, so
rows stay inspectable with ordinary SQL tooling. Saving under an
existing name replaces the previous capture and keeps its creation
time.`,
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save FILE",
	Short: "Capture a policy file into the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		syncer, err := store.NewSyncer(
			source.NewFile(source.FileConfig{Path: args[0]}),
			st,
			store.SyncerConfig{Name: snapshotFlags.name},
		)
		if err != nil {
			return err
		}
		snap, err := syncer.Capture(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s as %q (id %s, %d entries)\n",
			args[0], snap.Name, snap.ID, len(snap.Policy.Paths()))
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		snaps, err := st.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no snapshots")
			return nil
		}
		for _, s := range snaps {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-8s %4d entries  updated %s\n",
				s.Name, s.Format, len(s.Policy.Paths()), s.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Write a stored snapshot to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		snap, err := st.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		impl, ok := format.Lookup(snap.Format)
		if !ok {
			return fmt.Errorf("snapshot stored in unknown format %q", snap.Format)
		}
		return impl.NewWriter(cmd.OutOrStdout()).Write(snap.Policy, true)
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		return st.Delete(cmd.Context(), args[0])
	},
}

var snapshotSyncCmd = &cobra.Command{
	Use:   "sync FILE",
	Short: "Capture a policy file on a cron schedule",
	Long: `Capture FILE into the database on a cron schedule until interrupted.

Example:
  # Nightly at 3 AM
  polaris snapshot sync --db snapshots.db --name prod --schedule "0 3 * * *" pipeline.paf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if snapshotFlags.schedule == "" {
			return fmt.Errorf("--schedule is required")
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		syncer, err := store.NewSyncer(
			source.NewFile(source.FileConfig{Path: args[0]}),
			st,
			store.SyncerConfig{Name: snapshotFlags.name, Schedule: snapshotFlags.schedule},
		)
		if err != nil {
			return err
		}

		// Capture once up front so the schedule starts from a known state.
		if _, err := syncer.Capture(cmd.Context()); err != nil {
			return err
		}
		if err := syncer.Start(cmd.Context()); err != nil {
			return err
		}
		defer syncer.Stop()

		if next := syncer.NextRun(); next != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "syncing %s as %q, next run %s\n",
				args[0], snapshotFlags.name, next.Format("2006-01-02 15:04:05"))
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sig:
		case <-cmd.Context().Done():
		}
		return nil
	},
}

func openStore() (store.Store, error) {
	if snapshotFlags.db == "" {
		return nil, fmt.Errorf("--db is required")
	}
	return store.NewSQLiteStoreWithConfig(store.SQLiteConfig{
		DBPath: snapshotFlags.db,
		Format: snapshotFlags.format,
	})
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotListCmd, snapshotShowCmd,
		snapshotDeleteCmd, snapshotSyncCmd)

	snapshotCmd.PersistentFlags().StringVar(&snapshotFlags.db, "db", "", "snapshot database path (required)")
	snapshotCmd.PersistentFlags().StringVar(&snapshotFlags.name, "name", "default", "snapshot name")
	snapshotCmd.PersistentFlags().StringVar(&snapshotFlags.format, "format", "", "storage format (default paf)")
	snapshotSyncCmd.Flags().StringVar(&snapshotFlags.schedule, "schedule", "", "cron schedule, e.g. \"0 3 * * *\"")
}
