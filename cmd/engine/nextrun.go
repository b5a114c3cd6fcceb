package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"techflow-engine/internal/scheduler"
	"techflow-engine/internal/settings"
	"techflow-engine/internal/store"
)

func nextRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "next-run",
		Short: "Print when the stored schedule fires next",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, err := resolveDataDir()
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(dataDir)
			if err != nil {
				return err
			}
			db, err := store.Open(filepath.Join(cfg.App.DataDir, dbFile))
			if err != nil {
				return err
			}
			defer db.Close()

			sc, err := settings.New(db, cfg).Schedule(cmd.Context())
			if err != nil {
				return err
			}
			next := scheduler.ComputeNextRun(sc, time.Now())
			if next == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "disabled")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n", next.Format(time.RFC3339), sc.Frequency, sc.Time)
			return nil
		},
	}
}
