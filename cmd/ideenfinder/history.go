package main

import (
	"time"

	"github.com/spf13/cobra"

	"ideenfinder/pkg/config"
	"ideenfinder/pkg/persistence"
	"ideenfinder/pkg/utils"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		configPath string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, config.SkipAPIKeyCheck())
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				a.console.Info("Run history is disabled (history.enabled: false).")
				return nil
			}
			if !utils.FileExists(cfg.History.Path) {
				a.console.Info("No runs recorded yet.")
				return nil
			}

			store, err := persistence.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				a.console.Info("No runs recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for i := range runs {
				r := &runs[i]
				rows = append(rows, []string{
					shortID(r.ID),
					r.StartedAt.Local().Format(time.DateTime),
					r.Status,
					dash(r.FailedPhase),
					utils.TruncateRunes(r.Idea, 40),
					dash(r.OutputDir),
				})
			}
			a.console.Table([]string{"ID", "STARTED", "STATUS", "FAILED PHASE", "IDEA", "OUTPUT"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "config file")
	cmd.Flags().IntVar(&limit, "limit", persistence.DefaultListLimit, "maximum number of runs to list")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
