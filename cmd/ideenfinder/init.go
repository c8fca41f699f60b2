package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ideenfinder/pkg/config"
)

func newInitCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config.yaml and .env from the built-in defaults",
		Long: `Init writes config.yaml and .env into the target directory.
Existing files are never overwritten, so running it again is safe.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			results, err := config.Init(dir)
			for _, r := range results {
				if r.Created {
					a.console.Info("created %s", r.Path)
				} else {
					a.console.Info("%s exists, left unchanged", r.Path)
				}
			}
			if err != nil {
				return fmt.Errorf("init failed: %w", err)
			}
			a.console.Info("\nNext: add your API key to .env, then run `ideenfinder start`.")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to write the files to")
	return cmd
}
