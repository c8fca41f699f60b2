package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ideenfinder/pkg/archon"
	"ideenfinder/pkg/config"
	"ideenfinder/pkg/output"
)

func newPublishCmd(a *app) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "publish RUN_DIR",
		Short: "Publish a finished run to Archon",
		Long: `Publish reads RUN_DIR/project-spec.json and creates an Archon project
with one document per section and tasks parsed from the feature plan.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, config.SkipAPIKeyCheck())
			if err != nil {
				return err
			}
			if cfg.Archon.APIURL == "" {
				return errors.New("archon.api_url is not set")
			}

			doc, err := output.ReadJSON(filepath.Join(args[0], output.JSONFile))
			if err != nil {
				return err
			}

			publisher := archon.NewPublisher(archon.NewClientFromConfig(cfg.Archon))
			res, err := publisher.Publish(cmd.Context(), archon.BuildImport(doc))
			if err != nil {
				a.console.Failure("publish", err, fmt.Sprintf("check that Archon is running at %s", cfg.Archon.APIURL))
				return errReported
			}
			for _, w := range res.Warnings {
				a.console.Warn(w)
			}
			a.console.Info("Published %q: %d documents, %d tasks", doc.Project.Title, res.DocumentsCreated, res.TasksCreated)
			a.console.Info("Archon project: %s", res.ProjectURL)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "config file")
	return cmd
}
