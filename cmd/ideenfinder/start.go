package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"ideenfinder/pkg/agent/llmerrors"
	"ideenfinder/pkg/agent/middleware/metrics"
	"ideenfinder/pkg/agents"
	"ideenfinder/pkg/archon"
	"ideenfinder/pkg/config"
	"ideenfinder/pkg/console"
	"ideenfinder/pkg/logx"
	"ideenfinder/pkg/orchestrator"
	"ideenfinder/pkg/persistence"
	"ideenfinder/pkg/spec"
	"ideenfinder/pkg/version"
)

type startOptions struct {
	idea        string
	projectType string
	outputDir   string
	configPath  string
	yes         bool
	metricsFile string
}

func newStartCmd(a *app) *cobra.Command {
	var opts startOptions
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Analyze an idea and write the project plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.start(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.idea, "idea", "i", "", "the idea to analyze (prompted for when omitted)")
	f.StringVarP(&opts.projectType, "type", "t", spec.DefaultProjectType, "project category, e.g. web-app, mobile-app, cli")
	f.StringVarP(&opts.outputDir, "output", "o", "", "output directory (default <output.directory>/<timestamp>)")
	f.StringVarP(&opts.configPath, "config", "c", config.DefaultConfigFile, "config file")
	f.BoolVarP(&opts.yes, "yes", "y", false, "skip the confirmation prompt")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics of the run to this file")
	return cmd
}

func (a *app) start(ctx context.Context, opts startOptions) error {
	c := a.console
	logger := logx.NewLogger("cli")

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		c.Failure("configuration", err, configTip(err))
		return errReported
	}

	c.Banner(version.Version)

	idea, err := a.readIdea(opts)
	if err != nil {
		c.Failure("idea capture", err, "pass the idea with --idea \"...\"")
		return errReported
	}

	if c.Interactive() && !opts.yes {
		ok, err := c.Confirm("Proceed with analysis?", true)
		if err != nil {
			return err
		}
		if !ok {
			c.Info("Aborted.")
			return nil
		}
	}

	internal := metrics.NewInternalRecorder()
	registry := prometheus.NewRegistry()
	prom := metrics.NewPrometheusRecorder(registry)

	client, err := a.newClient(cfg, metrics.Multi(internal, prom))
	if err != nil {
		c.Failure("configuration", err, "check llm.provider and llm.model in "+cfg.Path)
		return errReported
	}

	searcher, err := archon.NewSearcher(cfg.Archon)
	if err != nil {
		return err
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithReporter(c),
		orchestrator.WithPhaseObserver(prom),
		orchestrator.WithUsage(internal),
	}
	if cfg.Archon.Enabled && cfg.Archon.AutoImport {
		orchOpts = append(orchOpts, orchestrator.WithImporter(archon.NewPublisher(archon.NewClientFromConfig(cfg.Archon))))
	}
	if cfg.History.Enabled {
		store, err := persistence.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("run history unavailable: %v", err)
		} else {
			defer func() { _ = store.Close() }()
			orchOpts = append(orchOpts, orchestrator.WithHistory(store))
		}
	}

	outDir := opts.outputDir
	if outDir == "" {
		outDir = orchestrator.RunDir(cfg.Output.Directory, time.Now())
	}

	orch := orchestrator.New(cfg, agents.NewSet(client, cfg, searcher), orchOpts...)
	res, runErr := orch.Run(ctx, idea, outDir)

	if opts.metricsFile != "" {
		if err := writeMetrics(opts.metricsFile, registry); err != nil {
			c.Warn(err.Error())
		}
	}

	if runErr != nil {
		var pe *orchestrator.PhaseError
		phase := ""
		if errors.As(runErr, &pe) {
			phase = fmt.Sprintf("phase %d (%s)", pe.Phase.Phase(), pe.Phase.Title())
		}
		c.Failure(phase, runErr, failureTip(runErr))
		return errReported
	}

	c.Success(console.Summary{
		RunID:        res.RunID,
		OutputDir:    res.OutputDir,
		Files:        res.Outputs,
		ArchonURL:    res.ArchonURL,
		Placeholders: res.Placeholders(),
		Duration:     res.Duration,
	})
	if total := internal.TotalTokens(); total > 0 {
		c.Info("Tokens used: %d", total)
	}
	return nil
}

func (a *app) readIdea(opts startOptions) (spec.IdeaInput, error) {
	description := strings.TrimSpace(opts.idea)
	if description == "" && a.console.Interactive() {
		answer, err := a.console.Prompt("Describe your idea:")
		if err != nil {
			return spec.IdeaInput{}, err
		}
		description = answer
	}
	return spec.NewIdeaInput(description, opts.projectType)
}

func writeMetrics(path string, g prometheus.Gatherer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	if err := metrics.WriteText(f, g); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close metrics file: %w", err)
	}
	return nil
}

func configTip(err error) string {
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		return "run `ideenfinder init` to create config.yaml and .env"
	case errors.Is(err, config.ErrMissingAPIKey):
		return "add your API key to .env (run `ideenfinder init` if it does not exist yet)"
	default:
		return "fix the configuration file and try again"
	}
}

func failureTip(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "the run was interrupted, nothing was written"
	case errors.Is(err, spec.ErrEmptyIdea):
		return "pass the idea with --idea \"...\""
	case llmerrors.Is(err, llmerrors.ErrorTypeAuth):
		return "check the API key in .env"
	case llmerrors.Is(err, llmerrors.ErrorTypeRateLimit), llmerrors.Is(err, llmerrors.ErrorTypeServiceUnavailable):
		return "the completion service is busy, try again in a few minutes"
	case errors.Is(err, orchestrator.ErrAllPlanningFailed), errors.Is(err, orchestrator.ErrPlanningFailed):
		return "check your network connection and model settings, then retry"
	default:
		return "run with DEBUG=1 for details"
	}
}
