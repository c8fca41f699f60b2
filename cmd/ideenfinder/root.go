package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"ideenfinder/pkg/agent"
	"ideenfinder/pkg/agent/llm"
	"ideenfinder/pkg/agent/middleware/metrics"
	"ideenfinder/pkg/config"
	"ideenfinder/pkg/console"
)

// errReported marks a failure the console already explained to the user.
var errReported = errors.New("reported")

// app carries the process-level collaborators. Tests replace newClient.
type app struct {
	out       io.Writer
	in        io.Reader
	console   *console.Console
	newClient func(cfg config.Config, recorder metrics.Recorder) (llm.LLMClient, error)
}

func newApp(out io.Writer, in io.Reader) *app {
	return &app{
		out:     out,
		in:      in,
		console: console.New(out, in),
		newClient: func(cfg config.Config, recorder metrics.Recorder) (llm.LLMClient, error) {
			return agent.NewLLMClientFactory(cfg, recorder).CreateClient()
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ideenfinder",
		Short: "Turn a product idea into a structured project plan",
		Long: `Ideenfinder runs a short pipeline of AI agents over your idea:
market research, feature planning, tech stack and reuse analysis, and a final
validation. The result is written as JSON, a Markdown report and an Archon
import file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newStartCmd(a),
		newInitCmd(a),
		newVersionCmd(a),
		newHistoryCmd(a),
		newPublishCmd(a),
	)
	return root
}
