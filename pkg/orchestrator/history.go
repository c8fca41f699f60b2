package orchestrator

import (
	"context"
	"time"

	"ideenfinder/pkg/agent/middleware/metrics"
	"ideenfinder/pkg/persistence"
)

// History records runs. *persistence.Store implements it.
type History interface {
	StartRun(ctx context.Context, id, idea, projectType, model string, at time.Time) (string, error)
	UpdatePhase(ctx context.Context, id, phase string) error
	RecordPhase(ctx context.Context, id string, rec persistence.PhaseRecord) error
	RecordUsage(ctx context.Context, id string, usage []persistence.Usage) error
	FinishRun(ctx context.Context, id, outputDir, archonProjectID string, at time.Time) error
	FailRun(ctx context.Context, id, phase string, cause error, at time.Time) error
}

// history wraps History so that a failing or missing store never affects the run.
type history struct {
	store  History
	runID  string
	failed bool
	o      *Orchestrator
}

func (h *history) do(ctx context.Context, op string, fn func(ctx context.Context) error) {
	if h.store == nil || h.failed {
		return
	}
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		h.o.logger.Warn("history %s failed: %v", op, err)
	}
}

func (h *history) start(ctx context.Context, idea, projectType, model string, at time.Time) {
	if h.store == nil {
		return
	}
	if _, err := h.store.StartRun(context.WithoutCancel(ctx), h.runID, idea, projectType, model, at); err != nil {
		h.o.logger.Warn("history disabled for this run: %v", err)
		h.failed = true
	}
}

func (h *history) phase(ctx context.Context, state State) {
	h.do(ctx, "update phase", func(ctx context.Context) error {
		return h.store.UpdatePhase(ctx, h.runID, string(state))
	})
}

func (h *history) record(ctx context.Context, rec persistence.PhaseRecord) {
	h.do(ctx, "record phase", func(ctx context.Context) error {
		return h.store.RecordPhase(ctx, h.runID, rec)
	})
}

func (h *history) usage(ctx context.Context, rec *metrics.InternalRecorder) {
	if rec == nil {
		return
	}
	all := rec.All()
	usage := make([]persistence.Usage, 0, len(all))
	for i := range all {
		m := &all[i]
		usage = append(usage, persistence.Usage{
			Agent:            m.Agent,
			PromptTokens:     m.PromptTokens,
			CompletionTokens: m.CompletionTokens,
			Requests:         m.RequestCount,
			Errors:           m.ErrorCount,
			Duration:         m.TotalDuration,
		})
	}
	h.do(ctx, "record usage", func(ctx context.Context) error {
		return h.store.RecordUsage(ctx, h.runID, usage)
	})
}

func (h *history) finish(ctx context.Context, outputDir, archonProjectID string, at time.Time) {
	h.do(ctx, "finish run", func(ctx context.Context) error {
		return h.store.FinishRun(ctx, h.runID, outputDir, archonProjectID, at)
	})
}

func (h *history) fail(ctx context.Context, state State, cause error, at time.Time) {
	h.do(ctx, "fail run", func(ctx context.Context) error {
		return h.store.FailRun(ctx, h.runID, string(state), cause, at)
	})
}
