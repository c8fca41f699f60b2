// Package metrics records latency, token usage and outcomes of completion calls.
package metrics

import (
	"context"
	"time"
)

// Recorder defines the interface for recording LLM operation metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed LLM request.
	ObserveRequest(
		model, agent string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (NoopRecorder) ObserveRequest(_, _ string, _, _ int, _ bool, _ string, _ time.Duration) {}

// multi fans one observation out to several recorders.
type multi []Recorder

// Multi returns a recorder that forwards to every non-nil recorder.
func Multi(recorders ...Recorder) Recorder {
	out := make(multi, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multi) ObserveRequest(model, agent string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration) {
	for _, r := range m {
		r.ObserveRequest(model, agent, promptTokens, completionTokens, success, errorType, duration)
	}
}

type agentKey struct{}

// WithAgent tags ctx with the agent issuing the request.
func WithAgent(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, agentKey{}, agent)
}

// AgentFrom returns the agent tag stored in ctx, or "unknown".
func AgentFrom(ctx context.Context) string {
	if agent, ok := ctx.Value(agentKey{}).(string); ok && agent != "" {
		return agent
	}
	return "unknown"
}
