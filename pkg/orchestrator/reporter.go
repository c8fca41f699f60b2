package orchestrator

import (
	"time"

	"ideenfinder/pkg/fanout"
	"ideenfinder/pkg/spec"
)

// Reporter receives progress as the run advances. The fan-out callbacks may
// arrive concurrently.
type Reporter interface {
	fanout.Observer
	PhaseStarted(phase int, title string)
	PhaseFinished(phase int, err error, d time.Duration)
	Warn(msg string)
}

// PhaseObserver records phase durations, e.g. *metrics.PrometheusRecorder.
type PhaseObserver interface {
	ObservePhase(phase string, success bool, duration time.Duration)
}

type nopReporter struct{}

func (nopReporter) TaskStarted(spec.Label)                 {}
func (nopReporter) TaskFinished(spec.Label, fanout.Outcome) {}
func (nopReporter) PhaseStarted(int, string)               {}
func (nopReporter) PhaseFinished(int, error, time.Duration) {}
func (nopReporter) Warn(string)                            {}

type nopPhaseObserver struct{}

func (nopPhaseObserver) ObservePhase(string, bool, time.Duration) {}
