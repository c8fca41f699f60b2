// Package fanout runs independent labeled tasks concurrently and joins their
// outcomes into one label-keyed result set.
//
// Every task runs to completion: a failing or panicking task never cancels its
// siblings, only the caller's context can. Each task writes only its own
// pre-allocated slot, so the mapping from label to outcome does not depend on
// completion order.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"ideenfinder/pkg/spec"
)

// ErrDuplicateLabel is returned when two tasks share a label.
var ErrDuplicateLabel = errors.New("duplicate task label")

// ErrLabelMismatch is the outcome error of a task whose result carries another task's label.
var ErrLabelMismatch = errors.New("result label does not match task")

// ErrMissingRun is returned for a task without a Run function.
var ErrMissingRun = errors.New("task has no run function")

// Task is one unit of concurrent work.
type Task struct {
	Label spec.Label
	Run   func(ctx context.Context) (spec.PhaseResult, error)
}

// Outcome is the resolved state of one task.
type Outcome struct {
	Result   spec.PhaseResult
	Err      error
	Duration time.Duration
}

// OK reports whether the task succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Results maps each task label to its outcome.
type Results map[spec.Label]Outcome

// Labels returns every label, sorted.
func (r Results) Labels() []spec.Label {
	return r.filter(func(Outcome) bool { return true })
}

// Failed returns the labels whose task failed, sorted.
func (r Results) Failed() []spec.Label {
	return r.filter(func(o Outcome) bool { return !o.OK() })
}

// Succeeded returns the labels whose task succeeded, sorted.
func (r Results) Succeeded() []spec.Label {
	return r.filter(Outcome.OK)
}

func (r Results) filter(keep func(Outcome) bool) []spec.Label {
	labels := make([]spec.Label, 0, len(r))
	for l, o := range r {
		if keep(o) {
			labels = append(labels, l)
		}
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

// Observer is notified as tasks start and finish. Calls arrive from the task
// goroutines concurrently.
type Observer interface {
	TaskStarted(label spec.Label)
	TaskFinished(label spec.Label, outcome Outcome)
}

// Option configures an Executor.
type Option func(*Executor)

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(e *Executor) { e.observer = o }
}

// WithClock overrides the clock used to measure durations.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// Executor runs task sets.
type Executor struct {
	observer Observer
	now      func() time.Time
}

// New creates an executor.
func New(opts ...Option) *Executor {
	e := &Executor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs tasks with the default executor.
func Execute(ctx context.Context, tasks []Task) (Results, error) {
	return New().Execute(ctx, tasks)
}

// Execute starts every task at once and blocks until all of them resolved.
// The returned Results holds exactly one outcome per task label.
func (e *Executor) Execute(ctx context.Context, tasks []Task) (Results, error) {
	seen := make(map[spec.Label]struct{}, len(tasks))
	for _, t := range tasks {
		if t.Run == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingRun, t.Label)
		}
		if _, dup := seen[t.Label]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLabel, t.Label)
		}
		seen[t.Label] = struct{}{}
	}

	outcomes := make([]Outcome, len(tasks))
	var wg conc.WaitGroup
	for i := range tasks {
		wg.Go(func() {
			outcomes[i] = e.run(ctx, tasks[i])
		})
	}
	wg.Wait()

	results := make(Results, len(tasks))
	for i, t := range tasks {
		results[t.Label] = outcomes[i]
	}
	return results, nil
}

func (e *Executor) run(ctx context.Context, t Task) Outcome {
	if e.observer != nil {
		e.observer.TaskStarted(t.Label)
	}

	start := e.now()
	var out Outcome
	var pc panics.Catcher
	pc.Try(func() {
		out.Result, out.Err = t.Run(ctx)
	})
	if r := pc.Recovered(); r != nil {
		out = Outcome{Err: fmt.Errorf("task %s panicked: %w", t.Label, r.AsError())}
	}
	out.Duration = e.now().Sub(start)
	if out.Err == nil {
		switch out.Result.Label {
		case "":
			out.Result.Label = t.Label
		case t.Label:
		default:
			out.Err = fmt.Errorf("%w: task %s returned %s", ErrLabelMismatch, t.Label, out.Result.Label)
			out.Result = spec.PhaseResult{}
		}
	}

	if e.observer != nil {
		e.observer.TaskFinished(t.Label, out)
	}
	return out
}
