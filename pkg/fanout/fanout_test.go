package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideenfinder/pkg/spec"
)

func sleepTask(label spec.Label, d time.Duration, err error) Task {
	return Task{
		Label: label,
		Run: func(ctx context.Context) (spec.PhaseResult, error) {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return spec.PhaseResult{}, ctx.Err()
			}
			if err != nil {
				return spec.PhaseResult{}, err
			}
			return spec.PhaseResult{Label: label, Text: string(label) + " done"}, nil
		},
	}
}

func TestExecuteAllLabelsPresentForAnyOrder(t *testing.T) {
	orders := [][]time.Duration{
		{30 * time.Millisecond, 20 * time.Millisecond, 10 * time.Millisecond},
		{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond},
		{20 * time.Millisecond, 10 * time.Millisecond, 30 * time.Millisecond},
	}
	for _, delays := range orders {
		tasks := []Task{
			sleepTask(spec.LabelFeatures, delays[0], nil),
			sleepTask(spec.LabelTechstack, delays[1], nil),
			sleepTask(spec.LabelReusability, delays[2], nil),
		}

		results, err := Execute(context.Background(), tasks)
		require.NoError(t, err)
		require.Len(t, results, 3)
		for _, label := range spec.PlanningLabels() {
			assert.Equal(t, string(label)+" done", results[label].Result.Text, "no cross-assignment for %s", label)
		}
	}
}

func TestExecuteRunsConcurrently(t *testing.T) {
	tasks := []Task{
		sleepTask(spec.LabelFeatures, 100*time.Millisecond, nil),
		sleepTask(spec.LabelTechstack, 150*time.Millisecond, nil),
		sleepTask(spec.LabelReusability, 200*time.Millisecond, nil),
	}

	start := time.Now()
	_, err := Execute(context.Background(), tasks)
	require.NoError(t, err)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond, "wall time should track the slowest task, not the sum")
}

func TestExecuteFailureDoesNotCancelSiblings(t *testing.T) {
	boom := errors.New("rate limited")
	tasks := []Task{
		sleepTask(spec.LabelFeatures, 50*time.Millisecond, nil),
		sleepTask(spec.LabelTechstack, time.Millisecond, boom),
		sleepTask(spec.LabelReusability, 50*time.Millisecond, nil),
	}

	results, err := Execute(context.Background(), tasks)
	require.NoError(t, err)

	assert.Equal(t, []spec.Label{spec.LabelTechstack}, results.Failed())
	assert.Equal(t, []spec.Label{spec.LabelFeatures, spec.LabelReusability}, results.Succeeded())
	assert.ErrorIs(t, results[spec.LabelTechstack].Err, boom)
	assert.Len(t, results.Labels(), 3)
}

func TestExecuteRecoversPanics(t *testing.T) {
	tasks := []Task{
		{Label: spec.LabelFeatures, Run: func(context.Context) (spec.PhaseResult, error) { panic("kaboom") }},
		sleepTask(spec.LabelTechstack, time.Millisecond, nil),
	}

	results, err := Execute(context.Background(), tasks)
	require.NoError(t, err)
	require.Error(t, results[spec.LabelFeatures].Err)
	assert.Contains(t, results[spec.LabelFeatures].Err.Error(), "kaboom")
	assert.True(t, results[spec.LabelTechstack].OK())
}

func TestExecuteCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tasks := []Task{
		sleepTask(spec.LabelFeatures, time.Hour, nil),
		sleepTask(spec.LabelTechstack, time.Hour, nil),
	}
	time.AfterFunc(10*time.Millisecond, cancel)

	results, err := Execute(ctx, tasks)
	require.NoError(t, err)
	assert.ErrorIs(t, results[spec.LabelFeatures].Err, context.Canceled)
	assert.ErrorIs(t, results[spec.LabelTechstack].Err, context.Canceled)
}

func TestExecuteRejectsDuplicateLabels(t *testing.T) {
	ran := false
	tasks := []Task{
		{Label: spec.LabelFeatures, Run: func(context.Context) (spec.PhaseResult, error) { ran = true; return spec.PhaseResult{}, nil }},
		{Label: spec.LabelFeatures, Run: func(context.Context) (spec.PhaseResult, error) { ran = true; return spec.PhaseResult{}, nil }},
	}

	_, err := Execute(context.Background(), tasks)
	require.ErrorIs(t, err, ErrDuplicateLabel)
	assert.False(t, ran, "nothing may start when labels collide")
}

func TestExecuteFillsMissingResultLabel(t *testing.T) {
	tasks := []Task{{Label: spec.LabelFeatures, Run: func(context.Context) (spec.PhaseResult, error) {
		return spec.PhaseResult{Text: "x"}, nil
	}}}

	results, err := Execute(context.Background(), tasks)
	require.NoError(t, err)
	assert.Equal(t, spec.LabelFeatures, results[spec.LabelFeatures].Result.Label)
}

func TestExecuteRejectsForeignResultLabel(t *testing.T) {
	tasks := []Task{
		{Label: spec.LabelFeatures, Run: func(context.Context) (spec.PhaseResult, error) {
			return spec.PhaseResult{Label: spec.LabelTechstack, Text: "stack"}, nil
		}},
		{Label: spec.LabelTechstack, Run: func(context.Context) (spec.PhaseResult, error) {
			return spec.PhaseResult{Label: spec.LabelTechstack, Text: "stack"}, nil
		}},
	}

	results, err := Execute(context.Background(), tasks)
	require.NoError(t, err)

	features := results[spec.LabelFeatures]
	assert.False(t, features.OK())
	assert.ErrorIs(t, features.Err, ErrLabelMismatch)
	assert.Empty(t, features.Result.Label)
	assert.True(t, results[spec.LabelTechstack].OK())
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []spec.Label
	finished map[spec.Label]Outcome
}

func (r *recordingObserver) TaskStarted(label spec.Label) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, label)
}

func (r *recordingObserver) TaskFinished(label spec.Label, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[label] = o
}

func TestExecuteNotifiesObserver(t *testing.T) {
	obs := &recordingObserver{finished: make(map[spec.Label]Outcome)}
	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}

	tasks := []Task{
		sleepTask(spec.LabelFeatures, time.Millisecond, nil),
		sleepTask(spec.LabelTechstack, time.Millisecond, errors.New("x")),
	}
	results, err := New(WithObserver(obs), WithClock(clock)).Execute(context.Background(), tasks)
	require.NoError(t, err)

	assert.ElementsMatch(t, []spec.Label{spec.LabelFeatures, spec.LabelTechstack}, obs.started)
	require.Len(t, obs.finished, 2)
	assert.False(t, obs.finished[spec.LabelTechstack].OK())
	assert.Positive(t, results[spec.LabelFeatures].Duration)
}
