// Package orchestrator sequences a run through its phases: idea capture,
// research, parallel planning, consolidation, validation and output, followed
// by the optional Archon import.
//
// An Orchestrator runs exactly once. Its state only moves forward along the
// transition table in states.go; any failure ends the run in FAILED and leaves
// no output directory behind.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ideenfinder/pkg/agent/middleware/metrics"
	"ideenfinder/pkg/agents"
	"ideenfinder/pkg/archon"
	"ideenfinder/pkg/config"
	"ideenfinder/pkg/fanout"
	"ideenfinder/pkg/logx"
	"ideenfinder/pkg/output"
	"ideenfinder/pkg/persistence"
	"ideenfinder/pkg/spec"
)

var (
	// ErrAlreadyRun is returned when Run is called a second time.
	ErrAlreadyRun = errors.New("orchestrator has already run")
	// ErrAllPlanningFailed is returned when no planning agent produced a section.
	ErrAllPlanningFailed = errors.New("all planning agents failed")
	// ErrPlanningFailed is returned for a planning failure under fail_on_planning_error.
	ErrPlanningFailed = errors.New("planning agent failed")
)

// RunDirLayout names per-run output directories.
const RunDirLayout = "20060102_150405"

// RunDir returns the default output directory for a run started at t.
func RunDir(base string, t time.Time) string {
	return filepath.Join(base, t.Format(RunDirLayout))
}

// Importer publishes an import payload. *archon.Publisher implements it.
type Importer interface {
	Publish(ctx context.Context, imp archon.Import) (*archon.PublishResult, error)
}

// Result is the outcome of a run.
type Result struct {
	RunID    string
	Document *spec.Document
	// Outputs maps each written format to its file path.
	Outputs         map[string]string
	OutputDir       string
	ArchonProjectID string
	ArchonURL       string
	State           State
	Duration        time.Duration
}

// Placeholders lists the sections that could not be generated.
func (r *Result) Placeholders() []spec.Label {
	if r == nil || r.Document == nil {
		return nil
	}
	failures := r.Document.Failures()
	labels := make([]spec.Label, len(failures))
	for i, f := range failures {
		labels[i] = f.Phase
	}
	return labels
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithHistory records the run in h.
func WithHistory(h History) Option {
	return func(o *Orchestrator) { o.history = h }
}

// WithImporter enables the Archon auto-import through imp.
func WithImporter(imp Importer) Option {
	return func(o *Orchestrator) { o.importer = imp }
}

// WithPhaseObserver records phase durations.
func WithPhaseObserver(p PhaseObserver) Option {
	return func(o *Orchestrator) { o.phases = p }
}

// WithUsage stores the per-agent usage of rec in the history at the end of the run.
func WithUsage(rec *metrics.InternalRecorder) Option {
	return func(o *Orchestrator) { o.usage = rec }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.Now = now }
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = id }
}

// Orchestrator drives one run.
type Orchestrator struct {
	// Now is the clock. Tests replace it.
	Now func() time.Time

	cfg       config.Config
	agents    *agents.Set
	formatter *output.Formatter
	reporter  Reporter
	phases    PhaseObserver
	history   History
	importer  Importer
	usage     *metrics.InternalRecorder
	logger    *logx.Logger
	runID     string

	mu    sync.Mutex
	state State
	ran   bool
}

// New creates an orchestrator over set.
func New(cfg config.Config, set *agents.Set, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		Now:       time.Now,
		cfg:       cfg,
		agents:    set,
		formatter: output.NewFormatter(cfg.Output.Formats),
		reporter:  nopReporter{},
		phases:    nopPhaseObserver{},
		logger:    logx.NewLogger("orchestrator"),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) transition(to State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !IsValidTransition(o.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.state, to)
	}
	o.logger.Debug("%s -> %s", o.state, to)
	o.state = to
	return nil
}

// run carries the values phases hand to each other.
type run struct {
	idea     spec.IdeaInput
	research spec.PhaseResult
	planning []spec.PhaseResult
	doc      *spec.Document
	hist     *history
	result   *Result
}

// Run executes every phase and writes the outputs to outDir. On failure the
// returned Result has State FAILED and the error is a *PhaseError.
func (o *Orchestrator) Run(ctx context.Context, idea spec.IdeaInput, outDir string) (*Result, error) {
	o.mu.Lock()
	if o.ran {
		o.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	o.ran = true
	o.mu.Unlock()

	runID := o.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logx.WithComponent(ctx, "orchestrator")
	started := o.Now()

	r := &run{
		idea:   idea,
		hist:   &history{store: o.history, runID: runID, o: o},
		result: &Result{RunID: runID, OutputDir: outDir, State: StateIdle},
	}
	r.hist.start(ctx, idea.Description, idea.Type, o.cfg.LLM.ModelName(), started)

	steps := []struct {
		state State
		fn    func(context.Context, *run) error
	}{
		{StatePhase0, o.captureIdea},
		{StatePhase1, o.research},
		{StatePhase2, o.plan},
		{StatePhase3, o.consolidate},
		{StatePhase4, o.validate},
		{StatePhase5, o.writeOutputs},
	}
	for _, step := range steps {
		if err := o.phase(ctx, r, step.state, step.fn); err != nil {
			return o.fail(ctx, r, err, started)
		}
	}

	o.autoImport(ctx, r)

	if err := o.transition(StateComplete); err != nil {
		return o.fail(ctx, r, err, started)
	}
	r.result.State = StateComplete
	r.result.Duration = o.Now().Sub(started)
	r.hist.usage(ctx, o.usage)
	r.hist.finish(ctx, r.result.OutputDir, r.result.ArchonProjectID, o.Now())
	o.logger.Info("run %s complete in %s", runID, r.result.Duration.Round(time.Millisecond))
	return r.result, nil
}

func (o *Orchestrator) phase(ctx context.Context, r *run, state State, fn func(context.Context, *run) error) error {
	if err := o.transition(state); err != nil {
		return err
	}
	r.result.State = state
	r.hist.phase(ctx, state)
	o.reporter.PhaseStarted(state.Phase(), state.Title())

	start := o.Now()
	err := ctx.Err()
	if err == nil {
		err = fn(ctx, r)
	}
	d := o.Now().Sub(start)

	o.reporter.PhaseFinished(state.Phase(), err, d)
	o.phases.ObservePhase(strings.ToLower(string(state)), err == nil, d)

	rec := persistence.PhaseRecord{Phase: string(state), Status: persistence.PhaseStatusOK, Duration: d, RecordedAt: o.Now()}
	if err != nil {
		rec.Status = persistence.PhaseStatusFailed
		rec.Error = err.Error()
	}
	r.hist.record(ctx, rec)

	if err != nil {
		return &PhaseError{Phase: state, Err: err}
	}
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, r *run, err error, started time.Time) (*Result, error) {
	failedIn := r.result.State
	var pe *PhaseError
	if !errors.As(err, &pe) {
		pe = &PhaseError{Phase: failedIn, Err: err}
	}
	if tErr := o.transition(StateFailed); tErr != nil {
		o.logger.Error("cannot mark run failed: %v", tErr)
	}
	r.result.State = StateFailed
	r.result.Duration = o.Now().Sub(started)
	r.result.Outputs = nil

	r.hist.usage(ctx, o.usage)
	r.hist.fail(ctx, pe.Phase, pe.Err, o.Now())
	o.logger.Error("run %s failed in %s: %v", r.result.RunID, pe.Phase, pe.Err)
	return r.result, pe
}

// captureIdea normalizes and validates the idea.
func (o *Orchestrator) captureIdea(_ context.Context, r *run) error {
	idea, err := spec.NewIdeaInput(r.idea.Description, r.idea.Type)
	if err != nil {
		return err
	}
	r.idea = idea
	o.logger.Info("idea captured: %q (%s)", idea.Title(), idea.Type)
	return nil
}

func (o *Orchestrator) research(ctx context.Context, r *run) error {
	res, err := o.agents.Research.Run(ctx, agents.Input{Idea: r.idea})
	if err != nil {
		return err
	}
	r.research = res
	return nil
}

// plan runs the planning agents concurrently. A failed agent yields a
// placeholder unless the configuration makes planning failures fatal.
func (o *Orchestrator) plan(ctx context.Context, r *run) error {
	planning := o.agents.Planning()
	byLabel := make(map[spec.Label]*agents.Agent, len(planning))
	tasks := make([]fanout.Task, 0, len(planning))
	in := agents.Input{Idea: r.idea, Research: r.research.Text}
	for _, a := range planning {
		byLabel[a.Label] = a
		tasks = append(tasks, fanout.Task{
			Label: a.Label,
			Run: func(ctx context.Context) (spec.PhaseResult, error) {
				return a.Run(ctx, in)
			},
		})
	}

	results, err := fanout.New(fanout.WithObserver(o.reporter), fanout.WithClock(o.Now)).Execute(ctx, tasks)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	failed := results.Failed()
	if len(failed) == len(tasks) {
		return fmt.Errorf("%w: %w", ErrAllPlanningFailed, errors.Join(outcomeErrors(results, failed)...))
	}
	if len(failed) > 0 && o.cfg.Pipeline.FailOnPlanningError {
		return fmt.Errorf("%w: %w", ErrPlanningFailed, errors.Join(outcomeErrors(results, failed)...))
	}

	r.planning = r.planning[:0]
	for _, a := range planning {
		outcome := results[a.Label]
		rec := persistence.PhaseRecord{
			Phase:      string(a.Label),
			Status:     persistence.PhaseStatusOK,
			Duration:   outcome.Duration,
			RecordedAt: o.Now(),
		}
		if outcome.OK() {
			r.planning = append(r.planning, outcome.Result)
		} else {
			o.reporter.Warn(fmt.Sprintf("%s failed, continuing with a placeholder section", byLabel[a.Label].Name))
			r.planning = append(r.planning, spec.NewPlaceholder(a.Label, byLabel[a.Label].Name, outcome.Err))
			rec.Status = persistence.PhaseStatusPlaceholder
			rec.Error = outcome.Err.Error()
		}
		r.hist.record(ctx, rec)
	}
	return nil
}

func outcomeErrors(results fanout.Results, labels []spec.Label) []error {
	errs := make([]error, 0, len(labels))
	for _, l := range labels {
		errs = append(errs, results[l].Err)
	}
	return errs
}

func (o *Orchestrator) consolidate(_ context.Context, r *run) error {
	results := append([]spec.PhaseResult{r.research}, r.planning...)
	doc, err := spec.Consolidate(r.result.RunID, r.idea, o.Now(), results...)
	if err != nil {
		return err
	}
	r.doc = doc
	return nil
}

func (o *Orchestrator) validate(ctx context.Context, r *run) error {
	res, err := o.agents.Validator.Run(ctx, agents.Input{
		Idea:     r.idea,
		Research: r.research.Text,
		Sections: agents.ValidationSections(r.doc),
	})
	if err != nil {
		return err
	}
	if err := r.doc.Put(res); err != nil {
		return err
	}
	r.result.Document = r.doc
	return nil
}

func (o *Orchestrator) writeOutputs(_ context.Context, r *run) error {
	outputs, err := o.formatter.Write(r.doc, r.result.OutputDir)
	if err != nil {
		return err
	}
	r.result.Outputs = outputs
	return nil
}

// autoImport publishes the document to Archon. It never fails the run.
func (o *Orchestrator) autoImport(ctx context.Context, r *run) {
	if o.importer == nil || !o.cfg.Archon.Enabled || !o.cfg.Archon.AutoImport {
		return
	}
	res, err := o.importer.Publish(ctx, archon.BuildImport(r.doc))
	if err != nil {
		o.logger.Warn("Archon import failed: %v", err)
		o.reporter.Warn(fmt.Sprintf("Archon import failed (%v); import %s manually", err, output.ArchonFile))
		return
	}
	for _, w := range res.Warnings {
		o.reporter.Warn(w)
	}
	r.result.ArchonProjectID = res.ProjectID
	r.result.ArchonURL = res.ProjectURL
	o.logger.Info("imported into Archon as project %s (%d documents, %d tasks)", res.ProjectID, res.DocumentsCreated, res.TasksCreated)
}
