package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit caps ListRuns when limit is not positive.
const DefaultListLimit = 20

// Fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// StartRun inserts a running record and returns its id. An empty id gets a new UUID.
func (s *Store) StartRun(ctx context.Context, id, idea, projectType, model string, at time.Time) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, idea, project_type, model, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, idea, projectType, model, RunStatusRunning, formatTime(at))
	if err != nil {
		return "", fmt.Errorf("failed to insert run %s: %w", id, err)
	}
	return id, nil
}

// UpdatePhase records the phase a run has reached.
func (s *Store) UpdatePhase(ctx context.Context, id, phase string) error {
	return s.updateRun(ctx, id, "UPDATE runs SET phase = ? WHERE id = ?", phase, id)
}

// RecordPhase upserts the outcome of one phase.
func (s *Store) RecordPhase(ctx context.Context, id string, rec PhaseRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_phases (run_id, phase, status, duration_ms, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, phase) DO UPDATE SET
			status = excluded.status,
			duration_ms = excluded.duration_ms,
			error = excluded.error,
			recorded_at = excluded.recorded_at`,
		id, rec.Phase, rec.Status, rec.Duration.Milliseconds(), rec.Error, formatTime(rec.RecordedAt))
	if err != nil {
		return fmt.Errorf("failed to record phase %s for run %s: %w", rec.Phase, id, err)
	}
	return nil
}

// RecordUsage replaces the usage rows of a run.
func (s *Store) RecordUsage(ctx context.Context, id string, usage []Usage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM run_usage WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear usage for run %s: %w", id, err)
	}
	for i := range usage {
		u := &usage[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_usage (run_id, agent, prompt_tokens, completion_tokens, requests, errors, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, u.Agent, u.PromptTokens, u.CompletionTokens, u.Requests, u.Errors, u.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("failed to insert usage for agent %s: %w", u.Agent, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit usage: %w", err)
	}
	return nil
}

// FinishRun marks a run completed.
func (s *Store) FinishRun(ctx context.Context, id, outputDir, archonProjectID string, at time.Time) error {
	return s.updateRun(ctx, id, `
		UPDATE runs SET status = ?, output_dir = ?, archon_project_id = ?, finished_at = ?
		WHERE id = ?`,
		RunStatusCompleted, outputDir, archonProjectID, formatTime(at), id)
}

// FailRun marks a run failed in phase.
func (s *Store) FailRun(ctx context.Context, id, phase string, cause error, at time.Time) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.updateRun(ctx, id, `
		UPDATE runs SET status = ?, failed_phase = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		RunStatusFailed, phase, msg, formatTime(at), id)
}

func (s *Store) updateRun(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

const runColumns = `id, idea, project_type, model, status, phase, failed_phase, error,
	output_dir, archon_project_id, started_at, finished_at`

// ListRuns returns the most recent runs first, without phases or usage.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun loads one run with its phases and usage.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if run.Phases, err = s.phases(ctx, id); err != nil {
		return nil, err
	}
	if run.Usage, err = s.usage(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) phases(ctx context.Context, id string) ([]PhaseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT phase, status, duration_ms, error, recorded_at
		FROM run_phases WHERE run_id = ? ORDER BY recorded_at, phase`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query phases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []PhaseRecord
	for rows.Next() {
		var (
			rec        PhaseRecord
			durationMS int64
			recordedAt string
		)
		if err := rows.Scan(&rec.Phase, &rec.Status, &durationMS, &rec.Error, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan phase: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.RecordedAt = parseTime(recordedAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate phases: %w", err)
	}
	return out, nil
}

func (s *Store) usage(ctx context.Context, id string) ([]Usage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent, prompt_tokens, completion_tokens, requests, errors, duration_ms
		FROM run_usage WHERE run_id = ? ORDER BY agent`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Usage
	for rows.Next() {
		var (
			u          Usage
			durationMS int64
		)
		if err := rows.Scan(&u.Agent, &u.PromptTokens, &u.CompletionTokens, &u.Requests, &u.Errors, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		u.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
	)
	err := row.Scan(&run.ID, &run.Idea, &run.ProjectType, &run.Model, &run.Status, &run.Phase,
		&run.FailedPhase, &run.Error, &run.OutputDir, &run.ArchonProjectID, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid && finishedAt.String != "" {
		t := parseTime(finishedAt.String)
		run.FinishedAt = &t
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
