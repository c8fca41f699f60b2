package persistence

import "time"

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Phase statuses.
const (
	PhaseStatusOK          = "ok"
	PhaseStatusPlaceholder = "placeholder"
	PhaseStatusFailed      = "failed"
)

// Run is one pipeline execution.
type Run struct {
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
	ID              string        `json:"id"`
	Idea            string        `json:"idea"`
	ProjectType     string        `json:"project_type"`
	Model           string        `json:"model"`
	Status          string        `json:"status"`
	Phase           string        `json:"phase"`
	FailedPhase     string        `json:"failed_phase,omitempty"`
	Error           string        `json:"error,omitempty"`
	OutputDir       string        `json:"output_dir,omitempty"`
	ArchonProjectID string        `json:"archon_project_id,omitempty"`
	Phases          []PhaseRecord `json:"phases,omitempty"`
	Usage           []Usage       `json:"usage,omitempty"`
}

// Duration is the wall time of a finished run, 0 while it is running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PhaseRecord is the outcome of one phase or agent within a run.
type PhaseRecord struct {
	RecordedAt time.Time     `json:"recorded_at"`
	Phase      string        `json:"phase"`
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Usage is the token consumption of one agent within a run.
type Usage struct {
	Agent            string        `json:"agent"`
	PromptTokens     int64         `json:"prompt_tokens"`
	CompletionTokens int64         `json:"completion_tokens"`
	Requests         int64         `json:"requests"`
	Errors           int64         `json:"errors"`
	Duration         time.Duration `json:"duration"`
}

// TotalTokens sums prompt and completion tokens.
func (u Usage) TotalTokens() int64 {
	return u.PromptTokens + u.CompletionTokens
}
