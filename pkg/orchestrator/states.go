package orchestrator

import (
	"errors"
	"fmt"
)

// State is a pipeline state.
type State string

// Pipeline states.
const (
	StateIdle     State = "IDLE"
	StatePhase0   State = "PHASE_0"
	StatePhase1   State = "PHASE_1"
	StatePhase2   State = "PHASE_2"
	StatePhase3   State = "PHASE_3"
	StatePhase4   State = "PHASE_4"
	StatePhase5   State = "PHASE_5"
	StateComplete State = "COMPLETE"
	StateFailed   State = "FAILED"
)

// ErrInvalidTransition is returned for a transition the table does not allow.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines the pipeline state machine. It is strictly linear;
// every non-terminal state may fail.
//
//nolint:gochecknoglobals // state machine definition
var validTransitions = map[State][]State{
	StateIdle:     {StatePhase0, StateFailed},
	StatePhase0:   {StatePhase1, StateFailed},
	StatePhase1:   {StatePhase2, StateFailed},
	StatePhase2:   {StatePhase3, StateFailed},
	StatePhase3:   {StatePhase4, StateFailed},
	StatePhase4:   {StatePhase5, StateFailed},
	StatePhase5:   {StateComplete, StateFailed},
	StateComplete: {},
	StateFailed:   {},
}

//nolint:gochecknoglobals // read-only table
var phaseTitles = map[State]string{
	StatePhase0: "Idea Capture",
	StatePhase1: "Research",
	StatePhase2: "Parallel Planning",
	StatePhase3: "Consolidation",
	StatePhase4: "Validation",
	StatePhase5: "Output",
}

// IsValidTransition reports whether from -> to is allowed.
func IsValidTransition(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidNextStates returns the states reachable from from.
func ValidNextStates(from State) []State {
	return validTransitions[from]
}

// IsTerminal reports whether s has no outgoing transitions.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

// Phase returns the phase number of a PHASE_n state, or -1.
func (s State) Phase() int {
	var n int
	if _, err := fmt.Sscanf(string(s), "PHASE_%d", &n); err != nil {
		return -1
	}
	return n
}

// Title is the human-readable phase name.
func (s State) Title() string {
	if t, ok := phaseTitles[s]; ok {
		return t
	}
	return string(s)
}

// PhaseError names the phase a run failed in.
type PhaseError struct {
	Phase State
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Phase, e.Phase.Title(), e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
