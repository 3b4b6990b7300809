package store

import (
	"errors"
	"time"

	"github.com/hexperiment/sircontrol/pkg/sir"
)

// RunID is a unique identifier for a simulation run.
type RunID string

// RunStatus is the lifecycle state of a run. Completed and failed are
// terminal; records never leave a terminal state.
type RunStatus string

const (
	RunStatusCreated   RunStatus = "created"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

var (
	// ErrNotFound is returned when no run exists for an id.
	ErrNotFound = errors.New("run not found")

	// ErrInvalidState is returned when a terminal transition is attempted
	// on a run that is not in the created state. Completing twice is a
	// caller bug, not an idempotent no-op.
	ErrInvalidState = errors.New("run is not in created state")
)

// Run is a registry record: the parameters a simulation was started with,
// its status, and the sampled series once it has completed.
type Run struct {
	RunID       RunID          `json:"run_id"`
	Status      RunStatus      `json:"status"`
	Parameters  sir.Parameters `json:"parameters"`
	Series      []sir.Point    `json:"series,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// RunSummary is a Run without its series, for listings. Failed runs keep
// their cause so listings can explain themselves.
type RunSummary struct {
	RunID       RunID          `json:"run_id"`
	Status      RunStatus      `json:"status"`
	Parameters  sir.Parameters `json:"parameters"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Summary projects a Run to its listing form.
func (r *Run) Summary() RunSummary {
	return RunSummary{
		RunID:       r.RunID,
		Status:      r.Status,
		Parameters:  r.Parameters,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
}
