// Package types provides type definitions for structured data used throughout the commlink system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a training run.
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusCollecting RunStatus = "collecting"
	StatusTraining   RunStatus = "training"
	StatusEvaluating RunStatus = "evaluating"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// Statuses lists every valid run status, in lifecycle order.
var Statuses = []RunStatus{
	StatusPending,
	StatusCollecting,
	StatusTraining,
	StatusEvaluating,
	StatusCompleted,
	StatusFailed,
}

// Valid reports whether s is one of the six known statuses.
func (s RunStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCollecting, StatusTraining, StatusEvaluating, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Active reports whether s is one of the in-flight stages
// (collecting, training, evaluating).
func (s RunStatus) Active() bool {
	switch s {
	case StatusCollecting, StatusTraining, StatusEvaluating:
		return true
	}
	return false
}

// Terminal reports whether s is completed or failed.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// DefaultTotalSteps is the number of pipeline stages a run moves
// through (collecting, training, evaluating).
const DefaultTotalSteps = 3

// Run represents one multi-stage training run. The status,
// current_step, progress, started_at and eta_seconds fields are
// authoritative and mutated only through state-machine transitions
// and progress reports.
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Status      RunStatus  `json:"status"`
	Config      RunConfig  `json:"config"`
	CurrentStep *RunStatus `json:"current_step,omitempty"` // set iff Status.Active()
	Progress    float64    `json:"progress"`
	TotalSteps  int        `json:"total_steps"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EtaSeconds  *int64     `json:"eta_seconds,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Activity is the tagged view of a run's "is it running, and how far
// along" state. Exactly one of the optional fields is meaningful for
// a given kind, which rules out the invalid combinations the flat
// column set would otherwise allow.
type Activity struct {
	Kind      ActivityKind `json:"kind"`
	Step      RunStatus    `json:"step,omitempty"`        // Active only
	Fraction  float64      `json:"fraction,omitempty"`    // Active only
	Eta       *int64       `json:"eta_seconds,omitempty"` // Active only
	Succeeded bool         `json:"succeeded,omitempty"`   // Terminal only
}

// ActivityKind discriminates the Activity variant.
type ActivityKind string

const (
	ActivityInactive ActivityKind = "inactive"
	ActivityActive   ActivityKind = "active"
	ActivityTerminal ActivityKind = "terminal"
)

// Activity derives the tagged activity view from the run's
// authoritative fields.
func (r *Run) Activity() Activity {
	switch {
	case r.Status.Active():
		a := Activity{Kind: ActivityActive, Fraction: r.Progress, Eta: r.EtaSeconds}
		if r.CurrentStep != nil {
			a.Step = *r.CurrentStep
		}
		return a
	case r.Status.Terminal():
		return Activity{Kind: ActivityTerminal, Succeeded: r.Status == StatusCompleted}
	default:
		return Activity{Kind: ActivityInactive}
	}
}

// Validate checks the run's structural invariants: a known status,
// current_step present exactly when the run is in an active stage,
// progress within [0,1], and progress forced to 1 on completion.
func (r *Run) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("unknown run status %q", r.Status)
	}
	if r.Status.Active() != (r.CurrentStep != nil) {
		return fmt.Errorf("current_step must be set iff status is active (status=%s)", r.Status)
	}
	if r.CurrentStep != nil && !r.CurrentStep.Active() {
		return fmt.Errorf("current_step %q is not a stage", *r.CurrentStep)
	}
	if r.Progress < 0 || r.Progress > 1 {
		return fmt.Errorf("progress %v out of range [0,1]", r.Progress)
	}
	if r.Status == StatusCompleted && r.Progress != 1 {
		return fmt.Errorf("completed run must have progress 1, got %v", r.Progress)
	}
	if r.TotalSteps <= 0 {
		return fmt.Errorf("total_steps must be positive, got %d", r.TotalSteps)
	}
	if r.EtaSeconds != nil && *r.EtaSeconds < 0 {
		return fmt.Errorf("eta_seconds must be non-negative, got %d", *r.EtaSeconds)
	}
	if r.UpdatedAt.Before(r.CreatedAt) {
		return fmt.Errorf("updated_at %v precedes created_at %v", r.UpdatedAt, r.CreatedAt)
	}
	return nil
}
