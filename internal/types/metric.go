package types

import (
	"time"

	"github.com/google/uuid"
)

// Metric is one epoch's loss/error sample for a run. Metrics are
// append-only: epochs are strictly increasing per run, rows are never
// mutated or reordered, and they disappear only when the owning run
// is deleted.
type Metric struct {
	ID              uuid.UUID `json:"id"`
	RunID           uuid.UUID `json:"run_id"`
	Epoch           int       `json:"epoch"`
	Loss            float64   `json:"loss"`
	TrajectoryError float64   `json:"trajectory_error"`
	CreatedAt       time.Time `json:"created_at"`
}

// Model is a trained checkpoint produced by a run.
type Model struct {
	ID            uuid.UUID `json:"id"`
	RunID         uuid.UUID `json:"run_id"`
	Version       int       `json:"version"`
	CheckpointURL string    `json:"checkpoint_url"`
	EvalScore     float64   `json:"eval_score"`
	CreatedAt     time.Time `json:"created_at"`
}

// Episode is one recorded flight trajectory owned by a run.
type Episode struct {
	ID         uuid.UUID `json:"id"`
	RunID      uuid.UUID `json:"run_id"`
	ScenarioID uuid.UUID `json:"scenario_id"`
	DataURL    string    `json:"data_url"`
	Frames     int       `json:"frames"`
	CreatedAt  time.Time `json:"created_at"`
}
