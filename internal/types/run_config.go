package types

import "github.com/google/uuid"

// RunConfigVersion is the current schema version for RunConfig
// documents. Stored alongside the config so older rows remain
// interpretable if fields are added later.
const RunConfigVersion = 1

// RunConfig is the training configuration attached to a run. The core
// stores and forwards it opaquely; structural validation happens once
// at the API boundary (see internal/schemas), and domain semantics are
// the trainer's business, not ours.
type RunConfig struct {
	Version           int       `json:"version,omitempty"`
	ScenarioID        uuid.UUID `json:"scenario_id,omitempty"`
	ModelArchitecture string    `json:"model_architecture,omitempty"`
	LearningRate      float64   `json:"learning_rate,omitempty"`
	BatchSize         int       `json:"batch_size,omitempty"`
	Epochs            int       `json:"epochs,omitempty"`
	TrajectoryHorizon int       `json:"trajectory_horizon,omitempty"`
	LatentDim         int       `json:"latent_dim,omitempty"`
}
