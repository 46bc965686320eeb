package types

import (
	"github.com/go-playground/validator/v10"
)

// CreateRunRequest represents the run creation request.
type CreateRunRequest struct {
	Name       string    `json:"name" validate:"required,min=1,max=255"`
	Config     RunConfig `json:"config"`
	TotalSteps int       `json:"total_steps,omitempty" validate:"omitempty,min=1"`
}

// TransitionRequest represents a status transition request.
type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// ProgressRequest represents a step progress report.
type ProgressRequest struct {
	StepIndex int     `json:"step_index" validate:"min=0"`
	Fraction  float64 `json:"fraction" validate:"min=0,max=1"`
}

// AppendMetricRequest represents a per-epoch metric sample.
type AppendMetricRequest struct {
	Epoch           int     `json:"epoch" validate:"min=1"`
	Loss            float64 `json:"loss" validate:"min=0"`
	TrajectoryError float64 `json:"trajectory_error" validate:"min=0"`
}

// CreateModelRequest represents a checkpoint registration.
type CreateModelRequest struct {
	Version       int     `json:"version" validate:"min=1"`
	CheckpointURL string  `json:"checkpoint_url" validate:"required,min=1"`
	EvalScore     float64 `json:"eval_score"`
}

// CreateEpisodeRequest represents a collected episode registration.
type CreateEpisodeRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required,uuid"`
	DataURL    string `json:"data_url" validate:"required,min=1"`
	Frames     int    `json:"frames" validate:"min=1"`
}

// Validate validates the CreateRunRequest using the validator.
func (r *CreateRunRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the TransitionRequest using the validator.
func (r *TransitionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ProgressRequest using the validator.
func (r *ProgressRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the AppendMetricRequest using the validator.
func (r *AppendMetricRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the CreateModelRequest using the validator.
func (r *CreateModelRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the CreateEpisodeRequest using the validator.
func (r *CreateEpisodeRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
