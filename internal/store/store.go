// Package store routes all reads and writes to either the PostgreSQL
// persistence layer or a deterministic synthetic fixture set, behind
// one contract. Mode selection happens once, in Open; nothing above
// this package branches on the backing mode.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fsilva7456/commlink/internal/config"
	"github.com/fsilva7456/commlink/internal/db"
	"github.com/fsilva7456/commlink/internal/types"
)

// RunFilters holds optional filters for listing runs
type RunFilters struct {
	Status types.RunStatus
	Limit  int
}

// Store is the single read/write contract consumed by the state
// machine, progress tracker, metrics aggregator and HTTP layer.
// Both backends provide identical semantics:
//
//   - TransitionRun is a compare-and-swap on status; exactly one
//     concurrent caller wins, the rest get ConflictError.
//   - ApplyProgress only lands strictly-increasing values under an
//     unchanged status; stale reports return applied=false, not an
//     error.
//   - AppendMetric rejects non-increasing epochs with
//     NonMonotonicEpochError.
//   - DeleteRun removes the run and its metrics, models and episodes
//     atomically.
type Store interface {
	CreateRun(ctx context.Context, name string, cfg types.RunConfig, totalSteps int) (*types.Run, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*types.Run, error)
	ListRuns(ctx context.Context, filters RunFilters) ([]types.Run, error)
	TransitionRun(ctx context.Context, runID uuid.UUID, from, to types.RunStatus, now time.Time) (*types.Run, error)
	ApplyProgress(ctx context.Context, runID uuid.UUID, status types.RunStatus, progress float64, etaSeconds *int64) (run *types.Run, applied bool, err error)
	DeleteRun(ctx context.Context, runID uuid.UUID) error

	AppendMetric(ctx context.Context, runID uuid.UUID, epoch int, loss, trajectoryError float64) (*types.Metric, error)
	ListMetrics(ctx context.Context, runID uuid.UUID) ([]types.Metric, error)
	MinTrajectoryError(ctx context.Context, runID uuid.UUID) (*float64, error)

	CreateModel(ctx context.Context, runID uuid.UUID, version int, checkpointURL string, evalScore float64) (*types.Model, error)
	ListModels(ctx context.Context, runID uuid.UUID) ([]types.Model, error)
	CreateEpisode(ctx context.Context, runID, scenarioID uuid.UUID, dataURL string, frames int) (*types.Episode, error)
	ListEpisodes(ctx context.Context, runID uuid.UUID) ([]types.Episode, error)

	// Scenarios are read-only to the lifecycle core; CreateScenario
	// exists for seeding.
	CreateScenario(ctx context.Context, s *types.Scenario) (*types.Scenario, error)
	GetScenario(ctx context.Context, scenarioID uuid.UUID) (*types.Scenario, error)
	ListScenarios(ctx context.Context) ([]types.Scenario, error)

	Close()
}

// Open selects and constructs the backing store from configuration.
// This is the only place the mode is inspected.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Mode {
	case config.ModeSynthetic:
		return NewSynthetic(cfg.SyntheticSeed), nil
	case config.ModeLive:
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open live store: %w", err)
		}
		return NewLive(database), nil
	default:
		return nil, fmt.Errorf("unknown data source mode %q", cfg.Mode)
	}
}
