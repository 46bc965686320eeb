package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fsilva7456/commlink/internal/db"
	"github.com/fsilva7456/commlink/internal/types"
)

// Live is the Store implementation backed by PostgreSQL. It is a thin
// adapter over internal/db that translates "no row" results into the
// store error taxonomy.
type Live struct {
	db *db.DB
}

// NewLive wraps a connected database in the Store contract
func NewLive(database *db.DB) *Live {
	return &Live{db: database}
}

// Close releases the underlying connection pool
func (l *Live) Close() {
	l.db.Close()
}

// CreateRun creates a new run in pending status
func (l *Live) CreateRun(ctx context.Context, name string, cfg types.RunConfig, totalSteps int) (*types.Run, error) {
	return l.db.CreateRun(ctx, name, cfg, totalSteps)
}

// GetRun retrieves a run by id
func (l *Live) GetRun(ctx context.Context, runID uuid.UUID) (*types.Run, error) {
	run, err := l.db.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, &NotFoundError{Kind: "run", ID: runID}
	}
	return run, nil
}

// ListRuns lists runs, newest first
func (l *Live) ListRuns(ctx context.Context, filters RunFilters) ([]types.Run, error) {
	return l.db.ListRuns(ctx, db.RunFilters{Status: filters.Status, Limit: filters.Limit})
}

// TransitionRun performs the CAS status transition. A missed update
// is disambiguated by re-reading: unknown id means NotFoundError,
// anything else means the caller lost the race.
func (l *Live) TransitionRun(ctx context.Context, runID uuid.UUID, from, to types.RunStatus, now time.Time) (*types.Run, error) {
	run, err := l.db.TransitionRun(ctx, runID, from, to, now)
	if err != nil {
		return nil, err
	}
	if run != nil {
		return run, nil
	}

	current, err := l.db.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &NotFoundError{Kind: "run", ID: runID}
	}
	return nil, &ConflictError{RunID: runID, Expected: from, Actual: current.Status}
}

// ApplyProgress conditionally advances progress; stale reports are
// not errors.
func (l *Live) ApplyProgress(ctx context.Context, runID uuid.UUID, status types.RunStatus, progress float64, etaSeconds *int64) (*types.Run, bool, error) {
	run, err := l.db.ApplyProgress(ctx, runID, status, progress, etaSeconds)
	if err != nil {
		return nil, false, err
	}
	if run != nil {
		return run, true, nil
	}

	current, err := l.db.GetRun(ctx, runID)
	if err != nil {
		return nil, false, err
	}
	if current == nil {
		return nil, false, &NotFoundError{Kind: "run", ID: runID}
	}
	// Stale or duplicate report: dropped, not an error.
	return current, false, nil
}

// DeleteRun deletes a run and its dependents atomically
func (l *Live) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	deleted, err := l.db.DeleteRun(ctx, runID)
	if err != nil {
		return err
	}
	if !deleted {
		return &NotFoundError{Kind: "run", ID: runID}
	}
	return nil
}

// AppendMetric appends one epoch sample, rejecting out-of-order epochs
func (l *Live) AppendMetric(ctx context.Context, runID uuid.UUID, epoch int, loss, trajectoryError float64) (*types.Metric, error) {
	m, err := l.db.AppendMetric(ctx, runID, epoch, loss, trajectoryError)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}

	run, err := l.db.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, &NotFoundError{Kind: "run", ID: runID}
	}
	last, err := l.db.LastEpoch(ctx, runID)
	if err != nil {
		return nil, err
	}
	return nil, &NonMonotonicEpochError{RunID: runID, Epoch: epoch, LastEpoch: last}
}

// ListMetrics returns a run's metric series in epoch order
func (l *Live) ListMetrics(ctx context.Context, runID uuid.UUID) ([]types.Metric, error) {
	return l.db.ListMetrics(ctx, runID)
}

// MinTrajectoryError returns the smallest trajectory error recorded,
// or nil when the run has no metrics.
func (l *Live) MinTrajectoryError(ctx context.Context, runID uuid.UUID) (*float64, error) {
	return l.db.MinTrajectoryError(ctx, runID)
}

// CreateModel records a checkpoint for a run
func (l *Live) CreateModel(ctx context.Context, runID uuid.UUID, version int, checkpointURL string, evalScore float64) (*types.Model, error) {
	return l.db.CreateModel(ctx, runID, version, checkpointURL, evalScore)
}

// ListModels lists a run's checkpoints
func (l *Live) ListModels(ctx context.Context, runID uuid.UUID) ([]types.Model, error) {
	return l.db.ListModels(ctx, runID)
}

// CreateEpisode records a collected episode for a run
func (l *Live) CreateEpisode(ctx context.Context, runID, scenarioID uuid.UUID, dataURL string, frames int) (*types.Episode, error) {
	return l.db.CreateEpisode(ctx, runID, scenarioID, dataURL, frames)
}

// ListEpisodes lists a run's episodes
func (l *Live) ListEpisodes(ctx context.Context, runID uuid.UUID) ([]types.Episode, error) {
	return l.db.ListEpisodes(ctx, runID)
}

// CreateScenario creates a scenario record
func (l *Live) CreateScenario(ctx context.Context, s *types.Scenario) (*types.Scenario, error) {
	return l.db.CreateScenario(ctx, s)
}

// GetScenario retrieves a scenario by id
func (l *Live) GetScenario(ctx context.Context, scenarioID uuid.UUID) (*types.Scenario, error) {
	s, err := l.db.GetScenario(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &NotFoundError{Kind: "scenario", ID: scenarioID}
	}
	return s, nil
}

// ListScenarios lists all scenarios
func (l *Live) ListScenarios(ctx context.Context) ([]types.Scenario, error) {
	return l.db.ListScenarios(ctx)
}
