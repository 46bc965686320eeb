package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fsilva7456/commlink/internal/types"
)

const runColumns = `id, name, status, config, current_step, progress, total_steps,
	started_at, eta_seconds, created_at, updated_at`

// rowScanner is satisfied by both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*types.Run, error) {
	var run types.Run
	var configJSON []byte
	var currentStep *string

	err := row.Scan(&run.ID, &run.Name, &run.Status, &configJSON, &currentStep,
		&run.Progress, &run.TotalSteps, &run.StartedAt, &run.EtaSeconds,
		&run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &run.Config); err != nil {
			return nil, fmt.Errorf("failed to parse run config: %w", err)
		}
	}
	if currentStep != nil {
		step := types.RunStatus(*currentStep)
		run.CurrentStep = &step
	}

	return &run, nil
}

// CreateRun creates a new run record in pending status
func (db *DB) CreateRun(ctx context.Context, name string, cfg types.RunConfig, totalSteps int) (*types.Run, error) {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run config: %w", err)
	}
	if totalSteps <= 0 {
		totalSteps = types.DefaultTotalSteps
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO runs (name, status, config, total_steps)
		 VALUES ($1, 'pending', $2, $3)
		 RETURNING `+runColumns,
		name, configJSON, totalSteps,
	)
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID. Returns nil if no run exists.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*types.Run, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = $1`, runID)
	run, err := scanRun(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// RunFilters holds optional filters for listing runs
type RunFilters struct {
	Status types.RunStatus
	Limit  int
}

// ListRuns retrieves runs ordered by creation time, newest first
func (db *DB) ListRuns(ctx context.Context, filters RunFilters) ([]types.Run, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []types.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// TransitionRun applies a state transition as a compare-and-swap
// against the expected previous status. The stage-dependent effects
// ride in the same statement so they are atomic with the swap:
// current_step follows the target status, progress is forced to 1 on
// completion, started_at is set on first entry into an active stage,
// eta is cleared on terminal states, and restarting a failed run
// starts over: progress drops to 0 and started_at moves to now.
//
// Returns nil if no row matched — the caller distinguishes a missing
// run from a lost race by re-reading.
func (db *DB) TransitionRun(ctx context.Context, runID uuid.UUID, from, to types.RunStatus, now time.Time) (*types.Run, error) {
	var currentStep *string
	if to.Active() {
		s := string(to)
		currentStep = &s
	}

	row := db.pool.QueryRow(ctx,
		`UPDATE runs
		 SET status = $2,
		     current_step = $3,
		     progress = CASE WHEN $5 = 'failed' THEN 0 WHEN $2 = 'completed' THEN 1 ELSE progress END,
		     started_at = CASE WHEN $5 = 'failed' THEN $4 WHEN $3 IS NOT NULL THEN COALESCE(started_at, $4) ELSE started_at END,
		     eta_seconds = CASE WHEN $2 IN ('completed', 'failed') THEN NULL ELSE eta_seconds END,
		     updated_at = NOW()
		 WHERE id = $1 AND status = $5
		 RETURNING `+runColumns,
		runID, to, currentStep, now, from,
	)
	run, err := scanRun(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to transition run: %w", err)
	}
	return run, nil
}

// ApplyProgress conditionally advances a run's progress. The update
// only lands if the run is still in the given status and the new
// value is strictly greater than the stored one; stale or duplicate
// reports match no row. Returns nil when nothing was applied.
func (db *DB) ApplyProgress(ctx context.Context, runID uuid.UUID, status types.RunStatus, progress float64, etaSeconds *int64) (*types.Run, error) {
	row := db.pool.QueryRow(ctx,
		`UPDATE runs
		 SET progress = $3, eta_seconds = $4, updated_at = NOW()
		 WHERE id = $1 AND status = $2 AND progress < $3
		 RETURNING `+runColumns,
		runID, status, progress, etaSeconds,
	)
	run, err := scanRun(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to apply progress: %w", err)
	}
	return run, nil
}

// DeleteRun deletes a run and all its metrics, models and episodes.
// The dependent rows go via ON DELETE CASCADE, so the delete is atomic:
// either everything disappears or nothing does.
func (db *DB) DeleteRun(ctx context.Context, runID uuid.UUID) (bool, error) {
	result, err := db.pool.Exec(ctx, `DELETE FROM runs WHERE id = $1`, runID)
	if err != nil {
		return false, fmt.Errorf("failed to delete run: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
