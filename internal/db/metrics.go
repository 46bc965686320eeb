package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fsilva7456/commlink/internal/types"
)

// AppendMetric appends one epoch sample for a run. The insert is
// guarded so it only lands when the epoch is positive and strictly
// greater than every epoch already recorded for the run; an
// out-of-order append matches no row and returns nil. Appends for the
// same run take a per-run advisory lock so two producers racing under
// read committed cannot both pass the guard with conflicting epochs.
func (db *DB) AppendMetric(ctx context.Context, runID uuid.UUID, epoch int, loss, trajectoryError float64) (*types.Metric, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin metric append: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1::text))`, runID,
	); err != nil {
		return nil, fmt.Errorf("failed to lock metric series: %w", err)
	}

	var m types.Metric
	err = tx.QueryRow(ctx,
		`INSERT INTO metrics (run_id, epoch, loss, trajectory_error)
		 SELECT $1, $2, $3, $4
		 WHERE $2 > 0 AND NOT EXISTS (
		     SELECT 1 FROM metrics WHERE run_id = $1 AND epoch >= $2
		 )
		 RETURNING id, run_id, epoch, loss, trajectory_error, created_at`,
		runID, epoch, loss, trajectoryError,
	).Scan(&m.ID, &m.RunID, &m.Epoch, &m.Loss, &m.TrajectoryError, &m.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to append metric: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit metric append: %w", err)
	}
	return &m, nil
}

// ListMetrics retrieves all metrics for a run in epoch order
func (db *DB) ListMetrics(ctx context.Context, runID uuid.UUID) ([]types.Metric, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, epoch, loss, trajectory_error, created_at
		 FROM metrics WHERE run_id = $1 ORDER BY epoch`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}
	defer rows.Close()

	var metrics []types.Metric
	for rows.Next() {
		var m types.Metric
		if err := rows.Scan(&m.ID, &m.RunID, &m.Epoch, &m.Loss, &m.TrajectoryError, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// MinTrajectoryError returns the smallest trajectory error recorded
// for a run, or nil if the run has no metrics yet.
func (db *DB) MinTrajectoryError(ctx context.Context, runID uuid.UUID) (*float64, error) {
	var best *float64
	err := db.pool.QueryRow(ctx,
		`SELECT MIN(trajectory_error) FROM metrics WHERE run_id = $1`,
		runID,
	).Scan(&best)
	if err != nil {
		return nil, fmt.Errorf("failed to query best score: %w", err)
	}
	return best, nil
}

// LastEpoch returns the highest epoch recorded for a run, or 0 if the
// run has no metrics.
func (db *DB) LastEpoch(ctx context.Context, runID uuid.UUID) (int, error) {
	var last *int
	err := db.pool.QueryRow(ctx,
		`SELECT MAX(epoch) FROM metrics WHERE run_id = $1`,
		runID,
	).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("failed to query last epoch: %w", err)
	}
	if last == nil {
		return 0, nil
	}
	return *last, nil
}
