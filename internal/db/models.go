package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fsilva7456/commlink/internal/types"
)

// CreateModel records a trained checkpoint for a run
func (db *DB) CreateModel(ctx context.Context, runID uuid.UUID, version int, checkpointURL string, evalScore float64) (*types.Model, error) {
	var m types.Model
	err := db.pool.QueryRow(ctx,
		`INSERT INTO models (run_id, version, checkpoint_url, eval_score)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, run_id, version, checkpoint_url, eval_score, created_at`,
		runID, version, checkpointURL, evalScore,
	).Scan(&m.ID, &m.RunID, &m.Version, &m.CheckpointURL, &m.EvalScore, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	return &m, nil
}

// ListModels retrieves the models for a run, newest first
func (db *DB) ListModels(ctx context.Context, runID uuid.UUID) ([]types.Model, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, version, checkpoint_url, eval_score, created_at
		 FROM models WHERE run_id = $1 ORDER BY created_at DESC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	var models []types.Model
	for rows.Next() {
		var m types.Model
		if err := rows.Scan(&m.ID, &m.RunID, &m.Version, &m.CheckpointURL, &m.EvalScore, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// CreateEpisode records a collected episode for a run
func (db *DB) CreateEpisode(ctx context.Context, runID, scenarioID uuid.UUID, dataURL string, frames int) (*types.Episode, error) {
	var e types.Episode
	err := db.pool.QueryRow(ctx,
		`INSERT INTO episodes (run_id, scenario_id, data_url, frames)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, run_id, scenario_id, data_url, frames, created_at`,
		runID, scenarioID, dataURL, frames,
	).Scan(&e.ID, &e.RunID, &e.ScenarioID, &e.DataURL, &e.Frames, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create episode: %w", err)
	}
	return &e, nil
}

// ListEpisodes retrieves the episodes for a run in collection order
func (db *DB) ListEpisodes(ctx context.Context, runID uuid.UUID) ([]types.Episode, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, scenario_id, data_url, frames, created_at
		 FROM episodes WHERE run_id = $1 ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []types.Episode
	for rows.Next() {
		var e types.Episode
		if err := rows.Scan(&e.ID, &e.RunID, &e.ScenarioID, &e.DataURL, &e.Frames, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}
