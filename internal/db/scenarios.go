package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fsilva7456/commlink/internal/types"
)

func scanScenario(row rowScanner) (*types.Scenario, error) {
	var s types.Scenario
	var waypointsJSON, configJSON []byte

	err := row.Scan(&s.ID, &s.Name, &s.Environment, &waypointsJSON, &s.Duration, &configJSON, &s.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(waypointsJSON) > 0 {
		if err := json.Unmarshal(waypointsJSON, &s.Waypoints); err != nil {
			return nil, fmt.Errorf("failed to parse scenario waypoints: %w", err)
		}
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &s.Config); err != nil {
			return nil, fmt.Errorf("failed to parse scenario config: %w", err)
		}
	}
	return &s, nil
}

// CreateScenario creates a scenario record
func (db *DB) CreateScenario(ctx context.Context, s *types.Scenario) (*types.Scenario, error) {
	waypointsJSON, err := json.Marshal(s.Waypoints)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal waypoints: %w", err)
	}
	configJSON, err := json.Marshal(s.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scenario config: %w", err)
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO scenarios (name, environment, waypoints, duration, config)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, name, environment, waypoints, duration, config, created_at`,
		s.Name, s.Environment, waypointsJSON, s.Duration, configJSON,
	)
	created, err := scanScenario(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario: %w", err)
	}
	return created, nil
}

// GetScenario retrieves a scenario by ID. Returns nil if none exists.
func (db *DB) GetScenario(ctx context.Context, scenarioID uuid.UUID) (*types.Scenario, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, name, environment, waypoints, duration, config, created_at
		 FROM scenarios WHERE id = $1`,
		scenarioID,
	)
	s, err := scanScenario(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scenario: %w", err)
	}
	return s, nil
}

// ListScenarios retrieves all scenarios ordered by name
func (db *DB) ListScenarios(ctx context.Context) ([]types.Scenario, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, environment, waypoints, duration, config, created_at
		 FROM scenarios ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []types.Scenario
	for rows.Next() {
		s, err := scanScenario(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		scenarios = append(scenarios, *s)
	}
	return scenarios, rows.Err()
}
