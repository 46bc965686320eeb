package types

import (
	"time"

	"github.com/google/uuid"
)

// Waypoint is one point on a scenario's flight path, in metres.
type Waypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Scenario is a flight-plan configuration referenced by runs. It is
// an independent entity: runs point at it by id but do not own it,
// and the core treats it as read-only.
type Scenario struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Environment string         `json:"environment"`
	Waypoints   []Waypoint     `json:"waypoints"`
	Duration    int            `json:"duration"` // seconds
	Config      map[string]any `json:"config,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
