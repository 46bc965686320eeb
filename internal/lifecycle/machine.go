// Package lifecycle implements the run state machine and progress
// tracker. It owns every write to a run's authoritative fields and
// emits a change event after each one.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fsilva7456/commlink/internal/feed"
	"github.com/fsilva7456/commlink/internal/store"
	"github.com/fsilva7456/commlink/internal/types"
)

// InvalidTransitionError indicates a requested edge that is not in
// the transition graph. The caller must pick a reachable target.
type InvalidTransitionError struct {
	From types.RunStatus
	To   types.RunStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

// transitions is the allowed edge set: the pipeline order
// pending -> collecting -> training -> evaluating -> completed, any
// active stage may fail, and pending or failed runs may be
// (re)started into collecting.
var transitions = map[types.RunStatus][]types.RunStatus{
	types.StatusPending:    {types.StatusCollecting},
	types.StatusCollecting: {types.StatusTraining, types.StatusFailed},
	types.StatusTraining:   {types.StatusEvaluating, types.StatusFailed},
	types.StatusEvaluating: {types.StatusCompleted, types.StatusFailed},
	types.StatusCompleted:  {},
	types.StatusFailed:     {types.StatusCollecting},
}

// CanTransition reports whether the edge from -> to is allowed.
func CanTransition(from, to types.RunStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the targets reachable from a status.
func NextStatuses(from types.RunStatus) []types.RunStatus {
	next := transitions[from]
	out := make([]types.RunStatus, len(next))
	copy(out, next)
	return out
}

// Service coordinates run writes: it validates transitions against
// the graph, applies them through the store's compare-and-swap
// primitives, and publishes a change event carrying the updated run
// snapshot after every successful write.
type Service struct {
	store store.Store
	feed  *feed.Feed
	now   func() time.Time

	etaMu  sync.Mutex
	etaAvg map[uuid.UUID]float64 // EMA state per run, reset on transition
}

// NewService creates a lifecycle service over the given store and feed.
func NewService(st store.Store, f *feed.Feed) *Service {
	return &Service{
		store:  st,
		feed:   f,
		now:    time.Now,
		etaAvg: make(map[uuid.UUID]float64),
	}
}

// CreateRun creates a run in pending status and announces it.
func (s *Service) CreateRun(ctx context.Context, name string, cfg types.RunConfig, totalSteps int) (*types.Run, error) {
	run, err := s.store.CreateRun(ctx, name, cfg, totalSteps)
	if err != nil {
		return nil, err
	}
	s.feed.Publish(feed.Event{Type: feed.Inserted, Table: feed.TableRuns, EntityID: run.ID, Record: run})
	return run, nil
}

// Transition moves a run to target. The requested edge is validated
// against the graph from the run's last-read status, and the write is
// a compare-and-swap against that same status: if another writer got
// there first the call fails with store.ConflictError and mutates
// nothing. Exactly one concurrent caller wins.
func (s *Service) Transition(ctx context.Context, runID uuid.UUID, target types.RunStatus) (*types.Run, error) {
	if !target.Valid() {
		return nil, &InvalidTransitionError{To: target}
	}

	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(run.Status, target) {
		return nil, &InvalidTransitionError{From: run.Status, To: target}
	}

	updated, err := s.store.TransitionRun(ctx, runID, run.Status, target, s.now())
	if err != nil {
		return nil, err
	}

	// A transition invalidates any ETA history for the run.
	s.etaMu.Lock()
	delete(s.etaAvg, runID)
	s.etaMu.Unlock()

	s.feed.Publish(feed.Event{Type: feed.Updated, Table: feed.TableRuns, EntityID: updated.ID, Record: updated})
	return updated, nil
}

// DeleteRun removes a run with its metrics, models and episodes, and
// announces the deletion.
func (s *Service) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRun(ctx, runID); err != nil {
		return err
	}

	s.etaMu.Lock()
	delete(s.etaAvg, runID)
	s.etaMu.Unlock()

	s.feed.Publish(feed.Event{Type: feed.Deleted, Table: feed.TableRuns, EntityID: runID, Record: run})
	return nil
}
