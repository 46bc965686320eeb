// Package metrics maintains per-run metric series and a running best
// score over them.
package metrics

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fsilva7456/commlink/internal/feed"
	"github.com/fsilva7456/commlink/internal/store"
	"github.com/fsilva7456/commlink/internal/types"
)

// Aggregator appends epoch metrics and keeps an incrementally
// maintained minimum trajectory error per run, so best-score reads
// never rescan the series. The cache hydrates lazily from the store
// and is evicted when the owning run disappears from the change feed.
type Aggregator struct {
	store store.Store
	feed  *feed.Feed

	mu   sync.Mutex
	best map[uuid.UUID]*float64 // nil entry: hydrated, no metrics yet
}

// New creates an aggregator over the given store and feed.
func New(st store.Store, f *feed.Feed) *Aggregator {
	return &Aggregator{
		store: st,
		feed:  f,
		best:  make(map[uuid.UUID]*float64),
	}
}

// Append records one epoch sample for a run. Epochs must be strictly
// increasing per run; an out-of-order append fails with
// store.NonMonotonicEpochError and leaves the series untouched. On
// success the running minimum is folded in (O(1)) and a metric event
// is published.
func (a *Aggregator) Append(ctx context.Context, runID uuid.UUID, epoch int, loss, trajectoryError float64) (*types.Metric, error) {
	if err := a.ensureHydrated(ctx, runID); err != nil {
		return nil, err
	}

	m, err := a.store.AppendMetric(ctx, runID, epoch, loss, trajectoryError)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	if cur, ok := a.best[runID]; !ok || cur == nil || m.TrajectoryError < *cur {
		v := m.TrajectoryError
		a.best[runID] = &v
	}
	a.mu.Unlock()

	a.feed.Publish(feed.Event{Type: feed.Inserted, Table: feed.TableMetrics, EntityID: runID, Record: m})
	return m, nil
}

// BestScore returns the minimum trajectory error recorded for the
// run, or nil if it has no metrics yet.
func (a *Aggregator) BestScore(ctx context.Context, runID uuid.UUID) (*float64, error) {
	if err := a.ensureHydrated(ctx, runID); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	cur := a.best[runID]
	if cur == nil {
		return nil, nil
	}
	v := *cur
	return &v, nil
}

// ensureHydrated loads the run's current minimum from the store the
// first time the run is seen. Also verifies the run exists, so
// unknown ids surface as NotFoundError rather than an empty series.
func (a *Aggregator) ensureHydrated(ctx context.Context, runID uuid.UUID) error {
	a.mu.Lock()
	_, ok := a.best[runID]
	a.mu.Unlock()
	if ok {
		return nil
	}

	if _, err := a.store.GetRun(ctx, runID); err != nil {
		return err
	}
	best, err := a.store.MinTrajectoryError(ctx, runID)
	if err != nil {
		return err
	}

	a.mu.Lock()
	if _, ok := a.best[runID]; !ok {
		a.best[runID] = best
	}
	a.mu.Unlock()
	return nil
}

// Run consumes run-deletion events from the feed and evicts the
// corresponding cache entries, until ctx is cancelled. Intended to be
// supervised alongside the HTTP server.
func (a *Aggregator) Run(ctx context.Context) error {
	sub := a.feed.Subscribe(feed.Filter{Table: feed.TableRuns})
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			if ev.Type == feed.Deleted {
				a.mu.Lock()
				delete(a.best, ev.EntityID)
				a.mu.Unlock()
			}
		}
	}
}
