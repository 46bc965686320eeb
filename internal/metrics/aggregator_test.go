package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsilva7456/commlink/internal/feed"
	"github.com/fsilva7456/commlink/internal/store"
	"github.com/fsilva7456/commlink/internal/types"
)

func newTestAggregator(t *testing.T) (*Aggregator, *store.Synthetic, *feed.Feed) {
	t.Helper()
	st := store.NewSynthetic(1)
	f := feed.New(256)
	t.Cleanup(f.Close)
	return New(st, f), st, f
}

func newRun(t *testing.T, st store.Store) *types.Run {
	t.Helper()
	run, err := st.CreateRun(context.Background(), "metrics-test", types.RunConfig{}, 0)
	require.NoError(t, err)
	return run
}

func TestAppend_TracksRunningMinimum(t *testing.T) {
	agg, st, _ := newTestAggregator(t)
	ctx := context.Background()
	run := newRun(t, st)

	errors := []float64{0.5, 0.4, 0.45, 0.3, 0.35}
	for i, te := range errors {
		_, err := agg.Append(ctx, run.ID, i+1, 1.0-float64(i)*0.1, te)
		require.NoError(t, err)
	}

	best, err := agg.BestScore(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, 0.3, *best)

	// The cached value matches a full rescan of the series.
	recomputed, err := st.MinTrajectoryError(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, *recomputed, *best)
}

func TestBestScore_NoneWithoutMetrics(t *testing.T) {
	agg, st, _ := newTestAggregator(t)
	run := newRun(t, st)

	best, err := agg.BestScore(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Nil(t, best)
}

func TestBestScore_UnknownRun(t *testing.T) {
	agg, _, _ := newTestAggregator(t)

	_, err := agg.BestScore(context.Background(), uuid.New())
	assert.True(t, store.IsNotFound(err))
}

func TestBestScore_HydratesFromExistingSeries(t *testing.T) {
	agg, st, _ := newTestAggregator(t)
	ctx := context.Background()
	run := newRun(t, st)

	// Metrics written before this aggregator ever saw the run.
	_, err := st.AppendMetric(ctx, run.ID, 1, 0.9, 0.42)
	require.NoError(t, err)
	_, err = st.AppendMetric(ctx, run.ID, 2, 0.8, 0.37)
	require.NoError(t, err)

	best, err := agg.BestScore(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, 0.37, *best)
}

func TestAppend_RejectsNonMonotonicEpoch(t *testing.T) {
	agg, st, _ := newTestAggregator(t)
	ctx := context.Background()
	run := newRun(t, st)

	_, err := agg.Append(ctx, run.ID, 1, 0.9, 0.5)
	require.NoError(t, err)
	_, err = agg.Append(ctx, run.ID, 3, 0.8, 0.4)
	require.NoError(t, err)

	_, err = agg.Append(ctx, run.ID, 3, 0.7, 0.1)
	require.Error(t, err)
	assert.True(t, store.IsNonMonotonicEpoch(err))
	_, err = agg.Append(ctx, run.ID, 2, 0.7, 0.1)
	require.Error(t, err)
	assert.True(t, store.IsNonMonotonicEpoch(err))

	// The rejected sample must not poison the best score.
	best, err := agg.BestScore(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, 0.4, *best)
}

func TestAppend_PublishesMetricEvents(t *testing.T) {
	agg, st, f := newTestAggregator(t)
	ctx := context.Background()
	run := newRun(t, st)

	sub := f.Subscribe(feed.Filter{Table: feed.TableMetrics, EntityID: run.ID})
	defer sub.Cancel()

	_, err := agg.Append(ctx, run.ID, 1, 0.9, 0.5)
	require.NoError(t, err)

	ev := <-sub.C()
	assert.Equal(t, feed.Inserted, ev.Type)
	assert.Equal(t, feed.TableMetrics, ev.Table)
	m, ok := ev.Record.(*types.Metric)
	require.True(t, ok)
	assert.Equal(t, 1, m.Epoch)
}

func TestRun_EvictsDeletedRuns(t *testing.T) {
	agg, st, f := newTestAggregator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run := newRun(t, st)
	_, err := agg.Append(ctx, run.ID, 1, 0.9, 0.5)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- agg.Run(ctx) }()

	// Delete the run and announce it the way the lifecycle service does.
	require.NoError(t, st.DeleteRun(ctx, run.ID))
	f.Publish(feed.Event{Type: feed.Deleted, Table: feed.TableRuns, EntityID: run.ID})

	assert.Eventually(t, func() bool {
		agg.mu.Lock()
		defer agg.mu.Unlock()
		_, ok := agg.best[run.ID]
		return !ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
