package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsilva7456/commlink/internal/types"
)

func TestSynthetic_FixtureCorpus(t *testing.T) {
	s := NewSynthetic(42)
	ctx := context.Background()

	scenarios, err := s.ListScenarios(ctx)
	require.NoError(t, err)
	require.Len(t, scenarios, 4)
	assert.Equal(t, "Altitude Variation", scenarios[0].Name, "scenarios are name-ordered")

	runs, err := s.ListRuns(ctx, RunFilters{})
	require.NoError(t, err)
	require.Len(t, runs, 5)

	byStatus := map[types.RunStatus]int{}
	for _, r := range runs {
		require.NoError(t, r.Validate())
		byStatus[r.Status]++
	}
	assert.Equal(t, 3, byStatus[types.StatusCompleted])
	assert.Equal(t, 1, byStatus[types.StatusTraining])
	assert.Equal(t, 1, byStatus[types.StatusPending])
}

func TestSynthetic_ReadsAreStable(t *testing.T) {
	s := NewSynthetic(42)
	ctx := context.Background()

	first, err := s.ListRuns(ctx, RunFilters{})
	require.NoError(t, err)

	for range 5 {
		again, err := s.ListRuns(ctx, RunFilters{})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	metrics1, err := s.ListMetrics(ctx, first[0].ID)
	require.NoError(t, err)
	metrics2, err := s.ListMetrics(ctx, first[0].ID)
	require.NoError(t, err)
	assert.Equal(t, metrics1, metrics2)
}

func TestSeed_Idempotent(t *testing.T) {
	s := NewSynthetic(42)
	ctx := context.Background()

	// A second seeding pass matches both scenarios and runs by name,
	// so nothing in the demo corpus is duplicated.
	require.NoError(t, Seed(ctx, s, s.rng))

	scenarios, err := s.ListScenarios(ctx)
	require.NoError(t, err)
	assert.Len(t, scenarios, 4)

	runs, err := s.ListRuns(ctx, RunFilters{})
	require.NoError(t, err)
	assert.Len(t, runs, 5)
}

func TestSynthetic_SameSeedSameCorpus(t *testing.T) {
	ctx := context.Background()
	a, err := NewSynthetic(7).ListRuns(ctx, RunFilters{})
	require.NoError(t, err)
	b, err := NewSynthetic(7).ListRuns(ctx, RunFilters{})
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Name, b[i].Name)
		assert.Equal(t, a[i].Status, b[i].Status)
		assert.Equal(t, a[i].Progress, b[i].Progress)
	}
}

func findRun(t *testing.T, s Store, status types.RunStatus) *types.Run {
	t.Helper()
	runs, err := s.ListRuns(context.Background(), RunFilters{Status: status, Limit: 1})
	require.NoError(t, err)
	require.NotEmpty(t, runs)
	return &runs[0]
}

func TestSynthetic_TransitionCAS(t *testing.T) {
	s := NewSynthetic(1)
	ctx := context.Background()
	now := time.Now()

	run := findRun(t, s, types.StatusPending)

	updated, err := s.TransitionRun(ctx, run.ID, types.StatusPending, types.StatusCollecting, now)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCollecting, updated.Status)
	require.NotNil(t, updated.CurrentStep)
	assert.Equal(t, types.StatusCollecting, *updated.CurrentStep)
	require.NotNil(t, updated.StartedAt)

	// Second caller still believing the run is pending loses the race.
	_, err = s.TransitionRun(ctx, run.ID, types.StatusPending, types.StatusCollecting, now)
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, types.StatusPending, conflict.Expected)
	assert.Equal(t, types.StatusCollecting, conflict.Actual)
}

func TestSynthetic_TransitionEffects(t *testing.T) {
	s := NewSynthetic(1)
	ctx := context.Background()
	now := time.Now()

	run, err := s.CreateRun(ctx, "effects", types.RunConfig{}, 3)
	require.NoError(t, err)

	r, err := s.TransitionRun(ctx, run.ID, types.StatusPending, types.StatusCollecting, now)
	require.NoError(t, err)
	startedAt := *r.StartedAt

	r, err = s.TransitionRun(ctx, run.ID, types.StatusCollecting, types.StatusTraining, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, startedAt, *r.StartedAt, "started_at is set once")

	eta := int64(120)
	r, applied, err := s.ApplyProgress(ctx, run.ID, types.StatusTraining, 0.5, &eta)
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, 0.5, r.Progress)

	r, err = s.TransitionRun(ctx, run.ID, types.StatusTraining, types.StatusFailed, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, r.CurrentStep)
	assert.Equal(t, 0.5, r.Progress, "failure retains partial progress")
	assert.Nil(t, r.EtaSeconds)

	// Restart from failed: the run starts over, so the previous
	// attempt's progress and start time are discarded.
	r, err = s.TransitionRun(ctx, run.ID, types.StatusFailed, types.StatusCollecting, now.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, types.StatusCollecting, r.Status)
	assert.Zero(t, r.Progress, "restart resets progress")
	require.NotNil(t, r.StartedAt)
	assert.Equal(t, now.Add(3*time.Minute), *r.StartedAt, "restart resets started_at")

	// A low fresh report on the restarted run lands again.
	r, applied, err = s.ApplyProgress(ctx, run.ID, types.StatusCollecting, 0.1, nil)
	require.NoError(t, err)
	require.True(t, applied, "fresh report after restart lands")
	assert.Equal(t, 0.1, r.Progress)

	_, err = s.TransitionRun(ctx, run.ID, types.StatusCollecting, types.StatusTraining, now.Add(4*time.Minute))
	require.NoError(t, err)
	_, err = s.TransitionRun(ctx, run.ID, types.StatusTraining, types.StatusEvaluating, now.Add(5*time.Minute))
	require.NoError(t, err)
	r, err = s.TransitionRun(ctx, run.ID, types.StatusEvaluating, types.StatusCompleted, now.Add(6*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Progress, "completion forces progress to 1")
	assert.Nil(t, r.CurrentStep)
}

func TestSynthetic_ApplyProgressDropsStale(t *testing.T) {
	s := NewSynthetic(1)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "stale", types.RunConfig{}, 3)
	require.NoError(t, err)
	_, err = s.TransitionRun(ctx, run.ID, types.StatusPending, types.StatusCollecting, time.Now())
	require.NoError(t, err)

	_, applied, err := s.ApplyProgress(ctx, run.ID, types.StatusCollecting, 0.3, nil)
	require.NoError(t, err)
	assert.True(t, applied)

	// Equal and lower candidates are dropped, not errors.
	r, applied, err := s.ApplyProgress(ctx, run.ID, types.StatusCollecting, 0.3, nil)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 0.3, r.Progress)

	r, applied, err = s.ApplyProgress(ctx, run.ID, types.StatusCollecting, 0.1, nil)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 0.3, r.Progress)

	// A report against a status the run has left is also dropped.
	_, applied, err = s.ApplyProgress(ctx, run.ID, types.StatusTraining, 0.9, nil)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestSynthetic_AppendMetricEpochGuard(t *testing.T) {
	s := NewSynthetic(1)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "epochs", types.RunConfig{}, 3)
	require.NoError(t, err)

	_, err = s.AppendMetric(ctx, run.ID, 1, 0.9, 0.5)
	require.NoError(t, err)
	_, err = s.AppendMetric(ctx, run.ID, 2, 0.8, 0.4)
	require.NoError(t, err)

	_, err = s.AppendMetric(ctx, run.ID, 2, 0.7, 0.3)
	require.Error(t, err)
	assert.True(t, IsNonMonotonicEpoch(err))

	var nm *NonMonotonicEpochError
	require.ErrorAs(t, err, &nm)
	assert.Equal(t, 2, nm.Epoch)
	assert.Equal(t, 2, nm.LastEpoch)

	best, err := s.MinTrajectoryError(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, 0.4, *best)
}

func TestSynthetic_DeleteRunCascades(t *testing.T) {
	s := NewSynthetic(42)
	ctx := context.Background()

	run := findRun(t, s, types.StatusCompleted)

	metrics, err := s.ListMetrics(ctx, run.ID)
	require.NoError(t, err)
	require.NotEmpty(t, metrics)
	models, err := s.ListModels(ctx, run.ID)
	require.NoError(t, err)
	require.NotEmpty(t, models)
	episodes, err := s.ListEpisodes(ctx, run.ID)
	require.NoError(t, err)
	require.NotEmpty(t, episodes)

	require.NoError(t, s.DeleteRun(ctx, run.ID))

	_, err = s.GetRun(ctx, run.ID)
	assert.True(t, IsNotFound(err))

	metrics, err = s.ListMetrics(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, metrics)
	models, err = s.ListModels(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, models)
	episodes, err = s.ListEpisodes(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, episodes)
}

func TestSynthetic_NotFound(t *testing.T) {
	s := NewSynthetic(1)
	ctx := context.Background()
	missing := uuid.New()

	_, err := s.GetRun(ctx, missing)
	assert.True(t, IsNotFound(err))

	_, err = s.TransitionRun(ctx, missing, types.StatusPending, types.StatusCollecting, time.Now())
	assert.True(t, IsNotFound(err))

	_, _, err = s.ApplyProgress(ctx, missing, types.StatusTraining, 0.5, nil)
	assert.True(t, IsNotFound(err))

	err = s.DeleteRun(ctx, missing)
	assert.True(t, IsNotFound(err))

	_, err = s.AppendMetric(ctx, missing, 1, 0.5, 0.5)
	assert.True(t, IsNotFound(err))

	_, err = s.GetScenario(ctx, missing)
	assert.True(t, IsNotFound(err))
}
