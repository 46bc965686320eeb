package store

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fsilva7456/commlink/internal/types"
)

// Synthetic is the in-memory Store used for demo and test runs. Its
// fixture set is generated once, from a fixed seed, at construction:
// repeated reads within a process lifetime return identical results.
// Write semantics (CAS transitions, monotonic progress, epoch checks,
// cascading deletes) match the live store exactly, so nothing above
// the selector behaves differently in demo mode.
type Synthetic struct {
	mu        sync.RWMutex
	runs      map[uuid.UUID]*types.Run
	metrics   map[uuid.UUID][]types.Metric
	models    map[uuid.UUID][]types.Model
	episodes  map[uuid.UUID][]types.Episode
	scenarios map[uuid.UUID]*types.Scenario
	rng       *rand.Rand
}

// NewSynthetic builds a synthetic store populated with the demo
// fixture corpus for the given seed.
func NewSynthetic(seed int64) *Synthetic {
	s := &Synthetic{
		runs:      make(map[uuid.UUID]*types.Run),
		metrics:   make(map[uuid.UUID][]types.Metric),
		models:    make(map[uuid.UUID][]types.Model),
		episodes:  make(map[uuid.UUID][]types.Episode),
		scenarios: make(map[uuid.UUID]*types.Scenario),
		rng:       rand.New(rand.NewSource(seed)), //nolint:gosec // determinism is the point
	}
	s.populate()
	return s
}

// Close is a no-op for the in-memory store
func (s *Synthetic) Close() {}

// newID draws a deterministic UUID from the store's seeded generator.
// Callers must hold s.mu.
func (s *Synthetic) newID() uuid.UUID {
	id, err := uuid.NewRandomFromReader(s.rng)
	if err != nil {
		// math/rand readers do not fail
		panic(err)
	}
	return id
}

func copyRun(r *types.Run) *types.Run {
	c := *r
	if r.CurrentStep != nil {
		step := *r.CurrentStep
		c.CurrentStep = &step
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.EtaSeconds != nil {
		eta := *r.EtaSeconds
		c.EtaSeconds = &eta
	}
	return &c
}

// CreateRun creates a new run in pending status
func (s *Synthetic) CreateRun(_ context.Context, name string, cfg types.RunConfig, totalSteps int) (*types.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if totalSteps <= 0 {
		totalSteps = types.DefaultTotalSteps
	}
	now := time.Now()
	run := &types.Run{
		ID:         s.newID(),
		Name:       name,
		Status:     types.StatusPending,
		Config:     cfg,
		Progress:   0,
		TotalSteps: totalSteps,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.runs[run.ID] = run
	return copyRun(run), nil
}

// GetRun retrieves a run by id
func (s *Synthetic) GetRun(_ context.Context, runID uuid.UUID) (*types.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, &NotFoundError{Kind: "run", ID: runID}
	}
	return copyRun(run), nil
}

// ListRuns lists runs, newest first
func (s *Synthetic) ListRuns(_ context.Context, filters RunFilters) ([]types.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filters.Limit
	if limit == 0 {
		limit = 50
	}

	var runs []types.Run
	for _, run := range s.runs {
		if filters.Status != "" && run.Status != filters.Status {
			continue
		}
		runs = append(runs, *copyRun(run))
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// TransitionRun performs the CAS status transition with the same
// stage effects as the SQL update.
func (s *Synthetic) TransitionRun(_ context.Context, runID uuid.UUID, from, to types.RunStatus, now time.Time) (*types.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, &NotFoundError{Kind: "run", ID: runID}
	}
	if run.Status != from {
		return nil, &ConflictError{RunID: runID, Expected: from, Actual: run.Status}
	}

	run.Status = to
	if from == types.StatusFailed {
		// Restart: the previous attempt's progress and start time do
		// not carry over.
		run.Progress = 0
		t := now
		run.StartedAt = &t
	}
	if to.Active() {
		step := to
		run.CurrentStep = &step
		if run.StartedAt == nil {
			t := now
			run.StartedAt = &t
		}
	} else {
		run.CurrentStep = nil
	}
	if to == types.StatusCompleted {
		run.Progress = 1
	}
	if to.Terminal() {
		run.EtaSeconds = nil
	}
	run.UpdatedAt = now

	return copyRun(run), nil
}

// ApplyProgress conditionally advances progress; stale reports are
// dropped silently.
func (s *Synthetic) ApplyProgress(_ context.Context, runID uuid.UUID, status types.RunStatus, progress float64, etaSeconds *int64) (*types.Run, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, false, &NotFoundError{Kind: "run", ID: runID}
	}
	if run.Status != status || progress <= run.Progress {
		return copyRun(run), false, nil
	}

	run.Progress = progress
	if etaSeconds != nil {
		eta := *etaSeconds
		run.EtaSeconds = &eta
	} else {
		run.EtaSeconds = nil
	}
	run.UpdatedAt = time.Now()

	return copyRun(run), true, nil
}

// DeleteRun removes a run and all its metrics, models and episodes
// in one critical section.
func (s *Synthetic) DeleteRun(_ context.Context, runID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return &NotFoundError{Kind: "run", ID: runID}
	}
	delete(s.runs, runID)
	delete(s.metrics, runID)
	delete(s.models, runID)
	delete(s.episodes, runID)
	return nil
}

// AppendMetric appends one epoch sample, rejecting out-of-order epochs
func (s *Synthetic) AppendMetric(_ context.Context, runID uuid.UUID, epoch int, loss, trajectoryError float64) (*types.Metric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, &NotFoundError{Kind: "run", ID: runID}
	}

	series := s.metrics[runID]
	last := 0
	if len(series) > 0 {
		last = series[len(series)-1].Epoch
	}
	if epoch <= last {
		return nil, &NonMonotonicEpochError{RunID: runID, Epoch: epoch, LastEpoch: last}
	}

	m := types.Metric{
		ID:              s.newID(),
		RunID:           runID,
		Epoch:           epoch,
		Loss:            loss,
		TrajectoryError: trajectoryError,
		CreatedAt:       time.Now(),
	}
	s.metrics[runID] = append(series, m)
	return &m, nil
}

// ListMetrics returns a run's metric series in epoch order
func (s *Synthetic) ListMetrics(_ context.Context, runID uuid.UUID) ([]types.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.metrics[runID]
	out := make([]types.Metric, len(series))
	copy(out, series)
	return out, nil
}

// MinTrajectoryError returns the smallest trajectory error recorded,
// or nil when the run has no metrics.
func (s *Synthetic) MinTrajectoryError(_ context.Context, runID uuid.UUID) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.metrics[runID]
	if len(series) == 0 {
		return nil, nil
	}
	best := series[0].TrajectoryError
	for _, m := range series[1:] {
		if m.TrajectoryError < best {
			best = m.TrajectoryError
		}
	}
	return &best, nil
}

// CreateModel records a checkpoint for a run
func (s *Synthetic) CreateModel(_ context.Context, runID uuid.UUID, version int, checkpointURL string, evalScore float64) (*types.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, &NotFoundError{Kind: "run", ID: runID}
	}
	m := types.Model{
		ID:            s.newID(),
		RunID:         runID,
		Version:       version,
		CheckpointURL: checkpointURL,
		EvalScore:     evalScore,
		CreatedAt:     time.Now(),
	}
	s.models[runID] = append(s.models[runID], m)
	return &m, nil
}

// ListModels lists a run's checkpoints, newest first
func (s *Synthetic) ListModels(_ context.Context, runID uuid.UUID) ([]types.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	models := s.models[runID]
	out := make([]types.Model, len(models))
	copy(out, models)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CreateEpisode records a collected episode for a run
func (s *Synthetic) CreateEpisode(_ context.Context, runID, scenarioID uuid.UUID, dataURL string, frames int) (*types.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, &NotFoundError{Kind: "run", ID: runID}
	}
	e := types.Episode{
		ID:         s.newID(),
		RunID:      runID,
		ScenarioID: scenarioID,
		DataURL:    dataURL,
		Frames:     frames,
		CreatedAt:  time.Now(),
	}
	s.episodes[runID] = append(s.episodes[runID], e)
	return &e, nil
}

// ListEpisodes lists a run's episodes in collection order
func (s *Synthetic) ListEpisodes(_ context.Context, runID uuid.UUID) ([]types.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	episodes := s.episodes[runID]
	out := make([]types.Episode, len(episodes))
	copy(out, episodes)
	return out, nil
}

// CreateScenario creates a scenario record
func (s *Synthetic) CreateScenario(_ context.Context, sc *types.Scenario) (*types.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := *sc
	created.ID = s.newID()
	created.CreatedAt = time.Now()
	s.scenarios[created.ID] = &created
	c := created
	return &c, nil
}

// GetScenario retrieves a scenario by id
func (s *Synthetic) GetScenario(_ context.Context, scenarioID uuid.UUID) (*types.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenarios[scenarioID]
	if !ok {
		return nil, &NotFoundError{Kind: "scenario", ID: scenarioID}
	}
	c := *sc
	return &c, nil
}

// ListScenarios lists all scenarios ordered by name
func (s *Synthetic) ListScenarios(_ context.Context) ([]types.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scenarios []types.Scenario
	for _, sc := range s.scenarios {
		scenarios = append(scenarios, *sc)
	}
	sort.Slice(scenarios, func(i, j int) bool {
		return scenarios[i].Name < scenarios[j].Name
	})
	return scenarios, nil
}
