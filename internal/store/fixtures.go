package store

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/fsilva7456/commlink/internal/types"
)

// demoScenarios is the fixed scenario catalogue for demo data.
var demoScenarios = []types.Scenario{
	{
		Name:        "Square Pattern",
		Environment: "empty_world",
		Waypoints: []types.Waypoint{
			{X: 0, Y: 0, Z: 10}, {X: 20, Y: 0, Z: 10}, {X: 20, Y: 20, Z: 10},
			{X: 0, Y: 20, Z: 10}, {X: 0, Y: 0, Z: 10},
		},
		Duration: 120,
		Config:   map[string]any{"wind_speed": 0, "obstacles": false},
	},
	{
		Name:        "Figure-8 Flight",
		Environment: "empty_world",
		Waypoints: []types.Waypoint{
			{X: 0, Y: 0, Z: 10}, {X: 10, Y: 10, Z: 10}, {X: 20, Y: 0, Z: 10},
			{X: 10, Y: -10, Z: 10}, {X: 0, Y: 0, Z: 10},
			{X: -10, Y: -10, Z: 10}, {X: -20, Y: 0, Z: 10}, {X: -10, Y: 10, Z: 10},
			{X: 0, Y: 0, Z: 10},
		},
		Duration: 180,
		Config:   map[string]any{"wind_speed": 2, "obstacles": false},
	},
	{
		Name:        "Altitude Variation",
		Environment: "empty_world",
		Waypoints: []types.Waypoint{
			{X: 0, Y: 0, Z: 5}, {X: 10, Y: 0, Z: 15}, {X: 20, Y: 0, Z: 5},
			{X: 30, Y: 0, Z: 20}, {X: 40, Y: 0, Z: 10},
		},
		Duration: 150,
		Config:   map[string]any{"wind_speed": 0, "obstacles": false},
	},
	{
		Name:        "Urban Navigation",
		Environment: "urban_world",
		Waypoints: []types.Waypoint{
			{X: 0, Y: 0, Z: 15}, {X: 15, Y: 10, Z: 20}, {X: 30, Y: 5, Z: 15},
			{X: 25, Y: -10, Z: 25}, {X: 10, Y: -5, Z: 15},
		},
		Duration: 200,
		Config:   map[string]any{"wind_speed": 3, "obstacles": true},
	},
}

type demoRun struct {
	name     string
	terminal types.RunStatus // "" means leave mid-flight
	progress float64         // overall fraction for in-flight runs
	config   types.RunConfig
}

var demoRuns = []demoRun{
	{
		name:     "baseline-v1",
		terminal: types.StatusCompleted,
		config: types.RunConfig{
			Version: types.RunConfigVersion, ModelArchitecture: "DreamerV3",
			LearningRate: 0.0001, BatchSize: 32, Epochs: 100, TrajectoryHorizon: 10, LatentDim: 256,
		},
	},
	{
		name:     "improved-encoder-v2",
		terminal: types.StatusCompleted,
		config: types.RunConfig{
			Version: types.RunConfigVersion, ModelArchitecture: "DreamerV3",
			LearningRate: 0.0001, BatchSize: 64, Epochs: 150, TrajectoryHorizon: 15, LatentDim: 512,
		},
	},
	{
		name:     "high-lr-experiment",
		terminal: types.StatusCompleted,
		config: types.RunConfig{
			Version: types.RunConfigVersion, ModelArchitecture: "DreamerV3",
			LearningRate: 0.001, BatchSize: 32, Epochs: 100, TrajectoryHorizon: 10, LatentDim: 256,
		},
	},
	{
		name:     "long-horizon-test",
		progress: 0.72,
		config: types.RunConfig{
			Version: types.RunConfigVersion, ModelArchitecture: "DreamerV3",
			LearningRate: 0.0001, BatchSize: 32, Epochs: 200, TrajectoryHorizon: 20, LatentDim: 256,
		},
	},
	{
		name:     "new-architecture-test",
		terminal: types.StatusPending,
		config: types.RunConfig{
			Version: types.RunConfigVersion, ModelArchitecture: "DreamerV3-Large",
			LearningRate: 0.00005, BatchSize: 16, Epochs: 100, TrajectoryHorizon: 10, LatentDim: 1024,
		},
	},
}

// Seed populates a store with the demo corpus: four flight scenarios
// and five runs in assorted lifecycle states, with training-curve
// metrics, one checkpoint per completed run, and a handful of
// episodes each. Everything goes through the public Store operations,
// so the same code seeds a live database and the synthetic fixtures.
// All randomness comes from rng; a fixed seed yields a fixed corpus.
func Seed(ctx context.Context, st Store, rng *rand.Rand) error {
	// Re-seeding an existing database reuses its scenario catalogue;
	// scenarios are matched by name so the demo stays idempotent.
	existing, err := st.ListScenarios(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scenarios: %w", err)
	}
	byName := make(map[string]types.Scenario, len(existing))
	for _, sc := range existing {
		byName[sc.Name] = sc
	}

	scenarios := make([]types.Scenario, 0, len(demoScenarios))
	for i := range demoScenarios {
		if sc, ok := byName[demoScenarios[i].Name]; ok {
			scenarios = append(scenarios, sc)
			continue
		}
		sc, err := st.CreateScenario(ctx, &demoScenarios[i])
		if err != nil {
			return fmt.Errorf("failed to seed scenario %q: %w", demoScenarios[i].Name, err)
		}
		scenarios = append(scenarios, *sc)
	}

	// Runs are matched by name the same way, so re-running the seed
	// against a populated database does not duplicate the demo runs.
	existingRuns, err := st.ListRuns(ctx, RunFilters{})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	runNames := make(map[string]bool, len(existingRuns))
	for _, r := range existingRuns {
		runNames[r.Name] = true
	}

	now := time.Now()
	version := 1
	for i, dr := range demoRuns {
		if runNames[dr.name] {
			continue
		}

		cfg := dr.config
		cfg.ScenarioID = scenarios[i%len(scenarios)].ID

		run, err := st.CreateRun(ctx, dr.name, cfg, types.DefaultTotalSteps)
		if err != nil {
			return fmt.Errorf("failed to seed run %q: %w", dr.name, err)
		}
		if dr.terminal == types.StatusPending {
			continue
		}

		// Walk the run through its stages.
		if _, err := st.TransitionRun(ctx, run.ID, types.StatusPending, types.StatusCollecting, now); err != nil {
			return err
		}
		for range 2 + rng.Intn(4) {
			sc := scenarios[rng.Intn(len(scenarios))]
			frames := 200 + rng.Intn(301)
			dataURL := fmt.Sprintf("./data/ep_%s_%d.json", dr.name, frames)
			if _, err := st.CreateEpisode(ctx, run.ID, sc.ID, dataURL, frames); err != nil {
				return err
			}
		}
		if _, err := st.TransitionRun(ctx, run.ID, types.StatusCollecting, types.StatusTraining, now); err != nil {
			return err
		}

		epochs := cfg.Epochs
		recorded := epochs
		if dr.terminal == "" {
			recorded = int(float64(epochs) * dr.progress)
		}
		if err := seedMetrics(ctx, st, run.ID, epochs, recorded, rng); err != nil {
			return err
		}

		if dr.terminal == "" {
			eta := int64(1800)
			if _, _, err := st.ApplyProgress(ctx, run.ID, types.StatusTraining, dr.progress, &eta); err != nil {
				return err
			}
			continue
		}

		if _, err := st.TransitionRun(ctx, run.ID, types.StatusTraining, types.StatusEvaluating, now); err != nil {
			return err
		}
		checkpointURL := fmt.Sprintf("https://storage.example.com/models/%s/best_model.pt", dr.name)
		evalScore := round6(0.02 + rng.Float64()*0.06)
		if _, err := st.CreateModel(ctx, run.ID, version, checkpointURL, evalScore); err != nil {
			return err
		}
		version++
		if _, err := st.TransitionRun(ctx, run.ID, types.StatusEvaluating, dr.terminal, now); err != nil {
			return err
		}
	}
	return nil
}

// seedMetrics appends an exponential-decay training curve with noise,
// the same shape the original trainer produces.
func seedMetrics(ctx context.Context, st Store, runID uuid.UUID, totalEpochs, recorded int, rng *rand.Rand) error {
	baseLoss := 0.8 + rng.Float64()*0.4
	baseMSE := 0.5 + rng.Float64()*0.3

	for epoch := 1; epoch <= recorded; epoch++ {
		p := float64(epoch) / float64(totalEpochs)
		noise := -0.02 + rng.Float64()*0.04

		loss := math.Max(0.01, baseLoss*math.Exp(-3*p)+0.02+noise)
		mse := math.Max(0.01, baseMSE*math.Exp(-2.5*p)+0.015+noise)

		if _, err := st.AppendMetric(ctx, runID, epoch, round6(loss), round6(mse)); err != nil {
			return fmt.Errorf("failed to seed metric epoch %d: %w", epoch, err)
		}
	}
	return nil
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// populate fills the synthetic store with the demo corpus using its
// own seeded generator. Must be called before the store is shared.
func (s *Synthetic) populate() {
	if err := Seed(context.Background(), s, s.rng); err != nil {
		// Seeding an in-memory store cannot fail unless the fixture
		// definitions themselves are broken.
		panic(err)
	}
}
