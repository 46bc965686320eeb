package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fsilva7456/commlink/internal/types"
)

func TestPrintRun(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	step := types.StatusTraining
	eta := int64(1800)
	run := &types.Run{
		Name:        "warehouse-slalom-v1",
		Status:      types.StatusTraining,
		CurrentStep: &step,
		Progress:    0.72,
		EtaSeconds:  &eta,
		Config:      types.RunConfig{ModelArchitecture: "DreamerV3"},
	}

	p.PrintRun(run)
	output := buf.String()

	assert.Contains(t, output, "RUN")
	assert.Contains(t, output, "warehouse-slalom-v1")
	assert.Contains(t, output, "training")
	assert.Contains(t, output, "72%")
	assert.Contains(t, output, "30m00s")
	assert.Contains(t, output, "DreamerV3")
}

func TestPrintRun_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRun(nil)

	assert.Empty(t, buf.String())
}

func TestPrintRunList(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	runs := []types.Run{
		{Name: "run-a", Status: types.StatusCompleted, Progress: 1},
		{Name: "run-b", Status: types.StatusPending},
	}

	p.PrintRunList(runs)
	output := buf.String()

	assert.Contains(t, output, "RUNS (2)")
	assert.Contains(t, output, "run-a")
	assert.Contains(t, output, "100%")
	assert.Contains(t, output, "run-b")
}

func TestPrintRunList_CapsLongLists(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	runs := make([]types.Run, 8)
	for i := range runs {
		runs[i] = types.Run{Name: "run", Status: types.StatusPending}
	}

	p.PrintRunList(runs)

	assert.Contains(t, buf.String(), "and 3 more")
}

func TestPrintScenarios(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	scenarios := []types.Scenario{
		{Name: "Figure-8 Flight", Environment: "outdoor", Duration: 90,
			Waypoints: []types.Waypoint{{X: 0, Y: 0, Z: 10}, {X: 5, Y: 5, Z: 10}}},
	}

	p.PrintScenarios(scenarios)
	output := buf.String()

	assert.Contains(t, output, "SCENARIOS (1)")
	assert.Contains(t, output, "Figure-8 Flight")
	assert.Contains(t, output, "2 waypoints")
}

func TestPrintMetricSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	best := 0.091
	series := []types.Metric{
		{Epoch: 1, Loss: 1.2, TrajectoryError: 0.5},
		{Epoch: 2, Loss: 0.9, TrajectoryError: 0.091},
	}

	p.PrintMetricSummary(series, &best)
	output := buf.String()

	assert.Contains(t, output, "METRICS (2)")
	assert.Contains(t, output, "epoch    2")
	assert.Contains(t, output, "Best trajectory error: 0.091000")
}

func TestPrintMetricSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintMetricSummary(nil, nil)

	assert.Contains(t, buf.String(), "No metrics recorded.")
}

func TestProgressBar_Bounds(t *testing.T) {
	assert.True(t, strings.HasSuffix(progressBar(-0.5), "  0%"))
	assert.True(t, strings.HasSuffix(progressBar(1.5), "100%"))
}
