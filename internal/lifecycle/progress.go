package lifecycle

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/fsilva7456/commlink/internal/feed"
	"github.com/fsilva7456/commlink/internal/types"
)

// etaEpsilon is the progress floor below which there is not enough
// signal for a meaningful extrapolation.
const etaEpsilon = 0.01

// etaSmoothing is the EMA weight for new ETA samples. Instantaneous
// linear extrapolation is noisy early in a run; successive estimates
// are blended so the displayed value does not whipsaw.
const etaSmoothing = 0.3

// ProgressReportError indicates an out-of-range step index or
// fraction in a progress report.
type ProgressReportError struct {
	Reason string
}

func (e *ProgressReportError) Error() string {
	return fmt.Sprintf("invalid progress report: %s", e.Reason)
}

// ReportStepProgress folds a step-level report into the run's overall
// completion fraction. The candidate is (stepIndex+fraction)/totalSteps,
// clamped to [0,1], and it only lands if it is strictly greater than
// the stored progress while the status has not moved since our read.
// Reports that lose either comparison are stale or duplicates and are
// dropped without error (applied=false). A fresh ETA rides along with
// every applied report.
func (s *Service) ReportStepProgress(ctx context.Context, runID uuid.UUID, stepIndex int, fraction float64) (*types.Run, bool, error) {
	if fraction < 0 || fraction > 1 {
		return nil, false, &ProgressReportError{Reason: fmt.Sprintf("fraction %v out of range [0,1]", fraction)}
	}

	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, false, err
	}
	if stepIndex < 0 || stepIndex >= run.TotalSteps {
		return nil, false, &ProgressReportError{Reason: fmt.Sprintf("step index %d out of range [0,%d)", stepIndex, run.TotalSteps)}
	}
	if !run.Status.Active() {
		// Reports against a run that is not mid-flight are stale.
		return run, false, nil
	}

	candidate := (float64(stepIndex) + fraction) / float64(run.TotalSteps)
	candidate = math.Min(1, math.Max(0, candidate))

	now := s.now()
	var eta *int64
	var sample float64
	hasSample := false
	if raw := EstimateETA(run.StartedAt, candidate, now); raw != nil {
		sample = float64(*raw)
		hasSample = true
		smoothed := s.smoothETA(runID, sample, false)
		eta = &smoothed
	}

	updated, applied, err := s.store.ApplyProgress(ctx, runID, run.Status, candidate, eta)
	if err != nil {
		return nil, false, err
	}
	if applied {
		// Only reports that landed feed the smoother; stale ones must
		// not drag the average toward estimates that were never shown.
		if hasSample {
			s.smoothETA(runID, sample, true)
		}
		s.feed.Publish(feed.Event{Type: feed.Updated, Table: feed.TableRuns, EntityID: updated.ID, Record: updated})
	}
	return updated, applied, nil
}

// ComputeETA returns the current estimated seconds to completion for
// a run, or nil when there is no signal (run not started, or progress
// still under the floor).
func (s *Service) ComputeETA(ctx context.Context, runID uuid.UUID) (*int64, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !run.Status.Active() {
		return nil, nil
	}
	return EstimateETA(run.StartedAt, run.Progress, s.now()), nil
}

// EstimateETA linearly extrapolates time-to-completion from elapsed
// time and the completion fraction: eta = elapsed * (1-p) / p,
// rounded to whole seconds and never negative. Returns nil when the
// run has not started or progress is at or under the floor.
func EstimateETA(startedAt *time.Time, progress float64, now time.Time) *int64 {
	if startedAt == nil || progress <= etaEpsilon {
		return nil
	}
	elapsed := now.Sub(*startedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	eta := int64(math.Round(elapsed * (1 - progress) / progress))
	if eta < 0 {
		eta = 0
	}
	return &eta
}

// smoothETA blends a raw estimate into the run's running average.
// The first sample after a transition passes through unsmoothed.
// With commit false the blend is computed without touching the stored
// average, so a caller can price an estimate before knowing whether
// the report it belongs to will land.
func (s *Service) smoothETA(runID uuid.UUID, raw float64, commit bool) int64 {
	s.etaMu.Lock()
	defer s.etaMu.Unlock()

	avg := raw
	if prev, ok := s.etaAvg[runID]; ok {
		avg = etaSmoothing*raw + (1-etaSmoothing)*prev
	}
	if commit {
		s.etaAvg[runID] = avg
	}
	return int64(math.Round(avg))
}
