// Package progress implements the iteration-level telemetry adapter
// (component C9): an abstract ProgressCallback the driver invokes
// synchronously at iteration boundaries, plus two concrete adapters —
// a buffered in-process recorder and a non-blocking broadcaster for
// fanning updates out to external observers. Delivery is always
// best-effort: a failing or slow observer never aborts the search.
package progress

import (
	"time"
)

// Phase names the stage of an optimization run a phaseChange event
// reports, e.g. "initializing", "searching", "diversifying", "finalizing".
type Phase string

const (
	PhaseInitializing  Phase = "initializing"
	PhaseSearching     Phase = "searching"
	PhaseDiversifying  Phase = "diversifying"
	PhaseIntensifying  Phase = "intensifying"
	PhaseFinalizing    Phase = "finalizing"
)

// Event is the payload delivered to a ProgressCallback method,
// carrying enough data for an observer to compute percent complete,
// ETA, and iteration throughput without consulting the driver again.
type Event struct {
	OptimizationID      string
	Timestamp           time.Time
	Iteration           int
	TotalIterations      int
	CurrentScore         float64
	BestScore            float64
	Phase                Phase
	FinalScore           float64
	Err                  error
	ElapsedSeconds       float64
	EstimatedRemainingSec float64
	ItersPerSecond       float64
}

// Percent returns iteration progress in [0, 100], or 0 when
// TotalIterations is unknown.
func (e Event) Percent() float64 {
	if e.TotalIterations <= 0 {
		return 0
	}
	pct := 100 * float64(e.Iteration) / float64(e.TotalIterations)
	if pct > 100 {
		return 100
	}
	return pct
}

// ProgressCallback is the abstract observer the Tabu Search driver
// invokes synchronously. Every method receives an optimization_id
// (via the Event, or directly where there is no richer payload) so a
// single implementation can multiplex many concurrent runs.
type ProgressCallback interface {
	OptimizationStart(optimizationID string, totalIterations int)
	IterationComplete(event Event)
	PhaseChange(optimizationID string, phase Phase)
	OptimizationComplete(optimizationID string, finalScore float64, iterations int)
	OptimizationError(optimizationID string, err error)
}

// rateTracker derives iters_per_second and eta_seconds from a start
// time and the iteration count observed so far. It holds no lock of
// its own; callers serialize access (the driver calls progress
// methods from a single goroutine per run, per spec.md §5).
type rateTracker struct {
	start time.Time
}

func newRateTracker(now time.Time) rateTracker {
	return rateTracker{start: now}
}

func (r rateTracker) rates(now time.Time, iteration, total int) (elapsed, eta, itersPerSec float64) {
	elapsed = now.Sub(r.start).Seconds()
	if iteration <= 0 || elapsed <= 0 {
		return elapsed, 0, 0
	}
	itersPerSec = float64(iteration) / elapsed
	if itersPerSec <= 0 || total <= iteration {
		return elapsed, 0, itersPerSec
	}
	remaining := total - iteration
	return elapsed, float64(remaining) / itersPerSec, itersPerSec
}
