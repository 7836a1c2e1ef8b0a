package progress

import (
	"time"

	"github.com/schedcu/surgopt/internal/optimizer"
)

// Multi fans a single ProgressCallback invocation out to several
// observers, so a session can be recorded and broadcast at once
// without the driver knowing either concern exists.
type Multi []ProgressCallback

func (m Multi) OptimizationStart(optimizationID string, totalIterations int) {
	for _, cb := range m {
		cb.OptimizationStart(optimizationID, totalIterations)
	}
}

func (m Multi) IterationComplete(event Event) {
	for _, cb := range m {
		cb.IterationComplete(event)
	}
}

func (m Multi) PhaseChange(optimizationID string, phase Phase) {
	for _, cb := range m {
		cb.PhaseChange(optimizationID, phase)
	}
}

func (m Multi) OptimizationComplete(optimizationID string, finalScore float64, iterations int) {
	for _, cb := range m {
		cb.OptimizationComplete(optimizationID, finalScore, iterations)
	}
}

func (m Multi) OptimizationError(optimizationID string, err error) {
	for _, cb := range m {
		cb.OptimizationError(optimizationID, err)
	}
}

// AsOptimizerProgressFunc adapts a ProgressCallback into the
// optimizer.ProgressFunc the Tabu Search driver calls directly,
// stamping every update with optimizationID and deriving
// elapsed/eta/iters_per_second from a rate tracker anchored at the
// moment this adapter is created (immediately before Optimize is
// called). Delivery is inherently best-effort: a panicking callback
// is recovered and swallowed so the search is never aborted by an
// observer.
func AsOptimizerProgressFunc(cb ProgressCallback, optimizationID string, start time.Time) optimizer.ProgressFunc {
	tracker := newRateTracker(start)

	return func(update optimizer.Update) {
		defer func() { recover() }()

		now := start.Add(update.Elapsed)
		elapsed, eta, itersPerSec := tracker.rates(now, update.Iteration, update.TotalIterations)

		cb.IterationComplete(Event{
			OptimizationID:        optimizationID,
			Timestamp:             now,
			Iteration:             update.Iteration,
			TotalIterations:       update.TotalIterations,
			CurrentScore:          update.CurrentScore,
			BestScore:             update.BestScore,
			Phase:                 PhaseSearching,
			ElapsedSeconds:        elapsed,
			EstimatedRemainingSec: eta,
			ItersPerSecond:        itersPerSec,
		})
	}
}

// ReportOutcome notifies cb of an optimizer.Result's terminal outcome:
// OptimizationError if the run errored, OptimizationComplete
// otherwise. reportErr is the run-level error (e.g. an infeasible
// initial solution turned into an error by the caller), not a field
// on Result itself.
func ReportOutcome(cb ProgressCallback, optimizationID string, result optimizer.Result, reportErr error) {
	defer func() { recover() }()

	if reportErr != nil {
		cb.OptimizationError(optimizationID, reportErr)
		return
	}
	cb.OptimizationComplete(optimizationID, result.BestScore, result.Iterations)
}
