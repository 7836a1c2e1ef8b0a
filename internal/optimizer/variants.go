package optimizer

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/schedcu/surgopt/internal/entity"
	"github.com/schedcu/surgopt/internal/evaluator"
	"github.com/schedcu/surgopt/internal/neighborhood"
	"github.com/schedcu/surgopt/internal/tabu"
)

// searchState carries the mutable per-run state the four algorithm
// variants and the diversification/intensification passes read and
// update every iteration.
type searchState struct {
	driver *Driver
	params Params
	eval   *evaluator.Evaluator
	gen    *neighborhood.Generator

	tabuList *tabu.List

	incumbent entity.Schedule
	current   float64

	best      entity.Schedule
	bestScore float64

	noImprovement int

	currentTenureValue int

	// solutionHistory holds recent solution-structure fingerprints for
	// the reactive variant (spec.md §4.6 ReactiveTabu).
	solutionHistory []string

	convergence []ConvergenceSample
}

const (
	reactiveHistoryCap       = 20
	reactiveRepetitionThresh = 5
	reactiveDoubledCap       = 50
)

// currentTenure returns the tenure to use for the move just accepted,
// reflecting whatever the algorithm variant decided this iteration.
func (s *searchState) currentTenure() int {
	if s.currentTenureValue > 0 {
		return s.currentTenureValue
	}
	return s.params.TabuTenure
}

// applyAlgorithmStrategy dispatches to the configured variant's tenure
// (and, for Hybrid, combined) adjustment, then checks for
// diversification and intensification triggers (spec.md §4.5 step 3,
// §4.6).
func (s *searchState) applyAlgorithmStrategy(iteration int) {
	s.currentTenureValue = s.params.TabuTenure

	switch s.params.Algorithm {
	case AdaptiveTabu:
		s.applyAdaptive()
	case ReactiveTabu:
		s.applyReactive()
	case HybridTabu:
		s.applyAdaptive()
		s.applyReactive()
	}

	if s.shouldDiversify(iteration) {
		s.diversify()
	}
	if s.shouldIntensify() {
		s.intensify()
	}
}

// applyAdaptive grows the tenure when the search has stagnated for a
// while and shrinks it back down once it starts improving again
// (spec.md §4.6 AdaptiveTabu).
func (s *searchState) applyAdaptive() {
	tenure := s.currentTenureValue
	switch {
	case s.noImprovement > 10:
		tenure = int(float64(tenure) * s.params.TenureAdaptationFactor)
		if max := s.params.MaxTabuTenure; max > 0 && tenure > max {
			tenure = max
		}
	case s.noImprovement < 3:
		tenure = int(float64(tenure) / s.params.TenureAdaptationFactor)
		if min := s.params.MinTabuTenure; min > 0 && tenure < min {
			tenure = min
		}
	}
	if tenure < 1 {
		tenure = 1
	}
	s.currentTenureValue = tenure
}

// applyReactive tracks recent solution-structure fingerprints and
// doubles the tenure once the same structure recurs often enough to
// suggest cycling (spec.md §4.6 ReactiveTabu).
func (s *searchState) applyReactive() {
	fp := hashSolutionStructure(s.incumbent)
	s.solutionHistory = append(s.solutionHistory, fp)
	if len(s.solutionHistory) > reactiveHistoryCap {
		s.solutionHistory = s.solutionHistory[len(s.solutionHistory)-reactiveHistoryCap:]
	}

	repeats := 0
	for _, h := range s.solutionHistory {
		if h == fp {
			repeats++
		}
	}
	if repeats >= reactiveRepetitionThresh {
		tenure := s.params.TabuTenure * 2
		if tenure > reactiveDoubledCap {
			tenure = reactiveDoubledCap
		}
		s.currentTenureValue = tenure
	}
}

// hashSolutionStructure fingerprints a schedule's room assignment
// structure: sorted "surgeryID:roomID" pairs, MD5-hashed and truncated
// to 8 hex characters. Two schedules that differ only in exact start
// times but agree on room placement fingerprint identically.
func hashSolutionStructure(sched entity.Schedule) string {
	pairs := make([]string, 0, len(sched))
	for _, a := range sched {
		pairs = append(pairs, fmt.Sprintf("%d:%d", a.SurgeryID, a.RoomID))
	}
	sort.Strings(pairs)
	sum := md5.Sum([]byte(fmt.Sprintf("%v", pairs)))
	return hex.EncodeToString(sum[:])[:8]
}

// shouldDiversify mirrors spec.md §4.5's diversification trigger:
// fire on thresholds iterations, but only once stagnation has lasted
// more than half the threshold.
func (s *searchState) shouldDiversify(iteration int) bool {
	threshold := s.params.DiversificationThreshold
	if threshold <= 0 {
		return false
	}
	return iteration > 0 && iteration%threshold == 0 && s.noImprovement > threshold/2
}

// diversify replaces the incumbent with a perturbed variant, per the
// corrected retry-with-shrinking-fraction loop (SPEC_FULL.md §4): the
// original's recursive implementation re-perturbed the same
// unmodified solution on every retry and could loop forever; this
// version halves the fraction of reassigned surgeries on each
// infeasible attempt and gives up after a bounded number of retries,
// leaving the incumbent untouched if none succeed.
func (s *searchState) diversify() {
	const maxRetries = 5
	fraction := s.params.DiversificationStrength
	if fraction <= 0 {
		fraction = 0.33
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		candidate := s.gen.Diversify(s.incumbent, s.driver.ref.ScheduleDate, fraction)
		if s.driver.oracle.ScheduleFeasible(candidate) {
			s.incumbent = candidate
			score, _ := s.eval.Evaluate(candidate)
			s.current = score
			return
		}
		fraction /= 2
		if fraction*float64(len(s.incumbent)) < 1 {
			break
		}
	}
	// retry budget exhausted: incumbent preserved unchanged.
}

// shouldIntensify fires once improvement has stalled for the
// intensification threshold, boosting the tabu list to push the
// search away from the current basin (spec.md §4.6).
func (s *searchState) shouldIntensify() bool {
	threshold := s.params.IntensificationThreshold
	return threshold > 0 && s.noImprovement > 0 && s.noImprovement%threshold == 0
}

func (s *searchState) intensify() {
	factor := s.params.IntensificationFactor
	if factor <= 0 {
		factor = 0.5
	}
	s.tabuList.Boost(1+factor, s.params.TabuTenure)
}
