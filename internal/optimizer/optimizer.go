// Package optimizer implements the Tabu Search driver (component C6):
// the main iterate-evaluate-accept loop, its four algorithm variants,
// diversification/intensification, aspiration, and cancellation.
package optimizer

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/schedcu/surgopt/internal/entity"
	"github.com/schedcu/surgopt/internal/evaluator"
	"github.com/schedcu/surgopt/internal/feasibility"
	"github.com/schedcu/surgopt/internal/neighborhood"
	"github.com/schedcu/surgopt/internal/tabu"
)

// Algorithm selects a Tabu Search tenure-management variant.
type Algorithm string

const (
	BasicTabu    Algorithm = "BasicTabu"
	AdaptiveTabu Algorithm = "AdaptiveTabu"
	ReactiveTabu Algorithm = "ReactiveTabu"
	HybridTabu   Algorithm = "HybridTabu"
)

// Params configures a single optimize() call (spec.md §4.5).
type Params struct {
	MaxIterations    int
	TimeLimit        time.Duration
	MaxNoImprovement int

	Algorithm Algorithm

	TabuTenure             int
	MinTabuTenure          int
	MaxTabuTenure          int
	TenureAdaptationFactor float64

	DiversificationThreshold int
	DiversificationStrength  float64
	IntensificationThreshold int
	IntensificationFactor    float64

	Weights *evaluator.Weights

	EnableProgressTracking bool
	ProgressUpdateInterval int

	NeighborhoodConfig neighborhood.Config
}

// DefaultParams fills in the spec's stated defaults and bounds.
func DefaultParams() Params {
	return Params{
		MaxIterations:            1000,
		TimeLimit:                300 * time.Second,
		MaxNoImprovement:         100,
		Algorithm:                BasicTabu,
		TabuTenure:               10,
		TenureAdaptationFactor:   1.5,
		DiversificationThreshold: 50,
		DiversificationStrength:  0.33,
		IntensificationThreshold: 20,
		IntensificationFactor:    0.5,
		EnableProgressTracking:   true,
		ProgressUpdateInterval:   10,
		NeighborhoodConfig:       neighborhood.DefaultConfig(),
	}
}

// ConvergenceSample records one iteration's standing, per spec.md
// §4.5 step 2h.
type ConvergenceSample struct {
	Iteration int
	Current   float64
	Best      float64
	Elapsed   time.Duration
}

// Update is what the driver hands to a progress sink (component C9)
// every ProgressUpdateInterval iterations.
type Update struct {
	Iteration               int
	TotalIterations          int
	BestScore                float64
	CurrentScore             float64
	IterationsNoImprovement  int
	Elapsed                  time.Duration
	EstimatedRemaining       time.Duration
	Algorithm                Algorithm
}

// ProgressFunc is invoked synchronously, best-effort; the driver never
// blocks waiting on it and ignores any return value.
type ProgressFunc func(Update)

// TerminationReason explains why optimize() stopped.
type TerminationReason string

const (
	TerminatedMaxIterations    TerminationReason = "max_iterations"
	TerminatedNoImprovement    TerminationReason = "no_improvement"
	TerminatedTimeLimit        TerminationReason = "time_limit"
	TerminatedCancelled        TerminationReason = "cancelled"
	TerminatedNoNeighbors      TerminationReason = "no_neighbors"
	TerminatedEmptyInitial     TerminationReason = "empty_initial_solution"
)

// Result is the outcome of optimize().
type Result struct {
	Best        entity.Schedule
	BestScore   float64
	Iterations  int
	Convergence []ConvergenceSample
	Reason      TerminationReason
}

// Driver runs the Tabu Search loop over a fixed reference dataset.
type Driver struct {
	ref *entity.ReferenceData
	oracle *feasibility.Oracle
	rng    *rand.Rand
}

// New constructs a Driver. rng may be nil, in which case a default
// top-level source is used.
func New(ref *entity.ReferenceData, oracle *feasibility.Oracle, rng *rand.Rand) *Driver {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Driver{ref: ref, oracle: oracle, rng: rng}
}

// Optimize runs the main loop and returns the best schedule found.
func (d *Driver) Optimize(ctx context.Context, params Params, progress ProgressFunc) (Result, error) {
	weights := evaluator.DefaultWeights()
	if params.Weights != nil {
		weights = *params.Weights
	}
	eval := evaluator.New(d.ref, d.oracle, weights)
	gen := neighborhood.New(d.ref, d.oracle, params.NeighborhoodConfig, d.rng)

	incumbent := gen.BuildInitialSolution(d.ref.ScheduleDate)
	if len(incumbent) == 0 {
		return Result{Reason: TerminatedEmptyInitial}, nil
	}

	currentScore, _ := eval.Evaluate(incumbent)
	best := incumbent.Clone()
	bestScore := currentScore

	s := &searchState{
		driver:    d,
		params:    params,
		eval:      eval,
		gen:       gen,
		tabuList:  d.newTabuList(params),
		incumbent: incumbent,
		current:   currentScore,
		best:      best,
		bestScore: bestScore,
	}

	start := time.Now()
	reason := TerminatedMaxIterations

	for iteration := 0; iteration < params.MaxIterations; iteration++ {
		if ctx.Err() != nil {
			reason = TerminatedCancelled
			break
		}
		if s.noImprovement >= params.MaxNoImprovement {
			reason = TerminatedNoImprovement
			break
		}
		if params.TimeLimit > 0 && time.Since(start) > params.TimeLimit {
			reason = TerminatedTimeLimit
			break
		}

		s.tabuList.DecrementAll()
		s.applyAlgorithmStrategy(iteration)

		aspires := func(move entity.TabuMove, sched entity.Schedule) bool {
			score, _ := eval.Evaluate(sched)
			return score > s.bestScore
		}
		candidates := gen.Generate(s.incumbent, s.tabuList, aspires)
		if len(candidates) == 0 {
			reason = TerminatedNoNeighbors
			break
		}

		chosen, chosenScore := selectBest(candidates, eval)

		s.incumbent = chosen.Schedule
		s.current = chosenScore
		s.tabuList.Add(chosen.Move.Reverse(), s.currentTenure())

		if chosenScore > s.bestScore {
			s.best = s.incumbent.Clone()
			s.bestScore = chosenScore
			s.noImprovement = 0
		} else {
			s.noImprovement++
		}

		elapsed := time.Since(start)
		s.convergence = append(s.convergence, ConvergenceSample{
			Iteration: iteration + 1,
			Current:   s.current,
			Best:      s.bestScore,
			Elapsed:   elapsed,
		})

		if params.EnableProgressTracking && progress != nil && params.ProgressUpdateInterval > 0 && (iteration+1)%params.ProgressUpdateInterval == 0 {
			progress(Update{
				Iteration:               iteration + 1,
				TotalIterations:         params.MaxIterations,
				BestScore:               s.bestScore,
				CurrentScore:            s.current,
				IterationsNoImprovement: s.noImprovement,
				Elapsed:                 elapsed,
				EstimatedRemaining:      estimateRemaining(elapsed, iteration+1, params.MaxIterations),
				Algorithm:               params.Algorithm,
			})
		}
	}

	return Result{
		Best:        s.best,
		BestScore:   s.bestScore,
		Iterations:  len(s.convergence),
		Convergence: s.convergence,
		Reason:      reason,
	}, nil
}

func estimateRemaining(elapsed time.Duration, done, total int) time.Duration {
	if done == 0 {
		return 0
	}
	perIteration := elapsed / time.Duration(done)
	remaining := total - done
	if remaining < 0 {
		remaining = 0
	}
	return perIteration * time.Duration(remaining)
}

// selectBest picks the candidate with the maximum evaluator score;
// ties break lexicographically on the move's key (spec.md §4.5 step
// 2c). Candidates already passed tabu/aspiration filtering in the
// generator, so every entry here is admissible.
func selectBest(candidates []neighborhood.Candidate, eval *evaluator.Evaluator) (neighborhood.Candidate, float64) {
	type scored struct {
		candidate neighborhood.Candidate
		score     float64
	}
	scoredCandidates := make([]scored, len(candidates))
	for i, c := range candidates {
		score, _ := eval.Evaluate(c.Schedule)
		scoredCandidates[i] = scored{candidate: c, score: score}
	}

	sort.SliceStable(scoredCandidates, func(i, j int) bool {
		if scoredCandidates[i].score != scoredCandidates[j].score {
			return scoredCandidates[i].score > scoredCandidates[j].score
		}
		return scoredCandidates[i].candidate.Move.Key() < scoredCandidates[j].candidate.Move.Key()
	})

	return scoredCandidates[0].candidate, scoredCandidates[0].score
}

func (d *Driver) newTabuList(params Params) *tabu.List {
	switch params.Algorithm {
	case AdaptiveTabu, HybridTabu:
		minT, maxT := params.MinTabuTenure, params.MaxTabuTenure
		if minT <= 0 {
			minT = maxInt(1, params.TabuTenure/2)
		}
		if maxT <= 0 {
			maxT = params.TabuTenure * 2
		}
		return tabu.New(params.TabuTenure, minT, maxT, d.rng)
	default:
		return tabu.New(params.TabuTenure, params.TabuTenure, params.TabuTenure, d.rng)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
