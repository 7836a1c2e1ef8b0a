// Package evaluator implements the weighted multi-objective solution
// scorer (component C3): eight normalized sub-scores plus a large
// feasibility penalty, combined into a single real score where higher
// is better.
package evaluator

import (
	"math"
	"sort"
	"time"

	"github.com/schedcu/surgopt/internal/entity"
	"github.com/schedcu/surgopt/internal/feasibility"
)

// Weights configures the contribution of each criterion. Defaults sum
// to a scale where a fully feasible, well-utilized schedule scores
// close to 1 and an infeasible one is driven strongly negative.
type Weights struct {
	ORUtilization     float64
	SDSTPenalty       float64
	SurgeonPreference float64
	WorkloadBalance   float64
	PatientWaitTime   float64
	EmergencyPriority float64
	OperationalCost   float64
	StaffOvertime     float64
	FeasibilityPenalty float64
}

// DefaultWeights matches the reference scheduler's tuning.
func DefaultWeights() Weights {
	return Weights{
		ORUtilization:      0.20,
		SDSTPenalty:        -0.15,
		SurgeonPreference:  0.15,
		WorkloadBalance:    0.15,
		PatientWaitTime:    -0.10,
		EmergencyPriority:  0.15,
		OperationalCost:    -0.10,
		StaffOvertime:      -0.10,
		FeasibilityPenalty: -100.0,
	}
}

// Scores holds the raw (unweighted) per-criterion sub-scores computed
// for a single evaluation, useful for progress reporting and testing.
type Scores struct {
	ORUtilization     float64
	SDSTPenalty       float64
	SurgeonPreference float64
	WorkloadBalance   float64
	PatientWaitTime   float64
	EmergencyPriority float64
	OperationalCost   float64
	StaffOvertime     float64
	Feasible          bool
}

// Evaluator scores schedules against a fixed ReferenceData handle.
type Evaluator struct {
	ref     *entity.ReferenceData
	oracle  *feasibility.Oracle
	weights Weights
}

// New constructs an Evaluator. A zero-value Weights argument is
// replaced with DefaultWeights.
func New(ref *entity.ReferenceData, oracle *feasibility.Oracle, weights Weights) *Evaluator {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Evaluator{ref: ref, oracle: oracle, weights: weights}
}

// Weights returns the evaluator's configured weights.
func (e *Evaluator) Weights() Weights {
	return e.weights
}

// Evaluate returns the total weighted score for sched, plus the raw
// sub-scores for inspection. An empty schedule scores 0.
func (e *Evaluator) Evaluate(sched entity.Schedule) (float64, Scores) {
	if len(sched) == 0 {
		return 0, Scores{Feasible: true}
	}

	scores := Scores{
		ORUtilization:     e.orUtilization(sched),
		SDSTPenalty:       e.sdstPenalty(sched),
		SurgeonPreference: e.surgeonPreferenceSatisfaction(sched),
		WorkloadBalance:   e.workloadBalance(sched),
		PatientWaitTime:   e.patientWaitTime(sched),
		EmergencyPriority: e.emergencyPriority(sched),
		OperationalCost:   e.operationalCost(sched),
		StaffOvertime:      e.staffOvertime(sched),
		Feasible:           e.oracle == nil || e.oracle.ScheduleFeasible(sched),
	}

	total := e.weights.ORUtilization*scores.ORUtilization +
		e.weights.SDSTPenalty*scores.SDSTPenalty +
		e.weights.SurgeonPreference*scores.SurgeonPreference +
		e.weights.WorkloadBalance*scores.WorkloadBalance +
		e.weights.PatientWaitTime*scores.PatientWaitTime +
		e.weights.EmergencyPriority*scores.EmergencyPriority +
		e.weights.OperationalCost*scores.OperationalCost +
		e.weights.StaffOvertime*scores.StaffOvertime

	if !scores.Feasible {
		total += e.weights.FeasibilityPenalty
	}

	return total, scores
}

func scheduleWindow(sched entity.Schedule) (start, end time.Time) {
	start, end = sched[0].Start, sched[0].End
	for _, a := range sched[1:] {
		if a.Start.Before(start) {
			start = a.Start
		}
		if a.End.After(end) {
			end = a.End
		}
	}
	return start, end
}

// orUtilization is Σ durations / (span × #rooms) over the observed
// horizon, where #rooms is the number of distinct rooms used.
func (e *Evaluator) orUtilization(sched entity.Schedule) float64 {
	start, end := scheduleWindow(sched)
	span := end.Sub(start).Minutes()
	if span <= 0 {
		return 0
	}

	rooms := make(map[entity.RoomID]struct{})
	var used float64
	for _, a := range sched {
		rooms[a.RoomID] = struct{}{}
		used += a.Duration().Minutes()
	}

	available := span * float64(len(rooms))
	if available <= 0 {
		return 0
	}
	return used / available
}

// sdstPenalty sums the applied setup time between consecutive same-room
// assignments and normalizes against a 30min×10 ceiling.
func (e *Evaluator) sdstPenalty(sched entity.Schedule) float64 {
	byRoom := sched.ByRoom()
	var total time.Duration

	for _, assignments := range byRoom {
		sort.Slice(assignments, func(i, j int) bool { return assignments[i].Start.Before(assignments[j].Start) })
		for i := 1; i < len(assignments); i++ {
			prev, ok1 := e.ref.Surgery(assignments[i-1].SurgeryID)
			curr, ok2 := e.ref.Surgery(assignments[i].SurgeryID)
			if !ok1 || !ok2 {
				continue
			}
			gap, _ := e.ref.SDST().Lookup(prev.TypeID, curr.TypeID, false)
			total += gap
		}
	}

	maxExpected := 30 * time.Minute * 10
	return math.Min(1.0, total.Minutes()/maxExpected.Minutes())
}

func (e *Evaluator) surgeonPreferenceSatisfaction(sched entity.Schedule) float64 {
	var total, satisfied int
	for _, a := range sched {
		surgery, ok := e.ref.Surgery(a.SurgeryID)
		if !ok || surgery.RequiredSurgeonID == nil {
			continue
		}
		surgeon, ok := e.ref.Surgeon(*surgery.RequiredSurgeonID)
		if !ok {
			continue
		}
		for _, pref := range surgeon.Preferences {
			total++
			if preferenceSatisfied(pref, a) {
				satisfied++
			}
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(satisfied) / float64(total)
}

func preferenceSatisfied(pref entity.SurgeonPreference, a entity.Assignment) bool {
	if pref.RoomID != 0 && pref.RoomID == a.RoomID {
		return true
	}
	if pref.DayOfWeek == a.Start.Weekday() {
		return true
	}
	if slot, ok := entity.SlotForMinute(a.Start.Hour()*60 + a.Start.Minute()); ok && slot == pref.TimeOfDay {
		return true
	}
	return false
}

// workloadBalance is 1 − min(1, stdev/mean) of per-surgeon assigned
// minutes; a single surgeon (or none) is treated as perfectly balanced.
func (e *Evaluator) workloadBalance(sched entity.Schedule) float64 {
	workloads := e.perSurgeonMinutes(sched)
	if len(workloads) <= 1 {
		return 1.0
	}
	mean, std := meanStdDev(workloads)
	if mean == 0 {
		return 1.0
	}
	return 1.0 - math.Min(1.0, std/mean)
}

func (e *Evaluator) perSurgeonMinutes(sched entity.Schedule) []float64 {
	totals := make(map[entity.SurgeonID]float64)
	for _, a := range sched {
		surgery, ok := e.ref.Surgery(a.SurgeryID)
		if !ok || surgery.RequiredSurgeonID == nil {
			continue
		}
		totals[*surgery.RequiredSurgeonID] += a.Duration().Minutes()
	}
	out := make([]float64, 0, len(totals))
	for _, v := range totals {
		out = append(out, v)
	}
	return out
}

// patientWaitTime scores urgency-adjusted time-of-day placement: High
// urgency surgeries are rewarded for starting earlier in the day,
// Low urgency surgeries for starting later, Medium is neutral.
func (e *Evaluator) patientWaitTime(sched entity.Schedule) float64 {
	var total float64
	var count int
	for _, a := range sched {
		surgery, ok := e.ref.Surgery(a.SurgeryID)
		if !ok {
			continue
		}
		hour := float64(a.Start.Hour())
		switch surgery.Urgency {
		case entity.UrgencyHigh, entity.UrgencyEmergency:
			total += hour / 24.0
		case entity.UrgencyLow:
			total += 1.0 - hour/24.0
		default:
			total += 0.5
		}
		count++
	}
	if count == 0 {
		return 0.5
	}
	return total / float64(count)
}

// emergencyPriority rewards High/Emergency surgeries scheduled early,
// weighted by urgency.
func (e *Evaluator) emergencyPriority(sched entity.Schedule) float64 {
	var total float64
	var count int
	for _, a := range sched {
		surgery, ok := e.ref.Surgery(a.SurgeryID)
		if !ok {
			continue
		}
		base := urgencyScore(surgery.Urgency)
		hour := float64(a.Start.Hour())

		priority := base
		if surgery.Urgency == entity.UrgencyHigh || surgery.Urgency == entity.UrgencyEmergency {
			timeFactor := math.Max(0, 1.0-hour/12.0)
			priority = base * (0.5 + 0.5*timeFactor)
		}
		total += priority
		count++
	}
	if count == 0 {
		return 0.5
	}
	return total / float64(count)
}

func urgencyScore(u entity.Urgency) float64 {
	switch u {
	case entity.UrgencyEmergency, entity.UrgencyHigh:
		return 1.0
	case entity.UrgencyMedium:
		return 0.5
	default:
		return 0.0
	}
}

// operationalCost is 1 − min(1, stdev/mean) of per-room assigned
// minutes, treated as a penalty criterion (weight is negative): more
// balanced room usage yields a higher raw score (1.0 when every room
// has the same total), and so a larger deduction after weighting.
func (e *Evaluator) operationalCost(sched entity.Schedule) float64 {
	byRoom := sched.ByRoom()
	if len(byRoom) == 0 {
		return 0.5
	}
	minutes := make([]float64, 0, len(byRoom))
	for _, assignments := range byRoom {
		var sum float64
		for _, a := range assignments {
			sum += a.Duration().Minutes()
		}
		minutes = append(minutes, sum)
	}
	mean, std := meanStdDev(minutes)
	if mean == 0 {
		return 0.5
	}
	return 1.0 - math.Min(1.0, std/mean)
}

// staffOvertime sums minutes falling outside 08:00-17:00, normalized
// against an 8-hour ceiling.
func (e *Evaluator) staffOvertime(sched entity.Schedule) float64 {
	const normalStartHour = 8
	const normalEndHour = 17

	var totalMinutes float64
	for _, a := range sched {
		dayStart := time.Date(a.Start.Year(), a.Start.Month(), a.Start.Day(), normalStartHour, 0, 0, 0, a.Start.Location())
		dayEnd := time.Date(a.Start.Year(), a.Start.Month(), a.Start.Day(), normalEndHour, 0, 0, 0, a.Start.Location())

		if a.Start.Before(dayStart) {
			totalMinutes += dayStart.Sub(a.Start).Minutes()
		}
		if a.End.After(dayEnd) {
			totalMinutes += a.End.Sub(dayEnd).Minutes()
		}
	}

	maxExpected := 8.0 * 60
	return math.Min(1.0, totalMinutes/maxExpected)
}

func meanStdDev(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
