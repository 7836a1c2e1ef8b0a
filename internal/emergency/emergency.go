// Package emergency implements the priority-based emergency insertion
// subsystem (component C7): locating an insertion slot for an urgent
// surgery, resolving conflicts with the existing schedule, and scoring
// the disruption of whichever strategy succeeds.
package emergency

import (
	"context"
	"sort"
	"time"

	"github.com/schedcu/surgopt/internal/entity"
	"github.com/schedcu/surgopt/internal/feasibility"
	"github.com/schedcu/surgopt/internal/optimizer"
)

// Priority classifies how urgently an emergency surgery must start.
type Priority string

const (
	PriorityImmediate  Priority = "Immediate"
	PriorityUrgent     Priority = "Urgent"
	PrioritySemiUrgent Priority = "SemiUrgent"
	PriorityNonUrgent  Priority = "NonUrgent"
)

// acceptableWindow returns the maximum acceptable wait before an
// emergency surgery must begin, by priority (spec.md §4.7 step 1).
// NonUrgent has no special window: it is scheduled through the normal
// driver rather than this subsystem, but a generous window is returned
// here so direct-insertion search still has a bound.
func acceptableWindow(p Priority) time.Duration {
	switch p {
	case PriorityImmediate:
		return 15 * time.Minute
	case PriorityUrgent:
		return time.Hour
	case PrioritySemiUrgent:
		return 4 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Request is an incoming emergency surgery to be inserted into an
// existing schedule. Surgery must already be indexed in the Inserter's
// ReferenceData (the feasibility oracle resolves it by id), so callers
// add it to that snapshot before constructing a Request.
type Request struct {
	Surgery           entity.Surgery
	Priority          Priority
	Arrival           time.Time
	MaxWait           *time.Duration
	RequiredSurgeonID *entity.SurgeonID
	AllowBumping      bool
	AllowOvertime     bool
	AllowBackupRooms  bool
}

func (r Request) window() time.Duration {
	w := acceptableWindow(r.Priority)
	if r.MaxWait != nil && *r.MaxWait < w {
		w = *r.MaxWait
	}
	return w
}

// Strategy names the insertion mechanism that produced a result.
type Strategy string

const (
	StrategyDirect      Strategy = "Direct"
	StrategyBackupRoom   Strategy = "BackupRoom"
	StrategyOvertime     Strategy = "Overtime"
	StrategyBumpLower    Strategy = "BumpLowerPriority"
)

const overtimeExtension = 4 * time.Hour

// disruption score weights (spec.md §4.7 step 3).
const (
	bumpedWeight  = 1.0
	overtimeWeight = 0.02
	waitWeight     = 0.01
)

// Result is the outcome of an emergency insertion attempt.
type Result struct {
	Success         bool
	Reason          string
	Assignment      entity.Assignment
	BumpedSurgeries []entity.SurgeryID
	Strategy        Strategy
	DisruptionScore float64
	Schedule        entity.Schedule
}

// Inserter locates slots for emergency requests against a fixed
// reference dataset, optionally invoking the Tabu Search driver
// (component C6) for a follow-up search (see ReoptimizeAround).
type Inserter struct {
	ref    *entity.ReferenceData
	oracle *feasibility.Oracle
	driver *optimizer.Driver
}

// New constructs an Inserter. driver may be nil; callers that never
// call ReoptimizeAround do not need one.
func New(ref *entity.ReferenceData, oracle *feasibility.Oracle, driver *optimizer.Driver) *Inserter {
	return &Inserter{ref: ref, oracle: oracle, driver: driver}
}

type candidate struct {
	strategy   Strategy
	assignment entity.Assignment
	bumped     []entity.SurgeryID
	overtimeMinutes float64
	waitMinutes     float64
	score           float64
}

// Insert attempts to place req into sched, trying strategies in
// priority order and picking the one with the smallest disruption
// score (spec.md §4.7 steps 2-3).
func (ins *Inserter) Insert(sched entity.Schedule, req Request) Result {
	windowEnd := req.Arrival.Add(req.window())

	var candidates []candidate

	if c, ok := ins.direct(sched, req, windowEnd); ok {
		candidates = append(candidates, c)
	}
	if req.AllowBackupRooms {
		if c, ok := ins.backupRoom(sched, req, windowEnd); ok {
			candidates = append(candidates, c)
		}
	}
	if req.AllowOvertime {
		if c, ok := ins.overtime(sched, req, windowEnd); ok {
			candidates = append(candidates, c)
		}
	}
	if req.AllowBumping {
		if c, ok := ins.bumpLowerPriority(sched, req, windowEnd); ok {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		return Result{Success: false, Reason: "no feasible slot within acceptable window"}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })
	best := candidates[0]

	out := removeAssignments(sched, best.bumped)
	out = append(out, best.assignment)

	return Result{
		Success:         true,
		Assignment:      best.assignment,
		BumpedSurgeries: best.bumped,
		Strategy:        best.strategy,
		DisruptionScore: best.score,
		Schedule:        out,
	}
}

func removeAssignments(sched entity.Schedule, ids []entity.SurgeryID) entity.Schedule {
	if len(ids) == 0 {
		return sched.Clone()
	}
	bump := make(map[entity.SurgeryID]bool, len(ids))
	for _, id := range ids {
		bump[id] = true
	}
	out := make(entity.Schedule, 0, len(sched))
	for _, a := range sched {
		if !bump[a.SurgeryID] {
			out = append(out, a)
		}
	}
	return out
}

func disruptionScore(bumped int, overtimeMinutes, waitMinutes float64) float64 {
	return bumpedWeight*float64(bumped) + overtimeWeight*overtimeMinutes + waitWeight*waitMinutes
}

// direct searches every existing room for a contiguous feasible
// interval within the acceptable window.
func (ins *Inserter) direct(sched entity.Schedule, req Request, windowEnd time.Time) (candidate, bool) {
	return ins.searchRooms(sched, req, windowEnd, ins.ref.Rooms(), StrategyDirect, 0)
}

// backupRoom searches rooms not currently used in sched (spec.md
// §4.7 step 2b treats any room absent from today's schedule as a
// backup room, since the reference dataset's room list is the full
// facility inventory).
func (ins *Inserter) backupRoom(sched entity.Schedule, req Request, windowEnd time.Time) (candidate, bool) {
	used := make(map[entity.RoomID]bool)
	for _, a := range sched {
		used[a.RoomID] = true
	}
	var backups []entity.OperatingRoom
	for _, r := range ins.ref.Rooms() {
		if !used[r.ID] {
			backups = append(backups, r)
		}
	}
	if len(backups) == 0 {
		return candidate{}, false
	}
	return ins.searchRooms(sched, req, windowEnd, backups, StrategyBackupRoom, 0)
}

// overtime extends every room's effective operational window by
// overtimeExtension and searches again.
func (ins *Inserter) overtime(sched entity.Schedule, req Request, windowEnd time.Time) (candidate, bool) {
	return ins.searchRooms(sched, req, windowEnd.Add(overtimeExtension), ins.ref.Rooms(), StrategyOvertime, overtimeExtension.Minutes())
}

// searchRooms scans rooms for the earliest feasible start within
// windowEnd, checking room suitability, room/surgeon/equipment
// availability via the oracle.
func (ins *Inserter) searchRooms(sched entity.Schedule, req Request, windowEnd time.Time, rooms []entity.OperatingRoom, strategy Strategy, overtimeMinutes float64) (candidate, bool) {
	var best *candidate

	for _, room := range rooms {
		if !ins.oracle.RoomSuitable(room.ID, req.Surgery.ID) {
			continue
		}
		start := req.Arrival
		for !start.After(windowEnd) {
			end := start.Add(req.Surgery.Duration)
			if ins.oracle.Feasible(req.Surgery.ID, room.ID, start, end, sched, nil) {
				waitMinutes := start.Sub(req.Arrival).Minutes()
				score := disruptionScore(0, overtimeMinutes, waitMinutes)
				if best == nil || score < best.score {
					best = &candidate{
						strategy:   strategy,
						assignment: entity.Assignment{SurgeryID: req.Surgery.ID, RoomID: room.ID, Start: start, End: end},
						waitMinutes: waitMinutes,
						overtimeMinutes: overtimeMinutes,
						score:      score,
					}
				}
				break
			}
			start = start.Add(15 * time.Minute)
		}
	}

	if best == nil {
		return candidate{}, false
	}
	return *best, true
}

// bumpLowerPriority finds the minimal set of lower-urgency assignments
// in a single room whose removal opens a feasible slot, preferring the
// room/removal set with the fewest bumped surgeries and the earliest
// resulting start.
func (ins *Inserter) bumpLowerPriority(sched entity.Schedule, req Request, windowEnd time.Time) (candidate, bool) {
	byRoom := sched.ByRoom()
	roomIDs := make([]entity.RoomID, 0, len(byRoom))
	for id := range byRoom {
		roomIDs = append(roomIDs, id)
	}
	sort.Slice(roomIDs, func(i, j int) bool { return roomIDs[i] < roomIDs[j] })

	var best *candidate

	for _, roomID := range roomIDs {
		assignments := byRoom[roomID]
		room, ok := ins.ref.Room(roomID)
		if !ok || !ins.oracle.RoomSuitable(roomID, req.Surgery.ID) {
			continue
		}

		bumpable := lowerUrgencyOverlapping(ins.ref, assignments, req, windowEnd)
		sort.Slice(bumpable, func(i, j int) bool { return bumpable[i].Start.Before(bumpable[j].Start) })

		for k := 1; k <= len(bumpable); k++ {
			removeSet := bumpable[:k]
			remaining := removeFromRoom(assignments, removeSet)

			start := req.Arrival
			end := start.Add(req.Surgery.Duration)
			if start.After(windowEnd) {
				continue
			}
			if !ins.oracle.Feasible(req.Surgery.ID, room.ID, start, end, remaining, nil) {
				continue
			}

			ids := make([]entity.SurgeryID, len(removeSet))
			for i, a := range removeSet {
				ids[i] = a.SurgeryID
			}
			waitMinutes := start.Sub(req.Arrival).Minutes()
			score := disruptionScore(len(ids), 0, waitMinutes)
			if best == nil || score < best.score {
				best = &candidate{
					strategy:   StrategyBumpLower,
					assignment: entity.Assignment{SurgeryID: req.Surgery.ID, RoomID: room.ID, Start: start, End: end},
					bumped:     ids,
					waitMinutes: waitMinutes,
					score:      score,
				}
			}
			break
		}
	}

	if best == nil {
		return candidate{}, false
	}
	return *best, true
}

func lowerUrgencyOverlapping(ref *entity.ReferenceData, assignments entity.Schedule, req Request, windowEnd time.Time) entity.Schedule {
	var out entity.Schedule
	for _, a := range assignments {
		if a.End.Before(req.Arrival) || a.Start.After(windowEnd) {
			continue
		}
		surgery, ok := ref.Surgery(a.SurgeryID)
		if !ok || urgencyAtLeast(surgery.Urgency, req.Surgery.Urgency) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// urgencyAtLeast reports whether a is at least as urgent as b, so it
// must never be bumped to make room for b.
func urgencyAtLeast(a, b entity.Urgency) bool {
	return urgencyRank(a) <= urgencyRank(b)
}

func urgencyRank(u entity.Urgency) int {
	switch u {
	case entity.UrgencyEmergency:
		return 0
	case entity.UrgencyHigh:
		return 1
	case entity.UrgencyMedium:
		return 2
	default:
		return 3
	}
}

func removeFromRoom(assignments, remove entity.Schedule) entity.Schedule {
	skip := make(map[entity.SurgeryID]bool, len(remove))
	for _, a := range remove {
		skip[a.SurgeryID] = true
	}
	out := make(entity.Schedule, 0, len(assignments))
	for _, a := range assignments {
		if !skip[a.SurgeryID] {
			out = append(out, a)
		}
	}
	return out
}

// ReoptimizeAround runs a Tabu Search pass with the inserter's driver,
// bounded by budget (30s when budget is not positive) and 200
// iterations, and returns its result. The driver starts from its own
// initial solution for the reference data; the schedule produced by
// Insert is not passed to it. Callers that only need the insertion
// itself should ignore this and use Insert's Schedule field directly.
func (ins *Inserter) ReoptimizeAround(ctx context.Context, budget time.Duration) (optimizer.Result, error) {
	if budget <= 0 {
		budget = 30 * time.Second
	}
	params := optimizer.DefaultParams()
	params.TimeLimit = budget
	params.MaxIterations = 200

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return ins.driver.Optimize(ctx, params, nil)
}
