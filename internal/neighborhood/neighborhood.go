// Package neighborhood implements the bounded candidate-schedule
// generator (component C4): seven move strategies, each capped to a
// configurable number of neighbors and gated by feasibility and tabu
// status (with aspiration override left to the caller).
package neighborhood

import (
	"math/rand"
	"sort"

	"github.com/schedcu/surgopt/internal/entity"
	"github.com/schedcu/surgopt/internal/feasibility"
)

// Candidate pairs a proposed schedule with the move that produced it.
type Candidate struct {
	Schedule entity.Schedule
	Move     entity.TabuMove
}

// TabuList is the subset of the tabu list (component C5) the generator
// needs: whether a move's label is currently forbidden.
type TabuList interface {
	IsTabu(move entity.TabuMove) bool
}

// StrategyWeights gives the probability each strategy participates in
// a given generation round, matching the original scheduler's
// per-strategy activation weights.
type StrategyWeights map[entity.MoveKind]float64

// DefaultStrategyWeights mirrors the reference scheduler's tuning.
func DefaultStrategyWeights() StrategyWeights {
	return StrategyWeights{
		entity.MoveKindMoveRoom:       1.0,
		entity.MoveKindSwapRooms:      1.0,
		entity.MoveKindShiftTime:      1.0,
		entity.MoveKindReschedule:     0.8,
		entity.MoveKindReorderInRoom:  0.8,
		entity.MoveKindBatchByType:    0.6,
		entity.MoveKindSurgeonCompact: 0.7,
	}
}

// Config tunes the generator.
type Config struct {
	MaxNeighborsPerStrategy int
	StrategyWeights         StrategyWeights
}

// DefaultConfig matches the reference scheduler's defaults.
func DefaultConfig() Config {
	return Config{MaxNeighborsPerStrategy: 10, StrategyWeights: DefaultStrategyWeights()}
}

var timeShifts = []int{-60, -30, -15, 15, 30, 60}

// Generator proposes labelled candidate schedules around an incumbent.
type Generator struct {
	ref    *entity.ReferenceData
	oracle *feasibility.Oracle
	cfg    Config
	rng    *rand.Rand
}

// New constructs a Generator. rng may be nil, in which case a default
// top-level source is used.
func New(ref *entity.ReferenceData, oracle *feasibility.Oracle, cfg Config, rng *rand.Rand) *Generator {
	if cfg.MaxNeighborsPerStrategy <= 0 {
		cfg.MaxNeighborsPerStrategy = 10
	}
	if len(cfg.StrategyWeights) == 0 {
		cfg.StrategyWeights = DefaultStrategyWeights()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Generator{ref: ref, oracle: oracle, cfg: cfg, rng: rng}
}

// aspirationFn reports whether a tabu move should still be considered
// because it would improve on the best-ever score (spec §4.6).
type aspirationFn func(entity.TabuMove, entity.Schedule) bool

// Generate runs every activated strategy against incumbent and returns
// the union of feasible, non-tabu (or aspiration-admissible) candidate
// schedules, in shuffled order.
func (g *Generator) Generate(incumbent entity.Schedule, tabu TabuList, aspires aspirationFn) []Candidate {
	if len(incumbent) == 0 {
		return nil
	}
	if aspires == nil {
		aspires = func(entity.TabuMove, entity.Schedule) bool { return false }
	}

	strategies := g.activatedStrategies()

	var all []Candidate
	for _, s := range strategies {
		all = append(all, s(g, incumbent, tabu, aspires)...)
	}

	g.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all
}

type strategyFn func(*Generator, entity.Schedule, TabuList, aspirationFn) []Candidate

func (g *Generator) activatedStrategies() []strategyFn {
	all := []struct {
		kind entity.MoveKind
		fn   strategyFn
	}{
		{entity.MoveKindMoveRoom, (*Generator).moveRoom},
		{entity.MoveKindSwapRooms, (*Generator).swapRooms},
		{entity.MoveKindShiftTime, (*Generator).shiftTime},
		{entity.MoveKindReschedule, (*Generator).reschedule},
		{entity.MoveKindReorderInRoom, (*Generator).reorderInRoom},
		{entity.MoveKindBatchByType, (*Generator).batchByType},
		{entity.MoveKindSurgeonCompact, (*Generator).surgeonCompact},
	}

	var selected []strategyFn
	for _, s := range all {
		if g.rng.Float64() < g.cfg.StrategyWeights[s.kind] {
			selected = append(selected, s.fn)
		}
	}
	if len(selected) == 0 {
		for _, s := range all {
			selected = append(selected, s.fn)
		}
	}
	return selected
}

// admissible reports whether a candidate's schedule is feasible and
// its move is either not tabu or aspiration-admissible.
func (g *Generator) admissible(sched entity.Schedule, move entity.TabuMove, tabu TabuList, aspires aspirationFn) bool {
	if !g.oracle.ScheduleFeasible(sched) {
		return false
	}
	if tabu != nil && tabu.IsTabu(move) {
		return aspires(move, sched)
	}
	return true
}

func replaceAssignment(sched entity.Schedule, id entity.SurgeryID, replacement entity.Assignment) entity.Schedule {
	out := make(entity.Schedule, len(sched))
	for i, a := range sched {
		if a.SurgeryID == id {
			out[i] = replacement
		} else {
			out[i] = a
		}
	}
	return out
}

func (g *Generator) sampleIndices(n int) []int {
	idx := g.rng.Perm(n)
	limit := g.cfg.MaxNeighborsPerStrategy
	if limit > n {
		limit = n
	}
	return idx[:limit]
}

// moveRoom tries relocating sampled surgeries into each other room,
// keeping the same time interval.
func (g *Generator) moveRoom(incumbent entity.Schedule, tabu TabuList, aspires aspirationFn) []Candidate {
	var out []Candidate
	rooms := g.ref.Rooms()

	for _, i := range g.sampleIndices(len(incumbent)) {
		a := incumbent[i]
		for _, room := range rooms {
			if room.ID == a.RoomID {
				continue
			}
			move := entity.TabuMove{Kind: entity.MoveKindMoveRoom, SurgeryID: a.SurgeryID, FromRoomID: a.RoomID, ToRoomID: room.ID}
			candidate := replaceAssignment(incumbent, a.SurgeryID, entity.Assignment{SurgeryID: a.SurgeryID, RoomID: room.ID, Start: a.Start, End: a.End})
			if g.admissible(candidate, move, tabu, aspires) {
				out = append(out, Candidate{Schedule: candidate, Move: move})
				if len(out) >= g.cfg.MaxNeighborsPerStrategy {
					return out
				}
			}
		}
	}
	return out
}

// swapRooms tries exchanging rooms between sampled pairs of surgeries.
func (g *Generator) swapRooms(incumbent entity.Schedule, tabu TabuList, aspires aspirationFn) []Candidate {
	var out []Candidate
	n := len(incumbent)
	if n < 2 {
		return out
	}

	type pair struct{ i, j int }
	var pairs []pair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, pair{i, j})
		}
	}
	g.rng.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })

	limit := g.cfg.MaxNeighborsPerStrategy
	if limit > len(pairs) {
		limit = len(pairs)
	}

	for _, p := range pairs[:limit] {
		a, b := incumbent[p.i], incumbent[p.j]
		move := entity.TabuMove{Kind: entity.MoveKindSwapRooms, SurgeryID: a.SurgeryID, SurgeryID2: b.SurgeryID}

		candidate := incumbent.Clone()
		candidate[p.i].RoomID, candidate[p.j].RoomID = b.RoomID, a.RoomID

		if g.admissible(candidate, move, tabu, aspires) {
			out = append(out, Candidate{Schedule: candidate, Move: move})
			if len(out) >= g.cfg.MaxNeighborsPerStrategy {
				return out
			}
		}
	}
	return out
}

// shiftTime tries moving sampled surgeries earlier or later by one of
// the fixed deltas.
func (g *Generator) shiftTime(incumbent entity.Schedule, tabu TabuList, aspires aspirationFn) []Candidate {
	var out []Candidate

	for _, i := range g.sampleIndices(len(incumbent)) {
		a := incumbent[i]
		for _, delta := range timeShifts {
			shift := minutesDuration(delta)
			move := entity.TabuMove{Kind: entity.MoveKindShiftTime, SurgeryID: a.SurgeryID, DeltaMinutes: delta}
			candidate := replaceAssignment(incumbent, a.SurgeryID, entity.Assignment{
				SurgeryID: a.SurgeryID, RoomID: a.RoomID, Start: a.Start.Add(shift), End: a.End.Add(shift),
			})
			if g.admissible(candidate, move, tabu, aspires) {
				out = append(out, Candidate{Schedule: candidate, Move: move})
				if len(out) >= g.cfg.MaxNeighborsPerStrategy {
					return out
				}
			}
		}
	}
	return out
}

// reschedule tries placing sampled surgeries at each slot on the
// 08:00-18:00, 30-minute grid.
func (g *Generator) reschedule(incumbent entity.Schedule, tabu TabuList, aspires aspirationFn) []Candidate {
	var out []Candidate
	slots := rescheduleSlots()

	for _, i := range g.sampleIndices(len(incumbent)) {
		a := incumbent[i]
		dayStart := dayFloor(a.Start)
		for _, slotMinute := range slots {
			newStart := dayStart.Add(minutesDuration(slotMinute))
			if newStart.Equal(a.Start) {
				continue
			}
			newEnd := newStart.Add(a.Duration())

			move := entity.TabuMove{Kind: entity.MoveKindReschedule, SurgeryID: a.SurgeryID, StartMinute: slotMinute}
			candidate := replaceAssignment(incumbent, a.SurgeryID, entity.Assignment{SurgeryID: a.SurgeryID, RoomID: a.RoomID, Start: newStart, End: newEnd})
			if g.admissible(candidate, move, tabu, aspires) {
				out = append(out, Candidate{Schedule: candidate, Move: move})
				if len(out) >= g.cfg.MaxNeighborsPerStrategy {
					return out
				}
			}
		}
	}
	return out
}

func rescheduleSlots() []int {
	slots := make([]int, 0, 20)
	for i := 0; i < 20; i++ {
		slots = append(slots, 8*60+30*i)
	}
	return slots
}

// reorderInRoom tries swapping the time intervals of adjacent
// surgeries (by start time) within the same room.
func (g *Generator) reorderInRoom(incumbent entity.Schedule, tabu TabuList, aspires aspirationFn) []Candidate {
	var out []Candidate
	byRoom := incumbent.ByRoom()

	roomIDs := make([]entity.RoomID, 0, len(byRoom))
	for id := range byRoom {
		roomIDs = append(roomIDs, id)
	}
	sort.Slice(roomIDs, func(i, j int) bool { return roomIDs[i] < roomIDs[j] })

	for _, roomID := range g.sampleRoomIDs(roomIDs) {
		assignments := append(entity.Schedule{}, byRoom[roomID]...)
		sort.Slice(assignments, func(i, j int) bool { return assignments[i].Start.Before(assignments[j].Start) })
		if len(assignments) < 2 {
			continue
		}

		for i := 0; i < len(assignments)-1; i++ {
			a, b := assignments[i], assignments[i+1]
			durA, durB := a.Duration(), b.Duration()

			newA := entity.Assignment{SurgeryID: a.SurgeryID, RoomID: roomID, Start: b.Start, End: b.Start.Add(durA)}
			newB := entity.Assignment{SurgeryID: b.SurgeryID, RoomID: roomID, Start: a.Start, End: a.Start.Add(durB)}

			move := entity.TabuMove{Kind: entity.MoveKindReorderInRoom, SurgeryID: a.SurgeryID, SurgeryID2: b.SurgeryID}
			candidate := replaceAssignment(incumbent, a.SurgeryID, newA)
			candidate = replaceAssignment(candidate, b.SurgeryID, newB)

			if g.admissible(candidate, move, tabu, aspires) {
				out = append(out, Candidate{Schedule: candidate, Move: move})
				if len(out) >= g.cfg.MaxNeighborsPerStrategy {
					return out
				}
			}
		}
	}
	return out
}

// batchByType tries a handful of random permutations of the surgeries
// within a room, recomputing start times back-to-back with SDST gaps.
func (g *Generator) batchByType(incumbent entity.Schedule, tabu TabuList, aspires aspirationFn) []Candidate {
	var out []Candidate
	byRoom := incumbent.ByRoom()

	roomIDs := make([]entity.RoomID, 0, len(byRoom))
	for id := range byRoom {
		roomIDs = append(roomIDs, id)
	}
	sort.Slice(roomIDs, func(i, j int) bool { return roomIDs[i] < roomIDs[j] })

	attempts := 5
	if attempts > g.cfg.MaxNeighborsPerStrategy {
		attempts = g.cfg.MaxNeighborsPerStrategy
	}

	for _, roomID := range g.sampleRoomIDs(roomIDs) {
		assignments := append(entity.Schedule{}, byRoom[roomID]...)
		sort.Slice(assignments, func(i, j int) bool { return assignments[i].Start.Before(assignments[j].Start) })
		if len(assignments) < 2 {
			continue
		}

		originalOrder := make([]entity.SurgeryID, len(assignments))
		for i, a := range assignments {
			originalOrder[i] = a.SurgeryID
		}

		for attempt := 0; attempt < attempts; attempt++ {
			order := append([]entity.SurgeryID{}, originalOrder...)
			g.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
			if sameOrder(order, originalOrder) {
				continue
			}

			move := entity.TabuMove{Kind: entity.MoveKindBatchByType, RoomID: roomID, Order: order}
			candidate := g.rebatch(incumbent, roomID, assignments, order)

			if g.admissible(candidate, move, tabu, aspires) {
				out = append(out, Candidate{Schedule: candidate, Move: move})
				if len(out) >= g.cfg.MaxNeighborsPerStrategy {
					return out
				}
			}
		}
	}
	return out
}

func (g *Generator) rebatch(incumbent entity.Schedule, roomID entity.RoomID, original entity.Schedule, order []entity.SurgeryID) entity.Schedule {
	byID := make(map[entity.SurgeryID]entity.Assignment, len(original))
	for _, a := range original {
		byID[a.SurgeryID] = a
	}

	current := original[0].Start
	replacements := make(map[entity.SurgeryID]entity.Assignment, len(order))
	var prevType entity.SurgeryTypeID
	havePrev := false

	for _, id := range order {
		a := byID[id]
		surgery, ok := g.ref.Surgery(id)
		if !ok {
			replacements[id] = a
			continue
		}
		if havePrev {
			gap, _ := g.ref.SDST().Lookup(prevType, surgery.TypeID, false)
			current = current.Add(gap)
		}
		newAsn := entity.Assignment{SurgeryID: id, RoomID: roomID, Start: current, End: current.Add(a.Duration())}
		replacements[id] = newAsn
		current = newAsn.End
		prevType = surgery.TypeID
		havePrev = true
	}

	out := make(entity.Schedule, len(incumbent))
	for i, a := range incumbent {
		if replacement, ok := replacements[a.SurgeryID]; ok {
			out[i] = replacement
		} else {
			out[i] = a
		}
	}
	return out
}

func sameOrder(a, b []entity.SurgeryID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// surgeonCompact pulls a surgeon's next surgery to start 15 minutes
// after the prior one ends, closing idle gaps.
func (g *Generator) surgeonCompact(incumbent entity.Schedule, tabu TabuList, aspires aspirationFn) []Candidate {
	var out []Candidate

	bySurgeon := make(map[entity.SurgeonID]entity.Schedule)
	for _, a := range incumbent {
		surgery, ok := g.ref.Surgery(a.SurgeryID)
		if !ok || surgery.RequiredSurgeonID == nil {
			continue
		}
		bySurgeon[*surgery.RequiredSurgeonID] = append(bySurgeon[*surgery.RequiredSurgeonID], a)
	}

	surgeonIDs := make([]entity.SurgeonID, 0, len(bySurgeon))
	for id := range bySurgeon {
		surgeonIDs = append(surgeonIDs, id)
	}
	sort.Slice(surgeonIDs, func(i, j int) bool { return surgeonIDs[i] < surgeonIDs[j] })

	for _, surgeonID := range g.sampleSurgeonIDs(surgeonIDs) {
		assignments := bySurgeon[surgeonID]
		sort.Slice(assignments, func(i, j int) bool { return assignments[i].Start.Before(assignments[j].Start) })
		if len(assignments) < 2 {
			continue
		}

		for i := 0; i < len(assignments)-1; i++ {
			gap := assignments[i+1].Start.Sub(assignments[i].End)
			if gap <= minutesDuration(30) {
				continue
			}
			next := assignments[i+1]
			newStart := assignments[i].End.Add(minutesDuration(15))
			newEnd := newStart.Add(next.Duration())

			move := entity.TabuMove{Kind: entity.MoveKindSurgeonCompact, SurgeonID: surgeonID, SurgeryID: next.SurgeryID}
			candidate := replaceAssignment(incumbent, next.SurgeryID, entity.Assignment{SurgeryID: next.SurgeryID, RoomID: next.RoomID, Start: newStart, End: newEnd})

			if g.admissible(candidate, move, tabu, aspires) {
				out = append(out, Candidate{Schedule: candidate, Move: move})
				if len(out) >= g.cfg.MaxNeighborsPerStrategy {
					return out
				}
			}
		}
	}
	return out
}

func (g *Generator) sampleRoomIDs(ids []entity.RoomID) []entity.RoomID {
	if len(ids) == 0 {
		return nil
	}
	perm := g.rng.Perm(len(ids))
	limit := g.cfg.MaxNeighborsPerStrategy
	if limit > len(ids) {
		limit = len(ids)
	}
	out := make([]entity.RoomID, limit)
	for i, p := range perm[:limit] {
		out[i] = ids[p]
	}
	return out
}

func (g *Generator) sampleSurgeonIDs(ids []entity.SurgeonID) []entity.SurgeonID {
	if len(ids) == 0 {
		return nil
	}
	perm := g.rng.Perm(len(ids))
	limit := g.cfg.MaxNeighborsPerStrategy
	if limit > len(ids) {
		limit = len(ids)
	}
	out := make([]entity.SurgeonID, limit)
	for i, p := range perm[:limit] {
		out[i] = ids[p]
	}
	return out
}
