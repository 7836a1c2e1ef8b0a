package neighborhood

import (
	"sort"
	"time"

	"github.com/schedcu/surgopt/internal/entity"
)

// BuildInitialSolution produces a fully-populated or best-effort
// partial schedule for date. It first attempts a random room
// assignment with sequential packing; if that does not come out fully
// feasible it falls back to a greedy pass ordered by (urgency desc,
// duration desc), placing each surgery at the earliest feasible
// room/time.
func (g *Generator) BuildInitialSolution(date time.Time) entity.Schedule {
	if random := g.randomInitialSolution(date); g.oracle.ScheduleFeasible(random) && len(random) == len(g.ref.Surgeries()) {
		return random
	}
	return g.greedyInitialSolution(date)
}

func (g *Generator) randomInitialSolution(date time.Time) entity.Schedule {
	surgeries := g.ref.Surgeries()
	rooms := g.ref.Rooms()
	if len(surgeries) == 0 || len(rooms) == 0 {
		return nil
	}

	order := g.rng.Perm(len(surgeries))
	roomSchedules := make(map[entity.RoomID]entity.Schedule, len(rooms))
	for _, r := range rooms {
		roomSchedules[r.ID] = nil
	}

	var solution entity.Schedule
	for _, idx := range order {
		surgery := surgeries[idx]
		room := rooms[g.rng.Intn(len(rooms))]

		start := g.nextStart(roomSchedules[room.ID], room, surgery, date)
		end := start.Add(surgery.Duration)

		assignment := entity.Assignment{SurgeryID: surgery.ID, RoomID: room.ID, Start: start, End: end}
		solution = append(solution, assignment)
		roomSchedules[room.ID] = append(roomSchedules[room.ID], assignment)
	}
	return solution
}

func (g *Generator) greedyInitialSolution(date time.Time) entity.Schedule {
	surgeries := append([]entity.Surgery{}, g.ref.Surgeries()...)
	rooms := g.ref.Rooms()

	sort.Slice(surgeries, func(i, j int) bool {
		pi, pj := urgencyRank(surgeries[i].Urgency), urgencyRank(surgeries[j].Urgency)
		if pi != pj {
			return pi < pj
		}
		return surgeries[i].Duration > surgeries[j].Duration
	})

	roomSchedules := make(map[entity.RoomID]entity.Schedule, len(rooms))
	for _, r := range rooms {
		roomSchedules[r.ID] = nil
	}

	var solution entity.Schedule
	for _, surgery := range surgeries {
		var bestRoom *entity.OperatingRoom
		var bestStart time.Time

		for i := range rooms {
			room := rooms[i]
			start := g.nextStart(roomSchedules[room.ID], room, surgery, date)
			end := start.Add(surgery.Duration)

			if !g.oracle.Feasible(surgery.ID, room.ID, start, end, solution, nil) {
				continue
			}
			if bestRoom == nil || start.Before(bestStart) {
				bestRoom = &rooms[i]
				bestStart = start
			}
		}

		if bestRoom == nil {
			continue
		}
		assignment := entity.Assignment{SurgeryID: surgery.ID, RoomID: bestRoom.ID, Start: bestStart, End: bestStart.Add(surgery.Duration)}
		solution = append(solution, assignment)
		roomSchedules[bestRoom.ID] = append(roomSchedules[bestRoom.ID], assignment)
	}
	return solution
}

// nextStart returns the earliest candidate start for surgery in room
// given its existing assignments: the room's opening time if empty,
// otherwise the prior assignment's end plus the SDST gap.
func (g *Generator) nextStart(existing entity.Schedule, room entity.OperatingRoom, surgery entity.Surgery, date time.Time) time.Time {
	if len(existing) == 0 {
		return dayFloor(date).Add(minutesDuration(room.OperationalStart))
	}

	last := existing[len(existing)-1]
	gap := entity.DefaultSDST
	if lastSurgery, ok := g.ref.Surgery(last.SurgeryID); ok {
		if d, ok := g.ref.SDST().Lookup(lastSurgery.TypeID, surgery.TypeID, false); ok {
			gap = d
		}
	}
	return last.End.Add(gap)
}

func urgencyRank(u entity.Urgency) int {
	switch u {
	case entity.UrgencyEmergency, entity.UrgencyHigh:
		return 0
	case entity.UrgencyMedium:
		return 1
	default:
		return 2
	}
}
