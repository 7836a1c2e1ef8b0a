package neighborhood

import (
	"time"

	"github.com/schedcu/surgopt/internal/entity"
)

// Diversify picks a random fraction (at least one) of incumbent's
// surgeries and reassigns each to a randomly chosen room at the
// earliest feasible start after that room's current load, leaving the
// rest untouched. The caller (the Tabu Search driver, component C6) is
// responsible for checking the result's feasibility and retrying at a
// smaller fraction if it comes out infeasible; Diversify itself never
// loops or retries.
func (g *Generator) Diversify(incumbent entity.Schedule, date time.Time, fraction float64) entity.Schedule {
	if len(incumbent) == 0 {
		return incumbent
	}
	rooms := g.ref.Rooms()
	if len(rooms) == 0 {
		return incumbent
	}

	numToReschedule := int(fraction * float64(len(incumbent)))
	if numToReschedule < 1 {
		numToReschedule = 1
	}
	if numToReschedule > len(incumbent) {
		numToReschedule = len(incumbent)
	}

	indices := g.rng.Perm(len(incumbent))[:numToReschedule]
	chosen := make(map[int]bool, numToReschedule)
	for _, i := range indices {
		chosen[i] = true
	}

	out := incumbent.Clone()
	byRoom := out.ByRoom()

	for i, a := range out {
		if !chosen[i] {
			continue
		}
		surgery, ok := g.ref.Surgery(a.SurgeryID)
		if !ok {
			continue
		}
		room := rooms[g.rng.Intn(len(rooms))]

		rest := removeFromRoomSchedule(byRoom[a.RoomID], a.SurgeryID)
		byRoom[a.RoomID] = rest

		start := g.nextStart(byRoom[room.ID], room, surgery, date)
		newAsn := entity.Assignment{SurgeryID: a.SurgeryID, RoomID: room.ID, Start: start, End: start.Add(surgery.Duration)}
		out[i] = newAsn
		byRoom[room.ID] = append(byRoom[room.ID], newAsn)
	}

	return out
}

func removeFromRoomSchedule(sched entity.Schedule, id entity.SurgeryID) entity.Schedule {
	out := make(entity.Schedule, 0, len(sched))
	for _, a := range sched {
		if a.SurgeryID != id {
			out = append(out, a)
		}
	}
	return out
}
