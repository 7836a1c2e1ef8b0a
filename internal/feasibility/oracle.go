// Package feasibility implements the point-in-time constraint oracle
// (component C2): room, surgeon, and equipment availability, room
// suitability, and whole-schedule feasibility checking.
package feasibility

import (
	"time"

	"go.uber.org/zap"

	"github.com/schedcu/surgopt/internal/entity"
)

// Config tunes oracle behavior beyond the hard constraints in spec §3.
type Config struct {
	// StrictSDST treats a missing SDST table entry as infeasible
	// instead of defaulting to entity.DefaultSDST (Design Note 9,
	// "SDST defaulting... make this a policy flag").
	StrictSDST bool
}

// Oracle validates proposed assignments against a ReferenceData
// handle. It never mutates state and every operation is total: an
// unknown id yields false plus a logged warning rather than a panic.
type Oracle struct {
	ref    *entity.ReferenceData
	config Config
	log    *zap.SugaredLogger
}

// New constructs an Oracle over the given reference data. ref is
// assumed pre-indexed (entity.NewReferenceData already builds the O(1)
// lookup maps this oracle relies on).
func New(ref *entity.ReferenceData, config Config, log *zap.SugaredLogger) *Oracle {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Oracle{ref: ref, config: config, log: log}
}

// RoomAvailable reports whether room is free for [start,end) given the
// other assignments in the schedule, optionally ignoring one surgery.
func (o *Oracle) RoomAvailable(roomID entity.RoomID, start, end time.Time, others entity.Schedule, ignore *entity.SurgeryID) bool {
	room, ok := o.ref.Room(roomID)
	if !ok {
		o.log.Warnw("room not found", "room_id", roomID)
		return false
	}

	for _, a := range others {
		if ignore != nil && a.SurgeryID == *ignore {
			continue
		}
		if a.RoomID != roomID {
			continue
		}
		if start.Before(a.End) && end.After(a.Start) {
			return false
		}
	}

	return withinOperationalWindow(room, start, end)
}

func withinOperationalWindow(room entity.OperatingRoom, start, end time.Time) bool {
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location()).
		Add(time.Duration(room.OperationalStart) * time.Minute)
	dayEnd := dayStart.Add(room.DailySpan)
	return !start.Before(dayStart) && !end.After(dayEnd)
}

// SurgeonAvailable reports whether surgeon is free for [start,end),
// respecting the general-availability flag, conflicts with other
// assignments for the same surgeon, and any declared availability
// window for that day of week.
func (o *Oracle) SurgeonAvailable(surgeonID entity.SurgeonID, start, end time.Time, others entity.Schedule, ignore *entity.SurgeryID) bool {
	surgeon, ok := o.ref.Surgeon(surgeonID)
	if !ok {
		o.log.Warnw("surgeon not found", "surgeon_id", surgeonID)
		return false
	}
	if !surgeon.GeneralAvailable {
		return false
	}

	for _, a := range others {
		if ignore != nil && a.SurgeryID == *ignore {
			continue
		}
		s, ok := o.ref.Surgery(a.SurgeryID)
		if !ok || s.RequiredSurgeonID == nil || *s.RequiredSurgeonID != surgeonID {
			continue
		}
		if start.Before(a.End) && end.After(a.Start) {
			return false
		}
	}

	if len(surgeon.Availability) == 0 {
		return true
	}

	day := start.Weekday()
	startMin := minuteOfDay(start)
	endMin := minuteOfDay(end)
	for _, w := range surgeon.Availability {
		if w.DayOfWeek == day && startMin >= w.StartMinute && endMin <= w.EndMinute {
			return true
		}
	}
	return false
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// EquipmentAvailable reports whether an equipment unit is free for
// [start,end), checking both the general-availability flag and any
// recorded EquipmentUsage reservations (maintenance windows or other
// concurrent use outside the schedule under construction).
func (o *Oracle) EquipmentAvailable(equipmentID entity.EquipmentID, start, end time.Time, others entity.Schedule, ignore *entity.SurgeryID) bool {
	equip, ok := o.ref.Equipment(equipmentID)
	if !ok {
		o.log.Warnw("equipment not found", "equipment_id", equipmentID)
		return false
	}
	if !equip.GeneralAvailable {
		return false
	}

	for _, u := range o.ref.EquipmentUsage() {
		if u.EquipmentID != equipmentID {
			continue
		}
		if start.Before(u.End) && end.After(u.Start) {
			return false
		}
	}

	for _, a := range others {
		if ignore != nil && a.SurgeryID == *ignore {
			continue
		}
		s, ok := o.ref.Surgery(a.SurgeryID)
		if !ok || !requiresEquipment(s, equipmentID) {
			continue
		}
		if start.Before(a.End) && end.After(a.Start) {
			return false
		}
	}

	return true
}

func requiresEquipment(s entity.Surgery, id entity.EquipmentID) bool {
	for _, e := range s.RequiredEquipment {
		if e == id {
			return true
		}
	}
	return false
}

// RoomSuitable reports whether room's equipment set is a superset of
// the surgery's required equipment.
func (o *Oracle) RoomSuitable(roomID entity.RoomID, surgeryID entity.SurgeryID) bool {
	room, ok := o.ref.Room(roomID)
	if !ok {
		o.log.Warnw("room not found", "room_id", roomID)
		return false
	}
	surgery, ok := o.ref.Surgery(surgeryID)
	if !ok {
		o.log.Warnw("surgery not found", "surgery_id", surgeryID)
		return false
	}
	if len(surgery.RequiredEquipment) == 0 {
		return true
	}

	available := make(map[entity.EquipmentID]struct{}, len(room.Equipment))
	for _, e := range room.Equipment {
		available[e] = struct{}{}
	}
	for _, required := range surgery.RequiredEquipment {
		if _, ok := available[required]; !ok {
			return false
		}
	}
	return true
}

// Feasible is the conjunction of room/surgeon/equipment availability,
// room suitability, and the SDST gap against the preceding same-room
// assignment (spec §3 invariant 6).
func (o *Oracle) Feasible(surgeryID entity.SurgeryID, roomID entity.RoomID, start, end time.Time, others entity.Schedule, ignore *entity.SurgeryID) bool {
	surgery, ok := o.ref.Surgery(surgeryID)
	if !ok {
		o.log.Warnw("surgery not found", "surgery_id", surgeryID)
		return false
	}

	if end.Sub(start) != surgery.Duration {
		return false
	}

	if !o.RoomAvailable(roomID, start, end, others, ignore) {
		return false
	}

	if surgery.RequiredSurgeonID != nil {
		if !o.SurgeonAvailable(*surgery.RequiredSurgeonID, start, end, others, ignore) {
			return false
		}
	}

	if !o.RoomSuitable(roomID, surgeryID) {
		return false
	}

	for _, eq := range surgery.RequiredEquipment {
		if !o.EquipmentAvailable(eq, start, end, others, ignore) {
			return false
		}
	}

	return o.sdstSatisfied(surgery, roomID, start, others, ignore)
}

// sdstSatisfied checks invariant 6: the gap to the immediately
// preceding same-room assignment must be at least the SDST for that
// type transition.
func (o *Oracle) sdstSatisfied(surgery entity.Surgery, roomID entity.RoomID, start time.Time, others entity.Schedule, ignore *entity.SurgeryID) bool {
	var prev *entity.Assignment
	for i := range others {
		a := others[i]
		if ignore != nil && a.SurgeryID == *ignore {
			continue
		}
		if a.RoomID != roomID || a.End.After(start) {
			continue
		}
		if prev == nil || a.End.After(prev.End) {
			prev = &others[i]
		}
	}
	if prev == nil {
		return true
	}

	prevSurgery, ok := o.ref.Surgery(prev.SurgeryID)
	if !ok {
		return true
	}

	gap, ok := o.ref.SDST().Lookup(prevSurgery.TypeID, surgery.TypeID, o.config.StrictSDST)
	if !ok {
		return false
	}
	return start.Sub(prev.End) >= gap
}

// ScheduleFeasible reports whether every assignment in sched is
// feasible against the rest of the schedule.
func (o *Oracle) ScheduleFeasible(sched entity.Schedule) bool {
	if len(sched) == 0 {
		return true
	}
	for i, a := range sched {
		others := make(entity.Schedule, 0, len(sched)-1)
		others = append(others, sched[:i]...)
		others = append(others, sched[i+1:]...)
		if !o.Feasible(a.SurgeryID, a.RoomID, a.Start, a.End, others, nil) {
			return false
		}
	}
	return true
}
