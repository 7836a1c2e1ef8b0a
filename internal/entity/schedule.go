package entity

import (
	"sort"
	"time"
)

// ReferenceData is the immutable, cheaply clonable handle over entity
// collections for a single schedule date (Design Note 9, "Shared
// entity data across runs"). It is loaded once per run and is safe to
// share across concurrent runs: nothing in the optimizer mutates it.
type ReferenceData struct {
	ScheduleDate   time.Time
	surgeries      map[SurgeryID]Surgery
	surgeryTypes   map[SurgeryTypeID]SurgeryType
	surgeons       map[SurgeonID]Surgeon
	rooms          map[RoomID]OperatingRoom
	staff          map[StaffID]StaffMember
	equipment      map[EquipmentID]EquipmentUnit
	sdst           SDSTTable
	equipmentUsage []EquipmentUsage
}

// NewReferenceData indexes the given collections by id for O(1)
// amortized lookup, matching the feasibility oracle's requirement
// (spec §4.1, "Caching").
func NewReferenceData(
	date time.Time,
	surgeries []Surgery,
	surgeryTypes []SurgeryType,
	surgeons []Surgeon,
	rooms []OperatingRoom,
	staff []StaffMember,
	equipment []EquipmentUnit,
	sdst SDSTTable,
	equipmentUsage []EquipmentUsage,
) *ReferenceData {
	rd := &ReferenceData{
		ScheduleDate:   date,
		surgeries:      make(map[SurgeryID]Surgery, len(surgeries)),
		surgeryTypes:   make(map[SurgeryTypeID]SurgeryType, len(surgeryTypes)),
		surgeons:       make(map[SurgeonID]Surgeon, len(surgeons)),
		rooms:          make(map[RoomID]OperatingRoom, len(rooms)),
		staff:          make(map[StaffID]StaffMember, len(staff)),
		equipment:      make(map[EquipmentID]EquipmentUnit, len(equipment)),
		sdst:           sdst,
		equipmentUsage: equipmentUsage,
	}
	for _, s := range surgeries {
		rd.surgeries[s.ID] = s
	}
	for _, t := range surgeryTypes {
		rd.surgeryTypes[t.ID] = t
	}
	for _, s := range surgeons {
		rd.surgeons[s.ID] = s
	}
	for _, r := range rooms {
		rd.rooms[r.ID] = r
	}
	for _, m := range staff {
		rd.staff[m.ID] = m
	}
	for _, e := range equipment {
		rd.equipment[e.ID] = e
	}
	if rd.sdst == nil {
		rd.sdst = SDSTTable{}
	}
	return rd
}

// Clone returns a new handle sharing the same underlying maps. Since
// ReferenceData is never mutated after construction, this is safe and
// cheap — callers that need a handle scoped to their own struct field
// can clone rather than share a pointer.
func (rd *ReferenceData) Clone() *ReferenceData {
	clone := *rd
	return &clone
}

func (rd *ReferenceData) Surgery(id SurgeryID) (Surgery, bool) {
	s, ok := rd.surgeries[id]
	return s, ok
}

func (rd *ReferenceData) SurgeryType(id SurgeryTypeID) (SurgeryType, bool) {
	t, ok := rd.surgeryTypes[id]
	return t, ok
}

func (rd *ReferenceData) Surgeon(id SurgeonID) (Surgeon, bool) {
	s, ok := rd.surgeons[id]
	return s, ok
}

func (rd *ReferenceData) Room(id RoomID) (OperatingRoom, bool) {
	r, ok := rd.rooms[id]
	return r, ok
}

func (rd *ReferenceData) Staff(id StaffID) (StaffMember, bool) {
	m, ok := rd.staff[id]
	return m, ok
}

func (rd *ReferenceData) Equipment(id EquipmentID) (EquipmentUnit, bool) {
	e, ok := rd.equipment[id]
	return e, ok
}

func (rd *ReferenceData) SDST() SDSTTable {
	return rd.sdst
}

func (rd *ReferenceData) EquipmentUsage() []EquipmentUsage {
	return rd.equipmentUsage
}

// Surgeries returns all surgeries, sorted by id, for deterministic
// iteration (Design Note 9, "Float determinism").
func (rd *ReferenceData) Surgeries() []Surgery {
	out := make([]Surgery, 0, len(rd.surgeries))
	for _, s := range rd.surgeries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (rd *ReferenceData) Rooms() []OperatingRoom {
	out := make([]OperatingRoom, 0, len(rd.rooms))
	for _, r := range rd.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
