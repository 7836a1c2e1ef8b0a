package entity

import (
	"fmt"
	"time"
)

// Type aliases for domain identifiers. Entities carry stable integer
// IDs rather than UUIDs: the optimizer core never persists them itself.
type (
	SurgeryID     = int64
	SurgeryTypeID = int64
	SurgeonID     = int64
	RoomID        = int64
	StaffID       = int64
	EquipmentID   = int64
	PatientID     = int64
)

// Now returns the current instant truncated to UTC, matching the
// minute-granularity convention used throughout the scheduling core.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Minute)
}

// NowPtr returns a pointer to Now, for optional timestamp fields.
func NowPtr() *time.Time {
	now := Now()
	return &now
}

// Urgency classifies how time-sensitive a surgery is.
type Urgency string

const (
	UrgencyLow       Urgency = "LOW"
	UrgencyMedium    Urgency = "MEDIUM"
	UrgencyHigh      Urgency = "HIGH"
	UrgencyEmergency Urgency = "EMERGENCY"
)

// SurgeryStatus tracks a surgery's lifecycle outside the optimizer.
type SurgeryStatus string

const (
	SurgeryStatusScheduled  SurgeryStatus = "SCHEDULED"
	SurgeryStatusInProgress SurgeryStatus = "IN_PROGRESS"
	SurgeryStatusCompleted  SurgeryStatus = "COMPLETED"
	SurgeryStatusCancelled  SurgeryStatus = "CANCELLED"
)

// TimeOfDaySlot buckets a clock time into a coarse preference slot.
// Morning is [08:00,12:00), Afternoon is [12:00,17:00), Evening is
// [17:00,20:00); anything outside those ranges matches no slot.
type TimeOfDaySlot string

const (
	TimeOfDayMorning   TimeOfDaySlot = "MORNING"
	TimeOfDayAfternoon TimeOfDaySlot = "AFTERNOON"
	TimeOfDayEvening   TimeOfDaySlot = "EVENING"
)

// SlotForMinute returns the TimeOfDaySlot containing the given
// minute-of-day, and false if the minute falls outside all slots.
func SlotForMinute(minuteOfDay int) (TimeOfDaySlot, bool) {
	switch {
	case minuteOfDay >= 8*60 && minuteOfDay < 12*60:
		return TimeOfDayMorning, true
	case minuteOfDay >= 12*60 && minuteOfDay < 17*60:
		return TimeOfDayAfternoon, true
	case minuteOfDay >= 17*60 && minuteOfDay < 20*60:
		return TimeOfDayEvening, true
	default:
		return "", false
	}
}

// Surgery is a unit of work to be assigned a room and time interval.
type Surgery struct {
	ID                 SurgeryID
	TypeID             SurgeryTypeID
	Duration           time.Duration
	Urgency            Urgency
	RequiredSurgeonID  *SurgeonID
	RequiredEquipment  []EquipmentID
	Status             SurgeryStatus
	PatientID          PatientID
}

// SurgeryType describes a class of surgery and its classification
// keywords, used by specialization matching (see
// Advanced.specializationViolation in package feasibility).
type SurgeryType struct {
	ID              SurgeryTypeID
	Name            string
	AverageDuration time.Duration
	Keywords        []string
}

// AvailabilityWindow is a recurring [Start,End) clock-minute range on a
// given day of week, e.g. Monday 08:00-16:00.
type AvailabilityWindow struct {
	DayOfWeek   time.Weekday
	StartMinute int // minutes since midnight, inclusive
	EndMinute   int // minutes since midnight, exclusive
}

// Contains reports whether the given day/minute falls within the window.
func (w AvailabilityWindow) Contains(day time.Weekday, minuteOfDay int) bool {
	return w.DayOfWeek == day && minuteOfDay >= w.StartMinute && minuteOfDay < w.EndMinute
}

// SurgeonPreference records a surgeon's preferred room/day/time slot.
type SurgeonPreference struct {
	RoomID    RoomID
	DayOfWeek time.Weekday
	TimeOfDay TimeOfDaySlot
}

// Surgeon is a required or optional operator of a surgery.
type Surgeon struct {
	ID               SurgeonID
	Specialization   []string
	Availability     []AvailabilityWindow
	GeneralAvailable bool
	Preferences      []SurgeonPreference
}

// OperatingRoom is a physical room with an equipment set and daily span.
type OperatingRoom struct {
	ID               RoomID
	Equipment        []EquipmentID
	OperationalStart int           // minutes since midnight
	DailySpan        time.Duration // default 8h
}

// OperationalEnd returns the room's daily closing minute-of-day.
func (r OperatingRoom) OperationalEnd() int {
	return r.OperationalStart + int(r.DailySpan.Minutes())
}

// StaffMember is a non-surgeon resource (nurse, tech, anesthetist...).
type StaffMember struct {
	ID               StaffID
	Role             string
	Qualifications   []string
	GeneralAvailable bool
	MaxDailyHours    float64
}

// EquipmentUnit is a piece of shared equipment required by some surgeries.
type EquipmentUnit struct {
	ID               EquipmentID
	GeneralAvailable bool
}

// EquipmentUsage records a concrete reservation of an equipment unit,
// independent of any single assignment (e.g. maintenance windows).
// Per Design Note 9's open question, usage_start_time/usage_end_time
// are treated as required fields rather than optional.
type EquipmentUsage struct {
	EquipmentID EquipmentID
	Start       time.Time
	End         time.Time
}

// SurgeryTypePair identifies an ordered transition between two surgery
// types in the same room, for sequence-dependent setup time lookup.
type SurgeryTypePair struct {
	From SurgeryTypeID
	To   SurgeryTypeID
}

// SDSTTable maps an ordered type transition to its setup time. Not
// required to be symmetric; self-pairs are permitted.
type SDSTTable map[SurgeryTypePair]time.Duration

// DefaultSDST is used when a pair is absent and strict mode is off.
const DefaultSDST = 15 * time.Minute

// Lookup returns the setup time for a transition. When the pair is
// absent, it returns (DefaultSDST, false) unless strict is true, in
// which case it returns (0, false) to signal the transition is
// infeasible under strict policy.
func (t SDSTTable) Lookup(from, to SurgeryTypeID, strict bool) (time.Duration, bool) {
	if d, ok := t[SurgeryTypePair{From: from, To: to}]; ok {
		return d, true
	}
	if strict {
		return 0, false
	}
	return DefaultSDST, true
}

// Assignment places a surgery in a room for a concrete time interval.
type Assignment struct {
	SurgeryID SurgeryID
	RoomID    RoomID
	Start     time.Time
	End       time.Time
}

// Duration returns End-Start.
func (a Assignment) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// Overlaps reports whether two assignments' intervals intersect.
func (a Assignment) Overlaps(other Assignment) bool {
	return a.Start.Before(other.End) && other.Start.Before(a.End)
}

// Schedule is the set of assignments produced for one optimization run.
type Schedule []Assignment

// Clone returns a shallow copy safe to mutate independently.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	copy(out, s)
	return out
}

// ByRoom groups assignments by room id.
func (s Schedule) ByRoom() map[RoomID][]Assignment {
	out := make(map[RoomID][]Assignment)
	for _, a := range s {
		out[a.RoomID] = append(out[a.RoomID], a)
	}
	return out
}

// Find returns the assignment for a surgery id, if present.
func (s Schedule) Find(id SurgeryID) (Assignment, bool) {
	for _, a := range s {
		if a.SurgeryID == id {
			return a, true
		}
	}
	return Assignment{}, false
}

// Without returns a copy of the schedule with the given surgery ids removed.
func (s Schedule) Without(ids ...SurgeryID) Schedule {
	exclude := make(map[SurgeryID]struct{}, len(ids))
	for _, id := range ids {
		exclude[id] = struct{}{}
	}
	out := make(Schedule, 0, len(s))
	for _, a := range s {
		if _, skip := exclude[a.SurgeryID]; !skip {
			out = append(out, a)
		}
	}
	return out
}

// MoveKind tags the variant of a TabuMove.
type MoveKind string

const (
	MoveKindMoveRoom       MoveKind = "MoveRoom"
	MoveKindSwapRooms      MoveKind = "SwapRooms"
	MoveKindShiftTime      MoveKind = "ShiftTime"
	MoveKindReschedule     MoveKind = "Reschedule"
	MoveKindReorderInRoom  MoveKind = "ReorderInRoom"
	MoveKindBatchByType    MoveKind = "BatchByType"
	MoveKindSurgeonCompact MoveKind = "SurgeonCompact"
)

// TabuMove is a tagged union over the seven move strategies (spec
// table in component C4). Only the fields relevant to Kind are
// populated; Key hashes on structural identity, ignoring the rest.
type TabuMove struct {
	Kind         MoveKind
	SurgeryID    SurgeryID // primary operand: MoveRoom, ShiftTime, Reschedule, SurgeonCompact
	SurgeryID2   SurgeryID // secondary operand: SwapRooms, ReorderInRoom
	FromRoomID   RoomID
	ToRoomID     RoomID
	DeltaMinutes int // ShiftTime: ±{15,30,60}
	StartMinute  int // Reschedule: minute-of-day on a 30-min grid
	RoomID       RoomID
	SurgeonID    SurgeonID
	Order        []SurgeryID // BatchByType: permuted order within RoomID
}

// Key returns a deterministic structural identity string for tabu
// membership. Symmetric moves (swap, reorder) canonicalize operand
// order so a move and its mirror hash identically.
func (m TabuMove) Key() string {
	switch m.Kind {
	case MoveKindMoveRoom:
		return fmt.Sprintf("MoveRoom:%d:%d:%d", m.SurgeryID, m.FromRoomID, m.ToRoomID)
	case MoveKindSwapRooms:
		a, b := m.SurgeryID, m.SurgeryID2
		if a > b {
			a, b = b, a
		}
		return fmt.Sprintf("SwapRooms:%d:%d", a, b)
	case MoveKindShiftTime:
		return fmt.Sprintf("ShiftTime:%d:%d", m.SurgeryID, m.DeltaMinutes)
	case MoveKindReschedule:
		return fmt.Sprintf("Reschedule:%d:%d", m.SurgeryID, m.StartMinute)
	case MoveKindReorderInRoom:
		a, b := m.SurgeryID, m.SurgeryID2
		if a > b {
			a, b = b, a
		}
		return fmt.Sprintf("ReorderInRoom:%d:%d", a, b)
	case MoveKindBatchByType:
		return fmt.Sprintf("BatchByType:%d:%v", m.RoomID, m.Order)
	case MoveKindSurgeonCompact:
		return fmt.Sprintf("SurgeonCompact:%d:%d", m.SurgeonID, m.SurgeryID)
	default:
		return string(m.Kind)
	}
}

// Reverse returns the move that undoes m, where that is well defined.
// BatchByType has no single well-defined inverse beyond restoring the
// prior order, which callers must supply themselves; Reverse returns m
// unchanged in that case as a harmless placeholder since BatchByType
// moves are never round-tripped automatically by the driver.
func (m TabuMove) Reverse() TabuMove {
	switch m.Kind {
	case MoveKindMoveRoom:
		return TabuMove{Kind: MoveKindMoveRoom, SurgeryID: m.SurgeryID, FromRoomID: m.ToRoomID, ToRoomID: m.FromRoomID}
	case MoveKindSwapRooms:
		return m
	case MoveKindShiftTime:
		return TabuMove{Kind: MoveKindShiftTime, SurgeryID: m.SurgeryID, DeltaMinutes: -m.DeltaMinutes}
	case MoveKindReorderInRoom:
		return m
	default:
		return m
	}
}
