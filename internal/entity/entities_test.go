package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSurgeryTypePairLookupDefault(t *testing.T) {
	table := SDSTTable{}

	d, ok := table.Lookup(1, 2, false)
	assert.True(t, ok)
	assert.Equal(t, DefaultSDST, d)
}

func TestSurgeryTypePairLookupStrictMissing(t *testing.T) {
	table := SDSTTable{}

	_, ok := table.Lookup(1, 2, true)
	assert.False(t, ok)
}

func TestSurgeryTypePairLookupPresent(t *testing.T) {
	table := SDSTTable{
		{From: 1, To: 2}: 10 * time.Minute,
	}

	d, ok := table.Lookup(1, 2, true)
	assert.True(t, ok)
	assert.Equal(t, 10*time.Minute, d)
}

func TestAssignmentOverlaps(t *testing.T) {
	base := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	a := Assignment{SurgeryID: 1, RoomID: 1, Start: base, End: base.Add(time.Hour)}
	b := Assignment{SurgeryID: 2, RoomID: 1, Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)}
	c := Assignment{SurgeryID: 3, RoomID: 1, Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}

	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(c), "back-to-back assignments must not count as overlapping")
}

func TestScheduleByRoom(t *testing.T) {
	base := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	sched := Schedule{
		{SurgeryID: 1, RoomID: 1, Start: base, End: base.Add(time.Hour)},
		{SurgeryID: 2, RoomID: 2, Start: base, End: base.Add(time.Hour)},
		{SurgeryID: 3, RoomID: 1, Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)},
	}

	byRoom := sched.ByRoom()
	assert.Len(t, byRoom[1], 2)
	assert.Len(t, byRoom[2], 1)
}

func TestScheduleWithout(t *testing.T) {
	sched := Schedule{
		{SurgeryID: 1, RoomID: 1},
		{SurgeryID: 2, RoomID: 1},
		{SurgeryID: 3, RoomID: 2},
	}

	out := sched.Without(2)
	assert.Len(t, out, 2)
	_, found := out.Find(2)
	assert.False(t, found)
}

func TestTabuMoveKeyCanonicalizesSwap(t *testing.T) {
	m1 := TabuMove{Kind: MoveKindSwapRooms, SurgeryID: 5, SurgeryID2: 9}
	m2 := TabuMove{Kind: MoveKindSwapRooms, SurgeryID: 9, SurgeryID2: 5}

	assert.Equal(t, m1.Key(), m2.Key())
}

func TestTabuMoveKeyDistinguishesKinds(t *testing.T) {
	moveRoom := TabuMove{Kind: MoveKindMoveRoom, SurgeryID: 1, FromRoomID: 1, ToRoomID: 2}
	shiftTime := TabuMove{Kind: MoveKindShiftTime, SurgeryID: 1, DeltaMinutes: 15}

	assert.NotEqual(t, moveRoom.Key(), shiftTime.Key())
}

func TestTabuMoveReverseMoveRoom(t *testing.T) {
	m := TabuMove{Kind: MoveKindMoveRoom, SurgeryID: 1, FromRoomID: 1, ToRoomID: 2}
	r := m.Reverse()

	assert.Equal(t, RoomID(2), r.FromRoomID)
	assert.Equal(t, RoomID(1), r.ToRoomID)
}

func TestTabuMoveReverseShiftTime(t *testing.T) {
	m := TabuMove{Kind: MoveKindShiftTime, SurgeryID: 1, DeltaMinutes: 30}
	r := m.Reverse()

	assert.Equal(t, -30, r.DeltaMinutes)
}

func TestSlotForMinute(t *testing.T) {
	slot, ok := SlotForMinute(9 * 60)
	assert.True(t, ok)
	assert.Equal(t, TimeOfDayMorning, slot)

	slot, ok = SlotForMinute(14 * 60)
	assert.True(t, ok)
	assert.Equal(t, TimeOfDayAfternoon, slot)

	slot, ok = SlotForMinute(18 * 60)
	assert.True(t, ok)
	assert.Equal(t, TimeOfDayEvening, slot)

	_, ok = SlotForMinute(2 * 60)
	assert.False(t, ok)
}

func TestAvailabilityWindowContains(t *testing.T) {
	w := AvailabilityWindow{DayOfWeek: time.Monday, StartMinute: 8 * 60, EndMinute: 16 * 60}

	assert.True(t, w.Contains(time.Monday, 9*60))
	assert.False(t, w.Contains(time.Monday, 17*60))
	assert.False(t, w.Contains(time.Tuesday, 9*60))
}

func TestValidateUrgency(t *testing.T) {
	assert.True(t, ValidateUrgency("LOW"))
	assert.True(t, ValidateUrgency("EMERGENCY"))
	assert.False(t, ValidateUrgency("CRITICAL"))
}
