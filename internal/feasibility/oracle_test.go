package feasibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/surgopt/internal/entity"
)

func day(hour, minute int) time.Time {
	return time.Date(2025, 1, 15, hour, minute, 0, 0, time.UTC) // Wednesday
}

func buildRef() *entity.ReferenceData {
	surgeries := []entity.Surgery{
		{ID: 1, TypeID: 1, Duration: time.Hour, RequiredEquipment: []entity.EquipmentID{10}},
		{ID: 2, TypeID: 2, Duration: time.Hour},
	}
	types := []entity.SurgeryType{
		{ID: 1, Name: "Hip Replacement"},
		{ID: 2, Name: "Appendectomy"},
	}
	surgeons := []entity.Surgeon{{ID: 1, GeneralAvailable: true}}
	rooms := []entity.OperatingRoom{{ID: 1, OperationalStart: 8 * 60, DailySpan: 8 * time.Hour, Equipment: []entity.EquipmentID{10}}}
	equipment := []entity.EquipmentUnit{{ID: 10, GeneralAvailable: true}}

	return entity.NewReferenceData(day(0, 0), surgeries, types, surgeons, rooms, nil, equipment, nil, nil)
}

func newTestOracle() *Oracle {
	return New(buildRef(), Config{}, nil)
}

func TestRoomAvailableRejectsOverlap(t *testing.T) {
	o := newTestOracle()
	others := entity.Schedule{{SurgeryID: 2, RoomID: 1, Start: day(9, 0), End: day(10, 0)}}

	assert.False(t, o.RoomAvailable(1, day(9, 30), day(10, 30), others, nil))
}

func TestRoomAvailableAllowsBackToBack(t *testing.T) {
	o := newTestOracle()
	others := entity.Schedule{{SurgeryID: 2, RoomID: 1, Start: day(9, 0), End: day(10, 0)}}

	assert.True(t, o.RoomAvailable(1, day(10, 0), day(11, 0), others, nil))
}

func TestRoomAvailableRejectsOutsideOperationalWindow(t *testing.T) {
	o := newTestOracle()

	assert.False(t, o.RoomAvailable(1, day(7, 0), day(8, 0), nil, nil))
	assert.False(t, o.RoomAvailable(1, day(16, 30), day(17, 30), nil, nil))
}

func TestRoomAvailableIgnoresSelf(t *testing.T) {
	o := newTestOracle()
	ignore := entity.SurgeryID(2)
	others := entity.Schedule{{SurgeryID: 2, RoomID: 1, Start: day(9, 0), End: day(10, 0)}}

	assert.True(t, o.RoomAvailable(1, day(9, 30), day(10, 30), others, &ignore))
}

func TestSurgeonAvailableRespectsGeneralFlag(t *testing.T) {
	ref := buildRef()
	o := New(ref, Config{}, nil)

	assert.True(t, o.SurgeonAvailable(1, day(9, 0), day(10, 0), nil, nil))
	assert.False(t, o.SurgeonAvailable(999, day(9, 0), day(10, 0), nil, nil))
}

func TestSurgeonAvailableRejectsConflict(t *testing.T) {
	s1 := entity.SurgeonID(1)
	surgeries := []entity.Surgery{{ID: 1, TypeID: 1, Duration: time.Hour, RequiredSurgeonID: &s1}}
	surgeons := []entity.Surgeon{{ID: 1, GeneralAvailable: true}}
	o := New(entity.NewReferenceData(day(0, 0), surgeries, nil, surgeons, nil, nil, nil, nil, nil), Config{}, nil)
	others := entity.Schedule{{SurgeryID: 1, RoomID: 1, Start: day(9, 0), End: day(10, 0)}}

	assert.False(t, o.SurgeonAvailable(1, day(9, 30), day(10, 30), others, nil))
}

func TestEquipmentAvailableRejectsUsage(t *testing.T) {
	surgeries := []entity.Surgery{{ID: 1, TypeID: 1, Duration: time.Hour, RequiredEquipment: []entity.EquipmentID{10}}}
	rooms := []entity.OperatingRoom{{ID: 1, OperationalStart: 8 * 60, DailySpan: 8 * time.Hour, Equipment: []entity.EquipmentID{10}}}
	equipment := []entity.EquipmentUnit{{ID: 10, GeneralAvailable: true}}
	usage := []entity.EquipmentUsage{{EquipmentID: 10, Start: day(9, 0), End: day(10, 0)}}
	ref := entity.NewReferenceData(day(0, 0), surgeries, nil, nil, rooms, nil, equipment, nil, usage)
	o := New(ref, Config{}, nil)

	assert.False(t, o.EquipmentAvailable(10, day(9, 30), day(10, 30), nil, nil))
	assert.True(t, o.EquipmentAvailable(10, day(10, 0), day(11, 0), nil, nil))
}

func TestRoomSuitableRequiresEquipmentSuperset(t *testing.T) {
	o := newTestOracle()

	assert.True(t, o.RoomSuitable(1, 1))

	noEquipRoom := entity.OperatingRoom{ID: 2, OperationalStart: 8 * 60, DailySpan: 8 * time.Hour}
	ref := buildRef()
	ref2 := entity.NewReferenceData(ref.ScheduleDate, ref.Surgeries(), nil, nil, append(ref.Rooms(), noEquipRoom), nil, nil, ref.SDST(), nil)
	o2 := New(ref2, Config{}, nil)
	assert.False(t, o2.RoomSuitable(2, 1))
}

func TestFeasibleRejectsDurationMismatch(t *testing.T) {
	o := newTestOracle()

	assert.False(t, o.Feasible(1, 1, day(9, 0), day(9, 30), nil, nil))
}

func TestFeasibleAcceptsCleanPlacement(t *testing.T) {
	o := newTestOracle()

	assert.True(t, o.Feasible(1, 1, day(9, 0), day(10, 0), nil, nil))
}

func TestSdstSatisfiedEnforcesGap(t *testing.T) {
	surgeries := []entity.Surgery{
		{ID: 1, TypeID: 1, Duration: time.Hour},
		{ID: 2, TypeID: 2, Duration: time.Hour},
	}
	rooms := []entity.OperatingRoom{{ID: 1, OperationalStart: 8 * 60, DailySpan: 8 * time.Hour}}
	sdst := entity.SDSTTable{{From: 1, To: 2}: 20 * time.Minute}
	ref := entity.NewReferenceData(day(0, 0), surgeries, nil, nil, rooms, nil, nil, sdst, nil)
	o := New(ref, Config{}, nil)

	others := entity.Schedule{{SurgeryID: 1, RoomID: 1, Start: day(9, 0), End: day(10, 0)}}

	// gap of 10 minutes is less than the required 20
	assert.False(t, o.Feasible(2, 1, day(10, 10), day(11, 10), others, nil))
	// gap of 20 minutes exactly satisfies it
	assert.True(t, o.Feasible(2, 1, day(10, 20), day(11, 20), others, nil))
}

func TestScheduleFeasibleDetectsRoomConflict(t *testing.T) {
	o := newTestOracle()
	sched := entity.Schedule{
		{SurgeryID: 1, RoomID: 1, Start: day(9, 0), End: day(10, 0)},
		{SurgeryID: 2, RoomID: 1, Start: day(9, 30), End: day(10, 30)},
	}

	assert.False(t, o.ScheduleFeasible(sched))
}

func TestScheduleFeasibleAcceptsEmpty(t *testing.T) {
	o := newTestOracle()
	require.True(t, o.ScheduleFeasible(nil))
}
