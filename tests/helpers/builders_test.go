package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/schedcu/surgopt/internal/entity"
)

func TestSurgeryBuilderAppliesOverrides(t *testing.T) {
	s := NewSurgeryBuilder().
		WithID(7).
		WithDuration(90 * time.Minute).
		WithRequiredSurgeon(3).
		WithRequiredEquipment(101, 102).
		Build()

	assert.Equal(t, int64(7), s.ID)
	assert.Equal(t, 90*time.Minute, s.Duration)
	assert.NotNil(t, s.RequiredSurgeonID)
	assert.Equal(t, int64(3), *s.RequiredSurgeonID)
	assert.Equal(t, []int64{101, 102}, s.RequiredEquipment)
}

func TestOperatingRoomBuilderDefaultsToEightHourSpan(t *testing.T) {
	r := NewOperatingRoomBuilder().Build()
	assert.Equal(t, 8*time.Hour, r.DailySpan)
	assert.Equal(t, 16*60, r.OperationalEnd())
}

func TestSurgeonBuilderWithAvailabilityClearsGeneralAvailable(t *testing.T) {
	s := NewSurgeonBuilder().WithAvailability(entity.AvailabilityWindow{
		DayOfWeek:   time.Monday,
		StartMinute: 8 * 60,
		EndMinute:   16 * 60,
	}).Build()
	assert.False(t, s.GeneralAvailable)
}

func TestReferenceDataBuilderAssemblesIndexedData(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	surgery := NewSurgeryBuilder().WithID(1).Build()

	ref := NewReferenceDataBuilder(date).WithSurgeries(surgery).Build()

	got, ok := ref.Surgery(1)
	assert.True(t, ok)
	assert.Equal(t, surgery, got)
}
