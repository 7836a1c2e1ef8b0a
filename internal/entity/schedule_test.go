package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildReferenceData() *ReferenceData {
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	surgeries := []Surgery{
		{ID: 1, TypeID: 1, Duration: time.Hour, Urgency: UrgencyHigh},
		{ID: 2, TypeID: 2, Duration: 90 * time.Minute, Urgency: UrgencyMedium},
	}
	types := []SurgeryType{
		{ID: 1, Name: "Orthopedic", Keywords: []string{"hip", "knee"}},
		{ID: 2, Name: "Cardiac", Keywords: []string{"heart"}},
	}
	surgeons := []Surgeon{{ID: 1, GeneralAvailable: true}}
	rooms := []OperatingRoom{{ID: 1, OperationalStart: 8 * 60, DailySpan: 8 * time.Hour}}
	sdst := SDSTTable{{From: 1, To: 2}: 10 * time.Minute}

	return NewReferenceData(date, surgeries, types, surgeons, rooms, nil, nil, sdst, nil)
}

func TestNewReferenceDataIndexesById(t *testing.T) {
	rd := buildReferenceData()

	s, ok := rd.Surgery(1)
	require.True(t, ok)
	assert.Equal(t, UrgencyHigh, s.Urgency)

	_, ok = rd.Surgery(999)
	assert.False(t, ok)
}

func TestReferenceDataSurgeriesSortedByID(t *testing.T) {
	rd := buildReferenceData()

	surgeries := rd.Surgeries()
	require.Len(t, surgeries, 2)
	assert.Equal(t, SurgeryID(1), surgeries[0].ID)
	assert.Equal(t, SurgeryID(2), surgeries[1].ID)
}

func TestReferenceDataCloneSharesMaps(t *testing.T) {
	rd := buildReferenceData()
	clone := rd.Clone()

	s, ok := clone.Surgery(1)
	require.True(t, ok)
	assert.Equal(t, UrgencyHigh, s.Urgency)
}

func TestReferenceDataSDSTDefaultsWhenTableEmpty(t *testing.T) {
	rd := NewReferenceData(time.Now(), nil, nil, nil, nil, nil, nil, nil, nil)

	d, ok := rd.SDST().Lookup(1, 2, false)
	assert.True(t, ok)
	assert.Equal(t, DefaultSDST, d)
}
