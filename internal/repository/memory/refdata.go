// Package memory provides an in-memory ReferenceDataRepository, for
// tests and for the trivial scenarios spec.md §8 describes.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/schedcu/surgopt/internal/entity"
	"github.com/schedcu/surgopt/internal/repository"
)

// dateKey normalizes a schedule date to its calendar-day string, so
// callers don't need to agree on time-of-day or location.
func dateKey(date time.Time) string {
	return date.UTC().Format("2006-01-02")
}

// datasetSeed is the raw collection set for one schedule date, held
// until Load indexes it into an entity.ReferenceData.
type datasetSeed struct {
	surgeries      []entity.Surgery
	surgeryTypes   []entity.SurgeryType
	surgeons       []entity.Surgeon
	rooms          []entity.OperatingRoom
	staff          []entity.StaffMember
	equipment      []entity.EquipmentUnit
	sdst           entity.SDSTTable
	equipmentUsage []entity.EquipmentUsage
}

// ReferenceDataRepository is an in-memory repository.ReferenceDataRepository
// seeded directly by test or fixture code rather than loaded from a
// backing store.
type ReferenceDataRepository struct {
	mu         sync.RWMutex
	byDate     map[string]datasetSeed
	queryCount int
}

// NewReferenceDataRepository constructs an empty in-memory repository.
func NewReferenceDataRepository() *ReferenceDataRepository {
	return &ReferenceDataRepository{byDate: make(map[string]datasetSeed)}
}

// Seed registers the collections to return for a schedule date. Rooms,
// staff, equipment, surgeon, and surgery-type collections are typically
// shared across dates; callers re-seed the same values per date.
func (r *ReferenceDataRepository) Seed(
	date time.Time,
	surgeries []entity.Surgery,
	surgeryTypes []entity.SurgeryType,
	surgeons []entity.Surgeon,
	rooms []entity.OperatingRoom,
	staff []entity.StaffMember,
	equipment []entity.EquipmentUnit,
	sdst entity.SDSTTable,
	equipmentUsage []entity.EquipmentUsage,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byDate[dateKey(date)] = datasetSeed{
		surgeries: surgeries, surgeryTypes: surgeryTypes, surgeons: surgeons,
		rooms: rooms, staff: staff, equipment: equipment, sdst: sdst,
		equipmentUsage: equipmentUsage,
	}
}

// Load returns the seeded reference data for date.
func (r *ReferenceDataRepository) Load(_ context.Context, date time.Time) (*entity.ReferenceData, error) {
	r.mu.Lock()
	seed, ok := r.byDate[dateKey(date)]
	if ok {
		r.queryCount++
	}
	r.mu.Unlock()

	if !ok {
		return nil, &repository.NotFoundError{ResourceType: "ReferenceData", ResourceID: dateKey(date)}
	}

	return entity.NewReferenceData(
		date, seed.surgeries, seed.surgeryTypes, seed.surgeons,
		seed.rooms, seed.staff, seed.equipment, seed.sdst, seed.equipmentUsage,
	), nil
}

// QueryCount returns the number of Load calls served, for test assertions.
func (r *ReferenceDataRepository) QueryCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.queryCount
}

// Reset clears all seeded data and the query counter.
func (r *ReferenceDataRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byDate = make(map[string]datasetSeed)
	r.queryCount = 0
}
