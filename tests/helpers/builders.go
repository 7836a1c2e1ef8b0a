// Package helpers provides fluent builders for entity fixtures, used
// across the optimizer, feasibility, evaluator, and repository test
// suites.
package helpers

import (
	"time"

	"github.com/schedcu/surgopt/internal/entity"
)

// SurgeryBuilder builds entity.Surgery fixtures with a fluent interface.
type SurgeryBuilder struct {
	s entity.Surgery
}

// NewSurgeryBuilder creates a SurgeryBuilder with sensible defaults.
func NewSurgeryBuilder() *SurgeryBuilder {
	return &SurgeryBuilder{s: entity.Surgery{
		ID:        1,
		TypeID:    1,
		Duration:  time.Hour,
		Urgency:   entity.UrgencyMedium,
		Status:    entity.SurgeryStatusScheduled,
		PatientID: 1,
	}}
}

func (b *SurgeryBuilder) WithID(id entity.SurgeryID) *SurgeryBuilder {
	b.s.ID = id
	return b
}

func (b *SurgeryBuilder) WithTypeID(id entity.SurgeryTypeID) *SurgeryBuilder {
	b.s.TypeID = id
	return b
}

func (b *SurgeryBuilder) WithDuration(d time.Duration) *SurgeryBuilder {
	b.s.Duration = d
	return b
}

func (b *SurgeryBuilder) WithUrgency(u entity.Urgency) *SurgeryBuilder {
	b.s.Urgency = u
	return b
}

func (b *SurgeryBuilder) WithRequiredSurgeon(id entity.SurgeonID) *SurgeryBuilder {
	b.s.RequiredSurgeonID = &id
	return b
}

func (b *SurgeryBuilder) WithRequiredEquipment(ids ...entity.EquipmentID) *SurgeryBuilder {
	b.s.RequiredEquipment = ids
	return b
}

func (b *SurgeryBuilder) WithStatus(status entity.SurgeryStatus) *SurgeryBuilder {
	b.s.Status = status
	return b
}

func (b *SurgeryBuilder) WithPatientID(id entity.PatientID) *SurgeryBuilder {
	b.s.PatientID = id
	return b
}

func (b *SurgeryBuilder) Build() entity.Surgery {
	return b.s
}

// OperatingRoomBuilder builds entity.OperatingRoom fixtures.
type OperatingRoomBuilder struct {
	r entity.OperatingRoom
}

// NewOperatingRoomBuilder creates an OperatingRoomBuilder with an
// 08:00-16:00 default span.
func NewOperatingRoomBuilder() *OperatingRoomBuilder {
	return &OperatingRoomBuilder{r: entity.OperatingRoom{
		ID:               1,
		OperationalStart: 8 * 60,
		DailySpan:        8 * time.Hour,
	}}
}

func (b *OperatingRoomBuilder) WithID(id entity.RoomID) *OperatingRoomBuilder {
	b.r.ID = id
	return b
}

func (b *OperatingRoomBuilder) WithEquipment(ids ...entity.EquipmentID) *OperatingRoomBuilder {
	b.r.Equipment = ids
	return b
}

func (b *OperatingRoomBuilder) WithOperationalStart(minute int) *OperatingRoomBuilder {
	b.r.OperationalStart = minute
	return b
}

func (b *OperatingRoomBuilder) WithDailySpan(d time.Duration) *OperatingRoomBuilder {
	b.r.DailySpan = d
	return b
}

func (b *OperatingRoomBuilder) Build() entity.OperatingRoom {
	return b.r
}

// SurgeonBuilder builds entity.Surgeon fixtures.
type SurgeonBuilder struct {
	s entity.Surgeon
}

// NewSurgeonBuilder creates a SurgeonBuilder generally available with
// no specialization restrictions.
func NewSurgeonBuilder() *SurgeonBuilder {
	return &SurgeonBuilder{s: entity.Surgeon{
		ID:               1,
		GeneralAvailable: true,
	}}
}

func (b *SurgeonBuilder) WithID(id entity.SurgeonID) *SurgeonBuilder {
	b.s.ID = id
	return b
}

func (b *SurgeonBuilder) WithSpecialization(keywords ...string) *SurgeonBuilder {
	b.s.Specialization = keywords
	return b
}

func (b *SurgeonBuilder) WithAvailability(windows ...entity.AvailabilityWindow) *SurgeonBuilder {
	b.s.Availability = windows
	b.s.GeneralAvailable = false
	return b
}

func (b *SurgeonBuilder) WithGeneralAvailable(available bool) *SurgeonBuilder {
	b.s.GeneralAvailable = available
	return b
}

func (b *SurgeonBuilder) WithPreferences(prefs ...entity.SurgeonPreference) *SurgeonBuilder {
	b.s.Preferences = prefs
	return b
}

func (b *SurgeonBuilder) Build() entity.Surgeon {
	return b.s
}

// StaffMemberBuilder builds entity.StaffMember fixtures.
type StaffMemberBuilder struct {
	m entity.StaffMember
}

// NewStaffMemberBuilder creates a StaffMemberBuilder for a generally
// available nurse with an 8-hour daily cap.
func NewStaffMemberBuilder() *StaffMemberBuilder {
	return &StaffMemberBuilder{m: entity.StaffMember{
		ID:               1,
		Role:             "nurse",
		GeneralAvailable: true,
		MaxDailyHours:    8,
	}}
}

func (b *StaffMemberBuilder) WithID(id entity.StaffID) *StaffMemberBuilder {
	b.m.ID = id
	return b
}

func (b *StaffMemberBuilder) WithRole(role string) *StaffMemberBuilder {
	b.m.Role = role
	return b
}

func (b *StaffMemberBuilder) WithQualifications(quals ...string) *StaffMemberBuilder {
	b.m.Qualifications = quals
	return b
}

func (b *StaffMemberBuilder) WithGeneralAvailable(available bool) *StaffMemberBuilder {
	b.m.GeneralAvailable = available
	return b
}

func (b *StaffMemberBuilder) WithMaxDailyHours(hours float64) *StaffMemberBuilder {
	b.m.MaxDailyHours = hours
	return b
}

func (b *StaffMemberBuilder) Build() entity.StaffMember {
	return b.m
}

// EquipmentUnitBuilder builds entity.EquipmentUnit fixtures.
type EquipmentUnitBuilder struct {
	e entity.EquipmentUnit
}

// NewEquipmentUnitBuilder creates a generally-available EquipmentUnit.
func NewEquipmentUnitBuilder() *EquipmentUnitBuilder {
	return &EquipmentUnitBuilder{e: entity.EquipmentUnit{ID: 1, GeneralAvailable: true}}
}

func (b *EquipmentUnitBuilder) WithID(id entity.EquipmentID) *EquipmentUnitBuilder {
	b.e.ID = id
	return b
}

func (b *EquipmentUnitBuilder) WithGeneralAvailable(available bool) *EquipmentUnitBuilder {
	b.e.GeneralAvailable = available
	return b
}

func (b *EquipmentUnitBuilder) Build() entity.EquipmentUnit {
	return b.e
}

// ReferenceDataBuilder assembles a full entity.ReferenceData from
// builder outputs, defaulting every collection to empty.
type ReferenceDataBuilder struct {
	date       time.Time
	surgeries  []entity.Surgery
	types      []entity.SurgeryType
	surgeons   []entity.Surgeon
	rooms      []entity.OperatingRoom
	staff      []entity.StaffMember
	equipment  []entity.EquipmentUnit
	sdst       entity.SDSTTable
	usage      []entity.EquipmentUsage
}

// NewReferenceDataBuilder creates a ReferenceDataBuilder for date.
func NewReferenceDataBuilder(date time.Time) *ReferenceDataBuilder {
	return &ReferenceDataBuilder{date: date}
}

func (b *ReferenceDataBuilder) WithSurgeries(s ...entity.Surgery) *ReferenceDataBuilder {
	b.surgeries = s
	return b
}

func (b *ReferenceDataBuilder) WithSurgeryTypes(t ...entity.SurgeryType) *ReferenceDataBuilder {
	b.types = t
	return b
}

func (b *ReferenceDataBuilder) WithSurgeons(s ...entity.Surgeon) *ReferenceDataBuilder {
	b.surgeons = s
	return b
}

func (b *ReferenceDataBuilder) WithRooms(r ...entity.OperatingRoom) *ReferenceDataBuilder {
	b.rooms = r
	return b
}

func (b *ReferenceDataBuilder) WithStaff(s ...entity.StaffMember) *ReferenceDataBuilder {
	b.staff = s
	return b
}

func (b *ReferenceDataBuilder) WithEquipment(e ...entity.EquipmentUnit) *ReferenceDataBuilder {
	b.equipment = e
	return b
}

func (b *ReferenceDataBuilder) WithSDST(table entity.SDSTTable) *ReferenceDataBuilder {
	b.sdst = table
	return b
}

func (b *ReferenceDataBuilder) WithEquipmentUsage(u ...entity.EquipmentUsage) *ReferenceDataBuilder {
	b.usage = u
	return b
}

func (b *ReferenceDataBuilder) Build() *entity.ReferenceData {
	return entity.NewReferenceData(b.date, b.surgeries, b.types, b.surgeons, b.rooms, b.staff, b.equipment, b.sdst, b.usage)
}
