package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/schedcu/surgopt/internal/entity"
)

// ReferenceDataRepository implements repository.ReferenceDataRepository
// against PostgreSQL. Nested/variable-shape fields (surgeon
// availability windows and preferences) are stored as jsonb; simple
// homogeneous arrays (required equipment, room equipment,
// specializations) use pq.Array, matching the teacher's person.go
// convention for scalar-array columns.
type ReferenceDataRepository struct {
	db *sql.DB
}

// NewReferenceDataRepository creates a new ReferenceDataRepository.
func NewReferenceDataRepository(db *sql.DB) *ReferenceDataRepository {
	return &ReferenceDataRepository{db: db}
}

// Load reads every collection the optimizer needs for date and
// assembles them into an entity.ReferenceData.
func (r *ReferenceDataRepository) Load(ctx context.Context, date time.Time) (*entity.ReferenceData, error) {
	surgeries, err := r.loadSurgeries(ctx, date)
	if err != nil {
		return nil, err
	}
	surgeryTypes, err := r.loadSurgeryTypes(ctx)
	if err != nil {
		return nil, err
	}
	surgeons, err := r.loadSurgeons(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := r.loadRooms(ctx)
	if err != nil {
		return nil, err
	}
	staff, err := r.loadStaff(ctx)
	if err != nil {
		return nil, err
	}
	equipment, err := r.loadEquipment(ctx)
	if err != nil {
		return nil, err
	}
	sdst, err := r.loadSDST(ctx)
	if err != nil {
		return nil, err
	}
	equipmentUsage, err := r.loadEquipmentUsage(ctx, date)
	if err != nil {
		return nil, err
	}

	return entity.NewReferenceData(date, surgeries, surgeryTypes, surgeons, rooms, staff, equipment, sdst, equipmentUsage), nil
}

func (r *ReferenceDataRepository) loadSurgeries(ctx context.Context, date time.Time) ([]entity.Surgery, error) {
	query := `
		SELECT id, type_id, duration_minutes, urgency, required_surgeon_id, required_equipment, status, patient_id
		FROM surgeries
		WHERE schedule_date = $1
	`
	rows, err := r.db.QueryContext(ctx, query, date.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query surgeries: %w", err)
	}
	defer rows.Close()

	var out []entity.Surgery
	for rows.Next() {
		var s entity.Surgery
		var durationMinutes int64
		var requiredSurgeonID sql.NullInt64
		var requiredEquipment pq.Int64Array

		if err := rows.Scan(&s.ID, &s.TypeID, &durationMinutes, &s.Urgency, &requiredSurgeonID, &requiredEquipment, &s.Status, &s.PatientID); err != nil {
			return nil, fmt.Errorf("failed to scan surgery: %w", err)
		}
		s.Duration = time.Duration(durationMinutes) * time.Minute
		if requiredSurgeonID.Valid {
			id := requiredSurgeonID.Int64
			s.RequiredSurgeonID = &id
		}
		s.RequiredEquipment = append(s.RequiredEquipment, []entity.EquipmentID(requiredEquipment)...)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ReferenceDataRepository) loadSurgeryTypes(ctx context.Context) ([]entity.SurgeryType, error) {
	query := `SELECT id, name, average_duration_minutes, keywords FROM surgery_types`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query surgery types: %w", err)
	}
	defer rows.Close()

	var out []entity.SurgeryType
	for rows.Next() {
		var t entity.SurgeryType
		var averageMinutes int64
		var keywords pq.StringArray
		if err := rows.Scan(&t.ID, &t.Name, &averageMinutes, &keywords); err != nil {
			return nil, fmt.Errorf("failed to scan surgery type: %w", err)
		}
		t.AverageDuration = time.Duration(averageMinutes) * time.Minute
		t.Keywords = append(t.Keywords, []string(keywords)...)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *ReferenceDataRepository) loadSurgeons(ctx context.Context) ([]entity.Surgeon, error) {
	query := `SELECT id, specialization, general_available, availability, preferences FROM surgeons`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query surgeons: %w", err)
	}
	defer rows.Close()

	var out []entity.Surgeon
	for rows.Next() {
		var s entity.Surgeon
		var specialization pq.StringArray
		var availabilityJSON, preferencesJSON []byte

		if err := rows.Scan(&s.ID, &specialization, &s.GeneralAvailable, &availabilityJSON, &preferencesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan surgeon: %w", err)
		}
		s.Specialization = append(s.Specialization, []string(specialization)...)

		if len(availabilityJSON) > 0 {
			if err := json.Unmarshal(availabilityJSON, &s.Availability); err != nil {
				return nil, fmt.Errorf("failed to decode surgeon %d availability: %w", s.ID, err)
			}
		}
		if len(preferencesJSON) > 0 {
			if err := json.Unmarshal(preferencesJSON, &s.Preferences); err != nil {
				return nil, fmt.Errorf("failed to decode surgeon %d preferences: %w", s.ID, err)
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ReferenceDataRepository) loadRooms(ctx context.Context) ([]entity.OperatingRoom, error) {
	query := `SELECT id, equipment, operational_start_minute, daily_span_minutes FROM operating_rooms`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query operating rooms: %w", err)
	}
	defer rows.Close()

	var out []entity.OperatingRoom
	for rows.Next() {
		var room entity.OperatingRoom
		var equipment pq.Int64Array
		var dailySpanMinutes int64

		if err := rows.Scan(&room.ID, &equipment, &room.OperationalStart, &dailySpanMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan operating room: %w", err)
		}
		room.Equipment = append(room.Equipment, []entity.EquipmentID(equipment)...)
		room.DailySpan = time.Duration(dailySpanMinutes) * time.Minute
		out = append(out, room)
	}
	return out, rows.Err()
}

func (r *ReferenceDataRepository) loadStaff(ctx context.Context) ([]entity.StaffMember, error) {
	query := `SELECT id, role, qualifications, general_available, max_daily_hours FROM staff_members`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff members: %w", err)
	}
	defer rows.Close()

	var out []entity.StaffMember
	for rows.Next() {
		var m entity.StaffMember
		var qualifications pq.StringArray
		if err := rows.Scan(&m.ID, &m.Role, &qualifications, &m.GeneralAvailable, &m.MaxDailyHours); err != nil {
			return nil, fmt.Errorf("failed to scan staff member: %w", err)
		}
		m.Qualifications = append(m.Qualifications, []string(qualifications)...)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ReferenceDataRepository) loadEquipment(ctx context.Context) ([]entity.EquipmentUnit, error) {
	query := `SELECT id, general_available FROM equipment_units`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query equipment units: %w", err)
	}
	defer rows.Close()

	var out []entity.EquipmentUnit
	for rows.Next() {
		var e entity.EquipmentUnit
		if err := rows.Scan(&e.ID, &e.GeneralAvailable); err != nil {
			return nil, fmt.Errorf("failed to scan equipment unit: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ReferenceDataRepository) loadSDST(ctx context.Context) (entity.SDSTTable, error) {
	query := `SELECT from_type_id, to_type_id, setup_minutes FROM sdst_pairs`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sdst pairs: %w", err)
	}
	defer rows.Close()

	table := entity.SDSTTable{}
	for rows.Next() {
		var pair entity.SurgeryTypePair
		var setupMinutes int64
		if err := rows.Scan(&pair.From, &pair.To, &setupMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan sdst pair: %w", err)
		}
		table[pair] = time.Duration(setupMinutes) * time.Minute
	}
	return table, rows.Err()
}

func (r *ReferenceDataRepository) loadEquipmentUsage(ctx context.Context, date time.Time) ([]entity.EquipmentUsage, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `
		SELECT equipment_id, start_time, end_time
		FROM equipment_usage
		WHERE start_time < $2 AND end_time > $1
	`
	rows, err := r.db.QueryContext(ctx, query, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query equipment usage: %w", err)
	}
	defer rows.Close()

	var out []entity.EquipmentUsage
	for rows.Next() {
		var u entity.EquipmentUsage
		if err := rows.Scan(&u.EquipmentID, &u.Start, &u.End); err != nil {
			return nil, fmt.Errorf("failed to scan equipment usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
