package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// refdataTestHelper starts a disposable Postgres container and applies
// the reference-data schema, mirroring the teacher's
// PostgresTestHelper bootstrap for its own repository tests.
type refdataTestHelper struct {
	db        *sql.DB
	container testcontainers.Container
	ctx       context.Context
}

func newRefdataTestHelper(ctx context.Context, t *testing.T) *refdataTestHelper {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "surgopt_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/surgopt_test?sslmode=disable", host, port.Port())
	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, createRefdataTestSchema(ctx, db))

	return &refdataTestHelper{db: db, container: container, ctx: ctx}
}

func (h *refdataTestHelper) Close(t *testing.T) {
	if err := h.db.Close(); err != nil {
		t.Logf("warning: failed to close database: %v", err)
	}
	if err := h.container.Terminate(h.ctx); err != nil {
		t.Logf("warning: failed to terminate container: %v", err)
	}
}

func createRefdataTestSchema(ctx context.Context, db *sql.DB) error {
	schema := `
		CREATE TABLE surgery_types (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			average_duration_minutes BIGINT NOT NULL,
			keywords TEXT[] NOT NULL DEFAULT '{}'
		);
		CREATE TABLE surgeries (
			id BIGINT PRIMARY KEY,
			type_id BIGINT NOT NULL,
			duration_minutes BIGINT NOT NULL,
			urgency TEXT NOT NULL,
			required_surgeon_id BIGINT,
			required_equipment BIGINT[] NOT NULL DEFAULT '{}',
			status TEXT NOT NULL,
			patient_id BIGINT NOT NULL,
			schedule_date DATE NOT NULL
		);
		CREATE TABLE surgeons (
			id BIGINT PRIMARY KEY,
			specialization TEXT[] NOT NULL DEFAULT '{}',
			general_available BOOLEAN NOT NULL DEFAULT true,
			availability JSONB NOT NULL DEFAULT '[]',
			preferences JSONB NOT NULL DEFAULT '[]'
		);
		CREATE TABLE operating_rooms (
			id BIGINT PRIMARY KEY,
			equipment BIGINT[] NOT NULL DEFAULT '{}',
			operational_start_minute BIGINT NOT NULL,
			daily_span_minutes BIGINT NOT NULL
		);
		CREATE TABLE staff_members (
			id BIGINT PRIMARY KEY,
			role TEXT NOT NULL,
			qualifications TEXT[] NOT NULL DEFAULT '{}',
			general_available BOOLEAN NOT NULL DEFAULT true,
			max_daily_hours DOUBLE PRECISION NOT NULL DEFAULT 0
		);
		CREATE TABLE equipment_units (
			id BIGINT PRIMARY KEY,
			general_available BOOLEAN NOT NULL DEFAULT true
		);
		CREATE TABLE sdst_pairs (
			from_type_id BIGINT NOT NULL,
			to_type_id BIGINT NOT NULL,
			setup_minutes BIGINT NOT NULL,
			PRIMARY KEY (from_type_id, to_type_id)
		);
		CREATE TABLE equipment_usage (
			equipment_id BIGINT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL
		);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func TestReferenceDataRepositoryLoadAssemblesFullDataset(t *testing.T) {
	ctx := context.Background()
	helper := newRefdataTestHelper(ctx, t)
	defer helper.Close(t)

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	_, err := helper.db.ExecContext(ctx, `INSERT INTO surgery_types (id, name, average_duration_minutes, keywords) VALUES (1, 'Appendectomy', 60, '{general}')`)
	require.NoError(t, err)
	_, err = helper.db.ExecContext(ctx, `INSERT INTO surgeries (id, type_id, duration_minutes, urgency, required_surgeon_id, required_equipment, status, patient_id, schedule_date) VALUES (1, 1, 60, 'HIGH', NULL, '{101}', 'SCHEDULED', 501, $1)`, date.Format("2006-01-02"))
	require.NoError(t, err)
	_, err = helper.db.ExecContext(ctx, `INSERT INTO surgeons (id, specialization, general_available, availability, preferences) VALUES (1, '{general}', true, '[]', '[]')`)
	require.NoError(t, err)
	_, err = helper.db.ExecContext(ctx, `INSERT INTO operating_rooms (id, equipment, operational_start_minute, daily_span_minutes) VALUES (1, '{101}', 480, 480)`)
	require.NoError(t, err)
	_, err = helper.db.ExecContext(ctx, `INSERT INTO staff_members (id, role, qualifications, general_available, max_daily_hours) VALUES (1, 'nurse', '{}', true, 8)`)
	require.NoError(t, err)
	_, err = helper.db.ExecContext(ctx, `INSERT INTO equipment_units (id, general_available) VALUES (101, true)`)
	require.NoError(t, err)
	_, err = helper.db.ExecContext(ctx, `INSERT INTO sdst_pairs (from_type_id, to_type_id, setup_minutes) VALUES (1, 1, 15)`)
	require.NoError(t, err)

	repo := NewReferenceDataRepository(helper.db)
	ref, err := repo.Load(ctx, date)
	require.NoError(t, err)

	s, ok := ref.Surgery(1)
	require.True(t, ok)
	assert.Equal(t, time.Hour, s.Duration)
	assert.Equal(t, []int64{101}, s.RequiredEquipment)

	room, ok := ref.Room(1)
	require.True(t, ok)
	assert.Equal(t, 8*time.Hour, room.DailySpan)

	setup, ok := ref.SDST().Lookup(1, 1, true)
	require.True(t, ok)
	assert.Equal(t, 15*time.Minute, setup)
}

func TestReferenceDataRepositoryLoadScopesSurgeriesToDate(t *testing.T) {
	ctx := context.Background()
	helper := newRefdataTestHelper(ctx, t)
	defer helper.Close(t)

	day1 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

	_, err := helper.db.ExecContext(ctx, `INSERT INTO surgeries (id, type_id, duration_minutes, urgency, required_equipment, status, patient_id, schedule_date) VALUES (1, 1, 60, 'LOW', '{}', 'SCHEDULED', 501, $1)`, day1.Format("2006-01-02"))
	require.NoError(t, err)

	repo := NewReferenceDataRepository(helper.db)
	ref, err := repo.Load(ctx, day2)
	require.NoError(t, err)

	_, ok := ref.Surgery(1)
	assert.False(t, ok)
}
