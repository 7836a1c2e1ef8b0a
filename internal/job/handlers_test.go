package job

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/surgopt/internal/cache"
	"github.com/schedcu/surgopt/internal/entity"
	"github.com/schedcu/surgopt/internal/optimizer"
	"github.com/schedcu/surgopt/internal/progress"
	"github.com/schedcu/surgopt/internal/session"
	"github.com/schedcu/surgopt/tests/mocks"
)

func testDataset(date time.Time) *entity.ReferenceData {
	surgeries := []entity.Surgery{
		{ID: 1, TypeID: 1, Duration: time.Hour, Urgency: entity.UrgencyMedium, Status: entity.SurgeryStatusScheduled, PatientID: 1},
	}
	rooms := []entity.OperatingRoom{
		{ID: 1, OperationalStart: 8 * 60, DailySpan: 8 * time.Hour},
	}
	return entity.NewReferenceData(date, surgeries, nil, nil, rooms, nil, nil, nil, nil)
}

func newTestHandlers(t *testing.T, repo *mocks.MockReferenceDataRepository) (*JobHandlers, *session.Registry) {
	t.Helper()
	registry := session.NewRegistry()
	store := cache.NewMemory(cache.DefaultConfig())
	broadcast := progress.NewBroadcast()
	recorder := progress.NewRecorder(32)
	return NewJobHandlers(repo, registry, store, broadcast, recorder, nil, nil), registry
}

func TestHandleOptimizeRunCompletesSessionOnSuccess(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	repo := mocks.NewMockReferenceDataRepository()
	repo.Seed(date, testDataset(date))

	handlers, registry := newTestHandlers(t, repo)

	params := optimizer.DefaultParams()
	params.MaxIterations = 5
	sess, _ := registry.Create(context.Background(), params)

	payload := OptimizeRunPayload{OptimizationID: sess.ID, ScheduleDate: date, Params: params}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	task := asynq.NewTask(TypeOptimizeRun, body)
	err = handlers.HandleOptimizeRun(context.Background(), task)
	require.NoError(t, err)

	got, err := registry.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, got.Status)
	assert.NotNil(t, got.Result)
}

func TestHandleOptimizeRunFailsSessionOnRepositoryError(t *testing.T) {
	repo := mocks.NewMockReferenceDataRepository()
	repo.SetLoadError(assert.AnError)

	handlers, registry := newTestHandlers(t, repo)

	params := optimizer.DefaultParams()
	sess, _ := registry.Create(context.Background(), params)

	payload := OptimizeRunPayload{OptimizationID: sess.ID, ScheduleDate: time.Now(), Params: params}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	task := asynq.NewTask(TypeOptimizeRun, body)
	err = handlers.HandleOptimizeRun(context.Background(), task)
	require.Error(t, err)

	got, getErr := registry.Get(sess.ID)
	require.NoError(t, getErr)
	assert.Equal(t, session.StatusFailed, got.Status)
}

func TestHandleOptimizeRunServesFromCacheOnSecondRun(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	repo := mocks.NewMockReferenceDataRepository()
	repo.Seed(date, testDataset(date))

	handlers, registry := newTestHandlers(t, repo)

	params := optimizer.DefaultParams()
	params.MaxIterations = 5

	sess1, _ := registry.Create(context.Background(), params)
	body1, _ := json.Marshal(OptimizeRunPayload{OptimizationID: sess1.ID, ScheduleDate: date, Params: params})
	require.NoError(t, handlers.HandleOptimizeRun(context.Background(), asynq.NewTask(TypeOptimizeRun, body1)))

	sess2, _ := registry.Create(context.Background(), params)
	body2, _ := json.Marshal(OptimizeRunPayload{OptimizationID: sess2.ID, ScheduleDate: date, Params: params})
	require.NoError(t, handlers.HandleOptimizeRun(context.Background(), asynq.NewTask(TypeOptimizeRun, body2)))

	got1, err := registry.Get(sess1.ID)
	require.NoError(t, err)
	got2, err := registry.Get(sess2.ID)
	require.NoError(t, err)

	assert.Equal(t, session.StatusCompleted, got2.Status)
	assert.Equal(t, got1.Result.BestScore, got2.Result.BestScore)
	assert.Equal(t, 2, repo.LoadCalls()) // reference data is still loaded each run; only the search itself is skipped
}
