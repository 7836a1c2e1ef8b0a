package job

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/schedcu/surgopt/internal/cache"
	"github.com/schedcu/surgopt/internal/emergency"
	"github.com/schedcu/surgopt/internal/feasibility"
	"github.com/schedcu/surgopt/internal/metrics"
	"github.com/schedcu/surgopt/internal/optimizer"
	"github.com/schedcu/surgopt/internal/progress"
	"github.com/schedcu/surgopt/internal/repository"
	"github.com/schedcu/surgopt/internal/session"
)

// JobHandlers executes optimize:run and emergency:reoptimize tasks
// dequeued by the Asynq worker, looking up the session registry, the
// reference-data repository, and the result cache so the driver itself
// stays unaware it is being run off the HTTP request goroutine.
type JobHandlers struct {
	refRepo   repository.ReferenceDataRepository
	sessions  *session.Registry
	store     cache.Store
	broadcast *progress.Broadcast
	recorder  *progress.Recorder
	metrics   *metrics.MetricsRegistry
	log       *zap.SugaredLogger
}

// NewJobHandlers creates a new job handlers instance.
func NewJobHandlers(
	refRepo repository.ReferenceDataRepository,
	sessions *session.Registry,
	store cache.Store,
	broadcast *progress.Broadcast,
	recorder *progress.Recorder,
	metricsRegistry *metrics.MetricsRegistry,
	log *zap.SugaredLogger,
) *JobHandlers {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &JobHandlers{
		refRepo:   refRepo,
		sessions:  sessions,
		store:     store,
		broadcast: broadcast,
		recorder:  recorder,
		metrics:   metricsRegistry,
		log:       log,
	}
}

// RegisterHandlers registers all job handlers with the Asynq mux.
func (h *JobHandlers) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeOptimizeRun, h.HandleOptimizeRun)
	mux.HandleFunc(TypeEmergencyReoptimize, h.HandleEmergencyReoptimize)
}

// HandleOptimizeRun executes a single optimize() call for an
// already-registered session, caching the result and reporting
// progress through both the recorder and the broadcast fan-out.
func (h *JobHandlers) HandleOptimizeRun(ctx context.Context, t *asynq.Task) error {
	var payload OptimizeRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.log.With("optimization_id", payload.OptimizationID, "schedule_date", payload.ScheduleDate)
	log.Info("executing optimize run")

	if err := h.sessions.Start(payload.OptimizationID); err != nil {
		log.Errorw("failed to start session", "error", err)
		return fmt.Errorf("start session: %w", err)
	}

	ref, err := h.refRepo.Load(ctx, payload.ScheduleDate)
	if err != nil {
		h.failSession(payload.OptimizationID, err)
		return fmt.Errorf("load reference data: %w", err)
	}

	key := cache.Key(cache.ParamsFromOptimizer(payload.ScheduleDate, payload.Params, ref.Surgeries()))
	if entry, hit, err := h.store.Get(ctx, key); err == nil && hit {
		log.Info("optimize run served from cache")
		if h.metrics != nil {
			h.metrics.RecordCacheLookup(true)
		}
		return h.sessions.Finish(payload.OptimizationID, entry.Result)
	} else if h.metrics != nil {
		h.metrics.RecordCacheLookup(false)
	}

	oracle := feasibility.New(ref, feasibility.Config{}, h.log)
	driver := optimizer.New(ref, oracle, rand.New(rand.NewSource(time.Now().UnixNano())))

	cb := progress.Multi{h.recorder, h.broadcast}
	started := time.Now()
	cb.OptimizationStart(payload.OptimizationID, payload.Params.MaxIterations)
	progressFunc := progress.AsOptimizerProgressFunc(cb, payload.OptimizationID, started)

	result, err := driver.Optimize(ctx, payload.Params, progressFunc)
	progress.ReportOutcome(cb, payload.OptimizationID, result, err)

	if h.metrics != nil {
		h.metrics.RecordOptimizationRun(string(payload.Params.Algorithm), result.Iterations, result.BestScore, time.Since(started).Seconds())
	}

	if err != nil {
		h.failSession(payload.OptimizationID, err)
		return fmt.Errorf("optimize: %w", err)
	}

	if putErr := h.store.Put(ctx, key, cache.Entry{
		Result:     result,
		Params:     cache.ParamsFromOptimizer(payload.ScheduleDate, payload.Params, ref.Surgeries()),
		InsertedAt: time.Now(),
		ExpiresAt:  time.Now().Add(24 * time.Hour),
	}); putErr != nil {
		log.Warnw("failed to cache optimize result", "error", putErr)
	}

	if err := h.sessions.Finish(payload.OptimizationID, result); err != nil {
		log.Errorw("failed to record session finish", "error", err)
		return fmt.Errorf("finish session: %w", err)
	}

	log.Infow("optimize run completed", "iterations", result.Iterations, "best_score", result.BestScore, "reason", result.Reason)
	return nil
}

// HandleEmergencyReoptimize runs a bounded Tabu Search pass for the
// schedule date after a synchronous emergency insertion has placed the
// new surgery. The pass starts from the driver's own initial solution;
// payload.Perturbed is not read.
func (h *JobHandlers) HandleEmergencyReoptimize(ctx context.Context, t *asynq.Task) error {
	var payload EmergencyReoptimizePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.log.With("optimization_id", payload.OptimizationID, "schedule_date", payload.ScheduleDate)
	log.Info("executing emergency reoptimize")

	if err := h.sessions.Start(payload.OptimizationID); err != nil {
		log.Errorw("failed to start session", "error", err)
		return fmt.Errorf("start session: %w", err)
	}

	ref, err := h.refRepo.Load(ctx, payload.ScheduleDate)
	if err != nil {
		h.failSession(payload.OptimizationID, err)
		return fmt.Errorf("load reference data: %w", err)
	}

	oracle := feasibility.New(ref, feasibility.Config{}, h.log)
	driver := optimizer.New(ref, oracle, rand.New(rand.NewSource(time.Now().UnixNano())))
	inserter := emergency.New(ref, oracle, driver)

	cb := progress.Multi{h.recorder, h.broadcast}
	cb.OptimizationStart(payload.OptimizationID, 0)
	bounded, cancel := context.WithTimeout(ctx, payload.Budget)
	defer cancel()

	result, err := inserter.ReoptimizeAround(bounded, payload.Budget)
	progress.ReportOutcome(cb, payload.OptimizationID, result, err)

	if h.metrics != nil {
		h.metrics.IncrementEmergencyInsertions()
	}

	if err != nil {
		h.failSession(payload.OptimizationID, err)
		return fmt.Errorf("reoptimize around emergency: %w", err)
	}

	if err := h.sessions.Finish(payload.OptimizationID, result); err != nil {
		log.Errorw("failed to record session finish", "error", err)
		return fmt.Errorf("finish session: %w", err)
	}

	log.Infow("emergency reoptimize completed", "iterations", result.Iterations, "best_score", result.BestScore)
	return nil
}

func (h *JobHandlers) failSession(id string, err error) {
	if finishErr := h.sessions.Fail(id, err); finishErr != nil {
		h.log.Errorw("failed to record session failure", "optimization_id", id, "error", finishErr)
	}
}
