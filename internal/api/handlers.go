package api

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/schedcu/surgopt/internal/cache"
	"github.com/schedcu/surgopt/internal/emergency"
	"github.com/schedcu/surgopt/internal/feasibility"
	"github.com/schedcu/surgopt/internal/job"
	"github.com/schedcu/surgopt/internal/metrics"
	"github.com/schedcu/surgopt/internal/optimizer"
	"github.com/schedcu/surgopt/internal/progress"
	"github.com/schedcu/surgopt/internal/repository"
	"github.com/schedcu/surgopt/internal/session"
)

// Handlers implements the SPEC_FULL.md §6 HTTP surface: submitting
// optimization runs, polling or cancelling them, one-shot feasibility
// checks, emergency insertion, and health/metrics probes. Long-running
// work is handed to the job scheduler; everything else runs inline
// against the already-loaded reference data.
type Handlers struct {
	refRepo   repository.ReferenceDataRepository
	sessions  *session.Registry
	store     cache.Store
	scheduler *job.JobScheduler
	broadcast *progress.Broadcast
	recorder  *progress.Recorder
	metrics   *metrics.MetricsRegistry
	log       *zap.SugaredLogger

	dbPing    func(ctx context.Context) error
	redisPing func(ctx context.Context) error
}

// NewHandlers constructs the API handlers. scheduler may be nil, in
// which case POST /api/optimize runs synchronously instead of
// enqueuing an Asynq task, and POST /api/emergency performs the
// insertion without enqueuing its follow-up reoptimization. dbPing/redisPing
// may be nil, in which case the corresponding health probe always
// reports healthy.
func NewHandlers(
	refRepo repository.ReferenceDataRepository,
	sessions *session.Registry,
	store cache.Store,
	scheduler *job.JobScheduler,
	broadcast *progress.Broadcast,
	recorder *progress.Recorder,
	metricsRegistry *metrics.MetricsRegistry,
	log *zap.SugaredLogger,
	dbPing, redisPing func(ctx context.Context) error,
) *Handlers {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handlers{
		refRepo:   refRepo,
		sessions:  sessions,
		store:     store,
		scheduler: scheduler,
		broadcast: broadcast,
		recorder:  recorder,
		metrics:   metricsRegistry,
		log:       log,
		dbPing:    dbPing,
		redisPing: redisPing,
	}
}

// PostOptimize handles POST /api/optimize: validates the request,
// registers a session, and either enqueues the run for the Asynq
// worker (async=true, or no scheduler configured skips straight to
// inline execution) or runs it synchronously before responding.
func (h *Handlers) PostOptimize(c echo.Context) error {
	var req OptimizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponseWithCode("INVALID_REQUEST_BODY", err.Error()))
	}

	params, date, result := req.ToParams()
	if !result.IsValid() {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": ErrorResponse{Code: "VALIDATION_FAILED", Message: result.Summary()},
			"meta":  ResponseMeta{Timestamp: time.Now().UTC()},
			"validation": result,
		})
	}

	sess, ctx := h.sessions.Create(c.Request().Context(), params)

	if req.Async && h.scheduler != nil {
		if _, err := h.scheduler.EnqueueOptimizeRun(c.Request().Context(), job.OptimizeRunPayload{
			OptimizationID: sess.ID,
			ScheduleDate:   date,
			Params:         params,
		}); err != nil {
			return c.JSON(http.StatusInternalServerError, ErrorResponseWithCode("ENQUEUE_FAILED", err.Error()))
		}
		return c.JSON(http.StatusAccepted, SuccessResponse(map[string]interface{}{
			"optimization_id": sess.ID,
			"status":          session.StatusPending,
		}))
	}

	if err := h.runOptimizeInline(ctx, sess.ID, date, params); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponseWithCode("OPTIMIZE_FAILED", err.Error()))
	}

	got, err := h.sessions.Get(sess.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponseWithCode("SESSION_LOOKUP_FAILED", err.Error()))
	}
	return c.JSON(http.StatusOK, SuccessResponse(sessionView(got)))
}

// runOptimizeInline executes an optimize() call on the calling
// goroutine, used when the request omits async=true or no job
// scheduler is wired in (e.g. the optimizectl CLI).
func (h *Handlers) runOptimizeInline(ctx context.Context, optimizationID string, date time.Time, params optimizer.Params) error {
	if err := h.sessions.Start(optimizationID); err != nil {
		return err
	}

	ref, err := h.refRepo.Load(ctx, date)
	if err != nil {
		h.failSession(optimizationID, err)
		return err
	}

	key := cache.Key(cache.ParamsFromOptimizer(date, params, ref.Surgeries()))
	if entry, hit, err := h.store.Get(ctx, key); err == nil && hit {
		if h.metrics != nil {
			h.metrics.RecordCacheLookup(true)
		}
		return h.sessions.Finish(optimizationID, entry.Result)
	} else if h.metrics != nil {
		h.metrics.RecordCacheLookup(false)
	}

	oracle := feasibility.New(ref, feasibility.Config{}, h.log)
	driver := optimizer.New(ref, oracle, rand.New(rand.NewSource(time.Now().UnixNano())))

	cb := progress.Multi{h.recorder, h.broadcast}
	started := time.Now()
	cb.OptimizationStart(optimizationID, params.MaxIterations)
	progressFunc := progress.AsOptimizerProgressFunc(cb, optimizationID, started)

	result, err := driver.Optimize(ctx, params, progressFunc)
	progress.ReportOutcome(cb, optimizationID, result, err)

	if h.metrics != nil {
		h.metrics.RecordOptimizationRun(string(params.Algorithm), result.Iterations, result.BestScore, time.Since(started).Seconds())
	}

	if err != nil {
		h.failSession(optimizationID, err)
		return err
	}

	_ = h.store.Put(ctx, key, cache.Entry{
		Result:     result,
		Params:     cache.ParamsFromOptimizer(date, params, ref.Surgeries()),
		InsertedAt: time.Now(),
		ExpiresAt:  time.Now().Add(24 * time.Hour),
	})

	return h.sessions.Finish(optimizationID, result)
}

func (h *Handlers) failSession(id string, err error) {
	if finishErr := h.sessions.Fail(id, err); finishErr != nil {
		h.log.Errorw("failed to record session failure", "optimization_id", id, "error", finishErr)
	}
}

// GetOptimization handles GET /api/optimize/:id: returns the current
// session snapshot, including the latest progress event if the run is
// still in flight.
func (h *Handlers) GetOptimization(c echo.Context) error {
	id := c.Param("id")
	sess, err := h.sessions.Get(id)
	if err != nil {
		if session.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, ErrorResponseWithCode("SESSION_NOT_FOUND", err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponseWithCode("SESSION_LOOKUP_FAILED", err.Error()))
	}
	return c.JSON(http.StatusOK, SuccessResponse(sessionView(sess)))
}

// CancelOptimization handles POST /api/optimize/:id/cancel: requests
// cancellation, which the driver acknowledges at its next iteration
// boundary rather than immediately.
func (h *Handlers) CancelOptimization(c echo.Context) error {
	id := c.Param("id")
	if err := h.sessions.Cancel(id); err != nil {
		if session.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, ErrorResponseWithCode("SESSION_NOT_FOUND", err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponseWithCode("CANCEL_FAILED", err.Error()))
	}
	return c.JSON(http.StatusAccepted, SuccessResponse(map[string]string{"optimization_id": id, "status": "cancel_requested"}))
}

// PostFeasibilityCheck handles POST /api/feasibility/check: a
// one-shot, read-only evaluation of a single proposed assignment
// against every hard constraint, specialization match, and custom
// rule the Advanced oracle knows about.
func (h *Handlers) PostFeasibilityCheck(c echo.Context) error {
	var req FeasibilityCheckRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponseWithCode("INVALID_REQUEST_BODY", err.Error()))
	}

	date, err := time.Parse("2006-01-02", req.ScheduleDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponseWithCode("INVALID_SCHEDULE_DATE", err.Error()))
	}

	ref, err := h.refRepo.Load(c.Request().Context(), date)
	if err != nil {
		if repository.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, ErrorResponseWithCode("REFERENCE_DATA_NOT_FOUND", err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponseWithCode("REFERENCE_DATA_LOAD_FAILED", err.Error()))
	}

	base := feasibility.New(ref, feasibility.Config{}, h.log)
	advanced := feasibility.NewAdvanced(base, feasibility.AdvancedConfig{})

	violations := advanced.Evaluate(req.SurgeryID, req.RoomID, req.Start, req.End, req.Schedule, nil)

	return c.JSON(http.StatusOK, SuccessResponse(map[string]interface{}{
		"feasible":   len(violations) == 0,
		"violations": violations,
	}))
}

// PostEmergency handles POST /api/emergency: synchronously locates an
// insertion slot for an urgent surgery and, when a job scheduler is
// configured, enqueues a bounded reoptimization pass around the
// result.
func (h *Handlers) PostEmergency(c echo.Context) error {
	var req EmergencyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponseWithCode("INVALID_REQUEST_BODY", err.Error()))
	}

	insReq, result := req.toRequest()
	if !result.IsValid() {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": ErrorResponse{Code: "VALIDATION_FAILED", Message: result.Summary()},
			"meta":  ResponseMeta{Timestamp: time.Now().UTC()},
		})
	}

	date, err := time.Parse("2006-01-02", req.ScheduleDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponseWithCode("INVALID_SCHEDULE_DATE", err.Error()))
	}

	ref, err := h.refRepo.Load(c.Request().Context(), date)
	if err != nil {
		if repository.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, ErrorResponseWithCode("REFERENCE_DATA_NOT_FOUND", err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponseWithCode("REFERENCE_DATA_LOAD_FAILED", err.Error()))
	}

	oracle := feasibility.New(ref, feasibility.Config{}, h.log)
	driver := optimizer.New(ref, oracle, rand.New(rand.NewSource(time.Now().UnixNano())))
	inserter := emergency.New(ref, oracle, driver)

	insResult := inserter.Insert(req.Schedule, insReq)
	if h.metrics != nil {
		h.metrics.IncrementEmergencyInsertions()
	}
	if !insResult.Success {
		return c.JSON(http.StatusConflict, ErrorResponseWithCode("NO_FEASIBLE_SLOT", insResult.Reason))
	}

	var reoptimizeID string
	if h.scheduler != nil {
		budget := time.Duration(req.ReoptimizeBudgetSeconds) * time.Second
		params := optimizer.DefaultParams()
		sess, _ := h.sessions.Create(c.Request().Context(), params)
		reoptimizeID = sess.ID
		if _, err := h.scheduler.EnqueueEmergencyReoptimize(c.Request().Context(), job.EmergencyReoptimizePayload{
			OptimizationID: reoptimizeID,
			ScheduleDate:   date,
			Perturbed:      insResult.Schedule,
			Budget:         budget,
		}); err != nil {
			h.log.Warnw("failed to enqueue emergency reoptimize", "error", err)
			reoptimizeID = ""
		}
	}

	return c.JSON(http.StatusOK, SuccessResponse(map[string]interface{}{
		"result":              insResult,
		"reoptimize_session_id": reoptimizeID,
	}))
}

// GetHealth handles GET /api/health: a liveness probe that never
// touches a dependency.
func (h *Handlers) GetHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, SuccessResponse(map[string]string{"status": "ok"}))
}

// GetHealthDB handles GET /api/health/db: a readiness probe against
// the reference-data repository's backing store.
func (h *Handlers) GetHealthDB(c echo.Context) error {
	if h.dbPing == nil {
		return c.JSON(http.StatusOK, SuccessResponse(map[string]string{"status": "ok"}))
	}
	if err := h.dbPing(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponseWithCode("DB_UNAVAILABLE", err.Error()))
	}
	return c.JSON(http.StatusOK, SuccessResponse(map[string]string{"status": "ok"}))
}

// GetHealthRedis handles GET /api/health/redis: a readiness probe
// against the Redis-backed result cache / job queue.
func (h *Handlers) GetHealthRedis(c echo.Context) error {
	if h.redisPing == nil {
		return c.JSON(http.StatusOK, SuccessResponse(map[string]string{"status": "ok"}))
	}
	if err := h.redisPing(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponseWithCode("REDIS_UNAVAILABLE", err.Error()))
	}
	return c.JSON(http.StatusOK, SuccessResponse(map[string]string{"status": "ok"}))
}

// sessionView strips the session's internal context.CancelFunc and
// shapes a JSON-friendly response.
func sessionView(s session.Session) map[string]interface{} {
	view := map[string]interface{}{
		"optimization_id": s.ID,
		"status":          s.Status,
		"created_at":      s.CreatedAt,
		"updated_at":      s.UpdatedAt,
	}
	if s.Result != nil {
		view["result"] = s.Result
	}
	if s.Err != nil {
		view["error"] = s.Err.Error()
	}
	if s.Progress.OptimizationID != "" {
		view["progress"] = map[string]interface{}{
			"iteration":        s.Progress.Iteration,
			"total_iterations": s.Progress.TotalIterations,
			"best_score":       s.Progress.BestScore,
			"percent":          s.Progress.Percent(),
			"phase":            s.Progress.Phase,
		}
	}
	return view
}
