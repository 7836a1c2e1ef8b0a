// Package api implements the HTTP adapter (component A3): an Echo
// router exposing submission, polling, cancellation, feasibility
// checking, emergency insertion, health, and metrics endpoints over
// the optimizer core.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/schedcu/surgopt/internal/cache"
	"github.com/schedcu/surgopt/internal/job"
	"github.com/schedcu/surgopt/internal/metrics"
	"github.com/schedcu/surgopt/internal/progress"
	"github.com/schedcu/surgopt/internal/repository"
	"github.com/schedcu/surgopt/internal/session"
)

// NewRouter constructs the fully wired Echo instance. scheduler may be
// nil, in which case POST /api/optimize runs inline instead of
// enqueuing an Asynq task, and POST /api/emergency performs the
// insertion without enqueuing its follow-up reoptimization. dbPing and
// redisPing probe the repository's backing store and the result
// cache's Redis connection respectively; either may be nil, in which
// case the corresponding health endpoint always reports healthy.
func NewRouter(
	refRepo repository.ReferenceDataRepository,
	sessions *session.Registry,
	store cache.Store,
	scheduler *job.JobScheduler,
	broadcast *progress.Broadcast,
	recorder *progress.Recorder,
	metricsRegistry *metrics.MetricsRegistry,
	log *zap.SugaredLogger,
	dbPing, redisPing func(ctx context.Context) error,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	if metricsRegistry != nil {
		e.Use(echo.WrapMiddleware(metricsRegistry.HTTPMiddleware))
	}

	h := NewHandlers(refRepo, sessions, store, scheduler, broadcast, recorder, metricsRegistry, log, dbPing, redisPing)

	group := e.Group("/api")
	group.POST("/optimize", h.PostOptimize)
	group.GET("/optimize/:id", h.GetOptimization)
	group.POST("/optimize/:id/cancel", h.CancelOptimization)
	group.POST("/feasibility/check", h.PostFeasibilityCheck)
	group.POST("/emergency", h.PostEmergency)
	group.GET("/health", h.GetHealth)
	group.GET("/health/db", h.GetHealthDB)
	group.GET("/health/redis", h.GetHealthRedis)

	if metricsRegistry != nil {
		e.GET("/metrics", echo.WrapHandler(metricsRegistry.GetHandler()))
	}

	return e
}

// DefaultReadTimeout and DefaultWriteTimeout are timeouts for an
// http.Server built around the Echo handler. NewRouter does not apply
// them, and cmd/server starts Echo with e.Start without setting them.
const (
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 15 * time.Second
)
