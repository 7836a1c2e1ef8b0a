package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/schedcu/surgopt/internal/api"
	"github.com/schedcu/surgopt/internal/cache"
	"github.com/schedcu/surgopt/internal/job"
	"github.com/schedcu/surgopt/internal/logger"
	"github.com/schedcu/surgopt/internal/metrics"
	"github.com/schedcu/surgopt/internal/progress"
	"github.com/schedcu/surgopt/internal/repository"
	"github.com/schedcu/surgopt/internal/repository/memory"
	"github.com/schedcu/surgopt/internal/repository/postgres"
	"github.com/schedcu/surgopt/internal/session"
)

func main() {
	log, err := logger.NewLogger("")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	refRepo, dbPing, closeRepo := buildRepository(log)
	defer closeRepo()

	store, redisPing, closeStore := buildCache(log)
	defer closeStore()

	var scheduler *job.JobScheduler
	redisAddr := envOr("REDIS_ADDR", "localhost:6379")
	if sched, err := job.NewJobScheduler(redisAddr); err != nil {
		log.Warnw("job scheduler unavailable, running optimize/emergency inline", "error", err)
	} else {
		scheduler = sched
		defer scheduler.Close()
	}

	sessions := session.NewRegistry()
	broadcast := progress.NewBroadcast()
	recorder := progress.NewRecorder(50)
	metricsRegistry := metrics.NewMetricsRegistry()

	if scheduler != nil {
		go runWorker(redisAddr, refRepo, sessions, store, broadcast, recorder, metricsRegistry, log)
	}

	e := api.NewRouter(refRepo, sessions, store, scheduler, broadcast, recorder, metricsRegistry, log, dbPing, redisPing)

	addr := envOr("SERVER_ADDR", ":8080")
	go func() {
		log.Infow("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Errorw("server shutdown error", "error", err)
	}
}

// runWorker runs the Asynq worker loop that executes optimize:run and
// emergency:reoptimize tasks dequeued from Redis, offloading long
// searches from the HTTP request goroutine.
func runWorker(
	redisAddr string,
	refRepo repository.ReferenceDataRepository,
	sessions *session.Registry,
	store cache.Store,
	broadcast *progress.Broadcast,
	recorder *progress.Recorder,
	metricsRegistry *metrics.MetricsRegistry,
	log *zap.SugaredLogger,
) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{Concurrency: 4},
	)
	handlers := job.NewJobHandlers(refRepo, sessions, store, broadcast, recorder, metricsRegistry, log)
	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)

	if err := srv.Run(mux); err != nil {
		log.Errorw("asynq worker stopped", "error", err)
	}
}

func buildRepository(log *zap.SugaredLogger) (repository.ReferenceDataRepository, func(context.Context) error, func() error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Info("DATABASE_URL unset, using in-memory reference data repository")
		repo := memory.NewReferenceDataRepository()
		return repo, nil, func() error { return nil }
	}

	db, err := postgres.New(dsn)
	if err != nil {
		log.Fatalw("failed to connect to postgres", "error", err)
	}
	return postgres.NewReferenceDataRepository(db.DB), db.Health, db.Close
}

func buildCache(log *zap.SugaredLogger) (cache.Store, func(context.Context) error, func() error) {
	redisAddr := os.Getenv("CACHE_REDIS_ADDR")
	if redisAddr == "" {
		log.Info("CACHE_REDIS_ADDR unset, using in-memory result cache")
		return cache.NewMemory(cache.DefaultConfig()), nil, func() error { return nil }
	}

	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	store := cache.NewRedis(client, cache.DefaultConfig())
	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return store, ping, client.Close
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
