// Package job dispatches optimize and emergency-reoptimization work to
// Asynq task queues (component A2), offloading long-running Tabu
// Search runs from the HTTP request goroutine.
package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/schedcu/surgopt/internal/entity"
	"github.com/schedcu/surgopt/internal/optimizer"
)

// Task type names registered with the Asynq mux.
const (
	TypeOptimizeRun         = "optimize:run"
	TypeEmergencyReoptimize = "emergency:reoptimize"
)

// JobScheduler enqueues optimize and emergency-reoptimize tasks.
type JobScheduler struct {
	client *asynq.Client
}

// NewJobScheduler creates a scheduler backed by the Redis instance at
// redisAddr.
func NewJobScheduler(redisAddr string) (*JobScheduler, error) {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})

	if err := client.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &JobScheduler{client: client}, nil
}

// Close releases the underlying Asynq client's connections.
func (s *JobScheduler) Close() error {
	return s.client.Close()
}

// OptimizeRunPayload is the optimize:run task body: an
// already-registered session id plus the full request the session was
// created from.
type OptimizeRunPayload struct {
	OptimizationID string          `json:"optimization_id"`
	ScheduleDate   time.Time       `json:"schedule_date"`
	Params         optimizer.Params `json:"params"`
}

// EnqueueOptimizeRun enqueues an optimize:run task. The caller is
// expected to have already created the session (component C10) and
// passed its id here, so the handler only needs to look it up.
func (s *JobScheduler) EnqueueOptimizeRun(ctx context.Context, payload OptimizeRunPayload) (*asynq.TaskInfo, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeOptimizeRun, payloadBytes)

	info, err := s.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(1),
		asynq.Timeout(payload.Params.TimeLimit+30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue optimize run: %w", err)
	}
	return info, nil
}

// EmergencyReoptimizePayload is the emergency:reoptimize task body: a
// perturbed schedule (already mutated by a synchronous emergency
// insertion) plus a bounded time budget. HandleEmergencyReoptimize
// uses the budget; it does not read Perturbed.
type EmergencyReoptimizePayload struct {
	OptimizationID string          `json:"optimization_id"`
	ScheduleDate   time.Time       `json:"schedule_date"`
	Perturbed      entity.Schedule `json:"perturbed"`
	Budget         time.Duration   `json:"budget"`
}

// EnqueueEmergencyReoptimize enqueues an emergency:reoptimize task.
func (s *JobScheduler) EnqueueEmergencyReoptimize(ctx context.Context, payload EmergencyReoptimizePayload) (*asynq.TaskInfo, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeEmergencyReoptimize, payloadBytes)

	info, err := s.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(1),
		asynq.Timeout(payload.Budget+10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue emergency reoptimize: %w", err)
	}
	return info, nil
}
