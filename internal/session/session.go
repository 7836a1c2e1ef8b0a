// Package session implements the optimization session registry
// (component C10): optimization_id -> OptimizationSession lifecycle
// state, consulted externally for progress queries and cancellation
// requests. Transitions are strictly forward; a session is terminal
// once Completed, Failed, or Cancelled.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schedcu/surgopt/internal/optimizer"
	"github.com/schedcu/surgopt/internal/progress"
)

// ErrNotTerminal is returned by Forget on a session still Pending or
// Running.
var ErrNotTerminal = errors.New("session: cannot forget a non-terminal session")

// Status is an OptimizationSession's lifecycle state.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
)

// rank orders states for forward-only transition enforcement; the three
// terminal ranks tie deliberately — once in any terminal state, no
// further transition is permitted regardless of which terminal state
// is requested next.
var rank = map[Status]int{
	StatusPending:   0,
	StatusRunning:   1,
	StatusCompleted: 2,
	StatusFailed:    2,
	StatusCancelled: 2,
}

func isTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// NotFoundError reports a lookup against an unknown optimization_id.
type NotFoundError struct {
	OptimizationID string
}

func (e *NotFoundError) Error() string {
	return "session not found: " + e.OptimizationID
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// InvalidTransitionError reports an attempted backward or repeated
// terminal transition.
type InvalidTransitionError struct {
	OptimizationID string
	From, To       Status
}

func (e *InvalidTransitionError) Error() string {
	return "session " + e.OptimizationID + ": invalid transition from " + string(e.From) + " to " + string(e.To)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	_, ok := err.(*InvalidTransitionError)
	return ok
}

// Session is one optimization run's lifecycle record.
type Session struct {
	ID        string
	Status    Status
	Params    optimizer.Params
	Progress  progress.Event
	Result    *optimizer.Result
	Err       error
	CreatedAt time.Time
	UpdatedAt time.Time

	cancel context.CancelFunc
}

// snapshot returns a value copy safe to hand to callers outside the
// registry's lock.
func (s *Session) snapshot() Session {
	cp := *s
	cp.cancel = nil
	return cp
}

// Registry is the concurrent-safe optimization_id -> Session map.
// External code (HTTP handlers, job handlers) consults it to query
// progress and request cancellation; the driver's own goroutine
// updates it as the run advances.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry constructs an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create registers a new Pending session with a fresh UUIDv4
// optimization_id, derives a cancellable context from parent for the
// driver to run under, and returns both.
func (r *Registry) Create(parent context.Context, params optimizer.Params) (*Session, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	now := time.Now()

	s := &Session{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
		cancel:    cancel,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	return &Session{ID: s.ID, Status: s.Status, Params: s.Params, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}, ctx
}

// Get returns a snapshot of the session for id.
func (r *Registry) Get(id string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, &NotFoundError{OptimizationID: id}
	}
	return s.snapshot(), nil
}

// Start transitions a Pending session to Running.
func (r *Registry) Start(id string) error {
	return r.transition(id, StatusRunning, nil)
}

// UpdateProgress records the latest progress event without changing
// status. It is a no-op error-wise on a terminal session: a slow
// progress update racing the run's own completion must never surface
// as an error to the driver.
func (r *Registry) UpdateProgress(id string, event progress.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return &NotFoundError{OptimizationID: id}
	}
	if isTerminal(s.Status) {
		return nil
	}
	s.Progress = event
	s.UpdatedAt = time.Now()
	return nil
}

// Finish transitions a Running session to its terminal state, derived
// from the optimizer result's termination reason: Cancelled if the
// run was cancelled, Completed otherwise (regardless of whether a
// feasible solution was actually found — a clean max_iterations or
// no_neighbors termination is still a completed run, not a failure).
func (r *Registry) Finish(id string, result optimizer.Result) error {
	status := StatusCompleted
	if result.Reason == optimizer.TerminatedCancelled {
		status = StatusCancelled
	}
	return r.transition(id, status, func(s *Session) { s.Result = &result })
}

// Fail transitions a session to Failed, recording err (e.g. a
// repository error that prevented the run from starting at all).
func (r *Registry) Fail(id string, err error) error {
	return r.transition(id, StatusFailed, func(s *Session) { s.Err = err })
}

// Cancel acknowledges a cancellation request by invoking the run's
// context.CancelFunc; the driver observes this once per iteration and
// the session transitions to Cancelled via a subsequent Finish call
// once the run actually stops, matching spec.md's "acknowledges and
// transitions to Cancelled at next iteration boundary".
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return &NotFoundError{OptimizationID: id}
	}
	if isTerminal(s.Status) {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// transition moves the session to next, applying mutate under the
// same lock, and enforces the forward-only ordering.
func (r *Registry) transition(id string, next Status, mutate func(*Session)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return &NotFoundError{OptimizationID: id}
	}
	if isTerminal(s.Status) {
		return &InvalidTransitionError{OptimizationID: id, From: s.Status, To: next}
	}
	if rank[next] < rank[s.Status] {
		return &InvalidTransitionError{OptimizationID: id, From: s.Status, To: next}
	}

	s.Status = next
	s.UpdatedAt = time.Now()
	if mutate != nil {
		mutate(s)
	}
	return nil
}

// Forget removes a terminal session from the registry, for callers
// that retain their own longer-lived result store (e.g. the result
// cache) and want the registry itself to stay small.
func (r *Registry) Forget(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return &NotFoundError{OptimizationID: id}
	}
	if !isTerminal(s.Status) {
		return ErrNotTerminal
	}
	delete(r.sessions, id)
	return nil
}

// List returns a snapshot of every session currently held, for
// diagnostic/metrics use (e.g. sessionsByStateGauge).
func (r *Registry) List() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.snapshot())
	}
	return out
}
