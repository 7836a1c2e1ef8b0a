// Package cache implements the content-addressed result cache
// (component C8): a lookup key derived from a SHA-256 digest of
// optimization parameters plus a surgery-data fingerprint, TTL/LRU
// eviction, and hit/miss statistics. Store is satisfied by an
// in-memory implementation here and a Redis-backed one in redis.go.
package cache

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/schedcu/surgopt/internal/entity"
	"github.com/schedcu/surgopt/internal/optimizer"
)

// KeyParams is the normalized, JSON-serializable subset of optimizer
// parameters the cache key is derived from.
type KeyParams struct {
	ScheduleDate             string  `json:"schedule_date"`
	MaxIterations            int     `json:"max_iterations"`
	TabuTenure               int     `json:"tabu_tenure"`
	MaxNoImprovement         int     `json:"max_no_improvement"`
	Algorithm                string  `json:"algorithm"`
	DiversificationThreshold int     `json:"diversification_threshold"`
	IntensificationThreshold int     `json:"intensification_threshold"`
	SurgeriesFingerprint     string  `json:"surgeries_fingerprint"`
}

// ParamsFromOptimizer builds a KeyParams from a driver Params and a
// reference dataset, ready for Key.
func ParamsFromOptimizer(date time.Time, params optimizer.Params, surgeries []entity.Surgery) KeyParams {
	return KeyParams{
		ScheduleDate:             date.Format(time.RFC3339),
		MaxIterations:            params.MaxIterations,
		TabuTenure:               params.TabuTenure,
		MaxNoImprovement:         params.MaxNoImprovement,
		Algorithm:                string(params.Algorithm),
		DiversificationThreshold: params.DiversificationThreshold,
		IntensificationThreshold: params.IntensificationThreshold,
		SurgeriesFingerprint:     SurgeriesFingerprint(surgeries),
	}
}

// SurgeriesFingerprint hashes the surgery set's identity-relevant
// fields (sorted by id) with MD5, so cache entries miss whenever the
// underlying surgery data changes even if the optimizer parameters
// are identical.
func SurgeriesFingerprint(surgeries []entity.Surgery) string {
	type surgeryFingerprint struct {
		ID        entity.SurgeryID     `json:"id"`
		TypeID    entity.SurgeryTypeID `json:"type_id"`
		Duration  int64                `json:"duration_minutes"`
		Urgency   entity.Urgency       `json:"urgency"`
		PatientID entity.PatientID     `json:"patient_id"`
	}

	sorted := append([]entity.Surgery{}, surgeries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	fingerprints := make([]surgeryFingerprint, len(sorted))
	for i, s := range sorted {
		fingerprints[i] = surgeryFingerprint{
			ID: s.ID, TypeID: s.TypeID, Duration: int64(s.Duration.Minutes()),
			Urgency: s.Urgency, PatientID: s.PatientID,
		}
	}

	data, _ := json.Marshal(fingerprints)
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Key returns the 16-hex-character truncated SHA-256 cache key for
// params, over its JSON encoding (fields in KeyParams declaration
// order, which is fixed, so equal params always give the same key).
func Key(params KeyParams) string {
	data, _ := json.Marshal(params)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// Entry is a stored result plus its cache bookkeeping.
type Entry struct {
	Result     optimizer.Result
	Params     KeyParams
	InsertedAt time.Time
	ExpiresAt  time.Time
	HitCount   int
}

// Stats summarizes cache activity.
type Stats struct {
	Hits      int
	Misses    int
	Evictions int
	Size      int
}

// HitRate returns Hits/(Hits+Misses), or 0 with no requests yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Store is the result cache's public contract, satisfied by the
// in-memory Memory store and the Redis-backed Redis store.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, entry Entry) error
	Invalidate(ctx context.Context, key string) error
	InvalidateByDate(ctx context.Context, date time.Time) error
	CleanupExpired(ctx context.Context) error
	Stats() Stats
	Clear()
}

// Config tunes a cache's size and retention policy.
type Config struct {
	MaxSize    int
	DefaultTTL time.Duration
}

// DefaultConfig matches the reference scheduler's defaults: 1000
// entries, 24-hour TTL.
func DefaultConfig() Config {
	return Config{MaxSize: 1000, DefaultTTL: 24 * time.Hour}
}

// Memory is an in-process TTL/LRU cache keyed by the content-addressed
// key from Key.
type Memory struct {
	mu          sync.Mutex
	cfg         Config
	entries     map[string]Entry
	accessTimes map[string]time.Time
	stats       Stats
}

// NewMemory constructs an empty in-memory cache.
func NewMemory(cfg Config) *Memory {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultConfig().MaxSize
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultConfig().DefaultTTL
	}
	return &Memory{cfg: cfg, entries: make(map[string]Entry), accessTimes: make(map[string]time.Time)}
}

// Get returns the entry for key with its hit count incremented,
// reporting a miss on absence or expiry. The returned Result is the
// stored one as is: it carries no flag marking it as served from the
// cache.
func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		m.stats.Misses++
		return Entry{}, false, nil
	}
	if time.Now().After(entry.ExpiresAt) {
		m.removeLocked(key)
		m.stats.Misses++
		return Entry{}, false, nil
	}

	entry.HitCount++
	m.entries[key] = entry
	m.accessTimes[key] = time.Now()
	m.stats.Hits++
	return entry, true, nil
}

// Put stores entry under key, evicting the least-recently-accessed
// entry first if the cache is at capacity.
func (m *Memory) Put(_ context.Context, key string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.cfg.MaxSize {
		m.evictLRULocked()
	}

	if entry.InsertedAt.IsZero() {
		entry.InsertedAt = time.Now()
	}
	if entry.ExpiresAt.IsZero() {
		entry.ExpiresAt = entry.InsertedAt.Add(m.cfg.DefaultTTL)
	}

	m.entries[key] = entry
	m.accessTimes[key] = time.Now()
	return nil
}

func (m *Memory) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(key)
	return nil
}

// InvalidateByDate removes every entry whose parameters reference
// date (matched by the RFC3339 date portion).
func (m *Memory) InvalidateByDate(_ context.Context, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := date.Format("2006-01-02")
	for key, entry := range m.entries {
		if len(entry.Params.ScheduleDate) >= 10 && entry.Params.ScheduleDate[:10] == target {
			m.removeLocked(key)
		}
	}
	return nil
}

// CleanupExpired purges every entry past its ExpiresAt.
func (m *Memory) CleanupExpired(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, entry := range m.entries {
		if now.After(entry.ExpiresAt) {
			m.removeLocked(key)
		}
	}
	return nil
}

func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Size = len(m.entries)
	return s
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)
	m.accessTimes = make(map[string]time.Time)
}

func (m *Memory) removeLocked(key string) {
	delete(m.entries, key)
	delete(m.accessTimes, key)
}

func (m *Memory) evictLRULocked() {
	if len(m.accessTimes) == 0 {
		return
	}
	var lruKey string
	var oldest time.Time
	first := true
	for key, t := range m.accessTimes {
		if first || t.Before(oldest) {
			lruKey, oldest = key, t
			first = false
		}
	}
	m.removeLocked(lruKey)
	m.stats.Evictions++
}
