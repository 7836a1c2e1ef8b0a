package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a Redis server, for sharing cached
// optimization results across multiple process instances. Keys are
// namespaced under keyPrefix; entries are stored as JSON strings with
// a native Redis TTL, so expiry and CleanupExpired are handled by
// Redis itself rather than scanned client-side.
type Redis struct {
	client    *redis.Client
	keyPrefix string
	cfg       Config

	// statsKey namespaces the hit/miss/eviction counters, stored as a
	// Redis hash so Stats reflects all processes sharing this cache.
	statsKey string
}

// NewRedis constructs a Redis-backed store. client is assumed already
// connected; this package never dials one itself.
func NewRedis(client *redis.Client, cfg Config) *Redis {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultConfig().MaxSize
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultConfig().DefaultTTL
	}
	return &Redis{client: client, keyPrefix: "surgopt:cache:", cfg: cfg, statsKey: "surgopt:cache:stats"}
}

func (r *Redis) redisKey(key string) string {
	return r.keyPrefix + key
}

// Get retrieves and deserializes the entry for key, incrementing its
// hit count and the cache's hit/miss counters.
func (r *Redis) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, r.redisKey(key)).Result()
	if err == redis.Nil {
		r.client.HIncrBy(ctx, r.statsKey, "misses", 1)
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache get %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Entry{}, false, fmt.Errorf("cache decode %s: %w", key, err)
	}

	entry.HitCount++
	if data, err := json.Marshal(entry); err == nil {
		ttl := time.Until(entry.ExpiresAt)
		if ttl > 0 {
			r.client.Set(ctx, r.redisKey(key), data, ttl)
		}
	}

	r.client.HIncrBy(ctx, r.statsKey, "hits", 1)
	return entry, true, nil
}

// Put serializes and stores entry with a Redis TTL equal to the time
// left until ExpiresAt (which defaults to InsertedAt plus the
// configured TTL); an entry already past ExpiresAt is not stored. Redis's own
// max-memory/eviction policy is relied on in place of explicit LRU
// bookkeeping, matching how this cache is deployed alongside the
// rest of the stack's Redis instance.
func (r *Redis) Put(ctx context.Context, key string, entry Entry) error {
	if entry.InsertedAt.IsZero() {
		entry.InsertedAt = time.Now()
	}
	if entry.ExpiresAt.IsZero() {
		entry.ExpiresAt = entry.InsertedAt.Add(r.cfg.DefaultTTL)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.redisKey(key), data, ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.redisKey(key)).Err()
}

// InvalidateByDate scans keys under this cache's namespace and
// removes any whose stored parameters reference date. Redis has no
// secondary index on entry contents, so this is a bounded SCAN over
// the namespace rather than a single command.
func (r *Redis) InvalidateByDate(ctx context.Context, date time.Time) error {
	target := date.Format("2006-01-02")

	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if key == r.statsKey {
			continue
		}
		raw, err := r.client.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		if len(entry.Params.ScheduleDate) >= 10 && entry.Params.ScheduleDate[:10] == target {
			r.client.Del(ctx, key)
		}
	}
	return iter.Err()
}

// CleanupExpired is a no-op: Redis expires keys natively via the TTL
// set in Put, so there is nothing left for this store to scan for.
func (r *Redis) CleanupExpired(ctx context.Context) error {
	return nil
}

func (r *Redis) Stats() Stats {
	ctx := context.Background()
	vals, err := r.client.HGetAll(ctx, r.statsKey).Result()
	if err != nil {
		return Stats{}
	}

	size, _ := r.client.Keys(ctx, r.keyPrefix+"*").Result()
	return Stats{
		Hits:      atoiOrZero(vals["hits"]),
		Misses:    atoiOrZero(vals["misses"]),
		Evictions: atoiOrZero(vals["evictions"]),
		Size:      len(size),
	}
}

func (r *Redis) Clear() {
	ctx := context.Background()
	keys, err := r.client.Keys(ctx, r.keyPrefix+"*").Result()
	if err != nil || len(keys) == 0 {
		return
	}
	r.client.Del(ctx, keys...)
}

func atoiOrZero(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
