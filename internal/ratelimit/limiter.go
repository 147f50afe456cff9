// Package ratelimit guards the registration endpoint with a fixed-window
// per-client limit. Redis is the primary store so limits hold across
// replicas; an in-memory window takes over when Redis is unavailable.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result reports one limit check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter checks whether a key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter counts requests per key in fixed windows.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter builds a limiter allowing limit requests per window.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

// Allow increments the key's window counter and compares against the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	windowKey := fmt.Sprintf("ratelimit:register:%s:%d", key, time.Now().UnixNano()/int64(l.window))

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit check: %w", err)
	}

	n := int(count.Val())
	if n > l.limit {
		return Result{Allowed: false, RetryAfter: l.window}, nil
	}
	return Result{Allowed: true, Remaining: l.limit - n}, nil
}

// MemoryLimiter is the in-process fallback window, also used when Redis is
// not configured at all.
type MemoryLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*memoryWindow
}

type memoryWindow struct {
	start time.Time
	count int
}

// NewMemoryLimiter builds an in-memory fixed-window limiter.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*memoryWindow),
	}
}

// Allow counts the key within its current window.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Evict stale windows opportunistically; key cardinality here is client
	// IPs, so the map stays small.
	for k, w := range l.windows {
		if now.Sub(w.start) > 2*l.window {
			delete(l.windows, k)
		}
	}

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = &memoryWindow{start: now}
		l.windows[key] = w
	}
	w.count++
	if w.count > l.limit {
		return Result{Allowed: false, RetryAfter: l.window - now.Sub(w.start)}, nil
	}
	return Result{Allowed: true, Remaining: l.limit - w.count}, nil
}
