package service

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
)

// RateLimitStore counts hits per key inside a fixed window. Hit returns the count including
// the current hit and the instant the window resets.
type RateLimitStore interface {
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error)
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// MemoryRateLimitStore keeps counters in process memory. Counters are best effort and are
// not shared between replicas.
type MemoryRateLimitStore struct {
	mu      sync.Mutex
	windows map[string]rateWindow
}

// sweepThreshold bounds how many keys accumulate before stale windows are dropped.
const sweepThreshold = 1024

// NewMemoryRateLimitStore builds an empty store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{windows: make(map[string]rateWindow)}
}

// Hit records one call for key. The first hit after resetAt starts a new window.
func (s *MemoryRateLimitStore) Hit(_ context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.windows) >= sweepThreshold {
		for k, w := range s.windows {
			if !now.Before(w.resetAt) {
				delete(s.windows, k)
			}
		}
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = rateWindow{resetAt: now.Add(window)}
	}
	w.count++
	s.windows[key] = w
	return w.count, w.resetAt, nil
}

// RateLimiterConfig caps calls per key.
type RateLimiterConfig struct {
	Limit  int
	Window time.Duration
}

// RateLimiter applies a fixed window limit per key, typically the mentor id.
type RateLimiter struct {
	store   RateLimitStore
	limit   int
	window  time.Duration
	clock   Clock
	metrics *MetricsService
	logger  *zap.Logger
}

// NewRateLimiter constructs a limiter. Defaults are 10 calls per minute.
func NewRateLimiter(store RateLimitStore, cfg RateLimiterConfig, metrics *MetricsService, logger *zap.Logger) *RateLimiter {
	if store == nil {
		store = NewMemoryRateLimitStore()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		store:   store,
		limit:   cfg.Limit,
		window:  cfg.Window,
		clock:   systemClock,
		metrics: metrics,
		logger:  logger,
	}
}

// Allow records a call for key and returns a RATE_LIMITED error once the limit is exceeded
// inside the current window. A failing store lets the call through.
func (l *RateLimiter) Allow(ctx context.Context, key string) error {
	now := l.clock()
	count, resetAt, err := l.store.Hit(ctx, key, l.window, now)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, allowing request", zap.String("key", key), zap.Error(err))
		return nil
	}
	if count <= l.limit {
		return nil
	}

	retryAfter := int(math.Ceil(resetAt.Sub(now).Seconds()))
	l.metrics.RecordRateLimited()
	l.logger.Info("rate limit exceeded",
		zap.String("key", key),
		zap.Int("count", count),
		zap.Int("retry_after_seconds", retryAfter),
	)
	return appErrors.RateLimited(retryAfter)
}
