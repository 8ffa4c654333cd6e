// Package ratelimit implements fixed-window request rate limiting for the
// unauthenticated surface (login, registration). Metered API quotas are a
// separate concern handled by pkg/metering.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidConfig    = errors.New("invalid rate limit configuration")
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)

// Config defines one fixed window: at most Limit requests per Window.
type Config struct {
	Limit  int
	Window time.Duration
}

func (c Config) validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, c.Limit)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %v", ErrInvalidConfig, c.Window)
	}
	return nil
}

// Result reports the outcome of one rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait, zero when allowed.
func (r Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store counts hits per key within the current window. Incr returns the
// count including the current hit and the moment the window resets.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Limiter applies a fixed-window policy on top of a Store.
type Limiter struct {
	store  Store
	config Config
}

// New creates a Limiter. The store carries the counters, so one store can
// back several limiters with different policies as long as keys differ.
func New(store Store, config Config) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Limiter{store: store, config: config}, nil
}

// Allow records a hit for key and reports whether it stays within the
// window's limit.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	count, resetAt, err := l.store.Incr(ctx, key, l.config.Window)
	if err != nil {
		return Result{}, errors.Join(ErrStoreUnavailable, err)
	}

	remaining := l.config.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(l.config.Limit),
		Limit:     l.config.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
