// Package ratelimit implements a fixed-window request counter. Each key gets
// N requests per window; the count resets when the window elapses, so bursts
// straddling a boundary can reach up to 2N within one window length.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// GlobalKey is the single key used when all traffic shares one window.
const GlobalKey = "global"

// Store counts hits per key within fixed windows.
type Store interface {
	// Incr records one hit for key. If the key's window has elapsed (or never
	// started) a new window of the given length starts now. It returns the
	// count including this hit and the instant the window ends.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Count     int64
	ResetAt   time.Time
}

// RetryAfter is how long until the window resets, rounded up to whole
// seconds and never less than one second.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait < time.Second {
		return time.Second
	}
	return ((wait + time.Second - 1) / time.Second) * time.Second
}

type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

func New(store Store, limit int, window time.Duration) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("ratelimit: nil store")
	}
	if limit < 1 {
		return nil, fmt.Errorf("ratelimit: limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("ratelimit: window must be positive, got %s", window)
	}
	return &Limiter{store: store, limit: limit, window: window}, nil
}

func (l *Limiter) Limit() int { return l.limit }

// Allow counts one request against key. The hit is recorded even when the
// request is rejected.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, resetAt, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit incr %q: %w", key, err)
	}

	remaining := int64(l.limit) - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: int(remaining),
		Count:     count,
		ResetAt:   resetAt,
	}, nil
}
