// Package maintenance runs background housekeeping for the user store.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ErlanBelekov/authgate/internal/metrics"
)

type purgeStore interface {
	PurgeDeleted(ctx context.Context, cutoff time.Time) (int64, error)
}

// Purger permanently removes users that were soft-deleted more than
// retention ago, on a cron schedule.
type Purger struct {
	store     purgeStore
	schedule  cron.Schedule
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Purger)

func WithClock(now func() time.Time) Option {
	return func(p *Purger) { p.now = now }
}

// WithSchedule replaces the parsed cron expression.
func WithSchedule(s cron.Schedule) Option {
	return func(p *Purger) { p.schedule = s }
}

// NewPurger parses spec as a standard five-field cron expression.
func NewPurger(store purgeStore, spec string, retention time.Duration, logger *slog.Logger, opts ...Option) (*Purger, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse purge schedule %q: %w", spec, err)
	}
	p := &Purger{
		store:     store,
		schedule:  sched,
		retention: retention,
		logger:    logger.With("component", "purger"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start blocks, purging at every scheduled time until ctx is cancelled.
func (p *Purger) Start(ctx context.Context) {
	p.logger.Info("purger started", "retention", p.retention)

	for {
		next := p.schedule.Next(p.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("purger shut down")
			return
		case <-timer.C:
			if _, err := p.RunOnce(ctx); err != nil {
				p.logger.Error("purge cycle", "error", err)
			}
		}
	}
}

// RunOnce purges once and returns how many users were removed.
func (p *Purger) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.PurgeCycleDuration.Observe(time.Since(start).Seconds())
	}()

	cutoff := p.now().Add(-p.retention)
	n, err := p.store.PurgeDeleted(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge deleted users: %w", err)
	}

	metrics.UsersPurgedTotal.Add(float64(n))
	if n > 0 {
		p.logger.Info("purged deleted users", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
