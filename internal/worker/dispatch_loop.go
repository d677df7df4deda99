// Package worker hosts the background loops of the server: the notification
// dispatch loop and the cron scheduler for expiry reminders, the expiry sweep
// and idempotency cleanup.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-premium-contracts/internal/services"
)

// Drainer is the part of services.Dispatcher used by DispatchLoop.
type Drainer interface {
	DrainPending(ctx context.Context, batchSize int) (services.DispatchReport, error)
}

// DispatchLoop drains the outbox every Interval until its context ends.
type DispatchLoop struct {
	Drainer   Drainer
	Interval  time.Duration
	BatchSize int
	Logger    zerolog.Logger
}

// NewDispatchLoop returns a loop logging under the "dispatch" component.
func NewDispatchLoop(d Drainer, interval time.Duration, batchSize int) *DispatchLoop {
	return &DispatchLoop{
		Drainer:   d,
		Interval:  interval,
		BatchSize: batchSize,
		Logger:    log.With().Str("component", "dispatch").Logger(),
	}
}

// Run blocks until ctx is done. The first drain happens immediately; a slow
// drain delays the next tick instead of overlapping it.
func (l *DispatchLoop) Run(ctx context.Context) {
	interval := l.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	l.Logger.Info().Dur("interval", interval).Int("batch_size", l.BatchSize).Msg("dispatch loop started")
	for {
		l.Tick(ctx)
		select {
		case <-ctx.Done():
			l.Logger.Info().Msg("dispatch loop stopped")
			return
		case <-t.C:
		}
	}
}

// Tick runs one drain and logs its report.
func (l *DispatchLoop) Tick(ctx context.Context) {
	rep, err := l.Drainer.DrainPending(ctx, l.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.Logger.Error().Err(err).Msg("dispatch drain failed")
		return
	}
	if rep.Selected == 0 {
		return
	}
	l.Logger.Info().
		Int("selected", rep.Selected).
		Int("sent", rep.Sent).
		Int("retried", rep.Retried).
		Int("failed", rep.Failed).
		Int("skipped", rep.Skipped).
		Msg("dispatch drain")
}
