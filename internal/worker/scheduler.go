package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-premium-contracts/internal/config"
	"github.com/tbourn/go-premium-contracts/internal/domain"
)

// Expirer is the part of services.ExpiryService used by Scheduler.
type Expirer interface {
	ScanExpiring(ctx context.Context, withinDays int) ([]domain.Contract, error)
	ExpireOverdue(ctx context.Context) (int, error)
}

// PurgeFunc deletes idempotency records that expired before now.
type PurgeFunc func(ctx context.Context, now time.Time) (int64, error)

// Scheduler runs the periodic expiry jobs on cron schedules.
type Scheduler struct {
	expiry Expirer
	purge  PurgeFunc
	cfg    config.ExpiryConfig
	now    func() time.Time

	// JobTimeout bounds a single job run.
	JobTimeout time.Duration

	cron   *cron.Cron
	logger zerolog.Logger
}

// NewScheduler builds a scheduler; purge may be nil to skip cleanup.
func NewScheduler(expiry Expirer, purge PurgeFunc, cfg config.ExpiryConfig) *Scheduler {
	logger := log.With().Str("component", "scheduler").Logger()
	cronLogger := cron.PrintfLogger(&logger)
	return &Scheduler{
		expiry:     expiry,
		purge:      purge,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
		JobTimeout: 5 * time.Minute,
		cron:       cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		logger:     logger,
	}
}

// Start registers the jobs and starts the cron runner. An invalid schedule
// is returned as an error and nothing is started.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name     string
		schedule string
		run      func()
	}{
		{"expiry-reminders", s.cfg.ScanSchedule, s.RunReminders},
		{"expiry-sweep", s.cfg.SweepSchedule, s.RunSweep},
	}
	if s.purge != nil {
		jobs = append(jobs, struct {
			name     string
			schedule string
			run      func()
		}{"idempotency-purge", s.cfg.PurgeSchedule, s.RunPurge})
	}

	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.schedule, j.run); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", j.name, j.schedule, err)
		}
		s.logger.Info().Str("job", j.name).Str("schedule", j.schedule).Msg("job scheduled")
	}
	s.cron.Start()
	return nil
}

// Stop stops the runner; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

func (s *Scheduler) jobContext() (context.Context, context.CancelFunc) {
	if s.JobTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), s.JobTimeout)
}

// RunReminders enqueues expiry reminders for contracts ending within
// ReminderDays.
func (s *Scheduler) RunReminders() {
	ctx, cancel := s.jobContext()
	defer cancel()

	reminded, err := s.expiry.ScanExpiring(ctx, s.cfg.ReminderDays)
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry reminder scan failed")
		return
	}
	s.logger.Info().Int("reminded", len(reminded)).Int("within_days", s.cfg.ReminderDays).Msg("expiry reminder scan")
}

// RunSweep expires verified contracts past their end date.
func (s *Scheduler) RunSweep() {
	ctx, cancel := s.jobContext()
	defer cancel()

	n, err := s.expiry.ExpireOverdue(ctx)
	if err != nil {
		s.logger.Error().Err(err).Int("expired", n).Msg("expiry sweep failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int("expired", n).Msg("expiry sweep")
	}
}

// RunPurge removes expired idempotency records.
func (s *Scheduler) RunPurge() {
	ctx, cancel := s.jobContext()
	defer cancel()

	n, err := s.purge(ctx, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("idempotency purge failed")
		return
	}
	s.logger.Debug().Int64("purged", n).Msg("idempotency purge")
}
