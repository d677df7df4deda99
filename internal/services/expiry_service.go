// Package services – ExpiryService
//
// ExpiryService runs the two time-driven parts of the lifecycle:
//
//   - ScanExpiring produces at most one expiry reminder per contract per UTC
//     day for verified contracts ending soon. The reminder_log row and the
//     queued notifications are written in the same transaction; a unique
//     violation on reminder_log means today's reminder already exists.
//   - ExpireOverdue moves verified contracts whose end date has passed to
//     EXPIRED through the same conditional update used by adjudication.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-premium-contracts/internal/domain"
	"github.com/tbourn/go-premium-contracts/internal/observability"
	"github.com/tbourn/go-premium-contracts/internal/repo"
)

// ExpiryService scans for expiring and overdue contracts.
type ExpiryService struct {
	DB        *gorm.DB
	Channels  []domain.Channel
	Templates *Templates
	Now       func() time.Time
}

// ScanExpiring enqueues EXPIRY_REMINDER notifications for verified contracts
// whose end date falls within the next withinDays days, and returns the
// contracts that received a reminder in this call.
func (s *ExpiryService) ScanExpiring(ctx context.Context, withinDays int) ([]domain.Contract, error) {
	tr := otel.Tracer("services/ExpiryService")
	ctx, span := tr.Start(ctx, "ScanExpiring",
		trace.WithAttributes(attribute.Int("within_days", withinDays)),
	)
	defer span.End()

	if withinDays <= 0 {
		return nil, invalid("within_days", "must be positive")
	}

	now := nowFrom(s.Now)
	candidates, err := repo.ListContractsEndingBetween(ctx, s.DB, now, now.Add(time.Duration(withinDays)*24*time.Hour))
	if err != nil {
		return nil, err
	}

	day := repo.ReminderDay(now)
	channels := channelsOrDefault(s.Channels)
	reminded := make([]domain.Contract, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		done, err := repo.HasReminderLog(ctx, s.DB, c.ID, day)
		if err != nil {
			return reminded, err
		}
		if done {
			continue
		}
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := repo.CreateReminderLog(ctx, tx, c.ID, day, now); err != nil {
				return err
			}
			return repo.CreateNotifications(ctx, tx,
				buildNotifications(s.Templates, domain.KindExpiryReminder, c, "", channels, now))
		})
		if errors.Is(err, repo.ErrDuplicate) {
			continue
		}
		if err != nil {
			return reminded, err
		}
		reminded = append(reminded, *c)
		observability.ExpiryRemindersEnqueued.Inc()
	}

	span.SetAttributes(
		attribute.Int("expiry.candidates", len(candidates)),
		attribute.Int("expiry.reminded", len(reminded)),
	)
	return reminded, nil
}

// ExpireOverdue applies EXPIRE to every verified contract whose end date is
// at or before now and returns how many were expired. The CONTRACT_EXPIRED
// notification is enqueued after the state change commits; failing to
// enqueue it is logged and does not undo the expiry.
func (s *ExpiryService) ExpireOverdue(ctx context.Context) (int, error) {
	tr := otel.Tracer("services/ExpiryService")
	ctx, span := tr.Start(ctx, "ExpireOverdue")
	defer span.End()

	now := nowFrom(s.Now)
	overdue, err := repo.ListOverdueContracts(ctx, s.DB, now, 0)
	if err != nil {
		return 0, err
	}

	channels := channelsOrDefault(s.Channels)
	expired := 0
	for i := range overdue {
		c := &overdue[i]
		ch, err := Apply(c, EventExpire, ApplyInput{Now: now})
		if err != nil {
			continue
		}
		n, err := repo.UpdateContractIf(ctx, s.DB, c.ID, ch.Guard, ch.Updates)
		if err != nil {
			return expired, err
		}
		if n == 0 {
			// Cancelled or already expired concurrently.
			continue
		}
		expired++
		observability.ContractsExpired.Inc()

		c.Status = domain.StatusExpired
		if err := repo.CreateNotifications(ctx, s.DB,
			buildNotifications(s.Templates, ch.Kind, c, "", channels, now)); err != nil {
			log.Warn().Err(err).Str("contract_id", c.ID).Msg("expiry: enqueue expired notification")
		}
	}

	span.SetAttributes(attribute.Int("expiry.expired", expired))
	return expired, nil
}
