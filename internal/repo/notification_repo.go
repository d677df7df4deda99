// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Notification outbox.
//
// Notifications are appended by the adjudication and expiry flows (usually
// inside the same transaction as the contract change) and mutated only by the
// dispatcher. A dispatcher leases the rows it is about to send by pushing
// next_attempt_at forward. Outcome writes are conditional on
// delivery_status = PENDING so that a row already finalized elsewhere is
// never overwritten.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-premium-contracts/internal/domain"
)

// CreateNotifications inserts ns in one statement, assigning IDs, PENDING
// status and timestamps where unset. An empty slice is a no-op.
func CreateNotifications(ctx context.Context, db *gorm.DB, ns []domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range ns {
		if ns[i].ID == "" {
			ns[i].ID = uuid.NewString()
		}
		if ns[i].DeliveryStatus == "" {
			ns[i].DeliveryStatus = domain.DeliveryPending
		}
		if ns[i].CreatedAt.IsZero() {
			ns[i].CreatedAt = now
		}
		if ns[i].UpdatedAt.IsZero() {
			ns[i].UpdatedAt = ns[i].CreatedAt
		}
	}
	return db.WithContext(ctx).Create(&ns).Error
}

// GetNotification fetches a notification by ID, or ErrNotFound.
func GetNotification(ctx context.Context, db *gorm.DB, id string) (*domain.Notification, error) {
	var n domain.Notification
	if err := db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func dueScope(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("delivery_status = ?", domain.DeliveryPending).
			Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", now)
	}
}

// ListDueNotifications returns up to limit PENDING notifications whose retry
// time has come, oldest first.
func ListDueNotifications(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := db.WithContext(ctx).
		Scopes(dueScope(now)).
		Order("created_at asc").
		Order("id asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ClaimDueNotifications selects up to limit due notifications, oldest first,
// and leases each one by moving its next_attempt_at to now+lease, so other
// dispatchers skip it until the outcome is written or the lease runs out.
// On Postgres the selection also takes FOR UPDATE SKIP LOCKED. Only rows
// this call actually leased are returned.
func ClaimDueNotifications(ctx context.Context, db *gorm.DB, now time.Time, lease time.Duration, limit int) ([]domain.Notification, error) {
	var claimed []domain.Notification
	until := now.Add(lease).Truncate(time.Microsecond)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sel := tx
		if tx.Dialector.Name() == "postgres" {
			sel = tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		due, err := ListDueNotifications(ctx, sel, now, limit)
		if err != nil {
			return err
		}
		for i := range due {
			res := tx.Model(&domain.Notification{}).
				Where("id = ?", due[i].ID).
				Scopes(dueScope(now)).
				UpdateColumn("next_attempt_at", until)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				due[i].NextAttemptAt = &until
				claimed = append(claimed, due[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// ReleaseNotificationClaims makes leased rows due again. A row is released
// only while it is still PENDING under the lease ending at until.
func ReleaseNotificationClaims(ctx context.Context, db *gorm.DB, ids []string, until time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id IN ? AND delivery_status = ? AND next_attempt_at = ?", ids, domain.DeliveryPending, until).
		UpdateColumn("next_attempt_at", nil)
	return res.RowsAffected, res.Error
}

// ListContractNotifications returns every notification about contractID in
// creation order.
func ListContractNotifications(ctx context.Context, db *gorm.DB, contractID string) ([]domain.Notification, error) {
	var out []domain.Notification
	err := db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at asc").
		Order("id asc").
		Find(&out).Error
	return out, err
}

// CountNotificationsByStatus returns how many notifications are in status.
func CountNotificationsByStatus(ctx context.Context, db *gorm.DB, status domain.DeliveryStatus) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("delivery_status = ?", status).
		Count(&total).Error
	return total, err
}

// ListNotificationsByStatusPage returns a page of notifications in status,
// most recently updated first.
func ListNotificationsByStatusPage(ctx context.Context, db *gorm.DB, status domain.DeliveryStatus, offset, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := db.WithContext(ctx).
		Where("delivery_status = ?", status).
		Order("updated_at desc").
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkNotificationSent finalizes a PENDING notification as SENT at sentAt.
// It reports whether the row was still PENDING.
func MarkNotificationSent(ctx context.Context, db *gorm.DB, id string, attempts int, sentAt time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND delivery_status = ?", id, domain.DeliveryPending).
		Updates(map[string]any{
			"delivery_status": domain.DeliverySent,
			"attempts":        attempts,
			"sent_at":         sentAt,
			"next_attempt_at": nil,
			"updated_at":      sentAt,
		})
	return res.RowsAffected == 1, res.Error
}

// MarkNotificationFailure records a failed delivery attempt. When terminal is
// true the row becomes FAILED; otherwise it stays PENDING until nextAttempt.
// It reports whether the row was still PENDING.
func MarkNotificationFailure(ctx context.Context, db *gorm.DB, id string, attempts int, lastErr string, terminal bool, nextAttempt *time.Time, at time.Time) (bool, error) {
	status := domain.DeliveryPending
	if terminal {
		status = domain.DeliveryFailed
		nextAttempt = nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND delivery_status = ?", id, domain.DeliveryPending).
		Updates(map[string]any{
			"delivery_status": status,
			"attempts":        attempts,
			"last_error":      lastErr,
			"next_attempt_at": nextAttempt,
			"updated_at":      at,
		})
	return res.RowsAffected == 1, res.Error
}

// RequeueNotification moves a FAILED notification back to PENDING with a
// fresh attempt budget. It returns the number of rows changed.
func RequeueNotification(ctx context.Context, db *gorm.DB, id string, at time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND delivery_status = ?", id, domain.DeliveryFailed).
		Updates(map[string]any{
			"delivery_status": domain.DeliveryPending,
			"attempts":        0,
			"next_attempt_at": nil,
			"updated_at":      at,
		})
	return res.RowsAffected, res.Error
}
