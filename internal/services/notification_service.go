package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-premium-contracts/internal/domain"
	"github.com/tbourn/go-premium-contracts/internal/repo"
)

// NotificationService gives operators visibility into the outbox.
type NotificationService struct {
	DB  *gorm.DB
	Now func() time.Time
}

// ListByStatus returns a page of notifications in status, most recently
// updated first, and the total count.
func (s *NotificationService) ListByStatus(ctx context.Context, status domain.DeliveryStatus, page, pageSize int) ([]domain.Notification, int64, error) {
	switch status {
	case domain.DeliveryPending, domain.DeliverySent, domain.DeliveryFailed:
	default:
		return nil, 0, invalid("status", "must be one of PENDING, SENT, FAILED")
	}
	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountNotificationsByStatus(ctx, s.DB, status)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Notification{}, 0, nil
	}
	items, err := repo.ListNotificationsByStatusPage(ctx, s.DB, status, offset, limit)
	return items, total, err
}

// ForContract returns every notification produced for contractID.
func (s *NotificationService) ForContract(ctx context.Context, contractID string) ([]domain.Notification, error) {
	return repo.ListContractNotifications(ctx, s.DB, contractID)
}

// Requeue returns a FAILED notification to PENDING with a fresh attempt
// budget.
func (s *NotificationService) Requeue(ctx context.Context, id string) (*domain.Notification, error) {
	var out *domain.Notification
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetNotification(ctx, tx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNotificationNotFound
			}
			return err
		}
		n, err := repo.RequeueNotification(ctx, tx, id, nowFrom(s.Now))
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotRequeueable
		}
		out, err = repo.GetNotification(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
