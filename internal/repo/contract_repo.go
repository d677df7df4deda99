// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Contract model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition.
//
// Error semantics:
//   - When a contract is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Writes that change the lifecycle of a contract go through UpdateContractIf,
// a single conditional UPDATE whose WHERE clause carries the expected prior
// state. Callers inspect the returned row count to learn whether they won.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-premium-contracts/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ContractGuard is the state precondition of a conditional contract update.
// Empty slices place no constraint on the corresponding column.
type ContractGuard struct {
	Statuses []domain.ContractStatus
	Payments []domain.PaymentStatus
	// EndBefore, when set, additionally requires end_date <= EndBefore.
	EndBefore *time.Time
}

// CreateContract inserts c, assigning a UUID when c.ID is empty and UTC
// timestamps when they are zero.
func CreateContract(ctx context.Context, db *gorm.DB, c *domain.Contract) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	return db.WithContext(ctx).Create(c).Error
}

// GetContract fetches a contract by ID, or ErrNotFound.
func GetContract(ctx context.Context, db *gorm.DB, id string) (*domain.Contract, error) {
	var c domain.Contract
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetUserContract fetches a contract by ID ensuring it belongs to userID.
func GetUserContract(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Contract, error) {
	var c domain.Contract
	if err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CountUserContracts returns the number of contracts owned by userID.
func CountUserContracts(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Contract{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListUserContractsPage returns a page of userID's contracts, newest first.
func ListUserContractsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Contract, error) {
	var out []domain.Contract
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// pendingScope filters contracts awaiting review.
func pendingScope(db *gorm.DB) *gorm.DB {
	return db.Where("payment_status = ? AND status = ?", domain.PaymentPending, domain.StatusActive)
}

// CountPendingContracts returns the size of the admin review queue.
func CountPendingContracts(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Contract{}).
		Scopes(pendingScope).
		Count(&total).Error
	return total, err
}

// ListPendingContractsPage returns a page of the review queue, oldest first
// so that the longest-waiting payments are reviewed first.
func ListPendingContractsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Contract, error) {
	var out []domain.Contract
	err := db.WithContext(ctx).
		Scopes(pendingScope).
		Order("created_at asc").
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// verifiedScope filters contracts whose payment was verified and that are
// neither cancelled nor expired.
func verifiedScope(db *gorm.DB) *gorm.DB {
	return db.Where("payment_status = ? AND status = ?", domain.PaymentVerified, domain.StatusActive)
}

// LatestEntitledContract returns the verified contract of userID with the
// latest end_date still after now, or ErrNotFound when there is none.
func LatestEntitledContract(ctx context.Context, db *gorm.DB, userID string, now time.Time) (*domain.Contract, error) {
	var c domain.Contract
	err := db.WithContext(ctx).
		Scopes(verifiedScope).
		Where("user_id = ? AND end_date IS NOT NULL AND end_date > ?", userID, now).
		Order("end_date desc").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContractsEndingBetween returns verified contracts whose end_date is
// within [from, to], soonest first.
func ListContractsEndingBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.Contract, error) {
	var out []domain.Contract
	err := db.WithContext(ctx).
		Scopes(verifiedScope).
		Where("end_date >= ? AND end_date <= ?", from, to).
		Order("end_date asc").
		Find(&out).Error
	return out, err
}

// ListOverdueContracts returns up to limit verified contracts whose end_date
// is at or before now. A limit <= 0 means no limit.
func ListOverdueContracts(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Contract, error) {
	var out []domain.Contract
	q := db.WithContext(ctx).
		Scopes(verifiedScope).
		Where("end_date IS NOT NULL AND end_date <= ?", now).
		Order("end_date asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// UpdateContractIf applies updates to contract id only when the row matches
// guard, in one UPDATE statement. It returns the number of rows changed
// (0 or 1); a zero count means the precondition no longer held or the
// contract does not exist.
func UpdateContractIf(ctx context.Context, db *gorm.DB, id string, guard ContractGuard, updates map[string]any) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Contract{}).Where("id = ?", id)
	if len(guard.Statuses) > 0 {
		q = q.Where("status IN ?", guard.Statuses)
	}
	if len(guard.Payments) > 0 {
		q = q.Where("payment_status IN ?", guard.Payments)
	}
	if guard.EndBefore != nil {
		q = q.Where("end_date IS NOT NULL AND end_date <= ?", *guard.EndBefore)
	}
	res := q.Updates(updates)
	return res.RowsAffected, res.Error
}
