package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-premium-contracts/internal/domain"
)

// ReminderDay formats t as the UTC calendar day used to key reminder_log.
func ReminderDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// CreateReminderLog claims the (contractID, day) reminder slot. It returns
// ErrDuplicate when a reminder was already recorded for that day.
func CreateReminderLog(ctx context.Context, db *gorm.DB, contractID, day string, at time.Time) error {
	rec := &domain.ReminderLog{ContractID: contractID, Day: day, CreatedAt: at}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// HasReminderLog reports whether a reminder exists for (contractID, day).
func HasReminderLog(ctx context.Context, db *gorm.DB, contractID, day string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ReminderLog{}).
		Where("contract_id = ? AND day = ?", contractID, day).
		Count(&n).Error
	return n > 0, err
}
