package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-premium-contracts/internal/domain"
)

// PendingStats returns the size of the review queue and the newest
// updated_at in it (nil when empty). The HTTP layer derives the queue ETag
// from these.
func PendingStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	queue := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.Contract{}).Scopes(pendingScope)
	}
	if err = queue().Count(&count).Error; err != nil || count == 0 {
		return 0, nil, err
	}

	// ORDER BY/LIMIT rather than MAX(): SQLite returns MAX(datetime) as TEXT.
	var latest struct{ UpdatedAt time.Time }
	if err = queue().Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&latest).Error; err != nil {
		return 0, nil, err
	}
	return count, &latest.UpdatedAt, nil
}
