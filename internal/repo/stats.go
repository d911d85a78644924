package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/diljot111/easy-software/internal/domain"
)

// LogStats returns the number of ledger rows for a tenant and the time of
// the most recent one. It backs the ETag on the log listing. When the
// tenant has no rows, count is 0 and lastSentAt is nil.
func LogStats(ctx context.Context, db *gorm.DB, tenantID uint) (count int64, lastSentAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.AutomationLog{}).Where("tenant_id = ?", tenantID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
