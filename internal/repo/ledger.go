// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file holds the dispatch ledger: the record of which
// (tenant, rule, external id) notifications have already been delivered.
//
// Error semantics:
//   - RecordSent returns ErrDuplicate when the unique index rejects a second
//     row for the same key; callers treat that as "already sent".
//   - Lookup failures are returned raw; the caller skips the affected row.
package repo

import (
	"context"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/diljot111/easy-software/internal/domain"
)

// ExternalID derives the ledger key for a source row. Recurring events
// (birthdays, anniversaries) are keyed per calendar year so they fire once
// a year instead of once ever.
func ExternalID(rowID string, recurring bool, year int) string {
	if recurring {
		return rowID + "_" + strconv.Itoa(year)
	}
	return rowID
}

// HasBeenSent reports whether a ledger row exists for the key.
func HasBeenSent(ctx context.Context, db *gorm.DB, tenantID, ruleID uint, externalID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.AutomationLog{}).
		Where("tenant_id = ? AND rule_id = ? AND external_id = ?", tenantID, ruleID, externalID).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordSent appends a ledger row after a successful dispatch.
func RecordSent(ctx context.Context, db *gorm.DB, tenantID, ruleID uint, externalID, status, messageID string) (*domain.AutomationLog, error) {
	rec := &domain.AutomationLog{
		TenantID:   tenantID,
		RuleID:     ruleID,
		ExternalID: externalID,
		Status:     status,
		MessageID:  messageID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// CountLogs returns the number of ledger rows for a tenant.
func CountLogs(ctx context.Context, db *gorm.DB, tenantID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.AutomationLog{}).
		Where("tenant_id = ?", tenantID).
		Count(&n).Error
	return n, err
}

// ListLogsPage returns a page of ledger rows for a tenant, newest first.
func ListLogsPage(ctx context.Context, db *gorm.DB, tenantID uint, offset, limit int) ([]domain.AutomationLog, error) {
	var out []domain.AutomationLog
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}
