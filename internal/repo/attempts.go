package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diljot111/easy-software/internal/domain"
)

// Attempts returns how many failed dispatches were recorded for the key.
// A missing row means zero attempts.
func Attempts(ctx context.Context, db *gorm.DB, tenantID, ruleID uint, externalID string) (int, error) {
	var rec domain.DispatchAttempt
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND rule_id = ? AND external_id = ?", tenantID, ruleID, externalID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Attempts, nil
}

// RecordFailure increments the attempt counter for the key, creating the
// row on first failure.
func RecordFailure(ctx context.Context, db *gorm.DB, tenantID, ruleID uint, externalID, reason string) error {
	now := time.Now().UTC()
	if len(reason) > 1000 {
		reason = reason[:1000]
	}
	rec := &domain.DispatchAttempt{
		TenantID:   tenantID,
		RuleID:     ruleID,
		ExternalID: externalID,
		Attempts:   1,
		LastError:  reason,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "rule_id"}, {Name: "external_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"attempts":   gorm.Expr("dispatch_attempts.attempts + 1"),
			"last_error": reason,
			"updated_at": now,
		}),
	}).Create(rec).Error
}
