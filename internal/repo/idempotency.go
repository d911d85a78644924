// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for webhook
// deliveries, which give trigger endpoints safe-retry semantics.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diljot111/easy-software/internal/domain"
)

// GetDelivery returns a non-expired delivery record or ErrNotFound.
func GetDelivery(ctx context.Context, db *gorm.DB, tenantID uint, key string, now time.Time) (*domain.WebhookDelivery, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.WebhookDelivery
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND key = ? AND expires_at > ?", tenantID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateDelivery inserts a record and returns ErrDuplicate on unique violation.
// Expired records for the same key are purged first so the key can be reused.
func CreateDelivery(ctx context.Context, db *gorm.DB, tenantID uint, key string, status, queued, sent int, ttl time.Duration) (*domain.WebhookDelivery, error) {
	now := time.Now().UTC()
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND key = ? AND expires_at <= ?", tenantID, key, now).
		Delete(&domain.WebhookDelivery{}).Error
	if err != nil {
		return nil, fmt.Errorf("purge expired delivery: %w", err)
	}

	rec := &domain.WebhookDelivery{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Key:       key,
		Status:    status,
		Queued:    queued,
		Sent:      sent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
