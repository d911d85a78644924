// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for tenants and
// their automation rules.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. Missing rows surface as ErrNotFound.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/diljot111/easy-software/internal/domain"
)

// CreateTenant inserts a tenant.
func CreateTenant(ctx context.Context, db *gorm.DB, t *domain.Tenant) error {
	return db.WithContext(ctx).Create(t).Error
}

// GetTenant fetches a tenant without its rules.
func GetTenant(ctx context.Context, db *gorm.DB, id uint) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTenantWithActiveRules fetches a tenant and preloads its active rules in
// id order, which is the order rules are evaluated in.
func GetTenantWithActiveRules(ctx context.Context, db *gorm.DB, id uint) (*domain.Tenant, error) {
	var t domain.Tenant
	err := db.WithContext(ctx).
		Preload("Rules", func(tx *gorm.DB) *gorm.DB {
			return tx.Where("is_active = ?", true).Order("id ASC")
		}).
		First(&t, id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListSweepTenants returns ids of tenants that have a database host, in id order.
func ListSweepTenants(ctx context.Context, db *gorm.DB) ([]uint, error) {
	var ids []uint
	err := db.WithContext(ctx).Model(&domain.Tenant{}).
		Where("db_host IS NOT NULL AND TRIM(db_host) <> ''").
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// CreateRule inserts an automation rule. Inactive rules need a second write
// because GORM substitutes the column default for a zero-valued bool.
func CreateRule(ctx context.Context, db *gorm.DB, r *domain.AutomationRule) error {
	active := r.IsActive
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return err
	}
	if !active {
		r.IsActive = false
		return db.WithContext(ctx).Model(r).Update("is_active", false).Error
	}
	return nil
}

// GetRule fetches a rule by id.
func GetRule(ctx context.Context, db *gorm.DB, id uint) (*domain.AutomationRule, error) {
	var r domain.AutomationRule
	if err := db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRules returns every rule of a tenant, active or not, in id order.
func ListRules(ctx context.Context, db *gorm.DB, tenantID uint) ([]domain.AutomationRule, error) {
	var out []domain.AutomationRule
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// DeleteRule removes a rule. Returns ErrNotFound if nothing was deleted.
func DeleteRule(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.AutomationRule{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
