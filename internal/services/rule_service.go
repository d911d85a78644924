// Package services – RuleService
//
// RuleService manages a tenant's automation rules and exposes the dispatch
// ledger for reporting. Event types are validated when a rule is saved so
// that runs never meet a rule they cannot classify.
package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diljot111/easy-software/internal/domain"
	"github.com/diljot111/easy-software/internal/repo"
)

// RuleInput is the operator-supplied part of a rule.
type RuleInput struct {
	EventType    string
	TemplateName string
	IsActive     *bool
	DelayValue   int
	DelayUnit    string
}

// RuleService provides rule CRUD and ledger listing.
type RuleService struct {
	DB *gorm.DB
}

// Create validates in and stores a new rule for tenantID.
func (s *RuleService) Create(ctx context.Context, tenantID uint, in RuleInput) (*domain.AutomationRule, error) {
	in.EventType = strings.TrimSpace(in.EventType)
	in.TemplateName = strings.TrimSpace(in.TemplateName)
	if domain.ParseEventKind(in.EventType) == domain.EventUnknown {
		return nil, ErrUnknownEventType
	}
	if in.TemplateName == "" {
		return nil, ErrInvalidRule
	}
	if _, err := repo.GetTenant(ctx, s.DB, tenantID); err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	delay := in.DelayValue
	if delay < 0 {
		delay = 0
	}
	r := &domain.AutomationRule{
		TenantID:     tenantID,
		EventType:    in.EventType,
		TemplateName: in.TemplateName,
		IsActive:     active,
		DelayValue:   delay,
		DelayUnit:    strings.ToLower(strings.TrimSpace(in.DelayUnit)),
	}
	if err := repo.CreateRule(ctx, s.DB, r); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns the tenant's rules.
func (s *RuleService) List(ctx context.Context, tenantID uint) ([]domain.AutomationRule, error) {
	return repo.ListRules(ctx, s.DB, tenantID)
}

// Delete removes a rule.
func (s *RuleService) Delete(ctx context.Context, id uint) error {
	if err := repo.DeleteRule(ctx, s.DB, id); err != nil {
		if repo.IsNotFound(err) {
			return ErrRuleNotFound
		}
		return err
	}
	return nil
}

// ListLogs returns a page of the tenant's ledger, newest first, and the total.
// Invalid page or pageSize values fall back to 1 and 20.
func (s *RuleService) ListLogs(ctx context.Context, tenantID uint, page, pageSize int) ([]domain.AutomationLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountLogs(ctx, s.DB, tenantID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.AutomationLog{}, 0, nil
	}
	items, err := repo.ListLogsPage(ctx, s.DB, tenantID, (page-1)*pageSize, pageSize)
	return items, total, err
}

// LogStats returns the ledger size and newest entry time for the tenant.
func (s *RuleService) LogStats(ctx context.Context, tenantID uint) (int64, *time.Time, error) {
	return repo.LogStats(ctx, s.DB, tenantID)
}
