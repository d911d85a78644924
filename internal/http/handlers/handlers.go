// Package handlers provides the HTTP handlers of the automation API.
//
// Handlers are transport-thin: they parse path ids and bodies, call a
// service, and map sentinel errors through failErr. All service
// dependencies are interfaces so tests can swap in fakes.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/diljot111/easy-software/internal/domain"
	"github.com/diljot111/easy-software/internal/services"
	"github.com/diljot111/easy-software/internal/utils"
)

// Runner executes automation runs.
type Runner interface {
	RunTenant(ctx context.Context, tenantID uint) (services.RunResult, error)
	RunRule(ctx context.Context, ruleID uint) (services.RunResult, error)
	TestRule(ctx context.Context, ruleID uint, to string) (services.TestResult, error)
}

// Sweeper starts a background sweep of all tenants. Trigger reports false
// when a sweep is already running.
type Sweeper interface {
	Trigger() bool
}

// RuleManager manages rules and exposes the ledger.
type RuleManager interface {
	Create(ctx context.Context, tenantID uint, in services.RuleInput) (*domain.AutomationRule, error)
	List(ctx context.Context, tenantID uint) ([]domain.AutomationRule, error)
	Delete(ctx context.Context, id uint) error
	ListLogs(ctx context.Context, tenantID uint, page, pageSize int) ([]domain.AutomationLog, int64, error)
	LogStats(ctx context.Context, tenantID uint) (int64, *time.Time, error)
}

// TemplateManager syncs templates and edits their mappings.
type TemplateManager interface {
	Sync(ctx context.Context, tenantID uint) ([]domain.WhatsAppTemplate, error)
	List(ctx context.Context, tenantID uint) ([]domain.WhatsAppTemplate, error)
	UpdateMappings(ctx context.Context, tenantID uint, name string, mappings map[string]string) (*domain.WhatsAppTemplate, error)
}

// DeliveryStore remembers processed webhook deliveries. Find returns nil
// when the key is unknown or expired.
type DeliveryStore interface {
	Find(ctx context.Context, tenantID uint, key string) (*domain.WebhookDelivery, error)
	Save(ctx context.Context, tenantID uint, key string, status int, res services.RunResult) error
}

// Handlers groups the API endpoints.
type Handlers struct {
	runner     Runner
	sweeper    Sweeper
	rules      RuleManager
	templates  TemplateManager
	deliveries DeliveryStore
}

// New binds handlers to their services. deliveries may be nil, which turns
// webhook deduplication off.
func New(runner Runner, sweeper Sweeper, rules RuleManager, templates TemplateManager, deliveries DeliveryStore) *Handlers {
	return &Handlers{runner: runner, sweeper: sweeper, rules: rules, templates: templates, deliveries: deliveries}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// pathID reads a positive numeric path parameter, failing the request with
// 400 when it is malformed.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, valid := utils.ParseID(c.Param(name))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a positive integer")
	}
	return id, valid
}
