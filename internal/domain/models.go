// Package domain defines the persistence models for tenants, automation
// rules, WhatsApp templates and the dispatch ledger. These types are mapped
// with GORM and form the core data layer of the automation engine.
package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Tenant is one business (salon, gym, clinic) whose legacy MySQL database
// is polled for events and whose WhatsApp Business account sends the
// notifications.
//
// Fields:
//   - DBHost..DBPort: connection details of the tenant's own database.
//     Tenants without a host are skipped by the sweep.
//   - WABAID: WhatsApp Business account id used for template listing.
//   - PhoneNumberID / MetaToken: Cloud API sender credentials.
//   - BaseURL: invoice viewer base used to build bill links.
type Tenant struct {
	ID            uint      `json:"id"              gorm:"primaryKey"`
	BusinessName  string    `json:"business_name"   gorm:"size:255"`
	BusinessPhone string    `json:"business_phone"  gorm:"size:32"`
	DBHost        string    `json:"db_host"         gorm:"size:255;index"`
	DBUser        string    `json:"db_user"         gorm:"size:128"`
	DBPassword    string    `json:"-"               gorm:"size:255"`
	DBName        string    `json:"db_name"         gorm:"size:128"`
	DBPort        int       `json:"db_port"         gorm:"not null;default:3306"`
	WABAID        string    `json:"waba_id"         gorm:"column:waba_id;size:64"`
	PhoneNumberID string    `json:"phone_number_id" gorm:"size:64"`
	MetaToken     string    `json:"-"               gorm:"type:text"`
	BaseURL       string    `json:"base_url"        gorm:"size:512"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Rules []AutomationRule `json:"rules,omitempty" gorm:"foreignKey:TenantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Tenant.
func (Tenant) TableName() string { return "tenants" }

// HasDatabase reports whether the tenant has a database host configured.
func (t Tenant) HasDatabase() bool { return strings.TrimSpace(t.DBHost) != "" }

// HasSender reports whether Cloud API credentials are present.
func (t Tenant) HasSender() bool {
	return strings.TrimSpace(t.PhoneNumberID) != "" && strings.TrimSpace(t.MetaToken) != ""
}

// AutomationRule binds an event type to a WhatsApp template for a tenant.
// EventType keeps the text the operator entered; it is parsed into an
// EventKind when the rule is saved and again on every run.
type AutomationRule struct {
	ID           uint      `json:"id"            gorm:"primaryKey"`
	TenantID     uint      `json:"tenant_id"     gorm:"not null;index:idx_rules_tenant_active,priority:1"`
	EventType    string    `json:"event_type"    gorm:"size:128;not null"`
	TemplateName string    `json:"template_name" gorm:"size:255;not null"`
	IsActive     bool      `json:"is_active"     gorm:"not null;default:true;index:idx_rules_tenant_active,priority:2"`
	DelayValue   int       `json:"delay_value"   gorm:"not null;default:0"`
	DelayUnit    string    `json:"delay_unit"    gorm:"size:16"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for AutomationRule.
func (AutomationRule) TableName() string { return "automation_rules" }

// Kind parses the rule's free-text event type.
func (r AutomationRule) Kind() EventKind { return ParseEventKind(r.EventType) }

// WhatsAppTemplate is a provider-approved message template synced from the
// tenant's business account. Mappings assign slot numbers ("1", "2", ...)
// to semantic keys (e.g. "client.name") or literal text.
type WhatsAppTemplate struct {
	ID              uint              `json:"id"               gorm:"primaryKey"`
	TenantID        uint              `json:"tenant_id"        gorm:"not null;uniqueIndex:ux_template_tenant_name,priority:1"`
	Name            string            `json:"name"             gorm:"size:255;not null;uniqueIndex:ux_template_tenant_name,priority:2"`
	Status          string            `json:"status"           gorm:"size:32"`
	Category        string            `json:"category"         gorm:"size:64"`
	Language        string            `json:"language"         gorm:"size:16"`
	Components      datatypes.JSON    `json:"components"`
	HeaderVariables int               `json:"header_variables" gorm:"not null;default:0"`
	BodyVariables   int               `json:"body_variables"   gorm:"not null;default:0"`
	TotalVariables  int               `json:"total_variables"  gorm:"not null;default:0"`
	Mappings        datatypes.JSONMap `json:"mappings"`
	IsMapped        bool              `json:"is_mapped"        gorm:"not null;default:false"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TableName returns the database table name for WhatsAppTemplate.
func (WhatsAppTemplate) TableName() string { return "whatsapp_templates" }

// Ledger statuses.
const (
	StatusSent = "SENT"
)

// AutomationLog records a successful dispatch. The unique index makes the
// ledger the authority on "already sent" even when two runs overlap.
type AutomationLog struct {
	ID         uint      `json:"id"          gorm:"primaryKey"`
	TenantID   uint      `json:"tenant_id"   gorm:"not null;uniqueIndex:ux_log_tenant_rule_ext,priority:1"`
	RuleID     uint      `json:"rule_id"     gorm:"not null;uniqueIndex:ux_log_tenant_rule_ext,priority:2"`
	ExternalID string    `json:"external_id" gorm:"size:128;not null;uniqueIndex:ux_log_tenant_rule_ext,priority:3"`
	Status     string    `json:"status"      gorm:"size:16;not null"`
	MessageID  string    `json:"message_id"  gorm:"size:128"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index"`
}

// TableName returns the database table name for AutomationLog.
func (AutomationLog) TableName() string { return "automation_log" }

// DispatchAttempt counts failed sends for one (tenant, rule, external id).
// Jobs whose attempts reach the configured maximum are no longer enqueued.
type DispatchAttempt struct {
	ID         uint      `json:"id"          gorm:"primaryKey"`
	TenantID   uint      `json:"tenant_id"   gorm:"not null;uniqueIndex:ux_attempt_tenant_rule_ext,priority:1"`
	RuleID     uint      `json:"rule_id"     gorm:"not null;uniqueIndex:ux_attempt_tenant_rule_ext,priority:2"`
	ExternalID string    `json:"external_id" gorm:"size:128;not null;uniqueIndex:ux_attempt_tenant_rule_ext,priority:3"`
	Attempts   int       `json:"attempts"    gorm:"not null;default:0"`
	LastError  string    `json:"last_error"  gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for DispatchAttempt.
func (DispatchAttempt) TableName() string { return "dispatch_attempts" }
