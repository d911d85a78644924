package domain

import "time"

// WebhookDelivery records a processed webhook trigger keyed by
// (tenant_id, key), where key is the caller's Idempotency-Key. Provider
// retries of the same delivery are answered from this record instead of
// re-running the tenant.
type WebhookDelivery struct {
	ID        string    `json:"id"         gorm:"size:36;primaryKey"`
	TenantID  uint      `json:"tenant_id"  gorm:"not null;uniqueIndex:ux_delivery_tenant_key,priority:1"`
	Key       string    `json:"key"        gorm:"size:128;not null;uniqueIndex:ux_delivery_tenant_key,priority:2"`
	Status    int       `json:"status"     gorm:"not null"`
	Queued    int       `json:"queued"     gorm:"not null;default:0"`
	Sent      int       `json:"sent"       gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (WebhookDelivery) TableName() string { return "webhook_deliveries" }
