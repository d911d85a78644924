// Package services holds the automation business logic: tenant runs,
// rule and template management. This file centralizes the service-level
// error values so handlers can map them to HTTP results consistently.
package services

import (
	"errors"

	"github.com/diljot111/easy-software/internal/whatsapp"
)

var (
	// ErrTenantNotFound indicates the tenant id does not exist.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrRuleNotFound indicates the rule id does not exist.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrTemplateNotFound indicates no synced template has the given name.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrUnknownEventType is returned when a rule's event type maps to no
	// known event kind.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrInvalidRule is returned for rules missing a template name.
	ErrInvalidRule = errors.New("rule requires a template name")

	// ErrRunInProgress is returned when another run holds the tenant's lock.
	ErrRunInProgress = errors.New("a run for this tenant is already in progress")

	// ErrLockLost is returned when a run's lock expired mid-queue and could
	// not be refreshed. The rest of the queue is left for the next run.
	ErrLockLost = errors.New("run lock lost before the queue drained")

	// ErrNoDatabase is returned for tenants without a database host.
	ErrNoDatabase = errors.New("tenant has no database configured")

	// ErrConnection wraps failures to reach the tenant's database.
	ErrConnection = errors.New("tenant database connection failed")

	// ErrMissingCredentials is returned when the tenant lacks WhatsApp
	// sender or business account credentials.
	ErrMissingCredentials = whatsapp.ErrMissingCredentials

	// ErrMissingRecipient is returned for event rows with no phone number.
	ErrMissingRecipient = errors.New("event row has no recipient phone")

	// ErrInvalidMapping is returned when a mapping slot is outside the
	// template's variable range.
	ErrInvalidMapping = errors.New("mapping slot out of range")
)
