// Package handlers defines the error codes returned in the ErrorResponse
// envelope. Clients branch on the code; the message is for humans.
//
// Example:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "run_in_progress",
//	  "message": "a run for this tenant is already in progress"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Automation-specific:
	ErrCodeRunInProgress      = "run_in_progress"
	ErrCodeConnectionFailed   = "connection_failed"
	ErrCodeMissingCredentials = "missing_credentials"
	ErrCodeNoDatabase         = "no_database"
	ErrCodeUnknownEventType   = "unknown_event_type"
	ErrCodeInvalidMapping     = "invalid_mapping"
	ErrCodeMissingRecipient   = "missing_recipient"
	ErrCodeProviderError      = "provider_error"
)
