// Package handlers provides the HTTP handlers of the automation API.
//
// Every failure is written as an ErrorResponse with a stable code from
// errors.go. Server-side failures are also logged through the request
// logger so the response's request_id can be traced.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diljot111/easy-software/internal/http/middleware"
	"github.com/diljot111/easy-software/internal/services"
	"github.com/diljot111/easy-software/internal/whatsapp"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go)
	Code string `json:"code" example:"not_found"`
	// Human-readable message
	Message string `json:"message" example:"tenant not found"`
}

// fail aborts with an ErrorResponse; 5xx responses are logged.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail, used by the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr maps service sentinels to a status and code.
func failErr(c *gin.Context, err error) {
	var apiErr *whatsapp.APIError
	switch {
	case errors.Is(err, services.ErrTenantNotFound),
		errors.Is(err, services.ErrRuleNotFound),
		errors.Is(err, services.ErrTemplateNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrRunInProgress):
		fail(c, http.StatusConflict, ErrCodeRunInProgress, err.Error())
	case errors.Is(err, services.ErrUnknownEventType):
		fail(c, http.StatusBadRequest, ErrCodeUnknownEventType, err.Error())
	case errors.Is(err, services.ErrInvalidRule):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidMapping):
		fail(c, http.StatusBadRequest, ErrCodeInvalidMapping, err.Error())
	case errors.Is(err, services.ErrMissingRecipient):
		fail(c, http.StatusUnprocessableEntity, ErrCodeMissingRecipient, err.Error())
	case errors.Is(err, services.ErrMissingCredentials):
		fail(c, http.StatusUnprocessableEntity, ErrCodeMissingCredentials, err.Error())
	case errors.Is(err, services.ErrNoDatabase):
		fail(c, http.StatusUnprocessableEntity, ErrCodeNoDatabase, err.Error())
	case errors.Is(err, services.ErrConnection):
		fail(c, http.StatusBadGateway, ErrCodeConnectionFailed, err.Error())
	case errors.As(err, &apiErr):
		fail(c, http.StatusBadGateway, ErrCodeProviderError, apiErr.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

func ok(c *gin.Context, status int, body any) { c.JSON(status, body) }

func noContent(c *gin.Context) { c.Status(http.StatusNoContent) }
