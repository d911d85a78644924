// Automation trigger handlers.
//
//   - GET|POST /cron/sync                    (background sweep)
//   - POST     /tenants/{id}/run             (synchronous tenant run)
//   - POST     /webhooks/tenants/{id}/events (tenant run, deduplicated)
//   - POST     /rules/{id}/run               (single rule run)
//   - POST     /rules/{id}/test              (one test send)
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/diljot111/easy-software/internal/http/middleware"
)

// SweepResponse reports whether a sweep was started.
type SweepResponse struct {
	Status string `json:"status" example:"started"`
}

// WebhookResponse is the result of a webhook-triggered run.
type WebhookResponse struct {
	TenantID uint `json:"tenant_id"`
	Queued   int  `json:"queued"`
	Sent     int  `json:"sent"`
	Replayed bool `json:"replayed"`
}

// TestRuleRequest optionally overrides the recipient of a test send.
type TestRuleRequest struct {
	To string `json:"to" example:"919876543210"`
}

// runContext keeps a synchronous run alive after the client goes away.
// Request values such as the request id and trace span carry over.
func runContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// CronSync godoc
// @ID          cronSync
// @Summary     Start a sweep of all tenants
// @Description Starts a background run for every tenant with a database. Overlapping calls do not start a second sweep.
// @Tags        Automation
// @Produce     json
// @Security    BearerAuth
// @Success     202  {object} handlers.SweepResponse "Sweep started"
// @Success     200  {object} handlers.SweepResponse "Sweep already running"
// @Failure     401  {object} handlers.ErrorResponse
// @Router      /cron/sync [post]
func (h *Handlers) CronSync(c *gin.Context) {
	if h.sweeper.Trigger() {
		ok(c, http.StatusAccepted, SweepResponse{Status: "started"})
		return
	}
	ok(c, http.StatusOK, SweepResponse{Status: "already_running"})
}

// RunTenant godoc
// @ID          runTenant
// @Summary     Run a tenant's automations now
// @Tags        Automation
// @Produce     json
// @Security    BearerAuth
// @Param       id   path     int  true  "Tenant ID"
// @Success     200  {object} services.RunResult
// @Failure     404  {object} handlers.ErrorResponse "Unknown tenant"
// @Failure     409  {object} handlers.ErrorResponse "Run already in progress"
// @Failure     502  {object} handlers.ErrorResponse "Tenant database unreachable"
// @Failure     401  {object} handlers.ErrorResponse
// @Router      /tenants/{id}/run [post]
func (h *Handlers) RunTenant(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	res, err := h.runner.RunTenant(runContext(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// TenantWebhook godoc
// @ID          tenantWebhook
// @Summary     Trigger a tenant run from an external event
// @Description Runs the tenant synchronously. Deliveries repeating an Idempotency-Key are answered from the first result without a new run.
// @Tags        Automation
// @Produce     json
// @Security    BearerAuth
// @Param       id               path    int     true   "Tenant ID"
// @Param       Idempotency-Key  header  string  false  "Delivery key"
// @Success     200  {object} handlers.WebhookResponse
// @Failure     400  {object} handlers.ErrorResponse
// @Failure     409  {object} handlers.ErrorResponse "Run already in progress"
// @Router      /webhooks/tenants/{id}/events [post]
func (h *Handlers) TenantWebhook(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	ctx := runContext(c)
	key, hasKey := middleware.GetIdempotencyKey(c)
	hasKey = hasKey && h.deliveries != nil

	if hasKey {
		rec, err := h.deliveries.Find(ctx, id, key)
		if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("delivery lookup failed")
		} else if rec != nil {
			c.Header("Idempotency-Replayed", "true")
			ok(c, rec.Status, WebhookResponse{TenantID: id, Queued: rec.Queued, Sent: rec.Sent, Replayed: true})
			return
		}
	}

	res, err := h.runner.RunTenant(ctx, id)
	if err != nil {
		// Failed runs are not recorded so the caller's retry runs again.
		failErr(c, err)
		return
	}
	if hasKey {
		if err := h.deliveries.Save(ctx, id, key, http.StatusOK, res); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("delivery not recorded")
		}
	}
	ok(c, http.StatusOK, WebhookResponse{TenantID: id, Queued: res.Queued, Sent: res.Sent})
}

// RunRule godoc
// @ID          runRule
// @Summary     Run a single rule now
// @Description Runs one rule for its tenant, whether or not the rule is active.
// @Tags        Automation
// @Produce     json
// @Security    BearerAuth
// @Param       id   path     int  true  "Rule ID"
// @Success     200  {object} services.RunResult
// @Failure     404  {object} handlers.ErrorResponse "Unknown rule"
// @Failure     401  {object} handlers.ErrorResponse
// @Router      /rules/{id}/run [post]
func (h *Handlers) RunRule(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	res, err := h.runner.RunRule(runContext(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// TestRule godoc
// @ID          testRule
// @Summary     Send one test message for a rule
// @Description Sends the rule's template built from the latest source row, or sample data when none is available. The ledger is not touched.
// @Tags        Automation
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  int                       true   "Rule ID"
// @Param       body  body  handlers.TestRuleRequest  false  "Recipient override"
// @Success     200  {object} services.TestResult
// @Failure     404  {object} handlers.ErrorResponse
// @Failure     422  {object} handlers.ErrorResponse "No recipient or credentials"
// @Failure     502  {object} handlers.ErrorResponse "Provider rejected the message"
// @Failure     401  {object} handlers.ErrorResponse
// @Router      /rules/{id}/test [post]
func (h *Handlers) TestRule(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req TestRuleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}
	res, err := h.runner.TestRule(runContext(c), id, strings.TrimSpace(req.To))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}
