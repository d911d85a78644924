// Rule and ledger handlers.
//
//   - GET    /tenants/{id}/rules
//   - POST   /tenants/{id}/rules
//   - DELETE /rules/{id}
//   - GET    /tenants/{id}/logs   (paginated)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diljot111/easy-software/internal/domain"
	"github.com/diljot111/easy-software/internal/services"
	"github.com/diljot111/easy-software/internal/utils"
)

// CreateRuleRequest is the payload for a new rule. EventType must name one
// of the supported business events (e.g. "New bill", "Birthday").
type CreateRuleRequest struct {
	EventType    string `json:"event_type"    binding:"required" example:"New bill"`
	TemplateName string `json:"template_name" binding:"required" example:"bill_ready"`
	IsActive     *bool  `json:"is_active,omitempty"`
	DelayValue   int    `json:"delay_value"   example:"0"`
	DelayUnit    string `json:"delay_unit"    example:"minutes"`
}

// ListRulesResponse wraps a tenant's rules.
type ListRulesResponse struct {
	Rules []domain.AutomationRule `json:"rules"`
}

// ListLogsResponse is a page of the dispatch ledger.
type ListLogsResponse struct {
	Logs       []domain.AutomationLog `json:"logs"`
	Pagination Pagination             `json:"pagination"`
}

// ListRules godoc
// @ID          listRules
// @Summary     List a tenant's rules
// @Tags        Rules
// @Produce     json
// @Security    BearerAuth
// @Param       id   path     int  true  "Tenant ID"
// @Success     200  {object} handlers.ListRulesResponse
// @Failure     401  {object} handlers.ErrorResponse
// @Router      /tenants/{id}/rules [get]
func (h *Handlers) ListRules(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	rules, err := h.rules.List(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	if rules == nil {
		rules = []domain.AutomationRule{}
	}
	ok(c, http.StatusOK, ListRulesResponse{Rules: rules})
}

// CreateRule godoc
// @ID          createRule
// @Summary     Create a rule
// @Description The event type is validated against the supported events when the rule is saved.
// @Tags        Rules
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  int                         true  "Tenant ID"
// @Param       body  body  handlers.CreateRuleRequest  true  "Rule"
// @Success     201  {object} domain.AutomationRule
// @Failure     400  {object} handlers.ErrorResponse "Invalid body or unknown event type"
// @Failure     404  {object} handlers.ErrorResponse "Unknown tenant"
// @Failure     401  {object} handlers.ErrorResponse
// @Router      /tenants/{id}/rules [post]
func (h *Handlers) CreateRule(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "event_type and template_name are required")
		return
	}
	rule, err := h.rules.Create(c.Request.Context(), id, services.RuleInput{
		EventType:    req.EventType,
		TemplateName: req.TemplateName,
		IsActive:     req.IsActive,
		DelayValue:   req.DelayValue,
		DelayUnit:    req.DelayUnit,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, rule)
}

// DeleteRule godoc
// @ID          deleteRule
// @Summary     Delete a rule
// @Tags        Rules
// @Security    BearerAuth
// @Param       id   path  int  true  "Rule ID"
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse
// @Failure     401  {object} handlers.ErrorResponse
// @Router      /rules/{id} [delete]
func (h *Handlers) DeleteRule(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.rules.Delete(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// ListLogs godoc
// @ID          listLogs
// @Summary     Page through the dispatch ledger
// @Tags        Rules
// @Produce     json
// @Security    BearerAuth
// @Param       id         path   int  true   "Tenant ID"
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false  "Return 304 if the ETag matches"
// @Success     200  {object} handlers.ListLogsResponse
// @Success     304  {string} string "Not Modified"
// @Header      200  {string} ETag "Weak ETag of the page"
// @Failure     401  {object} handlers.ErrorResponse
// @Router      /tenants/{id}/logs [get]
func (h *Handlers) ListLogs(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	page, size := utils.PageParams(c.Query("page"), c.Query("page_size"), 20, 100)
	ctx := c.Request.Context()

	// ETag pre-check; a stats failure just skips it.
	if count, last, err := h.rules.LogStats(ctx, id); err == nil {
		var ts int64
		if last != nil {
			ts = last.UnixNano()
		}
		etag := fmt.Sprintf(`W/"logs:%d:%d:%d:%d:%d"`, id, count, ts, page, size)
		c.Header("ETag", etag)
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.rules.ListLogs(ctx, id, page, size)
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.AutomationLog{}
	}
	pages := utils.TotalPages(total, size)
	ok(c, http.StatusOK, ListLogsResponse{
		Logs: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   size,
			Total:      total,
			TotalPages: pages,
			HasNext:    page < pages,
		},
	})
}
