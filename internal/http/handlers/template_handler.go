// Template handlers.
//
//   - GET  /tenants/{id}/templates
//   - POST /tenants/{id}/templates/sync
//   - PUT  /tenants/{id}/templates/{name}/mappings
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/diljot111/easy-software/internal/domain"
)

// ListTemplatesResponse wraps a tenant's stored templates.
type ListTemplatesResponse struct {
	Templates []domain.WhatsAppTemplate `json:"templates"`
}

// UpdateMappingsRequest assigns template slots ("1", "2", ...) to data keys
// such as "client.name" or to literal text. An empty map clears them.
type UpdateMappingsRequest struct {
	Mappings map[string]string `json:"mappings"`
}

// ListTemplates godoc
// @ID          listTemplates
// @Summary     List synced templates
// @Tags        Templates
// @Produce     json
// @Security    BearerAuth
// @Param       id   path     int  true  "Tenant ID"
// @Success     200  {object} handlers.ListTemplatesResponse
// @Failure     401  {object} handlers.ErrorResponse
// @Router      /tenants/{id}/templates [get]
func (h *Handlers) ListTemplates(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	out, err := h.templates.List(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	respondTemplates(c, out)
}

// SyncTemplates godoc
// @ID          syncTemplates
// @Summary     Sync approved templates from WhatsApp
// @Description Upserts the business account's approved templates with their variable counts. Existing mappings are kept.
// @Tags        Templates
// @Produce     json
// @Security    BearerAuth
// @Param       id   path     int  true  "Tenant ID"
// @Success     200  {object} handlers.ListTemplatesResponse
// @Failure     404  {object} handlers.ErrorResponse
// @Failure     422  {object} handlers.ErrorResponse "Missing business account credentials"
// @Failure     502  {object} handlers.ErrorResponse "Provider error"
// @Failure     401  {object} handlers.ErrorResponse
// @Router      /tenants/{id}/templates/sync [post]
func (h *Handlers) SyncTemplates(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	out, err := h.templates.Sync(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	respondTemplates(c, out)
}

// UpdateMappings godoc
// @ID          updateMappings
// @Summary     Replace a template's slot mappings
// @Tags        Templates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  int                             true  "Tenant ID"
// @Param       name  path  string                          true  "Template name"
// @Param       body  body  handlers.UpdateMappingsRequest  true  "Mappings"
// @Success     200  {object} domain.WhatsAppTemplate
// @Failure     400  {object} handlers.ErrorResponse "Slot out of range"
// @Failure     404  {object} handlers.ErrorResponse
// @Failure     401  {object} handlers.ErrorResponse
// @Router      /tenants/{id}/templates/{name}/mappings [put]
func (h *Handlers) UpdateMappings(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	var req UpdateMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil || name == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mappings object required")
		return
	}
	tpl, err := h.templates.UpdateMappings(c.Request.Context(), id, name, req.Mappings)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, tpl)
}

func respondTemplates(c *gin.Context, out []domain.WhatsAppTemplate) {
	if out == nil {
		out = []domain.WhatsAppTemplate{}
	}
	ok(c, http.StatusOK, ListTemplatesResponse{Templates: out})
}
