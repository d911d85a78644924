// Package services – TemplateService
//
// TemplateService mirrors a tenant's approved WhatsApp templates into the
// store, with their header/body variable counts, and manages the operator's
// slot mappings. A sync never overwrites existing mappings.
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/diljot111/easy-software/internal/domain"
	"github.com/diljot111/easy-software/internal/mapping"
	"github.com/diljot111/easy-software/internal/repo"
	"github.com/diljot111/easy-software/internal/whatsapp"
)

// TemplateLister lists a business account's approved templates.
type TemplateLister interface {
	ListTemplates(ctx context.Context, creds whatsapp.Credentials) ([]whatsapp.Template, error)
}

// TemplateService syncs templates and edits mappings.
type TemplateService struct {
	DB     *gorm.DB
	Lister TemplateLister
	Cache  *TemplateCache
}

// Sync fetches the tenant's approved templates from the provider and
// upserts them. It returns the tenant's full template list afterwards.
func (s *TemplateService) Sync(ctx context.Context, tenantID uint) ([]domain.WhatsAppTemplate, error) {
	ctx, span := otel.Tracer("services/TemplateService").Start(ctx, "Sync",
		trace.WithAttributes(attribute.Int64("tenant.id", int64(tenantID))))
	defer span.End()

	tenant, err := repo.GetTenant(ctx, s.DB, tenantID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	if tenant.WABAID == "" || tenant.MetaToken == "" {
		return nil, ErrMissingCredentials
	}

	listed, err := s.Lister.ListTemplates(ctx, credentials(tenant))
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	for _, t := range listed {
		counts := mapping.CountVariables(t.Components)
		tpl := &domain.WhatsAppTemplate{
			TenantID:        tenantID,
			Name:            t.Name,
			Status:          t.Status,
			Category:        t.Category,
			Language:        t.Language,
			Components:      datatypes.JSON(t.Components),
			HeaderVariables: counts.Header,
			BodyVariables:   counts.Body,
			TotalVariables:  counts.Total,
		}
		if err := repo.UpsertTemplate(ctx, s.DB, tpl); err != nil {
			return nil, fmt.Errorf("upsert template %q: %w", t.Name, err)
		}
		s.Cache.Invalidate(tenantID, t.Name)
	}
	span.SetAttributes(attribute.Int("templates", len(listed)))
	log.Info().Uint("tenant_id", tenantID).Int("templates", len(listed)).Msg("templates synced")

	return repo.ListTemplates(ctx, s.DB, tenantID)
}

// List returns the tenant's stored templates.
func (s *TemplateService) List(ctx context.Context, tenantID uint) ([]domain.WhatsAppTemplate, error) {
	return repo.ListTemplates(ctx, s.DB, tenantID)
}

// UpdateMappings replaces the slot mappings of a template. Keys are slot
// numbers within the template's variable count; blank values are dropped.
// An empty map clears the mappings and returns the template to heuristic
// mapping.
func (s *TemplateService) UpdateMappings(ctx context.Context, tenantID uint, name string, in map[string]string) (*domain.WhatsAppTemplate, error) {
	tpl, err := repo.GetTemplate(ctx, s.DB, tenantID, name)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	out := datatypes.JSONMap{}
	for k, v := range in {
		slot, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || slot < 1 || (tpl.TotalVariables > 0 && slot > tpl.TotalVariables) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMapping, k)
		}
		if v = strings.TrimSpace(v); v != "" {
			out[strconv.Itoa(slot)] = v
		}
	}
	if err := repo.UpdateMappings(ctx, s.DB, tenantID, name, out); err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	s.Cache.Invalidate(tenantID, name)
	return repo.GetTemplate(ctx, s.DB, tenantID, name)
}
