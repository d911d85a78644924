package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/diljot111/easy-software/internal/domain"
	"github.com/diljot111/easy-software/internal/repo"
)

// TemplateCache memoizes template lookups during dispatch. Misses are cached
// too, so a rule pointing at an unsynced template does not hit the store on
// every job. A nil *TemplateCache reads straight through.
type TemplateCache struct {
	c *cache.Cache
}

// NewTemplateCache returns a cache whose entries live for ttl.
func NewTemplateCache(ttl time.Duration) *TemplateCache {
	if ttl <= 0 {
		return nil
	}
	return &TemplateCache{c: cache.New(ttl, 2*ttl)}
}

func templateKey(tenantID uint, name string) string {
	return strconv.FormatUint(uint64(tenantID), 10) + "/" + name
}

// Get returns the template, or nil when the tenant has none by that name.
func (tc *TemplateCache) Get(ctx context.Context, db *gorm.DB, tenantID uint, name string) (*domain.WhatsAppTemplate, error) {
	key := templateKey(tenantID, name)
	if tc != nil {
		if v, ok := tc.c.Get(key); ok {
			return v.(*domain.WhatsAppTemplate), nil
		}
	}
	tpl, err := repo.GetTemplate(ctx, db, tenantID, name)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		tpl = nil
	}
	if tc != nil {
		tc.c.SetDefault(key, tpl)
	}
	return tpl, nil
}

// Invalidate drops the cached entry for one template.
func (tc *TemplateCache) Invalidate(tenantID uint, name string) {
	if tc == nil {
		return
	}
	tc.c.Delete(templateKey(tenantID, name))
}
