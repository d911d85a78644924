package repo

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diljot111/easy-software/internal/domain"
)

// GetTemplate fetches a tenant's template by name.
func GetTemplate(ctx context.Context, db *gorm.DB, tenantID uint, name string) (*domain.WhatsAppTemplate, error) {
	var tpl domain.WhatsAppTemplate
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		First(&tpl).Error
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListTemplates returns a tenant's templates ordered by name.
func ListTemplates(ctx context.Context, db *gorm.DB, tenantID uint) ([]domain.WhatsAppTemplate, error) {
	var out []domain.WhatsAppTemplate
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&out).Error
	return out, err
}

// UpsertTemplate inserts or refreshes a synced template. Provider-owned
// columns are overwritten; operator-owned mappings are left untouched.
func UpsertTemplate(ctx context.Context, db *gorm.DB, tpl *domain.WhatsAppTemplate) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "category", "language", "components",
			"header_variables", "body_variables", "total_variables", "updated_at",
		}),
	}).Create(tpl).Error
}

// UpdateMappings replaces a template's slot mappings.
// Returns ErrNotFound if the template does not exist.
func UpdateMappings(ctx context.Context, db *gorm.DB, tenantID uint, name string, mappings datatypes.JSONMap) error {
	res := db.WithContext(ctx).Model(&domain.WhatsAppTemplate{}).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		Updates(map[string]any{
			"mappings":  mappings,
			"is_mapped": len(mappings) > 0,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
