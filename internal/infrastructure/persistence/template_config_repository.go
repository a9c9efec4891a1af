package persistence

import (
	"context"
	"errors"

	"github.com/downform/backend/internal/domain/downform"
	"github.com/downform/backend/internal/domain/shared"
	"github.com/downform/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTemplateConfigRepository implements TemplateConfigRepository using GORM
type GormTemplateConfigRepository struct {
	db *gorm.DB
}

// NewGormTemplateConfigRepository creates a new GormTemplateConfigRepository
func NewGormTemplateConfigRepository(db *gorm.DB) *GormTemplateConfigRepository {
	return &GormTemplateConfigRepository{db: db}
}

// Get returns the template for the given code with only active mappings,
// ordered by column order. An unknown code returns ErrTemplateNotFound.
func (r *GormTemplateConfigRepository) Get(ctx context.Context, templateCode string) (*downform.TemplateConfig, error) {
	var model models.TemplateConfigModel
	err := r.db.WithContext(ctx).
		Preload("Mappings", func(db *gorm.DB) *gorm.DB {
			return db.Where("active = ?", true).Order("column_order ASC")
		}).
		Where("template_code = ?", templateCode).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, downform.ErrTemplateNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns template configurations without their mappings
func (r *GormTemplateConfigRepository) List(ctx context.Context, filter shared.Filter) ([]downform.TemplateConfig, error) {
	query := r.db.WithContext(ctx).Model(&models.TemplateConfigModel{}).Order("template_code ASC")
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var templateModels []models.TemplateConfigModel
	if err := query.Find(&templateModels).Error; err != nil {
		return nil, err
	}

	templates := make([]downform.TemplateConfig, len(templateModels))
	for i := range templateModels {
		templates[i] = *templateModels[i].ToDomain()
	}
	return templates, nil
}

// Ensure GormTemplateConfigRepository implements TemplateConfigRepository
var _ downform.TemplateConfigRepository = (*GormTemplateConfigRepository)(nil)
