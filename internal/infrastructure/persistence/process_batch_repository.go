package persistence

import (
	"context"
	"errors"

	"github.com/downform/backend/internal/domain/batch"
	"github.com/downform/backend/internal/domain/shared"
	"github.com/downform/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProcessBatchRepository implements ProcessBatchRepository using GORM
type GormProcessBatchRepository struct {
	db *gorm.DB
}

// NewGormProcessBatchRepository creates a new GormProcessBatchRepository
func NewGormProcessBatchRepository(db *gorm.DB) *GormProcessBatchRepository {
	return &GormProcessBatchRepository{db: db}
}

// Save inserts or updates a batch record. On first save the generated
// sequential id is written back to the domain entity.
func (r *GormProcessBatchRepository) Save(ctx context.Context, b *batch.ProcessBatch) error {
	model := models.ProcessBatchModelFromDomain(b)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return err
	}
	b.ID = model.ID
	return nil
}

// FindByID finds a batch by id
func (r *GormProcessBatchRepository) FindByID(ctx context.Context, id int64) (*batch.ProcessBatch, error) {
	var model models.ProcessBatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent returns batches most recent first
func (r *GormProcessBatchRepository) FindRecent(ctx context.Context, filter shared.Filter) ([]batch.ProcessBatch, error) {
	query := r.db.WithContext(ctx).Model(&models.ProcessBatchModel{}).Order("created_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	if code, ok := filter.Filters["template_code"]; ok {
		query = query.Where("template_code = ?", code)
	}

	var batchModels []models.ProcessBatchModel
	if err := query.Find(&batchModels).Error; err != nil {
		return nil, err
	}

	batches := make([]batch.ProcessBatch, len(batchModels))
	for i := range batchModels {
		batches[i] = *batchModels[i].ToDomain()
	}
	return batches, nil
}

// Ensure GormProcessBatchRepository implements ProcessBatchRepository
var _ batch.ProcessBatchRepository = (*GormProcessBatchRepository)(nil)
