package batch

import (
	"context"

	"github.com/downform/backend/internal/domain/shared"
)

// ProcessBatchRepository persists batch-tracking records
type ProcessBatchRepository interface {
	Save(ctx context.Context, b *ProcessBatch) error
	FindByID(ctx context.Context, id int64) (*ProcessBatch, error)
	FindRecent(ctx context.Context, filter shared.Filter) ([]ProcessBatch, error)
}
