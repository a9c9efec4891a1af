package downform

import (
	"context"

	"github.com/downform/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TemplateConfigRepository provides read access to stored template
// configurations. The engine never writes templates; configuration
// management owns their lifecycle.
type TemplateConfigRepository interface {
	// Get returns the template for the given code with only active
	// mappings, ordered by column order. Returns ErrTemplateNotFound for
	// unknown codes.
	Get(ctx context.Context, templateCode string) (*TemplateConfig, error)
	List(ctx context.Context, filter shared.Filter) ([]TemplateConfig, error)
}

// UpsertResult reports how many rows an upsert inserted and updated.
// Rows skipped by the per-row insert fallback count as neither.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// OrderRowRepository persists down-form order rows under the
// (order_id, form_name) natural key.
type OrderRowRepository interface {
	// Upsert partitions rows into inserts and updates against existing
	// natural keys and executes both within one transaction. Per-row
	// insert failures are logged and skipped; a returned error means the
	// whole operation failed and nothing was committed.
	Upsert(ctx context.Context, rows []*OrderRow) (UpsertResult, error)
	FindByKey(ctx context.Context, key NaturalKey) (*OrderRow, error)
	FindByBatchID(ctx context.Context, batchID int64) ([]OrderRow, error)
	FindByID(ctx context.Context, id uuid.UUID) (*OrderRow, error)
	CountByFormName(ctx context.Context, formName string) (int64, error)
}
