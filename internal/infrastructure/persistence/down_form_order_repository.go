package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/downform/backend/internal/domain/downform"
	"github.com/downform/backend/internal/domain/shared"
	"github.com/downform/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormDownFormOrderRepository implements OrderRowRepository using GORM.
// The upsert path is the most edge-case-heavy part of the engine: it has
// to keep the canonical table free of duplicates under the
// (order_id, form_name) natural key while absorbing per-row failures
// from inherently messy marketplace data.
type GormDownFormOrderRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormDownFormOrderRepository creates a new GormDownFormOrderRepository
func NewGormDownFormOrderRepository(db *gorm.DB, logger *zap.Logger) *GormDownFormOrderRepository {
	return &GormDownFormOrderRepository{db: db, logger: logger}
}

type pendingUpdate struct {
	existing *models.DownFormOrderModel
	row      *downform.OrderRow
}

// Upsert partitions rows into inserts and updates against existing
// natural keys and executes both within one transaction.
//
// Inserts are attempted as one bulk statement first; on failure the path
// falls back to row-at-a-time inserts under savepoints, logging and
// skipping rows that still fail so one malformed row cannot void the
// batch. A duplicate-key failure during the fallback means another
// upsert inserted the same natural key after our existence check; it is
// converted into an update rather than surfaced. Updates never touch the
// surrogate id, creation timestamp, or the natural-key columns.
func (r *GormDownFormOrderRepository) Upsert(ctx context.Context, rows []*downform.OrderRow) (downform.UpsertResult, error) {
	var result downform.UpsertResult
	if len(rows) == 0 {
		return result, nil
	}

	keys := r.prepare(rows)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existingByKey, err := r.lookupExisting(tx, keys)
		if err != nil {
			return fmt.Errorf("natural key lookup: %w", err)
		}

		var toInsert []*models.DownFormOrderModel
		var toUpdate []pendingUpdate
		for _, row := range rows {
			if m, ok := existingByKey[row.Key()]; ok {
				toUpdate = append(toUpdate, pendingUpdate{existing: m, row: row})
				continue
			}
			toInsert = append(toInsert, models.DownFormOrderModelFromDomain(row))
		}

		inserted, converted, err := r.insertRows(tx, toInsert)
		if err != nil {
			return err
		}
		result.Inserted = inserted
		toUpdate = append(toUpdate, converted...)

		for _, u := range toUpdate {
			if err := r.updateRow(tx, u); err != nil {
				return fmt.Errorf("update row %s/%s: %w", u.row.OrderID, u.row.FormName, err)
			}
			result.Updated++
		}
		return nil
	})
	if err != nil {
		return downform.UpsertResult{}, err
	}
	return result, nil
}

// prepare strips auto-generated fields, normalizes empty strings to
// null, and collects the complete natural keys for the batched lookup.
// Rows lacking a complete key cannot be matched and always insert; that
// is logged because it grows the table unbounded for sources that never
// carry an order id.
func (r *GormDownFormOrderRepository) prepare(rows []*downform.OrderRow) [][]any {
	keys := make([][]any, 0, len(rows))
	missingKey := 0
	for _, row := range rows {
		row.ID = uuid.Nil
		row.CreatedAt = time.Time{}
		row.UpdatedAt = time.Time{}
		row.Normalize()

		k := row.Key()
		if !k.IsComplete() {
			missingKey++
			continue
		}
		keys = append(keys, []any{k.OrderID, k.FormName})
	}
	if missingKey > 0 {
		r.logger.Warn("Rows without a complete natural key will always insert",
			zap.Int("count", missingKey),
		)
	}
	return keys
}

// lookupExisting fetches all rows matching any input natural key in one
// batched query, not one query per row.
func (r *GormDownFormOrderRepository) lookupExisting(tx *gorm.DB, keys [][]any) (map[downform.NaturalKey]*models.DownFormOrderModel, error) {
	existingByKey := make(map[downform.NaturalKey]*models.DownFormOrderModel, len(keys))
	if len(keys) == 0 {
		return existingByKey, nil
	}
	var existing []models.DownFormOrderModel
	if err := tx.Where("(order_id, form_name) IN ?", keys).Find(&existing).Error; err != nil {
		return nil, err
	}
	for i := range existing {
		m := &existing[i]
		if m.OrderID == nil {
			continue
		}
		existingByKey[downform.NaturalKey{OrderID: *m.OrderID, FormName: m.FormName}] = m
	}
	return existingByKey, nil
}

// insertRows bulk-inserts, falling back to per-row inserts under
// savepoints when the bulk statement fails. Returns the insert count and
// any rows converted to updates after losing a duplicate-key race.
func (r *GormDownFormOrderRepository) insertRows(tx *gorm.DB, toInsert []*models.DownFormOrderModel) (int, []pendingUpdate, error) {
	if len(toInsert) == 0 {
		return 0, nil, nil
	}

	for _, m := range toInsert {
		fillNewRowDefaults(m)
	}

	tx.SavePoint("bulk_insert")
	if err := tx.Create(&toInsert).Error; err == nil {
		return len(toInsert), nil, nil
	} else if rbErr := tx.RollbackTo("bulk_insert").Error; rbErr != nil {
		return 0, nil, fmt.Errorf("rollback to savepoint: %w", rbErr)
	} else {
		r.logger.Warn("Bulk insert failed, falling back to per-row inserts",
			zap.Int("rows", len(toInsert)),
			zap.Error(err),
		)
	}

	inserted := 0
	var converted []pendingUpdate
	for i, m := range toInsert {
		sp := fmt.Sprintf("row_insert_%d", i)
		tx.SavePoint(sp)
		err := tx.Create(m).Error
		if err == nil {
			inserted++
			continue
		}
		if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
			return 0, nil, fmt.Errorf("rollback to savepoint: %w", rbErr)
		}

		if errors.Is(err, gorm.ErrDuplicatedKey) && m.OrderID != nil {
			// Lost a race with a concurrent upsert on the same natural
			// key; the row exists now, so update it instead.
			var existing models.DownFormOrderModel
			findErr := tx.Where("order_id = ? AND form_name = ?", *m.OrderID, m.FormName).First(&existing).Error
			if findErr == nil {
				converted = append(converted, pendingUpdate{existing: &existing, row: m.ToDomain()})
				continue
			}
		}

		r.logger.Warn("Insert row failed, skipping",
			zap.String("order_id", derefOrderID(m.OrderID)),
			zap.String("form_name", m.FormName),
			zap.String("idx", m.Idx),
			zap.Error(err),
		)
	}
	return inserted, converted, nil
}

// updateRow merges the mapped fields over the stored document and
// refreshes the process metadata. The surrogate id, creation timestamp,
// and natural-key columns stay untouched.
func (r *GormDownFormOrderRepository) updateRow(tx *gorm.DB, u pendingUpdate) error {
	merged := mergeOrderFields(u.existing.Fields, u.row.Fields)
	updates := map[string]any{
		"idx":        u.row.Idx,
		"seq":        u.row.Seq,
		"process_dt": u.row.ProcessDT,
		"fields":     merged,
		"updated_at": time.Now(),
	}
	if u.row.BatchID != nil {
		updates["batch_id"] = *u.row.BatchID
	}
	return tx.Model(&models.DownFormOrderModel{}).
		Where("id = ?", u.existing.ID).
		Updates(updates).Error
}

// FindByKey finds a row by its natural key
func (r *GormDownFormOrderRepository) FindByKey(ctx context.Context, key downform.NaturalKey) (*downform.OrderRow, error) {
	var model models.DownFormOrderModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND form_name = ?", key.OrderID, key.FormName).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a row by its surrogate id
func (r *GormDownFormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*downform.OrderRow, error) {
	var model models.DownFormOrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBatchID returns all rows stamped with a batch id, in seq order
func (r *GormDownFormOrderRepository) FindByBatchID(ctx context.Context, batchID int64) ([]downform.OrderRow, error) {
	var rowModels []models.DownFormOrderModel
	if err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("seq ASC").
		Find(&rowModels).Error; err != nil {
		return nil, err
	}
	rows := make([]downform.OrderRow, len(rowModels))
	for i := range rowModels {
		rows[i] = *rowModels[i].ToDomain()
	}
	return rows, nil
}

// CountByFormName counts the stored rows for one template
func (r *GormDownFormOrderRepository) CountByFormName(ctx context.Context, formName string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.DownFormOrderModel{}).
		Where("form_name = ?", formName).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// fillNewRowDefaults assigns the surrogate id and timestamps for a fresh
// insert; the upsert input had them stripped.
func fillNewRowDefaults(m *models.DownFormOrderModel) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
}

// mergeOrderFields overlays the newly mapped fields on the stored JSON
// document, so an update only touches the columns the template mapped.
func mergeOrderFields(existingJSON string, fields map[string]any) string {
	merged := make(map[string]any)
	if existingJSON != "" {
		_ = json.Unmarshal([]byte(existingJSON), &merged)
	}
	for k, v := range fields {
		merged[k] = v
	}
	return models.MarshalOrderFields(merged)
}

func derefOrderID(orderID *string) string {
	if orderID == nil {
		return ""
	}
	return *orderID
}

// Ensure GormDownFormOrderRepository implements OrderRowRepository
var _ downform.OrderRowRepository = (*GormDownFormOrderRepository)(nil)
