package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/downform/backend/internal/domain/downform"
	"github.com/downform/backend/internal/domain/shared"
	"github.com/downform/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newOrderRepo(t *testing.T) *GormDownFormOrderRepository {
	t.Helper()
	return NewGormDownFormOrderRepository(newTestDB(t), zap.NewNop())
}

func testRow(orderID, formName string, seq int, fields map[string]any) *downform.OrderRow {
	return &downform.OrderRow{
		Idx:       "idx-" + orderID,
		OrderID:   orderID,
		FormName:  formName,
		Seq:       seq,
		ProcessDT: time.Now(),
		Fields:    fields,
	}
}

func TestUpsert_InsertThenUpdate(t *testing.T) {
	repo := newOrderRepo(t)
	ctx := context.Background()

	first := []*downform.OrderRow{
		testRow("ORD-1", "gmarket_erp", 1, map[string]any{"buyer_name": "Kim", "sale_cnt": 2}),
		testRow("ORD-2", "gmarket_erp", 2, map[string]any{"buyer_name": "Lee", "sale_cnt": 1}),
	}

	result, err := repo.Upsert(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, downform.UpsertResult{Inserted: 2, Updated: 0}, result)

	// Same natural keys again: everything updates, nothing inserts.
	second := []*downform.OrderRow{
		testRow("ORD-1", "gmarket_erp", 1, map[string]any{"buyer_name": "Kim Updated", "sale_cnt": 3}),
		testRow("ORD-2", "gmarket_erp", 2, map[string]any{"buyer_name": "Lee", "sale_cnt": 1}),
	}
	result, err = repo.Upsert(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, downform.UpsertResult{Inserted: 0, Updated: 2}, result)

	row, err := repo.FindByKey(ctx, downform.NaturalKey{OrderID: "ORD-1", FormName: "gmarket_erp"})
	require.NoError(t, err)
	assert.Equal(t, "Kim Updated", row.Fields["buyer_name"])

	count, err := repo.CountByFormName(ctx, "gmarket_erp")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "no duplicate rows after re-run")
}

func TestUpsert_SameOrderDifferentFormInsertsBoth(t *testing.T) {
	repo := newOrderRepo(t)
	ctx := context.Background()

	rows := []*downform.OrderRow{
		testRow("ORD-1", "gmarket_erp", 1, map[string]any{"buyer_name": "Kim"}),
		testRow("ORD-1", "coupang_slim", 1, map[string]any{"buyer_name": "Kim"}),
	}

	result, err := repo.Upsert(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, downform.UpsertResult{Inserted: 2, Updated: 0}, result)
}

func TestUpsert_UpdateMergesFields(t *testing.T) {
	repo := newOrderRepo(t)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, []*downform.OrderRow{
		testRow("ORD-1", "gmarket_erp", 1, map[string]any{"buyer_name": "Kim", "memo": "fragile"}),
	})
	require.NoError(t, err)

	// The re-run maps a different column set; unmapped stored fields
	// survive the update.
	_, err = repo.Upsert(ctx, []*downform.OrderRow{
		testRow("ORD-1", "gmarket_erp", 1, map[string]any{"buyer_name": "Kim Updated"}),
	})
	require.NoError(t, err)

	row, err := repo.FindByKey(ctx, downform.NaturalKey{OrderID: "ORD-1", FormName: "gmarket_erp"})
	require.NoError(t, err)
	assert.Equal(t, "Kim Updated", row.Fields["buyer_name"])
	assert.Equal(t, "fragile", row.Fields["memo"])
}

func TestUpsert_UpdatePreservesIdentity(t *testing.T) {
	repo := newOrderRepo(t)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, []*downform.OrderRow{
		testRow("ORD-1", "gmarket_erp", 1, map[string]any{"buyer_name": "Kim"}),
	})
	require.NoError(t, err)

	before, err := repo.FindByKey(ctx, downform.NaturalKey{OrderID: "ORD-1", FormName: "gmarket_erp"})
	require.NoError(t, err)

	_, err = repo.Upsert(ctx, []*downform.OrderRow{
		testRow("ORD-1", "gmarket_erp", 5, map[string]any{"buyer_name": "Kim Updated"}),
	})
	require.NoError(t, err)

	after, err := repo.FindByKey(ctx, downform.NaturalKey{OrderID: "ORD-1", FormName: "gmarket_erp"})
	require.NoError(t, err)

	assert.Equal(t, before.ID, after.ID, "surrogate id never changes")
	assert.Equal(t, before.CreatedAt.Unix(), after.CreatedAt.Unix(), "creation timestamp never changes")
	assert.Equal(t, 5, after.Seq, "process metadata refreshes")
}

func TestUpsert_MissingNaturalKeyAlwaysInserts(t *testing.T) {
	repo := newOrderRepo(t)
	ctx := context.Background()

	noKey := func() *downform.OrderRow {
		return testRow("", "gmarket_erp", 1, map[string]any{"buyer_name": "Anon"})
	}

	result, err := repo.Upsert(ctx, []*downform.OrderRow{noKey()})
	require.NoError(t, err)
	assert.Equal(t, downform.UpsertResult{Inserted: 1, Updated: 0}, result)

	result, err = repo.Upsert(ctx, []*downform.OrderRow{noKey()})
	require.NoError(t, err)
	assert.Equal(t, downform.UpsertResult{Inserted: 1, Updated: 0}, result, "incomplete keys never match")

	count, err := repo.CountByFormName(ctx, "gmarket_erp")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestUpsert_DuplicateKeyWithinBatchConvertsToUpdate(t *testing.T) {
	repo := newOrderRepo(t)
	ctx := context.Background()

	// Two rows with the same natural key and no existing row: the bulk
	// insert trips the unique index, the per-row fallback inserts the
	// first and converts the second into an update.
	rows := []*downform.OrderRow{
		testRow("ORD-1", "gmarket_erp", 1, map[string]any{"buyer_name": "Kim"}),
		testRow("ORD-1", "gmarket_erp", 2, map[string]any{"buyer_name": "Kim Second"}),
	}

	result, err := repo.Upsert(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, downform.UpsertResult{Inserted: 1, Updated: 1}, result)

	count, err := repo.CountByFormName(ctx, "gmarket_erp")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	row, err := repo.FindByKey(ctx, downform.NaturalKey{OrderID: "ORD-1", FormName: "gmarket_erp"})
	require.NoError(t, err)
	assert.Equal(t, "Kim Second", row.Fields["buyer_name"], "later row wins")
}

func TestUpsert_RowFailureIsSkippedNotFatal(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormDownFormOrderRepository(db, zap.NewNop())
	ctx := context.Background()

	// Reject one sentinel row at the store level so the per-row
	// fallback hits a failure that is not a duplicate key.
	require.NoError(t, db.Exec(`
		CREATE TRIGGER reject_poison BEFORE INSERT ON down_form_orders
		WHEN NEW.idx = 'poison' BEGIN
			SELECT RAISE(ABORT, 'rejected by store constraint');
		END`).Error)

	rows := []*downform.OrderRow{
		testRow("ORD-1", "gmarket_erp", 1, map[string]any{"buyer_name": "Kim"}),
		testRow("ORD-2", "gmarket_erp", 2, map[string]any{"buyer_name": "Lee"}),
		testRow("ORD-3", "gmarket_erp", 3, map[string]any{"buyer_name": "Park"}),
	}
	rows[1].Idx = "poison"

	// The bulk insert aborts on the rejected row; the fallback inserts
	// the other two and skips it, counting it as neither.
	result, err := repo.Upsert(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, downform.UpsertResult{Inserted: 2, Updated: 0}, result)

	count, err := repo.CountByFormName(ctx, "gmarket_erp")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "batch commits without the rejected row")

	_, err = repo.FindByKey(ctx, downform.NaturalKey{OrderID: "ORD-2", FormName: "gmarket_erp"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpsert_EmptyInput(t *testing.T) {
	repo := newOrderRepo(t)

	result, err := repo.Upsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, downform.UpsertResult{}, result)
}

func TestUpsert_NormalizesEmptyStrings(t *testing.T) {
	repo := newOrderRepo(t)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, []*downform.OrderRow{
		testRow("ORD-1", "gmarket_erp", 1, map[string]any{"buyer_name": "", "memo": "x"}),
	})
	require.NoError(t, err)

	row, err := repo.FindByKey(ctx, downform.NaturalKey{OrderID: "ORD-1", FormName: "gmarket_erp"})
	require.NoError(t, err)
	assert.Nil(t, row.Fields["buyer_name"])
}

func TestFindByBatchID(t *testing.T) {
	repo := newOrderRepo(t)
	ctx := context.Background()

	batchID := int64(9)
	r1 := testRow("ORD-2", "gmarket_erp", 2, map[string]any{})
	r1.BatchID = &batchID
	r2 := testRow("ORD-1", "gmarket_erp", 1, map[string]any{})
	r2.BatchID = &batchID
	other := testRow("ORD-3", "gmarket_erp", 3, map[string]any{})

	_, err := repo.Upsert(ctx, []*downform.OrderRow{r1, r2, other})
	require.NoError(t, err)

	rows, err := repo.FindByBatchID(ctx, batchID)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Seq, "rows come back in seq order")
	assert.Equal(t, 2, rows[1].Seq)
}

func TestFindByKey_NotFound(t *testing.T) {
	repo := newOrderRepo(t)

	_, err := repo.FindByKey(context.Background(), downform.NaturalKey{OrderID: "nope", FormName: "gmarket_erp"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFindByID(t *testing.T) {
	repo := newOrderRepo(t)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, []*downform.OrderRow{
		testRow("ORD-1", "gmarket_erp", 1, map[string]any{"buyer_name": "Kim"}),
	})
	require.NoError(t, err)

	byKey, err := repo.FindByKey(ctx, downform.NaturalKey{OrderID: "ORD-1", FormName: "gmarket_erp"})
	require.NoError(t, err)

	byID, err := repo.FindByID(ctx, byKey.ID)
	require.NoError(t, err)
	assert.Equal(t, byKey.OrderID, byID.OrderID)

	var stored models.DownFormOrderModel
	require.NoError(t, repo.db.First(&stored, "order_id = ?", "ORD-1").Error)
	assert.NotEmpty(t, stored.Fields)
}
