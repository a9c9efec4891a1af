package persistence

import (
	"context"
	"testing"

	"github.com/downform/backend/internal/domain/batch"
	"github.com/downform/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessBatchRepository_SaveAssignsID(t *testing.T) {
	repo := NewGormProcessBatchRepository(newTestDB(t))
	ctx := context.Background()

	b, err := batch.NewProcessBatch("gmarket_erp", "excel_upload")
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, b))
	assert.NotZero(t, b.ID, "generated id written back")

	require.NoError(t, b.Start(10))
	require.NoError(t, repo.Save(ctx, b))

	found, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.BatchStatusProcessing, found.Status)
	assert.Equal(t, 10, found.TotalRows)
}

func TestProcessBatchRepository_FindByIDNotFound(t *testing.T) {
	repo := NewGormProcessBatchRepository(newTestDB(t))

	_, err := repo.FindByID(context.Background(), 12345)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestProcessBatchRepository_FindRecent(t *testing.T) {
	repo := NewGormProcessBatchRepository(newTestDB(t))
	ctx := context.Background()

	for _, code := range []string{"gmarket_erp", "coupang_slim", "gmarket_erp"} {
		b, err := batch.NewProcessBatch(code, "test")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, b))
	}

	all, err := repo.FindRecent(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filter := shared.DefaultFilter()
	filter.Filters["template_code"] = "gmarket_erp"
	filtered, err := repo.FindRecent(ctx, filter)
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	for _, b := range filtered {
		assert.Equal(t, "gmarket_erp", b.TemplateCode)
	}
}
