package persistence

import (
	"testing"

	"github.com/downform/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the production
// schema. TranslateError mirrors the real connection setup so the
// duplicate-key path behaves the same under test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.TemplateConfigModel{},
		&models.TemplateColumnMappingModel{},
		&models.DownFormOrderModel{},
		&models.ProcessBatchModel{},
	))

	return db
}
