package models

import (
	"time"

	"github.com/downform/backend/internal/domain/batch"
)

// ProcessBatchModel is the persistence model for ProcessBatch. Batches
// use a sequential id rather than a uuid because the id is stamped onto
// every down-form order row of the run.
type ProcessBatchModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	TemplateCode string `gorm:"type:varchar(100);not null;index"`
	Source       string `gorm:"type:varchar(50)"`
	TotalRows    int    `gorm:"not null;default:0"`
	InsertedRows int    `gorm:"not null;default:0"`
	UpdatedRows  int    `gorm:"not null;default:0"`
	ErrorRows    int    `gorm:"not null;default:0"`
	Status       string `gorm:"type:varchar(20);not null;default:'pending'"`
	ErrorMessage string `gorm:"type:text"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProcessBatchModel) TableName() string {
	return "process_batches"
}

// ToDomain converts the persistence model to a domain ProcessBatch.
func (m *ProcessBatchModel) ToDomain() *batch.ProcessBatch {
	return &batch.ProcessBatch{
		ID:           m.ID,
		TemplateCode: m.TemplateCode,
		Source:       m.Source,
		TotalRows:    m.TotalRows,
		InsertedRows: m.InsertedRows,
		UpdatedRows:  m.UpdatedRows,
		ErrorRows:    m.ErrorRows,
		Status:       batch.BatchStatus(m.Status),
		ErrorMessage: m.ErrorMessage,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ProcessBatchModelFromDomain creates a persistence model from a domain ProcessBatch.
func ProcessBatchModelFromDomain(b *batch.ProcessBatch) *ProcessBatchModel {
	return &ProcessBatchModel{
		ID:           b.ID,
		TemplateCode: b.TemplateCode,
		Source:       b.Source,
		TotalRows:    b.TotalRows,
		InsertedRows: b.InsertedRows,
		UpdatedRows:  b.UpdatedRows,
		ErrorRows:    b.ErrorRows,
		Status:       string(b.Status),
		ErrorMessage: b.ErrorMessage,
		StartedAt:    b.StartedAt,
		CompletedAt:  b.CompletedAt,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}
