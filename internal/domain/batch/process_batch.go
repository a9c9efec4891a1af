package batch

import (
	"fmt"
	"time"

	"github.com/downform/backend/internal/domain/shared"
)

// BatchStatus represents the status of one ingestion run
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
)

// IsValid checks if the status is valid
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusPending, BatchStatusProcessing, BatchStatusCompleted, BatchStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// ProcessBatch groups the down-form order rows written by one pipeline
// run under a single batch id for traceability. The transformation
// engine only stamps the id onto rows; the counts and state machine here
// serve the ingestion paths that wrap the engine.
type ProcessBatch struct {
	ID           int64
	TemplateCode string
	Source       string
	TotalRows    int
	InsertedRows int
	UpdatedRows  int
	ErrorRows    int
	Status       BatchStatus
	ErrorMessage string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewProcessBatch creates a pending batch for one template and source
// (e.g. "excel_upload", "channel_api").
func NewProcessBatch(templateCode, source string) (*ProcessBatch, error) {
	if templateCode == "" {
		return nil, shared.NewDomainError("INVALID_TEMPLATE_CODE", "Template code cannot be empty")
	}
	now := time.Now()
	return &ProcessBatch{
		TemplateCode: templateCode,
		Source:       source,
		Status:       BatchStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Start marks the batch as processing
func (b *ProcessBatch) Start(totalRows int) error {
	if b.Status != BatchStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start batch from state: %s", b.Status))
	}
	if totalRows < 0 {
		return shared.NewDomainError("INVALID_TOTAL_ROWS", "Total rows cannot be negative")
	}
	b.Status = BatchStatusProcessing
	b.TotalRows = totalRows
	now := time.Now()
	b.StartedAt = &now
	b.UpdatedAt = now
	return nil
}

// Complete records the upsert counts and marks the batch completed
func (b *ProcessBatch) Complete(inserted, updated, errorRows int) error {
	if b.Status != BatchStatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete batch from state: %s", b.Status))
	}
	b.InsertedRows = inserted
	b.UpdatedRows = updated
	b.ErrorRows = errorRows
	b.Status = BatchStatusCompleted
	now := time.Now()
	b.CompletedAt = &now
	b.UpdatedAt = now
	return nil
}

// Fail marks the batch as failed with a reason
func (b *ProcessBatch) Fail(reason string) error {
	if b.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail batch from terminal state: %s", b.Status))
	}
	b.Status = BatchStatusFailed
	b.ErrorMessage = reason
	now := time.Now()
	b.CompletedAt = &now
	b.UpdatedAt = now
	return nil
}

// Duration returns how long the batch has been running
func (b *ProcessBatch) Duration() time.Duration {
	if b.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if b.CompletedAt != nil {
		end = *b.CompletedAt
	}
	return end.Sub(*b.StartedAt)
}
