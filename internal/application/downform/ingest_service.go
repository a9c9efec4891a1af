package downformapp

import (
	"context"

	"github.com/downform/backend/internal/domain/batch"
	"github.com/downform/backend/internal/domain/downform"
	"go.uber.org/zap"
)

// IngestService runs one full ingestion: open a process batch, transform
// the raw records, upsert the canonical rows, and close the batch with
// the resulting counts. Every ingestion path (spreadsheet upload,
// channel-API pull, macro output) funnels through here.
type IngestService struct {
	transformService *TransformService
	orderRepo        downform.OrderRowRepository
	batchRepo        batch.ProcessBatchRepository
	logger           *zap.Logger
}

// NewIngestService creates a new IngestService
func NewIngestService(
	transformService *TransformService,
	orderRepo downform.OrderRowRepository,
	batchRepo batch.ProcessBatchRepository,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		transformService: transformService,
		orderRepo:        orderRepo,
		batchRepo:        batchRepo,
		logger:           logger,
	}
}

// Process transforms and persists one batch of raw records for a
// template. Per-row persistence failures reduce the counts but do not
// fail the run; a returned error means the whole run failed and the
// batch record carries the reason.
func (s *IngestService) Process(
	ctx context.Context,
	records []downform.RawRecord,
	templateCode string,
	source string,
) (*ProcessResult, error) {
	b, err := batch.NewProcessBatch(templateCode, source)
	if err != nil {
		return nil, err
	}
	if err := s.batchRepo.Save(ctx, b); err != nil {
		return nil, err
	}
	if err := b.Start(len(records)); err != nil {
		return nil, err
	}
	if err := s.batchRepo.Save(ctx, b); err != nil {
		return nil, err
	}

	rows, err := s.transformService.Transform(ctx, records, templateCode, &b.ID)
	if err != nil {
		s.failBatch(ctx, b, err)
		return nil, err
	}

	result, err := s.orderRepo.Upsert(ctx, rows)
	if err != nil {
		s.failBatch(ctx, b, err)
		return nil, err
	}

	skipped := len(rows) - result.Inserted - result.Updated
	if err := b.Complete(result.Inserted, result.Updated, skipped); err != nil {
		return nil, err
	}
	if err := s.batchRepo.Save(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("Ingestion batch completed",
		zap.Int64("batch_id", b.ID),
		zap.String("template_code", templateCode),
		zap.String("source", source),
		zap.Int("total_rows", len(records)),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", skipped),
	)

	return &ProcessResult{
		BatchID:   b.ID,
		TotalRows: len(records),
		Inserted:  result.Inserted,
		Updated:   result.Updated,
		Skipped:   skipped,
	}, nil
}

func (s *IngestService) failBatch(ctx context.Context, b *batch.ProcessBatch, cause error) {
	if err := b.Fail(cause.Error()); err != nil {
		s.logger.Error("Failed to mark batch as failed", zap.Int64("batch_id", b.ID), zap.Error(err))
		return
	}
	if err := s.batchRepo.Save(ctx, b); err != nil {
		s.logger.Error("Failed to persist failed batch", zap.Int64("batch_id", b.ID), zap.Error(err))
	}
}
