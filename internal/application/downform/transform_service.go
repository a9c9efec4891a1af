package downformapp

import (
	"context"
	"time"

	"github.com/downform/backend/internal/domain/downform"
	"go.uber.org/zap"
)

// TransformService maps raw channel records into canonical down-form
// order rows according to a stored template configuration. It is
// request-scoped and stateless between invocations; each call owns its
// working set.
type TransformService struct {
	templateRepo downform.TemplateConfigRepository
	evaluator    downform.Evaluator
	logger       *zap.Logger
}

// NewTransformService creates a new TransformService
func NewTransformService(
	templateRepo downform.TemplateConfigRepository,
	evaluator downform.Evaluator,
	logger *zap.Logger,
) *TransformService {
	return &TransformService{
		templateRepo: templateRepo,
		evaluator:    evaluator,
		logger:       logger,
	}
}

// Transform resolves the template and emits one canonical row per raw
// record (simple templates) or per group (aggregated templates). An
// unknown template code is fatal; malformed individual records degrade
// to null-valued fields and are logged, never dropped.
func (s *TransformService) Transform(
	ctx context.Context,
	records []downform.RawRecord,
	templateCode string,
	batchID *int64,
) ([]*downform.OrderRow, error) {
	template, err := s.templateRepo.Get(ctx, templateCode)
	if err != nil {
		return nil, err
	}

	processDT := time.Now()
	if template.IsAggregated {
		return s.transformAggregated(records, template, batchID, processDT), nil
	}
	return s.transformSimple(records, template, batchID, processDT), nil
}

func (s *TransformService) transformSimple(
	records []downform.RawRecord,
	template *downform.TemplateConfig,
	batchID *int64,
	processDT time.Time,
) []*downform.OrderRow {
	rows := make([]*downform.OrderRow, 0, len(records))
	for i, rec := range records {
		fields, degraded := downform.MapRow(rec, template, s.evaluator)
		s.logDegraded(template.TemplateCode, i+1, degraded)
		rows = append(rows, s.stampRow(rec, fields, template, i+1, batchID, processDT))
	}
	return rows
}

func (s *TransformService) transformAggregated(
	records []downform.RawRecord,
	template *downform.TemplateConfig,
	batchID *int64,
	processDT time.Time,
) []*downform.OrderRow {
	groups := downform.GroupRecords(records, template.GroupByFields)
	rows := make([]*downform.OrderRow, 0, len(groups))
	for i, group := range groups {
		fields, degraded := downform.ReduceGroup(group.Records, template, s.evaluator)
		s.logDegraded(template.TemplateCode, i+1, degraded)
		rows = append(rows, s.stampRow(group.Records[0], fields, template, i+1, batchID, processDT))
	}
	return rows
}

// stampRow attaches process metadata to a mapped field set. The idx
// comes from the (first) raw record; order_id prefers the mapped value
// and falls back to the raw record so simple templates without an
// order_id column still carry a natural key.
func (s *TransformService) stampRow(
	rec downform.RawRecord,
	fields map[string]any,
	template *downform.TemplateConfig,
	seq int,
	batchID *int64,
	processDT time.Time,
) *downform.OrderRow {
	orderID := downform.Stringify(fields["order_id"])
	if orderID == "" {
		orderID = downform.Stringify(rec["order_id"])
	}
	return &downform.OrderRow{
		Idx:       downform.Stringify(rec["idx"]),
		OrderID:   orderID,
		FormName:  template.TemplateCode,
		Seq:       seq,
		ProcessDT: processDT,
		BatchID:   batchID,
		Fields:    fields,
	}
}

func (s *TransformService) logDegraded(templateCode string, seq int, degraded []downform.FieldError) {
	for _, fe := range degraded {
		s.logger.Warn("Field mapping degraded to null",
			zap.String("template_code", templateCode),
			zap.Int("seq", seq),
			zap.String("target_column", fe.TargetColumn),
			zap.Error(fe.Err),
		)
	}
}
