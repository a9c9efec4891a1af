package dto

// ProcessDownFormRequest is the payload for one ingestion run: raw
// records already parsed into field maps plus the destination template.
type ProcessDownFormRequest struct {
	TemplateCode string           `json:"template_code" binding:"required"`
	Source       string           `json:"source" binding:"omitempty,max=50"`
	Records      []map[string]any `json:"records" binding:"required"`
}

// TemplateMappingResponse describes one column mapping of a template
type TemplateMappingResponse struct {
	ColumnOrder     int    `json:"column_order"`
	TargetColumn    string `json:"target_column"`
	SourceField     string `json:"source_field,omitempty"`
	ValueKind       string `json:"value_kind"`
	Derivation      string `json:"derivation,omitempty"`
	AggregationKind string `json:"aggregation_kind"`
}

// TemplateResponse describes one template configuration
type TemplateResponse struct {
	TemplateCode  string                    `json:"template_code"`
	Description   string                    `json:"description,omitempty"`
	IsAggregated  bool                      `json:"is_aggregated"`
	GroupByFields []string                  `json:"group_by_fields,omitempty"`
	Mappings      []TemplateMappingResponse `json:"mappings,omitempty"`
}

// BatchResponse describes one process batch
type BatchResponse struct {
	ID           int64  `json:"id"`
	TemplateCode string `json:"template_code"`
	Source       string `json:"source,omitempty"`
	TotalRows    int    `json:"total_rows"`
	InsertedRows int    `json:"inserted_rows"`
	UpdatedRows  int    `json:"updated_rows"`
	ErrorRows    int    `json:"error_rows"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}
