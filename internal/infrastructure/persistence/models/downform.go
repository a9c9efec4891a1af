package models

import (
	"encoding/json"
	"time"

	"github.com/downform/backend/internal/domain/downform"
	"github.com/google/uuid"
)

// TemplateConfigModel is the persistence model for TemplateConfig.
type TemplateConfigModel struct {
	BaseModel
	TemplateCode  string                       `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description   string                       `gorm:"type:varchar(500)"`
	IsAggregated  bool                         `gorm:"not null;default:false"`
	GroupByFields string                       `gorm:"type:jsonb;default:'[]'"`
	Mappings      []TemplateColumnMappingModel `gorm:"foreignKey:TemplateConfigID"`
}

// TableName returns the table name for GORM
func (TemplateConfigModel) TableName() string {
	return "template_configs"
}

// ToDomain converts the persistence model to a domain TemplateConfig.
func (m *TemplateConfigModel) ToDomain() *downform.TemplateConfig {
	var groupBy []string
	if m.GroupByFields != "" {
		_ = json.Unmarshal([]byte(m.GroupByFields), &groupBy)
	}
	mappings := make([]downform.ColumnMapping, len(m.Mappings))
	for i := range m.Mappings {
		mappings[i] = m.Mappings[i].ToDomain()
	}
	return &downform.TemplateConfig{
		BaseEntity:    m.BaseModel.ToDomain(),
		TemplateCode:  m.TemplateCode,
		Description:   m.Description,
		IsAggregated:  m.IsAggregated,
		GroupByFields: groupBy,
		Mappings:      mappings,
	}
}

// TemplateConfigModelFromDomain creates a persistence model from a domain TemplateConfig.
func TemplateConfigModelFromDomain(t *downform.TemplateConfig) *TemplateConfigModel {
	groupBy, err := json.Marshal(t.GroupByFields)
	if err != nil {
		groupBy = []byte("[]")
	}
	m := &TemplateConfigModel{
		TemplateCode:  t.TemplateCode,
		Description:   t.Description,
		IsAggregated:  t.IsAggregated,
		GroupByFields: string(groupBy),
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	m.Mappings = make([]TemplateColumnMappingModel, len(t.Mappings))
	for i := range t.Mappings {
		m.Mappings[i] = TemplateColumnMappingModelFromDomain(t.ID, t.Mappings[i])
	}
	return m
}

// TemplateColumnMappingModel is the persistence model for ColumnMapping.
// Column order is unique within a template; it defines the iteration
// order of both mapping and aggregation.
type TemplateColumnMappingModel struct {
	BaseModel
	TemplateConfigID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_template_column_order"`
	ColumnOrder      int       `gorm:"not null;uniqueIndex:ux_template_column_order"`
	TargetColumn     string    `gorm:"type:varchar(100);not null"`
	SourceField      string    `gorm:"type:varchar(100)"`
	ValueKind        string    `gorm:"type:varchar(20);not null;default:'copy'"`
	Derivation       string    `gorm:"type:text"`
	AggregationKind  string    `gorm:"type:varchar(20);not null;default:'none'"`
	Active           bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (TemplateColumnMappingModel) TableName() string {
	return "template_column_mappings"
}

// ToDomain converts the persistence model to a domain ColumnMapping.
func (m *TemplateColumnMappingModel) ToDomain() downform.ColumnMapping {
	return downform.ColumnMapping{
		ColumnOrder:     m.ColumnOrder,
		TargetColumn:    m.TargetColumn,
		SourceField:     m.SourceField,
		ValueKind:       downform.ValueKind(m.ValueKind),
		Derivation:      m.Derivation,
		AggregationKind: downform.AggregationKind(m.AggregationKind),
		Active:          m.Active,
	}
}

// TemplateColumnMappingModelFromDomain creates a persistence model from a domain ColumnMapping.
func TemplateColumnMappingModelFromDomain(templateID uuid.UUID, c downform.ColumnMapping) TemplateColumnMappingModel {
	return TemplateColumnMappingModel{
		TemplateConfigID: templateID,
		ColumnOrder:      c.ColumnOrder,
		TargetColumn:     c.TargetColumn,
		SourceField:      c.SourceField,
		ValueKind:        string(c.ValueKind),
		Derivation:       c.Derivation,
		AggregationKind:  string(c.AggregationKind),
		Active:           c.Active,
	}
}

// DownFormOrderModel is the persistence model for OrderRow. The mapped
// columns live in a JSON document; the natural key and process metadata
// are real columns so the upsert path can query and index them. The
// composite unique index backs duplicate-insert detection under
// concurrent upserts.
type DownFormOrderModel struct {
	BaseModel
	Idx       string    `gorm:"type:varchar(100);not null;index"`
	OrderID   *string   `gorm:"type:varchar(100);uniqueIndex:ux_down_form_orders_natural"`
	FormName  string    `gorm:"type:varchar(100);not null;uniqueIndex:ux_down_form_orders_natural"`
	Seq       int       `gorm:"not null;default:0"`
	ProcessDT time.Time `gorm:"column:process_dt;not null"`
	BatchID   *int64    `gorm:"index"`
	Fields    string    `gorm:"type:jsonb;default:'{}'"`
}

// TableName returns the table name for GORM
func (DownFormOrderModel) TableName() string {
	return "down_form_orders"
}

// ToDomain converts the persistence model to a domain OrderRow.
func (m *DownFormOrderModel) ToDomain() *downform.OrderRow {
	fields := make(map[string]any)
	if m.Fields != "" {
		_ = json.Unmarshal([]byte(m.Fields), &fields)
	}
	orderID := ""
	if m.OrderID != nil {
		orderID = *m.OrderID
	}
	return &downform.OrderRow{
		BaseEntity: m.BaseModel.ToDomain(),
		Idx:        m.Idx,
		OrderID:    orderID,
		FormName:   m.FormName,
		Seq:        m.Seq,
		ProcessDT:  m.ProcessDT,
		BatchID:    m.BatchID,
		Fields:     fields,
	}
}

// DownFormOrderModelFromDomain creates a persistence model from a domain
// OrderRow. An empty order id persists as NULL so the composite unique
// index never matches rows without a complete natural key.
func DownFormOrderModelFromDomain(r *downform.OrderRow) *DownFormOrderModel {
	m := &DownFormOrderModel{
		Idx:       r.Idx,
		FormName:  r.FormName,
		Seq:       r.Seq,
		ProcessDT: r.ProcessDT,
		BatchID:   r.BatchID,
		Fields:    MarshalOrderFields(r.Fields),
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	if r.OrderID != "" {
		orderID := r.OrderID
		m.OrderID = &orderID
	}
	return m
}

// MarshalOrderFields serializes a mapped field set for storage.
func MarshalOrderFields(fields map[string]any) string {
	if len(fields) == 0 {
		return "{}"
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(data)
}
