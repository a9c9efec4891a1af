package downform

import (
	"fmt"

	"github.com/downform/backend/internal/domain/shared"
)

// ValueKind determines how a column's value is produced from a raw record.
type ValueKind string

const (
	ValueKindCopy    ValueKind = "copy"
	ValueKindDerived ValueKind = "derived"
	ValueKindEmpty   ValueKind = "empty"
)

// IsValid checks if the value kind is valid
func (k ValueKind) IsValid() bool {
	switch k {
	case ValueKindCopy, ValueKindDerived, ValueKindEmpty:
		return true
	}
	return false
}

// AggregationKind determines how a column's values are reduced when
// multiple raw records collapse into one group.
type AggregationKind string

const (
	AggregationSum    AggregationKind = "sum"
	AggregationFirst  AggregationKind = "first"
	AggregationConcat AggregationKind = "concat"
	// AggregationNone behaves like AggregationFirst; it exists so template
	// configurations can state "no reduction" explicitly.
	AggregationNone AggregationKind = "none"
)

// IsValid checks if the aggregation kind is valid
func (k AggregationKind) IsValid() bool {
	switch k {
	case AggregationSum, AggregationFirst, AggregationConcat, AggregationNone:
		return true
	}
	return false
}

// ColumnMapping describes how one output column of a template is filled.
type ColumnMapping struct {
	ColumnOrder     int
	TargetColumn    string
	SourceField     string
	ValueKind       ValueKind
	Derivation      string
	AggregationKind AggregationKind
	Active          bool
}

// Validate checks the mapping for configuration errors
func (m *ColumnMapping) Validate() error {
	if m.TargetColumn == "" {
		return shared.NewDomainError("INVALID_MAPPING", "Target column cannot be empty")
	}
	if !m.ValueKind.IsValid() {
		return shared.NewDomainError("INVALID_MAPPING", fmt.Sprintf("Invalid value kind: %s", m.ValueKind))
	}
	if !m.AggregationKind.IsValid() {
		return shared.NewDomainError("INVALID_MAPPING", fmt.Sprintf("Invalid aggregation kind: %s", m.AggregationKind))
	}
	if m.ValueKind == ValueKindDerived && m.Derivation == "" {
		return shared.NewDomainError("INVALID_MAPPING", fmt.Sprintf("Derived column %s has no derivation expression", m.TargetColumn))
	}
	return nil
}

// TemplateConfig identifies one destination shape for down-form orders.
// Mappings hold only active column mappings, ordered by ColumnOrder; both
// row mapping and aggregation iterate them in that order.
type TemplateConfig struct {
	shared.BaseEntity
	TemplateCode  string
	Description   string
	IsAggregated  bool
	GroupByFields []string
	Mappings      []ColumnMapping
}

// ErrTemplateNotFound is returned when a template code is not registered.
// Callers must treat it as fatal for the current request; there is no
// fallback template.
var ErrTemplateNotFound = shared.NewDomainError("TEMPLATE_NOT_FOUND", "Template configuration not found")

// Validate checks the template and all of its mappings
func (t *TemplateConfig) Validate() error {
	if t.TemplateCode == "" {
		return shared.NewDomainError("INVALID_TEMPLATE", "Template code cannot be empty")
	}
	if t.IsAggregated && len(t.GroupByFields) == 0 {
		return shared.NewDomainError("INVALID_TEMPLATE", "Aggregated template requires group-by fields")
	}
	seen := make(map[int]bool, len(t.Mappings))
	for i := range t.Mappings {
		if err := t.Mappings[i].Validate(); err != nil {
			return err
		}
		if seen[t.Mappings[i].ColumnOrder] {
			return shared.NewDomainError("INVALID_TEMPLATE", fmt.Sprintf("Duplicate column order %d", t.Mappings[i].ColumnOrder))
		}
		seen[t.Mappings[i].ColumnOrder] = true
	}
	return nil
}
