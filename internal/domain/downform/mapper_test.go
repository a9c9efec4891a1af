package downform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalFunc adapts a function to the Evaluator interface for tests.
type evalFunc func(expression string, record RawRecord) (any, error)

func (f evalFunc) Evaluate(expression string, record RawRecord) (any, error) {
	return f(expression, record)
}

func TestMapField_Copy(t *testing.T) {
	rec := RawRecord{"order_id": "ORD-1", "sale_cnt": 2}

	v, err := MapField(rec, ColumnMapping{
		TargetColumn: "order_id",
		SourceField:  "order_id",
		ValueKind:    ValueKindCopy,
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ORD-1", v)
}

func TestMapField_CopyMissingSourceYieldsNil(t *testing.T) {
	v, err := MapField(RawRecord{}, ColumnMapping{
		TargetColumn: "order_id",
		SourceField:  "order_id",
		ValueKind:    ValueKindCopy,
	}, nil)

	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMapField_Empty(t *testing.T) {
	v, err := MapField(RawRecord{"order_id": "ORD-1"}, ColumnMapping{
		TargetColumn: "memo",
		ValueKind:    ValueKindEmpty,
	}, nil)

	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMapField_Derived(t *testing.T) {
	eval := evalFunc(func(expression string, record RawRecord) (any, error) {
		assert.Equal(t, "concat(sku_alias, ' ', sale_cnt)", expression)
		return "RedShirt 2", nil
	})

	v, err := MapField(RawRecord{}, ColumnMapping{
		TargetColumn: "item_summary",
		ValueKind:    ValueKindDerived,
		Derivation:   "concat(sku_alias, ' ', sale_cnt)",
	}, eval)

	require.NoError(t, err)
	assert.Equal(t, "RedShirt 2", v)
}

func TestMapField_DerivedErrorPropagates(t *testing.T) {
	eval := evalFunc(func(string, RawRecord) (any, error) {
		return nil, errors.New("unknown field")
	})

	v, err := MapField(RawRecord{}, ColumnMapping{
		TargetColumn: "item_summary",
		ValueKind:    ValueKindDerived,
		Derivation:   "bad",
	}, eval)

	assert.Error(t, err)
	assert.Nil(t, v)
}

func TestMapRow_AppliesAllMappingsAndDegradesPerField(t *testing.T) {
	eval := evalFunc(func(expression string, record RawRecord) (any, error) {
		if expression == "boom" {
			return nil, errors.New("boom")
		}
		return "derived-value", nil
	})

	template := &TemplateConfig{
		TemplateCode: "gmarket_erp",
		Mappings: []ColumnMapping{
			{ColumnOrder: 1, TargetColumn: "order_id", SourceField: "order_id", ValueKind: ValueKindCopy, AggregationKind: AggregationNone},
			{ColumnOrder: 2, TargetColumn: "summary", ValueKind: ValueKindDerived, Derivation: "ok", AggregationKind: AggregationNone},
			{ColumnOrder: 3, TargetColumn: "broken", ValueKind: ValueKindDerived, Derivation: "boom", AggregationKind: AggregationNone},
			{ColumnOrder: 4, TargetColumn: "memo", ValueKind: ValueKindEmpty, AggregationKind: AggregationNone},
		},
	}

	fields, degraded := MapRow(RawRecord{"order_id": "ORD-1"}, template, eval)

	assert.Equal(t, "ORD-1", fields["order_id"])
	assert.Equal(t, "derived-value", fields["summary"])
	assert.Nil(t, fields["broken"], "failed derivation degrades to null")
	assert.Nil(t, fields["memo"])

	require.Len(t, degraded, 1)
	assert.Equal(t, "broken", degraded[0].TargetColumn)
}
