package downform

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNaturalKey_IsComplete(t *testing.T) {
	assert.True(t, NaturalKey{OrderID: "ORD-1", FormName: "gmarket_erp"}.IsComplete())
	assert.False(t, NaturalKey{OrderID: "", FormName: "gmarket_erp"}.IsComplete())
	assert.False(t, NaturalKey{OrderID: "ORD-1", FormName: ""}.IsComplete())
	assert.False(t, NaturalKey{}.IsComplete())
}

func TestOrderRow_Normalize(t *testing.T) {
	row := OrderRow{
		OrderID:  "ORD-1",
		FormName: "gmarket_erp",
		Fields: map[string]any{
			"buyer_name": "",
			"sku_alias":  "RedShirt",
			"sale_cnt":   0,
		},
	}

	row.Normalize()

	assert.Nil(t, row.Fields["buyer_name"])
	assert.Equal(t, "RedShirt", row.Fields["sku_alias"])
	assert.Equal(t, 0, row.Fields["sale_cnt"], "numeric zero is not emptiness")
}

func TestStringify(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "RedShirt", "RedShirt"},
		{"int", 42, "42"},
		{"float drops trailing zeros", 2.0, "2"},
		{"float keeps fraction", 2.5, "2.5"},
		{"bool", true, "true"},
		{"decimal", decimal.NewFromInt(35), "35"},
		{"time", ts, "2026-08-01T12:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Stringify(tt.in))
		})
	}
}

func TestToDecimal(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   string
		wantOK bool
	}{
		{"int", 10, "10", true},
		{"float", 2.5, "2.5", true},
		{"numeric string", "20", "20", true},
		{"empty string", "", "0", false},
		{"non-numeric string", "abc", "0", false},
		{"nil", nil, "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := ToDecimal(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, d.String())
		})
	}
}
