package downform

import (
	"time"

	"github.com/downform/backend/internal/domain/shared"
)

// RawRecord is one already-parsed input row: field name to scalar value
// (string, number, time, or nil). Field names are lower-case stable
// identifiers supplied by the upstream parser.
type RawRecord map[string]any

// NaturalKey is the business key identifying the same order line across
// runs, as opposed to the surrogate row id.
type NaturalKey struct {
	OrderID  string
	FormName string
}

// IsComplete reports whether both key fields are populated. Rows with an
// incomplete key cannot be matched against existing rows and always
// insert.
func (k NaturalKey) IsComplete() bool {
	return k.OrderID != "" && k.FormName != ""
}

// OrderRow is one normalized down-form order line produced by the
// transformation pipeline. Fields holds whatever the template's column
// mappings populated, keyed by target column; process metadata is stamped
// by the pipeline, never by configuration.
type OrderRow struct {
	shared.BaseEntity
	Idx       string
	OrderID   string
	FormName  string
	Seq       int
	ProcessDT time.Time
	BatchID   *int64
	Fields    map[string]any
}

// Key returns the row's natural key
func (r *OrderRow) Key() NaturalKey {
	return NaturalKey{OrderID: r.OrderID, FormName: r.FormName}
}

// Normalize converts empty-string values in the mapped fields to nil,
// so emptiness is never mistaken for an intentional blank value
// downstream. An empty OrderID stays "" here; the persistence model
// stores it as NULL so the unique index never matches incomplete keys.
func (r *OrderRow) Normalize() {
	for col, v := range r.Fields {
		if s, ok := v.(string); ok && s == "" {
			r.Fields[col] = nil
		}
	}
}
