package downform

// Evaluator evaluates a derivation expression against a single raw
// record. Implementations must be side-effect-free and must not be able
// to reach anything beyond the supplied record; the production
// implementation lives in infrastructure/formula so it can be swapped
// for a different sandbox without touching the mapping code.
type Evaluator interface {
	Evaluate(expression string, record RawRecord) (any, error)
}

// MapField produces the value of one output column from one raw record.
// Mapping is best-effort per field: a failed derivation yields nil and
// the error, never a dropped row. Copy and empty kinds cannot fail.
func MapField(record RawRecord, mapping ColumnMapping, eval Evaluator) (any, error) {
	switch mapping.ValueKind {
	case ValueKindCopy:
		return record[mapping.SourceField], nil
	case ValueKindEmpty:
		return nil, nil
	case ValueKindDerived:
		v, err := eval.Evaluate(mapping.Derivation, record)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		// Unreachable for validated templates; treat like empty.
		return nil, nil
	}
}

// FieldError records one degraded column of a mapped row.
type FieldError struct {
	TargetColumn string
	Err          error
}

// MapRow applies every active mapping in column order to one raw record.
// This is the simple (non-aggregated) transformation. Returned errors
// are per-field degradations; the row itself always ships.
func MapRow(record RawRecord, template *TemplateConfig, eval Evaluator) (map[string]any, []FieldError) {
	fields := make(map[string]any, len(template.Mappings))
	var degraded []FieldError
	for i := range template.Mappings {
		m := &template.Mappings[i]
		v, err := MapField(record, *m, eval)
		if err != nil {
			degraded = append(degraded, FieldError{TargetColumn: m.TargetColumn, Err: err})
			v = nil
		}
		fields[m.TargetColumn] = v
	}
	return fields, degraded
}
