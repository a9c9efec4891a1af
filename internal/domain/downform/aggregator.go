package downform

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ConcatSeparator joins concatenated column values. Concat is
// order-sensitive and does not deduplicate; duplicate suppression is a
// template's own business rule, not an engine default.
const ConcatSeparator = ","

// Group is one bucket of raw records sharing a group-by key, in input
// order.
type Group struct {
	Key     []string
	Records []RawRecord
}

// GroupRecords partitions raw records by the values of the group-by
// fields. Groups are returned in first-appearance order and each group
// preserves input order, so first/concat reductions are deterministic
// for a fixed input ordering. Missing group fields count as empty
// strings; a template may group on partially-empty data deliberately.
func GroupRecords(records []RawRecord, groupByFields []string) []Group {
	index := make(map[string]int, len(records))
	groups := make([]Group, 0, len(records))

	for _, rec := range records {
		keyParts := make([]string, len(groupByFields))
		for i, f := range groupByFields {
			keyParts[i] = Stringify(rec[f])
		}
		key := strings.Join(keyParts, "\x1f")

		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, Group{Key: keyParts})
		}
		groups[pos].Records = append(groups[pos].Records, rec)
	}
	return groups
}

// ReduceGroup collapses one group of raw records into a single set of
// output fields, applying each mapping's aggregation kind in column
// order. Derived and empty columns are evaluated against the group's
// first record before reduction.
func ReduceGroup(records []RawRecord, template *TemplateConfig, eval Evaluator) (map[string]any, []FieldError) {
	fields := make(map[string]any, len(template.Mappings))
	var degraded []FieldError
	if len(records) == 0 {
		return fields, nil
	}

	for i := range template.Mappings {
		m := &template.Mappings[i]
		switch m.AggregationKind {
		case AggregationSum:
			sum := decimal.Zero
			for _, rec := range records {
				if d, ok := ToDecimal(rec[m.SourceField]); ok {
					sum = sum.Add(d)
				}
			}
			fields[m.TargetColumn] = sum
		case AggregationConcat:
			parts := make([]string, len(records))
			for j, rec := range records {
				parts[j] = Stringify(rec[m.SourceField])
			}
			fields[m.TargetColumn] = strings.Join(parts, ConcatSeparator)
		case AggregationFirst, AggregationNone:
			v, err := MapField(records[0], *m, eval)
			if err != nil {
				degraded = append(degraded, FieldError{TargetColumn: m.TargetColumn, Err: err})
				v = nil
			}
			fields[m.TargetColumn] = v
		}
	}
	return fields, degraded
}
