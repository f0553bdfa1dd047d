package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/concordbio/concord/internal/frame"
)

var (
	aminoAcidPattern  = regexp.MustCompile(`^[EIFNSWGAHYTQLVCDPRKMOXU]+$`)
	nucleotidePattern = regexp.MustCompile(`^[ACGT]+$`)
)

// CoerceValues converts a column's raw values to the spec's type.
// Sequence values that fail the alphabet check are mapped to null and
// reported so the caller can record them. Entity columns are resolved
// elsewhere and are rejected here.
func (c ColumnSpec) CoerceValues(col frame.Series) (frame.Series, []string, error) {
	switch c.Type.Kind() {
	case KindString:
		return coercePrimitive(col, frame.Value.CoerceString)
	case KindInt:
		return coercePrimitive(col, frame.Value.CoerceInt)
	case KindFloat:
		return coercePrimitive(col, frame.Value.CoerceFloat)
	case KindBool:
		return coercePrimitive(col, frame.Value.CoerceBool)
	case KindAminoAcidSequence:
		return coerceSequence(col, aminoAcidPattern)
	case KindNucleotideSequence:
		return coerceSequence(col, nucleotidePattern)
	case KindEntity:
		return frame.Series{}, nil, fmt.Errorf("column %q: entity columns are normalised, not coerced", c.Name)
	default:
		return frame.Series{}, nil, fmt.Errorf("column %q: unknown value type %s", c.Name, c.Type)
	}
}

func coercePrimitive(col frame.Series, coerce func(frame.Value) (frame.Value, error)) (frame.Series, []string, error) {
	values := make([]frame.Value, len(col.Values))
	for i, v := range col.Values {
		coerced, err := coerce(v)
		if err != nil {
			return frame.Series{}, nil, fmt.Errorf("column %q row %d: %w", col.Name, i, err)
		}
		values[i] = coerced
	}
	return frame.NewSeries(col.Name, values...), nil, nil
}

// coerceSequence trims each value and nulls out anything outside the
// alphabet, collecting the distinct rejected values in first-seen order.
func coerceSequence(col frame.Series, pattern *regexp.Regexp) (frame.Series, []string, error) {
	values := make([]frame.Value, len(col.Values))
	var rejected []string
	seen := make(map[string]struct{})
	for i, v := range col.Values {
		if v.IsNull() {
			values[i] = frame.Null()
			continue
		}
		coerced, err := v.CoerceString()
		if err != nil {
			return frame.Series{}, nil, fmt.Errorf("column %q row %d: %w", col.Name, i, err)
		}
		s, _ := coerced.StringVal()
		trimmed := strings.TrimSpace(s)
		if !pattern.MatchString(trimmed) {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				rejected = append(rejected, s)
			}
			values[i] = frame.Null()
			continue
		}
		values[i] = frame.String(trimmed)
	}
	return frame.NewSeries(col.Name, values...), rejected, nil
}
