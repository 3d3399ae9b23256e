// Package features projects customer records onto fixed-length numeric vectors.
package features

import (
	"fmt"

	"github.com/BerylCAtieno/customer-persona-agent/internal/errs"
	"github.com/BerylCAtieno/customer-persona-agent/internal/models"
)

// Schema is the ordered feature-key list shared by every vector of one run.
type Schema struct {
	IDField string
	Keys    []string
}

// NewSchema derives the feature keys from the first record of ds, in header
// order, leaving out the identifier.
func NewSchema(ds *models.Dataset, idField string) (Schema, error) {
	if ds.Len() == 0 {
		return Schema{}, errs.Input("no records to vectorize")
	}
	first := ds.Records[0]
	s := Schema{IDField: idField}
	for _, col := range ds.Columns {
		if col == idField {
			continue
		}
		if _, ok := first[col]; ok {
			s.Keys = append(s.Keys, col)
		}
	}
	if len(s.Keys) == 0 {
		return Schema{}, errs.Input("no feature columns besides %q", idField)
	}
	return s, nil
}

// Dim returns the vector length.
func (s Schema) Dim() int { return len(s.Keys) }

// Coverage counts the cells that did not hold a number and were vectorized as 0.
type Coverage struct {
	Sentinels map[string]int
}

// Vectorize maps records to vectors index-aligned with the input. A record that
// lacks one of the schema keys fails the whole call. Nulls and strings occupy
// their position as 0; booleans become 1 or 0.
func (s Schema) Vectorize(records []models.Record) ([][]float64, Coverage, error) {
	cov := Coverage{Sentinels: map[string]int{}}
	out := make([][]float64, len(records))
	for i, rec := range records {
		vec := make([]float64, len(s.Keys))
		for j, key := range s.Keys {
			v, ok := rec[key]
			if !ok {
				return nil, cov, &errs.InputError{Msg: fmt.Sprintf("row %d is missing feature %q", i+1, key)}
			}
			f, numeric := Numeric(v)
			if !numeric {
				cov.Sentinels[key]++
			}
			vec[j] = f
		}
		out[i] = vec
	}
	return out, cov, nil
}

// Numeric converts a cell to its vector value. The bool result is false when
// the value was not a number or boolean and 0 was substituted.
func Numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
