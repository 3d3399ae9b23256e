package cluster

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/BerylCAtieno/customer-persona-agent/internal/errs"
	"github.com/BerylCAtieno/customer-persona-agent/internal/models"
)

// Aggregator groups records by assigned cluster and computes per-field means.
type Aggregator struct {
	// IDField is left out of the means.
	IDField string
}

// Aggregate returns exactly k groups indexed by cluster id. Rows whose
// assignment is missing or outside [0, k) are dropped. Means cover float64
// fields only and divide by the number of members holding a number for that
// field; sums are accumulated exactly before the final conversion.
func (a Aggregator) Aggregate(records []models.Record, assignment []int, k int) ([]models.ClusterGroup, error) {
	groups := make([]models.ClusterGroup, k)
	for i := range groups {
		groups[i].ID = i
	}
	for i, rec := range records {
		if i >= len(assignment) {
			break
		}
		c := assignment[i]
		if c < 0 || c >= k {
			continue
		}
		groups[c].Members = append(groups[c].Members, rec)
	}

	for i := range groups {
		if groups[i].Empty() {
			continue
		}
		means, err := a.means(groups[i].Members)
		if err != nil {
			return nil, &errs.ClusteringError{Msg: fmt.Sprintf("cluster %d statistics", i), Err: err}
		}
		groups[i].Means = means
	}
	return groups, nil
}

func (a Aggregator) means(members []models.Record) (map[string]float64, error) {
	actx := apd.BaseContext.WithPrecision(34)
	sums := map[string]*apd.Decimal{}
	counts := map[string]int64{}

	for _, rec := range members {
		for key, v := range rec {
			f, ok := v.(float64)
			if !ok || key == a.IDField {
				continue
			}
			var d apd.Decimal
			if _, err := d.SetFloat64(f); err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			sum, ok := sums[key]
			if !ok {
				sum = new(apd.Decimal)
				sums[key] = sum
			}
			if _, err := actx.Add(sum, sum, &d); err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			counts[key]++
		}
	}

	out := make(map[string]float64, len(sums))
	for key, sum := range sums {
		var mean apd.Decimal
		if _, err := actx.Quo(&mean, sum, apd.New(counts[key], 0)); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		f, err := mean.Float64()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		out[key] = f
	}
	return out, nil
}
