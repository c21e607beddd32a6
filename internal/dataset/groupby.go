package dataset

import "fmt"

// Aggregation selects how a numeric column is folded per group.
type Aggregation int

const (
	// Sum adds all non-missing values in the group.
	Sum Aggregation = iota
	// Mean averages all non-missing values in the group.
	Mean
)

type group struct {
	tuple   []any
	indices []int
}

// GroupBy groups rows by the tuple of values in groupKeys and applies
// the requested aggregation to each named numeric column. The result
// has one row per distinct key tuple, ordered by ascending key tuple
// (missing keys sort first and form their own group), with the group
// key columns followed by the aggregated columns in declaration order.
func (d *Dataset) GroupBy(groupKeys []string, aggregations map[string]Aggregation) (*Dataset, error) {
	for _, key := range groupKeys {
		if _, ok := d.cols[key]; !ok {
			return nil, fmt.Errorf("group key %q: %w", key, ErrMissingColumn)
		}
	}
	for name, agg := range aggregations {
		col, ok := d.cols[name]
		if !ok {
			return nil, fmt.Errorf("aggregated column %q: %w", name, ErrMissingColumn)
		}
		if col.Kind != KindNumeric {
			return nil, fmt.Errorf("aggregated column %q is %s, want numeric: %w",
				name, col.Kind, ErrColumnType)
		}
		if agg != Sum && agg != Mean {
			return nil, fmt.Errorf("column %q aggregation %d: %w", name, agg, ErrUnknownAggregation)
		}
	}

	// Bucket rows by encoded key tuple.
	buckets := make(map[string]*group)
	var tuples [][]any
	for i := 0; i < d.Len(); i++ {
		tuple := make([]any, len(groupKeys))
		for k, key := range groupKeys {
			tuple[k] = d.cols[key].Values[i]
		}
		enc := encodeTuple(tuple)
		g, ok := buckets[enc]
		if !ok {
			g = &group{tuple: tuple}
			buckets[enc] = g
			tuples = append(tuples, tuple)
		}
		g.indices = append(g.indices, i)
	}
	sortTuples(tuples)

	specs := make([]ColumnSpec, 0, len(groupKeys)+len(aggregations))
	for k, key := range groupKeys {
		values := make([]any, len(tuples))
		for r, tuple := range tuples {
			values[r] = tuple[k]
		}
		specs = append(specs, ColumnSpec{Name: key, Kind: d.cols[key].Kind, Values: values})
	}

	// Aggregated columns follow the dataset's declaration order so the
	// output schema is deterministic regardless of map iteration.
	for _, name := range d.order {
		agg, wanted := aggregations[name]
		if !wanted {
			continue
		}
		values := make([]any, len(tuples))
		for r, tuple := range tuples {
			g := buckets[encodeTuple(tuple)]
			values[r] = aggregate(d.cols[name].Values, g.indices, agg)
		}
		specs = append(specs, ColumnSpec{Name: name, Kind: KindNumeric, Values: values})
	}

	return New(specs...)
}

// aggregate folds the selected rows of one column. Missing values are
// skipped; a group with only missing values aggregates to nil.
func aggregate(values []any, indices []int, agg Aggregation) any {
	var sum float64
	count := 0
	for _, i := range indices {
		if values[i] == nil {
			continue
		}
		sum += values[i].(float64)
		count++
	}
	if count == 0 {
		return nil
	}
	if agg == Mean {
		return sum / float64(count)
	}
	return sum
}
