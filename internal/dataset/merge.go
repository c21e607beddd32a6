package dataset

import "fmt"

// Merge performs an inner equi-join with right on onKey. One output
// row is emitted per matching pair, so many-to-many keys produce the
// full cross product of their matches, and rows without a match on
// either side are dropped. Rows whose join key is missing never match
// anything. When both sides declare a non-key column under the same
// name the left one wins and the right one is dropped.
//
// Output rows follow left row order, then right match order; the key
// columns must agree in kind or the join fails with ErrColumnType.
func (d *Dataset) Merge(right *Dataset, onKey string) (*Dataset, error) {
	leftKey, ok := d.cols[onKey]
	if !ok {
		return nil, fmt.Errorf("left join key %q: %w", onKey, ErrMissingColumn)
	}
	rightKey, ok := right.cols[onKey]
	if !ok {
		return nil, fmt.Errorf("right join key %q: %w", onKey, ErrMissingColumn)
	}
	if leftKey.Kind != rightKey.Kind {
		return nil, fmt.Errorf("join key %q is %s on the left and %s on the right: %w",
			onKey, leftKey.Kind, rightKey.Kind, ErrColumnType)
	}

	// Index right rows by encoded key value.
	rightIndex := make(map[string][]int)
	for i, v := range rightKey.Values {
		if v == nil {
			continue
		}
		enc := encodeValue(v)
		rightIndex[enc] = append(rightIndex[enc], i)
	}

	var leftRows, rightRows []int
	for i, v := range leftKey.Values {
		if v == nil {
			continue
		}
		for _, j := range rightIndex[encodeValue(v)] {
			leftRows = append(leftRows, i)
			rightRows = append(rightRows, j)
		}
	}

	specs := make([]ColumnSpec, 0, len(d.order)+len(right.order))
	for _, name := range d.order {
		specs = append(specs, takeRows(name, d.cols[name], leftRows))
	}
	for _, name := range right.order {
		if name == onKey {
			continue
		}
		if _, collides := d.cols[name]; collides {
			continue
		}
		specs = append(specs, takeRows(name, right.cols[name], rightRows))
	}
	return New(specs...)
}

func takeRows(name string, col Column, rows []int) ColumnSpec {
	values := make([]any, len(rows))
	for out, in := range rows {
		values[out] = col.Values[in]
	}
	return ColumnSpec{Name: name, Kind: col.Kind, Values: values}
}
