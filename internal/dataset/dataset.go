// Package dataset provides the columnar table representation shared by
// every stage of the analytics pipeline. A Dataset maps column names to
// ordered value sequences of equal length; row i across all columns
// describes one logical record.
//
// Datasets are value objects: every operation returns a new Dataset and
// never mutates its receiver. Column types are declared once at
// construction and checked before any arithmetic is applied, so a
// transform that reaches for a non-numeric column fails up front
// instead of producing garbage rows.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Kind is the declared semantic type of a column.
type Kind int

const (
	// KindString holds free-form text values (names, identifiers).
	KindString Kind = iota
	// KindNumeric holds float64 values; the only kind aggregations
	// and derived arithmetic accept.
	KindNumeric
	// KindTime holds time.Time values.
	KindTime
)

// String returns the lowercase kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumeric:
		return "numeric"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column is one named value sequence. Values may be nil (missing);
// non-nil values must match the declared Kind.
type Column struct {
	Kind   Kind
	Values []any
}

// ColumnSpec declares a column at construction time.
type ColumnSpec struct {
	Name   string
	Kind   Kind
	Values []any
}

// Dataset is an immutable columnar table.
type Dataset struct {
	order []string
	cols  map[string]Column
}

// New builds a Dataset from ordered column specs. It fails if two specs
// share a name, if column lengths differ, or if a non-nil value does
// not match its column's declared kind.
func New(specs ...ColumnSpec) (*Dataset, error) {
	d := &Dataset{
		order: make([]string, 0, len(specs)),
		cols:  make(map[string]Column, len(specs)),
	}

	length := -1
	for _, spec := range specs {
		if _, dup := d.cols[spec.Name]; dup {
			return nil, fmt.Errorf("column %q: %w", spec.Name, ErrDuplicateColumn)
		}
		if length == -1 {
			length = len(spec.Values)
		} else if len(spec.Values) != length {
			return nil, fmt.Errorf("column %q has %d values, want %d: %w",
				spec.Name, len(spec.Values), length, ErrLengthMismatch)
		}
		values := make([]any, len(spec.Values))
		for i, v := range spec.Values {
			normalized, err := normalize(spec.Kind, v)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", spec.Name, i, err)
			}
			values[i] = normalized
		}
		d.order = append(d.order, spec.Name)
		d.cols[spec.Name] = Column{Kind: spec.Kind, Values: values}
	}
	return d, nil
}

// normalize checks a single value against the declared kind. Integers
// are widened to float64 in numeric columns so SQL scans and literal
// test fixtures both work without casts everywhere.
func normalize(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindNumeric:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case KindTime:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("value %v (%T) does not match declared kind %s: %w",
		v, v, kind, ErrColumnType)
}

// Len returns the row count.
func (d *Dataset) Len() int {
	if len(d.order) == 0 {
		return 0
	}
	return len(d.cols[d.order[0]].Values)
}

// Columns returns column names in their declared order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Column returns the named column.
func (d *Dataset) Column(name string) (Column, bool) {
	c, ok := d.cols[name]
	return c, ok
}

// Floats returns the named numeric column as a float64 slice, with
// missing values mapped to NaN.
func (d *Dataset) Floats(name string) ([]float64, error) {
	col, ok := d.cols[name]
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrMissingColumn)
	}
	if col.Kind != KindNumeric {
		return nil, fmt.Errorf("column %q is %s, want numeric: %w", name, col.Kind, ErrColumnType)
	}
	out := make([]float64, len(col.Values))
	for i, v := range col.Values {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = v.(float64)
	}
	return out, nil
}

// Strings returns the named string column, with missing values mapped
// to the empty string.
func (d *Dataset) Strings(name string) ([]string, error) {
	col, ok := d.cols[name]
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrMissingColumn)
	}
	if col.Kind != KindString {
		return nil, fmt.Errorf("column %q is %s, want string: %w", name, col.Kind, ErrColumnType)
	}
	out := make([]string, len(col.Values))
	for i, v := range col.Values {
		if v == nil {
			continue
		}
		out[i] = v.(string)
	}
	return out, nil
}

// Project returns a new Dataset containing only the requested columns,
// preserving their original declaration order. Unknown names are
// silently dropped; projecting on nothing known yields an empty
// Dataset, never an error.
func (d *Dataset) Project(keep ...string) *Dataset {
	wanted := make(map[string]bool, len(keep))
	for _, k := range keep {
		wanted[k] = true
	}
	out := &Dataset{cols: make(map[string]Column)}
	for _, name := range d.order {
		if !wanted[name] {
			continue
		}
		out.order = append(out.order, name)
		out.cols[name] = cloneColumn(d.cols[name])
	}
	return out
}

// DedupeColumns reduces every column to its set of distinct values,
// independently per column. Row correspondence across columns is
// deliberately broken by this operation (columns may end up with
// different lengths), which is why it returns plain value slices
// rather than a Dataset. Value order follows first occurrence.
func (d *Dataset) DedupeColumns() map[string][]any {
	out := make(map[string][]any, len(d.order))
	for _, name := range d.order {
		col := d.cols[name]
		seen := make(map[string]bool, len(col.Values))
		var unique []any
		for _, v := range col.Values {
			key := encodeValue(v)
			if seen[key] {
				continue
			}
			seen[key] = true
			unique = append(unique, v)
		}
		out[name] = unique
	}
	return out
}

// Derive returns a new Dataset with an appended column computed
// row-wise by fn. A fn error (including a missing-column access via
// Row) aborts the derive and is returned unchanged.
func (d *Dataset) Derive(name string, kind Kind, fn func(Row) (any, error)) (*Dataset, error) {
	if _, dup := d.cols[name]; dup {
		return nil, fmt.Errorf("column %q: %w", name, ErrDuplicateColumn)
	}
	values := make([]any, d.Len())
	for i := 0; i < d.Len(); i++ {
		v, err := fn(Row{d: d, index: i})
		if err != nil {
			return nil, err
		}
		normalized, err := normalize(kind, v)
		if err != nil {
			return nil, fmt.Errorf("derived column %q row %d: %w", name, i, err)
		}
		values[i] = normalized
	}
	out := d.clone()
	out.order = append(out.order, name)
	out.cols[name] = Column{Kind: kind, Values: values}
	return out, nil
}

// WithColumn returns a new Dataset with an appended pre-computed
// column. The values must match the dataset's row count and the
// declared kind.
func (d *Dataset) WithColumn(name string, kind Kind, values []any) (*Dataset, error) {
	if _, dup := d.cols[name]; dup {
		return nil, fmt.Errorf("column %q: %w", name, ErrDuplicateColumn)
	}
	if len(d.order) > 0 && len(values) != d.Len() {
		return nil, fmt.Errorf("column %q has %d values, want %d: %w",
			name, len(values), d.Len(), ErrLengthMismatch)
	}
	normalized := make([]any, len(values))
	for i, v := range values {
		nv, err := normalize(kind, v)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		normalized[i] = nv
	}
	out := d.clone()
	out.order = append(out.order, name)
	out.cols[name] = Column{Kind: kind, Values: normalized}
	return out, nil
}

// Rename returns a new Dataset with one column renamed in place
// (declaration order preserved).
func (d *Dataset) Rename(from, to string) (*Dataset, error) {
	col, ok := d.cols[from]
	if !ok {
		return nil, fmt.Errorf("column %q: %w", from, ErrMissingColumn)
	}
	if _, dup := d.cols[to]; dup {
		return nil, fmt.Errorf("column %q: %w", to, ErrDuplicateColumn)
	}
	out := &Dataset{
		order: make([]string, len(d.order)),
		cols:  make(map[string]Column, len(d.cols)),
	}
	for i, name := range d.order {
		if name == from {
			out.order[i] = to
			out.cols[to] = cloneColumn(col)
			continue
		}
		out.order[i] = name
		out.cols[name] = cloneColumn(d.cols[name])
	}
	return out, nil
}

// Row is a read-only view over one logical record, handed to Derive
// callbacks.
type Row struct {
	d     *Dataset
	index int
}

// Value returns the raw value of the named column at this row.
func (r Row) Value(name string) (any, error) {
	col, ok := r.d.cols[name]
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrMissingColumn)
	}
	return col.Values[r.index], nil
}

// Float returns the named numeric value at this row, NaN when missing.
func (r Row) Float(name string) (float64, error) {
	col, ok := r.d.cols[name]
	if !ok {
		return 0, fmt.Errorf("column %q: %w", name, ErrMissingColumn)
	}
	if col.Kind != KindNumeric {
		return 0, fmt.Errorf("column %q is %s, want numeric: %w", name, col.Kind, ErrColumnType)
	}
	v := col.Values[r.index]
	if v == nil {
		return math.NaN(), nil
	}
	return v.(float64), nil
}

// clone copies the dataset structure; column value slices are copied
// so later appends never alias the source.
func (d *Dataset) clone() *Dataset {
	out := &Dataset{
		order: make([]string, len(d.order)),
		cols:  make(map[string]Column, len(d.cols)),
	}
	copy(out.order, d.order)
	for name, col := range d.cols {
		out.cols[name] = cloneColumn(col)
	}
	return out
}

func cloneColumn(col Column) Column {
	values := make([]any, len(col.Values))
	copy(values, col.Values)
	return Column{Kind: col.Kind, Values: values}
}

// encodeValue builds a deterministic map key for a scalar value, used
// for dedupe sets, group keys and join indexes. nil encodes distinctly
// from every real value so missing keys form their own group.
func encodeValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "\x00nil"
	case string:
		return "s:" + t
	case float64:
		return "f:" + fmt.Sprintf("%v", t)
	case time.Time:
		return "t:" + t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("x:%v", t)
	}
}

func encodeTuple(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = encodeValue(v)
	}
	return strings.Join(parts, "\x1f")
}

// compareValues orders two scalar values of the same column: nil sorts
// first, then by natural order of the underlying type.
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case time.Time:
		bv := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		default:
			return 0
		}
	default:
		return strings.Compare(encodeValue(a), encodeValue(b))
	}
}

func compareTuples(a, b []any) int {
	for i := range a {
		if c := compareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// sortTuples orders group key tuples ascending, nil keys first.
func sortTuples(tuples [][]any) {
	sort.SliceStable(tuples, func(i, j int) bool {
		return compareTuples(tuples[i], tuples[j]) < 0
	})
}
