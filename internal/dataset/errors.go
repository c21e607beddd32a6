package dataset

import "errors"

// Structural dataset errors. Transforms that hit one of these abort
// the whole request; they are never downgraded to sentinel values.
var (
	// ErrMissingColumn reports access to a column the dataset does not have.
	ErrMissingColumn = errors.New("missing column")
	// ErrColumnType reports a value or operation that contradicts a
	// column's declared kind.
	ErrColumnType = errors.New("column type mismatch")
	// ErrLengthMismatch reports columns of unequal length at construction.
	ErrLengthMismatch = errors.New("column length mismatch")
	// ErrDuplicateColumn reports two columns declared under one name.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrUnknownAggregation reports an aggregation the GroupBy
	// implementation does not support.
	ErrUnknownAggregation = errors.New("unknown aggregation")
)
