package domain

import (
	"context"
	"errors"

	"github.com/avasseur/folio/internal/dataset"
)

// Errors surfaced by the external collaborators. Oracle errors are
// row-scoped: enrichment isolates them per identifier instead of
// aborting the batch. ErrUnsupportedAttribute is structural and aborts
// the request.
var (
	// ErrUnsupportedAttribute reports an extraction attribute the
	// transaction source cannot join on.
	ErrUnsupportedAttribute = errors.New("unsupported attribute")
	// ErrSecurityNotFound reports an identifier the price oracle does
	// not know.
	ErrSecurityNotFound = errors.New("security not found")
	// ErrUnavailable reports a transient oracle failure (network,
	// upstream outage).
	ErrUnavailable = errors.New("market data unavailable")
)

// TransactionSource supplies joined transaction rows as columnar
// datasets. Implemented by the SQLite repository; the pipeline never
// sees the storage layer behind it.
type TransactionSource interface {
	// FetchByAttribute returns transactions joined with the reference
	// table selected by attribute. Unknown attributes fail with
	// ErrUnsupportedAttribute rather than returning an empty dataset.
	FetchByAttribute(ctx context.Context, attribute Attribute) (*dataset.Dataset, error)

	// FetchAll returns the fully joined transaction universe.
	FetchAll(ctx context.Context) (*dataset.Dataset, error)
}

// PriceOracle supplies current market prices for a security
// identifier. Both calls may fail with ErrSecurityNotFound or
// ErrUnavailable.
type PriceOracle interface {
	// CurrentPrice returns the latest close price and its date.
	CurrentPrice(ctx context.Context, identifier string) (Quote, error)

	// PreviousClose returns the previous session's close price.
	PreviousClose(ctx context.Context, identifier string) (float64, error)
}

// BatchOracle is an optional upgrade over PriceOracle. Results are
// index-aligned with the requested identifiers and carry per-id
// errors, preserving the row-scoped failure isolation of the naive
// one-call-per-row path.
type BatchOracle interface {
	BatchCurrent(ctx context.Context, identifiers []string) []QuoteResult
	BatchPreviousClose(ctx context.Context, identifiers []string) []PriceResult
}
