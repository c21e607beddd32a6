package yahoo

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/avasseur/folio/internal/domain"
)

// batchConcurrency bounds in-flight chart requests per batch; the
// client's rate limiter throttles the aggregate request rate.
const batchConcurrency = 4

// Oracle adapts the chart client to domain.PriceOracle and
// domain.BatchOracle. Batch results are index-aligned with the
// requested identifiers and carry per-identifier errors, so one
// unknown symbol never fails a batch.
type Oracle struct {
	client *Client
}

// NewOracle wraps a chart client as a price oracle.
func NewOracle(client *Client) *Oracle {
	return &Oracle{client: client}
}

// CurrentPrice returns the latest close price and date.
func (o *Oracle) CurrentPrice(ctx context.Context, identifier string) (domain.Quote, error) {
	return o.client.Quote(ctx, identifier)
}

// PreviousClose returns the previous session's close price.
func (o *Oracle) PreviousClose(ctx context.Context, identifier string) (float64, error) {
	return o.client.PreviousClose(ctx, identifier)
}

// BatchCurrent resolves quotes for all identifiers with bounded
// concurrency, preserving input order.
func (o *Oracle) BatchCurrent(ctx context.Context, identifiers []string) []domain.QuoteResult {
	results := make([]domain.QuoteResult, len(identifiers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, id := range identifiers {
		i, id := i, id
		g.Go(func() error {
			quote, err := o.client.Quote(gctx, id)
			results[i] = domain.QuoteResult{Quote: quote, Err: err}
			// Lookup failures stay per-slot; never cancel the group.
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// BatchPreviousClose resolves previous closes for all identifiers with
// bounded concurrency, preserving input order.
func (o *Oracle) BatchPreviousClose(ctx context.Context, identifiers []string) []domain.PriceResult {
	results := make([]domain.PriceResult, len(identifiers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, id := range identifiers {
		i, id := i, id
		g.Go(func() error {
			price, err := o.client.PreviousClose(gctx, id)
			results[i] = domain.PriceResult{Price: price, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
