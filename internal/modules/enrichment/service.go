// Package enrichment augments position datasets with externally
// fetched market prices. Oracle failures are row-scoped: a security
// the oracle cannot resolve gets sentinel values (NaN price, missing
// date) and the rest of the batch proceeds untouched.
package enrichment

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/avasseur/folio/internal/dataset"
	"github.com/avasseur/folio/internal/domain"
)

// Columns appended by the enrichment stage.
const (
	ColLastDate        = "lastDate"
	ColLastPrice       = "lastPrice"
	ColPreviousClose   = "previousClosePrice"
	ColTotalClosePrice = "totalClosePrice"
	ColQuantity        = "quantity"
)

// Service enriches datasets through a price oracle. When the oracle
// also implements domain.BatchOracle the batched path is used; the
// observable behavior (row order, per-row failure isolation) is the
// same either way.
type Service struct {
	oracle domain.PriceOracle
	log    zerolog.Logger
}

// New creates an enrichment service.
func New(oracle domain.PriceOracle, log zerolog.Logger) *Service {
	return &Service{
		oracle: oracle,
		log:    log.With().Str("service", "enrichment").Logger(),
	}
}

// AttachLastPrice appends lastDate and lastPrice columns, one oracle
// lookup per row of securityColumn, aligned to the original row order.
// An empty dataset comes back unchanged apart from the two empty
// columns.
func (s *Service) AttachLastPrice(ctx context.Context, ds *dataset.Dataset, securityColumn string) (*dataset.Dataset, error) {
	identifiers, err := ds.Strings(securityColumn)
	if err != nil {
		return nil, err
	}

	results := s.currentPrices(ctx, identifiers)

	dates := make([]any, len(results))
	prices := make([]any, len(results))
	for i, res := range results {
		if res.Err != nil {
			s.log.Warn().
				Err(res.Err).
				Str("identifier", identifiers[i]).
				Msg("Price unavailable, writing sentinel values")
			dates[i] = nil
			prices[i] = math.NaN()
			continue
		}
		dates[i] = res.Quote.AsOf
		prices[i] = res.Quote.Price
	}

	withDate, err := ds.WithColumn(ColLastDate, dataset.KindTime, dates)
	if err != nil {
		return nil, err
	}
	return withDate.WithColumn(ColLastPrice, dataset.KindNumeric, prices)
}

// AttachPreviousClose appends previousClosePrice per row and, when a
// quantity column exists, the derived totalClosePrice (quantity ×
// previous close). Without a quantity column totalClosePrice is zeros
// of matching length.
func (s *Service) AttachPreviousClose(ctx context.Context, ds *dataset.Dataset, securityColumn string) (*dataset.Dataset, error) {
	identifiers, err := ds.Strings(securityColumn)
	if err != nil {
		return nil, err
	}

	results := s.previousCloses(ctx, identifiers)

	closes := make([]any, len(results))
	for i, res := range results {
		if res.Err != nil {
			s.log.Warn().
				Err(res.Err).
				Str("identifier", identifiers[i]).
				Msg("Previous close unavailable, writing sentinel value")
			closes[i] = math.NaN()
			continue
		}
		closes[i] = res.Price
	}

	withClose, err := ds.WithColumn(ColPreviousClose, dataset.KindNumeric, closes)
	if err != nil {
		return nil, err
	}

	totals := make([]any, len(closes))
	if quantities, qerr := withClose.Floats(ColQuantity); qerr == nil {
		for i := range totals {
			totals[i] = quantities[i] * closes[i].(float64)
		}
	} else {
		for i := range totals {
			totals[i] = 0.0
		}
	}
	return withClose.WithColumn(ColTotalClosePrice, dataset.KindNumeric, totals)
}

// currentPrices resolves quotes for every identifier, batched when the
// oracle supports it, sequential row-by-row otherwise.
func (s *Service) currentPrices(ctx context.Context, identifiers []string) []domain.QuoteResult {
	if batcher, ok := s.oracle.(domain.BatchOracle); ok {
		return batcher.BatchCurrent(ctx, identifiers)
	}
	results := make([]domain.QuoteResult, len(identifiers))
	for i, id := range identifiers {
		quote, err := s.oracle.CurrentPrice(ctx, id)
		results[i] = domain.QuoteResult{Quote: quote, Err: err}
	}
	return results
}

func (s *Service) previousCloses(ctx context.Context, identifiers []string) []domain.PriceResult {
	if batcher, ok := s.oracle.(domain.BatchOracle); ok {
		return batcher.BatchPreviousClose(ctx, identifiers)
	}
	results := make([]domain.PriceResult, len(identifiers))
	for i, id := range identifiers {
		price, err := s.oracle.PreviousClose(ctx, id)
		results[i] = domain.PriceResult{Price: price, Err: err}
	}
	return results
}
