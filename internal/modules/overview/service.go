// Package overview implements the pipeline orchestrator: it composes
// extraction, aggregation and enrichment into the portfolio overview
// use cases, and exposes them to the HTTP layer.
package overview

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avasseur/folio/internal/dataset"
	"github.com/avasseur/folio/internal/domain"
	"github.com/avasseur/folio/internal/modules/enrichment"
	"github.com/avasseur/folio/internal/modules/transactions"
	"github.com/avasseur/folio/internal/modules/transforms"
)

// Stage labels the orchestrator's linear pipeline states. A request
// only ever moves forward; the first failing stage aborts the rest and
// its error is surfaced unchanged.
type Stage string

const (
	StageExtracted  Stage = "extracted"
	StageAggregated Stage = "aggregated"
	StageEnriched   Stage = "enriched"
	StageResponded  Stage = "responded"
)

// Service orchestrates the analytics pipeline.
type Service struct {
	source   domain.TransactionSource
	enricher *enrichment.Service
	log      zerolog.Logger
}

// NewService creates the pipeline orchestrator.
func NewService(source domain.TransactionSource, enricher *enrichment.Service, log zerolog.Logger) *Service {
	return &Service{
		source:   source,
		enricher: enricher,
		log:      log.With().Str("service", "overview").Logger(),
	}
}

// ByAttribute runs the overview pipeline: extract transactions joined
// on the attribute, sum quantity per attribute value, then enrich each
// group with its latest and previous-close price. Per-row oracle
// failures surface as sentinel values in the result, never as errors.
func (s *Service) ByAttribute(ctx context.Context, attribute domain.Attribute) (*dataset.Dataset, error) {
	runID := uuid.NewString()
	log := s.log.With().Str("run_id", runID).Str("attribute", string(attribute)).Logger()

	extracted, err := s.source.FetchByAttribute(ctx, attribute)
	if err != nil {
		return nil, fmt.Errorf("extract stage: %w", err)
	}
	s.logStage(log, StageExtracted, extracted)

	groupColumn := transactions.GroupColumn(attribute)
	aggregated, err := transforms.SumQuantityByAttribute(groupColumn, extracted)
	if err != nil {
		return nil, fmt.Errorf("aggregate stage: %w", err)
	}
	s.logStage(log, StageAggregated, aggregated)

	enriched, err := s.enricher.AttachLastPrice(ctx, aggregated, groupColumn)
	if err != nil {
		return nil, fmt.Errorf("enrich stage: %w", err)
	}
	enriched, err = s.enricher.AttachPreviousClose(ctx, enriched, groupColumn)
	if err != nil {
		return nil, fmt.Errorf("enrich stage: %w", err)
	}
	s.logStage(log, StageEnriched, enriched)

	s.logStage(log, StageResponded, enriched)
	return enriched, nil
}

// Positions runs the position pipeline: extract security-joined
// transactions, fold them into one row per security with summed
// quantity and mean cost price, enrich with the latest price and
// derive the cumulative return per position. Positions whose total
// cost is zero carry a non-finite cumulative return for the caller to
// inspect.
func (s *Service) Positions(ctx context.Context) (*dataset.Dataset, error) {
	runID := uuid.NewString()
	log := s.log.With().Str("run_id", runID).Str("attribute", "positions").Logger()

	extracted, err := s.source.FetchByAttribute(ctx, domain.AttributeSecurity)
	if err != nil {
		return nil, fmt.Errorf("extract stage: %w", err)
	}
	s.logStage(log, StageExtracted, extracted)

	aggregated, err := transforms.AggregateCostPrice(extracted)
	if err != nil {
		return nil, fmt.Errorf("aggregate stage: %w", err)
	}
	s.logStage(log, StageAggregated, aggregated)

	enriched, err := s.enricher.AttachLastPrice(ctx, aggregated, transforms.ColISIN)
	if err != nil {
		return nil, fmt.Errorf("enrich stage: %w", err)
	}
	s.logStage(log, StageEnriched, enriched)

	result, err := transforms.ComputeCumulativeReturn(enriched)
	if err != nil {
		return nil, fmt.Errorf("respond stage: %w", err)
	}
	s.logStage(log, StageResponded, result)
	return result, nil
}

func (s *Service) logStage(log zerolog.Logger, stage Stage, ds *dataset.Dataset) {
	log.Debug().Str("stage", string(stage)).Int("rows", ds.Len()).Msg("Pipeline stage complete")
}
