// Package transforms composes dataset primitives into the named
// business transforms of the analytics pipeline: position aggregation
// and cumulative return derivation over transaction datasets.
package transforms

import (
	"fmt"

	"github.com/avasseur/folio/internal/dataset"
)

// Canonical column names produced by the transaction repository and
// consumed by the transform and enrichment stages.
const (
	ColISIN         = "isin"
	ColSecurityName = "securityName"
	ColQuantity     = "quantity"
	ColUnitPrice    = "unitPrice"
	ColTotalPrice   = "totalPrice"
	ColCostPrice    = "costPrice"
	ColLastPrice    = "lastPrice"

	// ColTotalLastPrice and ColCumulativeReturn are derived by
	// ComputeCumulativeReturn.
	ColTotalLastPrice   = "totalLastPrice"
	ColCumulativeReturn = "cumulativeReturn"
)

// SumQuantityByAttribute groups the dataset by the given attribute
// column and sums quantity per group. The result holds exactly two
// columns: the attribute and the summed quantity.
func SumQuantityByAttribute(attribute string, ds *dataset.Dataset) (*dataset.Dataset, error) {
	grouped, err := ds.GroupBy([]string{attribute}, map[string]dataset.Aggregation{
		ColQuantity: dataset.Sum,
	})
	if err != nil {
		return nil, fmt.Errorf("sum quantity by %q: %w", attribute, err)
	}
	return grouped.Project(attribute, ColQuantity), nil
}

// AggregateCostPrice folds transactions into one row per security:
// grouped by (isin, securityName), quantity and totalPrice are summed
// and the mean unit price is carried as costPrice.
func AggregateCostPrice(ds *dataset.Dataset) (*dataset.Dataset, error) {
	grouped, err := ds.GroupBy(
		[]string{ColISIN, ColSecurityName},
		map[string]dataset.Aggregation{
			ColQuantity:   dataset.Sum,
			ColUnitPrice:  dataset.Mean,
			ColTotalPrice: dataset.Sum,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate cost price: %w", err)
	}
	renamed, err := grouped.Rename(ColUnitPrice, ColCostPrice)
	if err != nil {
		return nil, fmt.Errorf("aggregate cost price: %w", err)
	}
	return renamed, nil
}

// ComputeCumulativeReturn derives totalLastPrice (quantity × last
// price) and the cumulative return against the position's total cost.
// A zero totalPrice produces a non-finite cumulative return, which is
// kept in the dataset for the caller to inspect before display.
func ComputeCumulativeReturn(ds *dataset.Dataset) (*dataset.Dataset, error) {
	withTotal, err := ds.Derive(ColTotalLastPrice, dataset.KindNumeric, func(r dataset.Row) (any, error) {
		quantity, err := r.Float(ColQuantity)
		if err != nil {
			return nil, err
		}
		lastPrice, err := r.Float(ColLastPrice)
		if err != nil {
			return nil, err
		}
		return quantity * lastPrice, nil
	})
	if err != nil {
		return nil, fmt.Errorf("compute cumulative return: %w", err)
	}

	out, err := withTotal.Derive(ColCumulativeReturn, dataset.KindNumeric, func(r dataset.Row) (any, error) {
		totalLast, err := r.Float(ColTotalLastPrice)
		if err != nil {
			return nil, err
		}
		totalPrice, err := r.Float(ColTotalPrice)
		if err != nil {
			return nil, err
		}
		return (totalLast - totalPrice) / totalPrice, nil
	})
	if err != nil {
		return nil, fmt.Errorf("compute cumulative return: %w", err)
	}
	return out, nil
}
