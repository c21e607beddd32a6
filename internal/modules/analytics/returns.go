package analytics

import (
	"fmt"
	"math"
)

// CumulativeReturn computes the total return of a position from its
// original price to its current price, as a ratio.
func CumulativeReturn(currentPrice, originalPrice float64) (float64, error) {
	if originalPrice == 0 {
		return 0, fmt.Errorf("original price is zero: %w", ErrDivisionByZero)
	}
	return (currentPrice - originalPrice) / originalPrice, nil
}

// AnnualizedReturn converts a cumulative return over daysHeld days
// into its yearly equivalent: (1 + r)^(365/days) - 1.
func AnnualizedReturn(daysHeld, cumulativeReturn float64) (float64, error) {
	if daysHeld <= 0 {
		return 0, fmt.Errorf("days held must be positive, got %v: %w",
			daysHeld, ErrDivisionByZero)
	}
	return math.Pow(1+cumulativeReturn, 365/daysHeld) - 1, nil
}

// RequiredAnnualizedReturn computes the yearly return needed to move a
// security from currentPrice to requiredPrice in the given number of
// years: (required/current)^(1/years) - 1.
func RequiredAnnualizedReturn(currentPrice, requiredPrice, years float64) (float64, error) {
	if currentPrice <= 0 {
		return 0, fmt.Errorf("current price must be positive, got %v: %w",
			currentPrice, ErrDivisionByZero)
	}
	if years <= 0 {
		return 0, fmt.Errorf("years must be positive, got %v: %w",
			years, ErrDivisionByZero)
	}
	return math.Pow(requiredPrice/currentPrice, 1/years) - 1, nil
}
