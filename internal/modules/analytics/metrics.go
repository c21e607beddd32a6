// Package analytics provides the return and risk metrics engine. All
// functions are pure: they take ordered numeric series and perform no
// I/O. Ratios with a zero denominator return non-finite values rather
// than errors so callers decide how to present them; only structural
// problems (bad window, series too short) fail with typed errors.
package analytics

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInvalidWindow reports a rolling window outside [1, len(series)].
	ErrInvalidWindow = errors.New("invalid window size")
	// ErrInsufficientData reports a series too short (or misaligned)
	// for the requested metric.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDivisionByZero reports a return computed against a zero base
	// price or a non-positive holding period.
	ErrDivisionByZero = errors.New("division by zero")
)

// RollingVariation computes the percentage variation over a sliding
// window: (x[i] - x[i-window+1]) / x[i-window+1] for every valid
// window end. The output has len(series) - window + 1 entries. A zero
// value at a window start yields a non-finite entry, which is
// propagated, not trapped.
func RollingVariation(series []float64, window int) ([]float64, error) {
	if window < 1 || window > len(series) {
		return nil, fmt.Errorf("window %d for series of length %d: %w",
			window, len(series), ErrInvalidWindow)
	}
	out := make([]float64, 0, len(series)-window+1)
	for end := window - 1; end < len(series); end++ {
		start := series[end-window+1]
		out = append(out, (series[end]-start)/start)
	}
	return out, nil
}

// Beta measures the systematic risk of a security against a benchmark:
// the covariance of their period-over-period variations divided by the
// variance of the benchmark variation. Both series must be the same
// length and hold at least 3 points, so that at least two variation
// points exist for the covariance. A zero benchmark variance yields a
// non-finite beta, returned as-is.
//
// The variance is computed as the benchmark variation's covariance
// with itself, so two identical series give a beta of exactly 1.
func Beta(security, benchmark []float64) (float64, error) {
	if len(security) != len(benchmark) {
		return 0, fmt.Errorf("series lengths %d and %d differ: %w",
			len(security), len(benchmark), ErrInsufficientData)
	}
	if len(security) < 3 {
		return 0, fmt.Errorf("need at least 3 points, got %d: %w",
			len(security), ErrInsufficientData)
	}

	securityVar, err := RollingVariation(security, 2)
	if err != nil {
		return 0, err
	}
	benchmarkVar, err := RollingVariation(benchmark, 2)
	if err != nil {
		return 0, err
	}

	covariance := stat.Covariance(benchmarkVar, securityVar, nil)
	variance := stat.Covariance(benchmarkVar, benchmarkVar, nil)
	return covariance / variance, nil
}

// SharpeResult carries the Sharpe ratio together with every
// intermediate term, so callers can audit the computation.
type SharpeResult struct {
	MeanSecurityReturn  float64 `json:"mean_security_return"`
	MeanBenchmarkReturn float64 `json:"mean_benchmark_return"`
	StdDevSecurity      float64 `json:"std_dev_security"`
	ExcessReturn        float64 `json:"excess_return"`
	SharpeRatio         float64 `json:"sharpe_ratio"`
}

// SharpeRatio computes the excess of the security's mean return over
// the benchmark's, per unit of the security's (population) standard
// deviation. A constant security series has zero deviation and yields
// a non-finite ratio.
func SharpeRatio(security, benchmark []float64) (SharpeResult, error) {
	if len(security) == 0 || len(benchmark) == 0 {
		return SharpeResult{}, fmt.Errorf("empty series: %w", ErrInsufficientData)
	}

	meanSecurity := stat.Mean(security, nil)
	meanBenchmark := stat.Mean(benchmark, nil)
	stdDev := stat.PopStdDev(security, nil)
	excess := meanSecurity - meanBenchmark

	return SharpeResult{
		MeanSecurityReturn:  meanSecurity,
		MeanBenchmarkReturn: meanBenchmark,
		StdDevSecurity:      stdDev,
		ExcessReturn:        excess,
		SharpeRatio:         excess / stdDev,
	}, nil
}

// TreynorRatio computes the excess of the security's mean return over
// the benchmark's, per unit of systematic risk (beta). A zero beta
// yields a non-finite ratio, returned as-is.
func TreynorRatio(security, benchmark []float64) (float64, error) {
	beta, err := Beta(security, benchmark)
	if err != nil {
		return 0, err
	}
	excess := stat.Mean(security, nil) - stat.Mean(benchmark, nil)
	return excess / beta, nil
}

// JensenAlpha computes the portfolio's excess return over the return
// predicted by CAPM given its beta against the benchmark. All three
// series must be equal length and index-aligned (index i is the same
// period across all of them).
func JensenAlpha(portfolio, benchmark, riskFree []float64) (float64, error) {
	if len(portfolio) != len(benchmark) || len(portfolio) != len(riskFree) {
		return 0, fmt.Errorf("series lengths %d/%d/%d differ: %w",
			len(portfolio), len(benchmark), len(riskFree), ErrInsufficientData)
	}
	beta, err := Beta(portfolio, benchmark)
	if err != nil {
		return 0, err
	}
	meanPortfolio := stat.Mean(portfolio, nil)
	meanBenchmark := stat.Mean(benchmark, nil)
	meanRiskFree := stat.Mean(riskFree, nil)
	return meanPortfolio - meanRiskFree - beta*(meanBenchmark-meanRiskFree), nil
}
