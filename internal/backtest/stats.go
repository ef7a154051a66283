package backtest

import (
	"math"

	"github.com/newthinker/lunar/internal/frame"
)

// periodsPerYear assumes daily bars (~252 trading days).
const periodsPerYear = 252

// Stats holds summary statistics over the portfolio return series.
// Rendering full reports is a downstream concern; these are the numbers
// every consumer needs.
type Stats struct {
	Periods          int     `json:"periods"`
	TotalReturn      float64 `json:"total_return"`      // Cumulative, compounded
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"` // Annualized stddev
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"` // Largest peak-to-trough decline
}

// CalculateStats computes summary statistics from a per-date portfolio
// return series. NaN entries (dates inside the lookback window, before
// any position exists) are skipped, not treated as zero-return days.
func CalculateStats(series []float64) Stats {
	var returns []float64
	for _, r := range series {
		if !math.IsNaN(r) {
			returns = append(returns, r)
		}
	}
	if len(returns) == 0 {
		return Stats{}
	}

	cumulative := 1.0
	for _, r := range returns {
		cumulative *= 1 + r
	}

	n := float64(len(returns))
	stats := Stats{
		Periods:     len(returns),
		TotalReturn: cumulative - 1,
		MaxDrawdown: maxDrawdown(returns),
	}
	if cumulative > 0 {
		stats.AnnualizedReturn = math.Pow(cumulative, periodsPerYear/n) - 1
	} else {
		stats.AnnualizedReturn = -1
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= n

	if len(returns) >= 2 {
		variance := 0.0
		for _, r := range returns {
			variance += (r - mean) * (r - mean)
		}
		stdDev := math.Sqrt(variance / (n - 1))
		stats.Volatility = stdDev * math.Sqrt(periodsPerYear)
		if stdDev > 0 {
			stats.SharpeRatio = (mean * periodsPerYear) / stats.Volatility
		}
	}

	return stats
}

// maxDrawdown finds the largest peak-to-trough decline of the
// compounded equity curve.
func maxDrawdown(returns []float64) float64 {
	var maxDD float64
	peak := 1.0
	cumulative := 1.0

	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := (peak - cumulative) / peak; dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

// BenchmarkReturns extracts a buy-and-hold return series for one
// instrument from the close panel, for side-by-side comparison with the
// strategy series.
func BenchmarkReturns(closes *frame.Frame, instrument string) ([]float64, error) {
	return closes.PctChange().Column(instrument)
}
