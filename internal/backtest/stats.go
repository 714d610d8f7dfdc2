package backtest

import (
	"math"
	"sort"
)

// AggregatorOptions tunes how trades reduce to metrics.
//
// TotalReturn is a simple (non-compounding) sum of per-trade returns by
// default, treating each trade as an independent capital allocation;
// Compounding switches to the product of (1+r). The Sharpe ratio is
// mean/stdev of per-trade returns scaled by Annualization; the default
// of 1 leaves it unannualized since trade resolution is not known here.
// Use math.Sqrt(252) for daily-resolution trades.
type AggregatorOptions struct {
	Compounding   bool    `mapstructure:"compounding"`
	Annualization float64 `mapstructure:"annualization"`
}

// DefaultAggregatorOptions returns the documented defaults
func DefaultAggregatorOptions() AggregatorOptions {
	return AggregatorOptions{Compounding: false, Annualization: 1}
}

// CalculateMetrics reduces a trade list, possibly spanning symbols, to
// performance metrics. Pure and idempotent: the same trades always yield
// identical output, and an empty list yields zero values rather than an
// error.
func CalculateMetrics(trades []Trade, opts AggregatorOptions) Metrics {
	if len(trades) == 0 {
		return Metrics{}
	}

	// Drawdown walks the cumulative return curve in exit order
	ordered := make([]Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExitDate.Before(ordered[j].ExitDate)
	})

	var winning int
	var sum float64
	returns := make([]float64, len(ordered))
	for i, t := range ordered {
		returns[i] = t.PnLPercent
		sum += t.PnLPercent
		if t.IsWin() {
			winning++
		}
	}

	total := sum
	if opts.Compounding {
		total = 1.0
		for _, r := range returns {
			total *= 1 + r
		}
		total -= 1
	}

	return Metrics{
		TotalTrades:   len(ordered),
		WinningTrades: winning,
		LosingTrades:  len(ordered) - winning,
		WinRate:       float64(winning) / float64(len(ordered)),
		TotalReturn:   total,
		AverageReturn: sum / float64(len(ordered)),
		MaxDrawdown:   maxDrawdown(returns),
		SharpeRatio:   sharpeRatio(returns, opts.Annualization),
	}
}

// maxDrawdown finds the largest peak-to-trough decline of the cumulative
// simple-sum return curve.
func maxDrawdown(returns []float64) float64 {
	var cumulative, peak, maxDD float64
	for _, r := range returns {
		cumulative += r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// sharpeRatio computes mean/stdev of per-trade returns with sample
// variance, scaled by the annualization factor. Degenerate inputs
// (fewer than two trades, zero variance) yield 0.
func sharpeRatio(returns []float64, annualization float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))
	if stdDev == 0 {
		return 0
	}

	if annualization <= 0 {
		annualization = 1
	}
	return mean / stdDev * annualization
}
