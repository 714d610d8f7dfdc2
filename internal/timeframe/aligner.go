// Package timeframe aligns a higher-timeframe bar series to
// primary-timeframe evaluation points with right-edge semantics: only
// higher-timeframe bars that have already closed are visible at a given
// query timestamp, so a backtest can never peek into a still-forming bar.
package timeframe

import (
	"sort"
	"time"

	"github.com/znyinc/scanner-sub000/internal/core"
	"github.com/znyinc/scanner-sub000/internal/indicator"
)

// DefaultTolerance is the relative band around EMA21 inside which the
// trend reads as flat.
const DefaultTolerance = 0.001

// Aligner answers trend queries against one symbol's higher-timeframe
// series. Immutable after construction, safe for concurrent use.
type Aligner struct {
	bars      []core.Bar
	ema21     []float64
	tolerance float64
}

// NewAligner builds an aligner over a higher-timeframe series ordered by
// close time. The series may be empty; every query then fails closed.
func NewAligner(bars []core.Bar) (*Aligner, error) {
	if err := core.ValidateSeries(bars); err != nil {
		return nil, err
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	return &Aligner{
		bars:      bars,
		ema21:     indicator.EMA(closes, indicator.PeriodEMA21),
		tolerance: DefaultTolerance,
	}, nil
}

// WithTolerance overrides the flat band around EMA21
func (a *Aligner) WithTolerance(tol float64) *Aligner {
	a.tolerance = tol
	return a
}

// TrendAt returns the trend direction of the most recently closed
// higher-timeframe bar at or before ts. With no such bar the trend is
// flat, which downstream confirmation treats as non-confirming.
func (a *Aligner) TrendAt(ts time.Time) core.Trend {
	idx := a.latestClosed(ts)
	if idx < 0 {
		return core.TrendFlat
	}

	close := a.bars[idx].Close
	ema := a.ema21[idx]
	switch {
	case close > ema*(1+a.tolerance):
		return core.TrendUp
	case close < ema*(1-a.tolerance):
		return core.TrendDown
	default:
		return core.TrendFlat
	}
}

// latestClosed finds the index of the last bar whose close time is <= ts,
// or -1 when every bar closes after ts.
func (a *Aligner) latestClosed(ts time.Time) int {
	n := sort.Search(len(a.bars), func(i int) bool {
		return a.bars[i].Timestamp.After(ts)
	})
	return n - 1
}
