package indicator

import (
	"fmt"
	"math"

	"github.com/znyinc/scanner-sub000/internal/core"
)

// EMA periods used by the rule set
const (
	PeriodEMA5  = 5
	PeriodEMA8  = 8
	PeriodEMA13 = 13
	PeriodEMA21 = 21
	PeriodEMA50 = 50

	PeriodATR = 14
)

// Warmup is the recommended number of bars before indicator values are
// trusted. The EMA recursion is seeded with the first price, so every index
// carries a value; the longest period bounds how long the seed bleeds through.
const Warmup = PeriodEMA50

// EMA computes an exponential moving average over values.
// ema[0] = values[0]; ema[i] = values[i]*k + ema[i-1]*(1-k), k = 2/(period+1).
// The result is aligned 1:1 with the input.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 || period < 1 {
		return nil
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// BarTrueRange computes the true range of one bar given its predecessor
func BarTrueRange(prev, bar core.Bar) float64 {
	hl := bar.High - bar.Low
	hc := math.Abs(bar.High - prev.Close)
	lc := math.Abs(bar.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}

// TrueRange computes the true range series aligned 1:1 with bars.
// TR[0] has no previous close and falls back to high-low.
func TrueRange(bars []core.Bar) []float64 {
	if len(bars) == 0 {
		return nil
	}
	out := make([]float64, len(bars))
	out[0] = bars[0].High - bars[0].Low
	for i := 1; i < len(bars); i++ {
		out[i] = BarTrueRange(bars[i-1], bars[i])
	}
	return out
}

// ATR computes the average true range as the EMA smoothing of the true
// range series, seeded with TR[0].
func ATR(bars []core.Bar, period int) []float64 {
	return EMA(TrueRange(bars), period)
}

// Compute derives the full indicator set for every bar of one symbol's
// series. The output is aligned 1:1 with bars; callers must not evaluate
// signals before index Warmup-1. Pure function of its inputs, safe to run
// for many symbols in parallel.
//
// Returns INSUFFICIENT_DATA when fewer than two bars are available, since
// the true range needs a previous close.
func Compute(bars []core.Bar, atrMultiplier float64) ([]core.IndicatorSet, error) {
	if len(bars) < 2 {
		return nil, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("need at least 2 bars for true range, got %d", len(bars)))
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	ema5 := EMA(closes, PeriodEMA5)
	ema8 := EMA(closes, PeriodEMA8)
	ema13 := EMA(closes, PeriodEMA13)
	ema21 := EMA(closes, PeriodEMA21)
	ema50 := EMA(closes, PeriodEMA50)
	atr := ATR(bars, PeriodATR)

	out := make([]core.IndicatorSet, len(bars))
	for i := range bars {
		out[i] = core.IndicatorSet{
			EMA5:         ema5[i],
			EMA8:         ema8[i],
			EMA13:        ema13[i],
			EMA21:        ema21[i],
			EMA50:        ema50[i],
			ATR:          atr[i],
			ATRLongLine:  ema21[i] - atr[i]*atrMultiplier,
			ATRShortLine: ema21[i] + atr[i]*atrMultiplier,
		}
	}
	return out, nil
}
