package backtest

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/znyinc/scanner-sub000/internal/core"
)

var seriesStart = time.Date(2024, 1, 2, 9, 35, 0, 0, time.UTC)

// barsFromCloses builds a 5-minute series where each bar opens at the
// previous close and carries roughly a 1% high-low range.
func barsFromCloses(symbol string, closes []float64) []core.Bar {
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		open := c * 0.998
		if i > 0 {
			open = closes[i-1]
		}
		hi := math.Max(open, c) * 1.004
		lo := math.Min(open, c) * 0.996
		bars[i] = core.Bar{
			Symbol:    symbol,
			Timeframe: core.TF5m,
			Timestamp: seriesStart.Add(time.Duration(i) * 5 * time.Minute),
			Open:      open,
			High:      hi,
			Low:       lo,
			Close:     c,
			Volume:    10000,
		}
	}
	return bars
}

// resampleHTF takes every third 5-minute close as one 15-minute bar
func resampleHTF(primary []core.Bar) []core.Bar {
	var out []core.Bar
	for i := 2; i < len(primary); i += 3 {
		b := primary[i]
		b.Timeframe = core.TF15m
		b.Open = primary[i-2].Open
		b.High = math.Max(primary[i-2].High, math.Max(primary[i-1].High, primary[i].High))
		b.Low = math.Min(primary[i-2].Low, math.Min(primary[i-1].Low, primary[i].Low))
		out = append(out, b)
	}
	return out
}

func risingCloses(n int) []float64 {
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		price *= 1.002
		closes[i] = price
	}
	return closes
}

func flatCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100.0
	}
	return closes
}

func newTestSimulator(t *testing.T) *Simulator {
	t.Helper()
	sim, err := NewSimulator(core.DefaultSettings(), DefaultOptions())
	if err != nil {
		t.Fatalf("NewSimulator failed: %v", err)
	}
	return sim
}

func TestNewSimulator_RejectsInvalidSettings(t *testing.T) {
	settings := core.DefaultSettings()
	settings.ATRMultiplier = -1

	_, err := NewSimulator(settings, DefaultOptions())
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected CONFIG_INVALID before any symbol runs, got %v", err)
	}
}

func TestRun_RisingSeriesGoesLongOnly(t *testing.T) {
	primary := barsFromCloses("AAPL", risingCloses(200))
	higher := resampleHTF(primary)

	result, err := newTestSimulator(t).Run(primary, higher)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Signals) == 0 {
		t.Fatal("rising low-volatility series should produce at least one signal")
	}
	for _, sig := range result.Signals {
		if sig.Type != core.SignalLong {
			t.Errorf("rising series produced a %s signal at %s", sig.Type, sig.Timestamp)
		}
	}
}

func TestRun_RisingSeriesForcedCloseAtEnd(t *testing.T) {
	primary := barsFromCloses("AAPL", risingCloses(200))
	higher := resampleHTF(primary)

	result, err := newTestSimulator(t).Run(primary, higher)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Trades) != 1 {
		t.Fatalf("expected a single trade held to the end, got %d", len(result.Trades))
	}
	trade := result.Trades[0]
	if trade.ExitReason != ExitEndOfData {
		t.Errorf("exit reason = %s, want end_of_data", trade.ExitReason)
	}
	if !trade.IsWin() {
		t.Errorf("long held through a rising series should profit, pnl = %f", trade.PnL)
	}
	if trade.ExitDate != primary[len(primary)-1].Timestamp {
		t.Error("forced close must land on the last bar")
	}
}

func TestRun_FlatSeriesProducesNothing(t *testing.T) {
	primary := barsFromCloses("XOM", flatCloses(100))
	higher := resampleHTF(primary)

	result, err := newTestSimulator(t).Run(primary, higher)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Trades) != 0 {
		t.Errorf("flat series should produce zero trades, got %d", len(result.Trades))
	}
	if len(result.Signals) != 0 {
		t.Errorf("flat series should produce zero signals, got %d", len(result.Signals))
	}
}

func TestRun_InsufficientData(t *testing.T) {
	primary := barsFromCloses("TINY", []float64{100})

	_, err := newTestSimulator(t).Run(primary, nil)
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("expected INSUFFICIENT_DATA, got %v", err)
	}
}

func TestRun_DataIntegrity(t *testing.T) {
	primary := barsFromCloses("BAD", risingCloses(120))
	primary[60].Timestamp = primary[59].Timestamp

	_, err := newTestSimulator(t).Run(primary, nil)
	if !errors.Is(err, core.ErrDataIntegrity) {
		t.Errorf("expected DATA_INTEGRITY, got %v", err)
	}
}

func TestRun_MetricsMatchAggregatorRoundTrip(t *testing.T) {
	primary := barsFromCloses("AAPL", risingCloses(200))
	higher := resampleHTF(primary)

	sim := newTestSimulator(t)
	result, err := sim.Run(primary, higher)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	recomputed := CalculateMetrics(result.Trades, sim.Aggregation())
	if !reflect.DeepEqual(result.Metrics, recomputed) {
		t.Errorf("metrics = %+v, aggregator gives %+v", result.Metrics, recomputed)
	}
}

func TestRun_Idempotent(t *testing.T) {
	primary := barsFromCloses("AAPL", risingCloses(200))
	higher := resampleHTF(primary)

	sim := newTestSimulator(t)
	a, err := sim.Run(primary, higher)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	b, err := sim.Run(primary, higher)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Error("repeated runs on fixed input must yield identical results")
	}
}

func TestRun_PositionsNeverOverlap(t *testing.T) {
	// Rise, break down hard, then rise again: forces at least one
	// mid-series exit and a potential re-entry.
	closes := risingCloses(120)
	price := closes[len(closes)-1]
	for i := 0; i < 40; i++ {
		price *= 0.985
		closes = append(closes, price)
	}
	for i := 0; i < 100; i++ {
		price *= 1.002
		closes = append(closes, price)
	}

	primary := barsFromCloses("SPY", closes)
	higher := resampleHTF(primary)

	result, err := newTestSimulator(t).Run(primary, higher)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Trades) < 2 {
		t.Fatalf("expected multiple trades across regimes, got %d", len(result.Trades))
	}

	for i := 1; i < len(result.Trades); i++ {
		prev, curr := result.Trades[i-1], result.Trades[i]
		if curr.EntryDate.Before(prev.ExitDate) {
			t.Errorf("trade %d opens at %s before trade %d closes at %s",
				i, curr.EntryDate, i-1, prev.ExitDate)
		}
	}
}

func TestFirstEventExit_ATRCross(t *testing.T) {
	pos := Position{Symbol: "AAPL", Type: core.SignalLong, EntryPrice: 100}
	ind := core.IndicatorSet{ATRLongLine: 98, ATRShortLine: 106}

	reason, exit := FirstEventExit{}.ShouldExit(pos, core.Bar{Close: 97.5}, ind, false)
	if !exit || reason != ExitATRCross {
		t.Errorf("close below the long line should exit with atr_cross, got %s/%v", reason, exit)
	}

	_, exit = FirstEventExit{}.ShouldExit(pos, core.Bar{Close: 99}, ind, false)
	if exit {
		t.Error("close above the long line should not exit")
	}
}

func TestFirstEventExit_ATRCrossBeforeOppositeSignal(t *testing.T) {
	pos := Position{Symbol: "AAPL", Type: core.SignalLong, EntryPrice: 100}
	ind := core.IndicatorSet{ATRLongLine: 98, ATRShortLine: 106}

	reason, exit := FirstEventExit{}.ShouldExit(pos, core.Bar{Close: 97}, ind, true)
	if !exit || reason != ExitATRCross {
		t.Errorf("line recross wins within a bar, got %s/%v", reason, exit)
	}

	reason, exit = FirstEventExit{}.ShouldExit(pos, core.Bar{Close: 100}, ind, true)
	if !exit || reason != ExitOppositeSignal {
		t.Errorf("opposite signal alone should exit, got %s/%v", reason, exit)
	}
}

func TestOppositeSignalExit_IgnoresEnvelope(t *testing.T) {
	pos := Position{Symbol: "AAPL", Type: core.SignalShort, EntryPrice: 100}
	ind := core.IndicatorSet{ATRLongLine: 98, ATRShortLine: 106}

	_, exit := OppositeSignalExit{}.ShouldExit(pos, core.Bar{Close: 107}, ind, false)
	if exit {
		t.Error("policy should not act on the envelope line")
	}
	reason, exit := OppositeSignalExit{}.ShouldExit(pos, core.Bar{Close: 107}, ind, true)
	if !exit || reason != ExitOppositeSignal {
		t.Errorf("expected opposite_signal exit, got %s/%v", reason, exit)
	}
}
