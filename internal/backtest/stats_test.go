package backtest

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/znyinc/scanner-sub000/internal/core"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func closedTrade(n int, pct float64) Trade {
	return Trade{
		Symbol:     "TEST",
		Type:       core.SignalLong,
		ExitDate:   day(n),
		PnL:        pct * 100,
		PnLPercent: pct,
		ExitReason: ExitATRCross,
	}
}

func TestCalculateMetrics_Empty(t *testing.T) {
	m := CalculateMetrics(nil, DefaultAggregatorOptions())
	if m.TotalTrades != 0 || m.WinRate != 0 {
		t.Errorf("empty trade list should yield zero metrics, got %+v", m)
	}
}

func TestCalculateMetrics_WinRate(t *testing.T) {
	trades := []Trade{
		closedTrade(1, 0.10),
		closedTrade(2, 0.05),
		closedTrade(3, -0.03),
		closedTrade(4, 0.02),
	}

	m := CalculateMetrics(trades, DefaultAggregatorOptions())
	if m.TotalTrades != 4 {
		t.Errorf("TotalTrades = %d, want 4", m.TotalTrades)
	}
	if m.WinningTrades != 3 || m.LosingTrades != 1 {
		t.Errorf("wins/losses = %d/%d, want 3/1", m.WinningTrades, m.LosingTrades)
	}
	if m.WinRate != 0.75 {
		t.Errorf("WinRate = %f, want 0.75", m.WinRate)
	}
}

func TestCalculateMetrics_SimpleSumReturn(t *testing.T) {
	trades := []Trade{closedTrade(1, 0.10), closedTrade(2, -0.05)}

	m := CalculateMetrics(trades, DefaultAggregatorOptions())
	if math.Abs(m.TotalReturn-0.05) > 1e-9 {
		t.Errorf("TotalReturn = %f, want simple sum 0.05", m.TotalReturn)
	}
	if math.Abs(m.AverageReturn-0.025) > 1e-9 {
		t.Errorf("AverageReturn = %f, want 0.025", m.AverageReturn)
	}
}

func TestCalculateMetrics_CompoundingOption(t *testing.T) {
	trades := []Trade{closedTrade(1, 0.10), closedTrade(2, -0.05)}

	opts := DefaultAggregatorOptions()
	opts.Compounding = true
	m := CalculateMetrics(trades, opts)

	want := 1.10*0.95 - 1 // 0.045
	if math.Abs(m.TotalReturn-want) > 1e-9 {
		t.Errorf("TotalReturn = %f, want compounded %f", m.TotalReturn, want)
	}
}

func TestMaxDrawdown_PeakToTrough(t *testing.T) {
	// Curve: 0.10, 0.15, -0.05, 0.05 with peak 0.15, trough -0.05
	returns := []float64{0.10, 0.05, -0.20, 0.10}
	dd := maxDrawdown(returns)
	if math.Abs(dd-0.20) > 1e-9 {
		t.Errorf("maxDrawdown = %f, want 0.20", dd)
	}
}

func TestMaxDrawdown_OrderedByExitDate(t *testing.T) {
	// Same trades in scrambled input order; drawdown must follow exit
	// chronology, not slice order.
	trades := []Trade{
		closedTrade(3, -0.20),
		closedTrade(1, 0.10),
		closedTrade(4, 0.10),
		closedTrade(2, 0.05),
	}

	m := CalculateMetrics(trades, DefaultAggregatorOptions())
	if math.Abs(m.MaxDrawdown-0.20) > 1e-9 {
		t.Errorf("MaxDrawdown = %f, want 0.20", m.MaxDrawdown)
	}
}

func TestSharpeRatio_Unannualized(t *testing.T) {
	returns := []float64{0.02, 0.04}
	// mean 0.03, sample stdev sqrt(2e-4) ~ 0.014142
	got := sharpeRatio(returns, 1)
	want := 0.03 / math.Sqrt(2e-4)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("sharpe = %f, want %f", got, want)
	}
}

func TestSharpeRatio_AnnualizationFactor(t *testing.T) {
	returns := []float64{0.02, 0.04, 0.01}
	base := sharpeRatio(returns, 1)
	annualized := sharpeRatio(returns, math.Sqrt(252))
	if math.Abs(annualized-base*math.Sqrt(252)) > 1e-9 {
		t.Error("annualization should scale the unannualized ratio")
	}
}

func TestSharpeRatio_Degenerate(t *testing.T) {
	if sharpeRatio([]float64{0.05}, 1) != 0 {
		t.Error("fewer than two trades should yield 0")
	}
	if sharpeRatio([]float64{0.05, 0.05, 0.05}, 1) != 0 {
		t.Error("zero variance should yield 0, not a division error")
	}
}

func TestCalculateMetrics_Idempotent(t *testing.T) {
	trades := []Trade{
		closedTrade(1, 0.10),
		closedTrade(2, -0.04),
		closedTrade(3, 0.02),
	}

	a := CalculateMetrics(trades, DefaultAggregatorOptions())
	b := CalculateMetrics(trades, DefaultAggregatorOptions())
	if !reflect.DeepEqual(a, b) {
		t.Error("recomputing on the same trade list must yield identical output")
	}
}
