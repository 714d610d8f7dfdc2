package scanner

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/znyinc/scanner-sub000/internal/backtest"
	"github.com/znyinc/scanner-sub000/internal/core"
	sigstore "github.com/znyinc/scanner-sub000/internal/storage/signal"
)

var seriesStart = time.Date(2024, 1, 2, 9, 35, 0, 0, time.UTC)

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

func risingSeries(symbol string, n int) SymbolSeries {
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		price *= 1.002
		closes[i] = price
	}
	primary := barsFromCloses(symbol, closes)
	return SymbolSeries{Primary: primary, Higher: resampleHTF(primary)}
}

func flatSeries(symbol string, n int) SymbolSeries {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100.0
	}
	primary := barsFromCloses(symbol, closes)
	return SymbolSeries{Primary: primary, Higher: resampleHTF(primary)}
}

func newTestScanner(t *testing.T, opts ...Option) *Scanner {
	t.Helper()
	s, err := New(core.DefaultSettings(), backtest.DefaultOptions(), opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestNew_RejectsInvalidSettings(t *testing.T) {
	settings := core.DefaultSettings()
	settings.VolatilityFilter = -0.5

	_, err := New(settings, backtest.DefaultOptions())
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}

func TestEvaluateSymbol_RisingSeriesEmitsLong(t *testing.T) {
	s := newTestScanner(t)

	sig, err := s.EvaluateSymbol(context.Background(), risingSeries("AAPL", 200))
	if err != nil {
		t.Fatalf("EvaluateSymbol failed: %v", err)
	}
	if sig == nil {
		t.Fatal("expected a signal on a steadily rising series")
	}
	if sig.Type != core.SignalLong {
		t.Errorf("expected long signal, got %s", sig.Type)
	}
	if sig.Symbol != "AAPL" {
		t.Errorf("expected symbol AAPL, got %s", sig.Symbol)
	}
	if sig.Confidence < 0 || sig.Confidence > 1 {
		t.Errorf("confidence %f outside [0, 1]", sig.Confidence)
	}
}

func TestEvaluateSymbol_FlatSeriesEmitsNothing(t *testing.T) {
	s := newTestScanner(t)

	sig, err := s.EvaluateSymbol(context.Background(), flatSeries("KO", 200))
	if err != nil {
		t.Fatalf("EvaluateSymbol failed: %v", err)
	}
	if sig != nil {
		t.Errorf("expected no signal on a flat series, got %s", sig.Type)
	}
}

func TestEvaluateSymbol_ShortSeriesFails(t *testing.T) {
	s := newTestScanner(t)

	_, err := s.EvaluateSymbol(context.Background(), risingSeries("AAPL", 30))
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("expected INSUFFICIENT_DATA, got %v", err)
	}
}

func TestEvaluateSymbol_RetainsSignal(t *testing.T) {
	store := sigstore.NewMemoryStore(100)
	s := newTestScanner(t, WithSignalStore(store))

	sig, err := s.EvaluateSymbol(context.Background(), risingSeries("AAPL", 200))
	if err != nil || sig == nil {
		t.Fatalf("expected a signal, got sig=%v err=%v", sig, err)
	}

	n, err := store.Count(context.Background(), sigstore.ListFilter{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 retained signal, got %d", n)
	}
}

func TestScanAll_RecordsPerSymbolErrors(t *testing.T) {
	s := newTestScanner(t)

	broken := risingSeries("BAD", 200)
	broken.Primary[60].Timestamp = broken.Primary[59].Timestamp

	report := s.ScanAll(context.Background(), map[string]SymbolSeries{
		"AAPL":  risingSeries("AAPL", 200),
		"KO":    flatSeries("KO", 200),
		"BAD":   broken,
		"SHORT": risingSeries("SHORT", 10),
	})

	if report.RunID == "" {
		t.Error("expected a non-empty run ID")
	}
	if len(report.Signals) != 1 || report.Signals[0].Symbol != "AAPL" {
		t.Fatalf("expected exactly one signal for AAPL, got %v", report.Signals)
	}
	if len(report.Errors) != 2 {
		t.Fatalf("expected 2 symbol errors, got %v", report.Errors)
	}
	if _, ok := report.Errors["BAD"]; !ok {
		t.Error("expected an error recorded for BAD")
	}
	if _, ok := report.Errors["SHORT"]; !ok {
		t.Error("expected an error recorded for SHORT")
	}
}

func TestScanAll_DistinctRunIDs(t *testing.T) {
	s := newTestScanner(t)
	series := map[string]SymbolSeries{"AAPL": risingSeries("AAPL", 200)}

	a := s.ScanAll(context.Background(), series)
	b := s.ScanAll(context.Background(), series)
	if a.RunID == b.RunID {
		t.Errorf("expected distinct run IDs, both were %s", a.RunID)
	}
}

func TestBacktestAll_CombinesTrades(t *testing.T) {
	s := newTestScanner(t)

	report := s.BacktestAll(context.Background(), map[string]SymbolSeries{
		"AAPL": risingSeries("AAPL", 200),
		"MSFT": risingSeries("MSFT", 200),
	})

	if len(report.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", report.Errors)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected results for 2 symbols, got %d", len(report.Results))
	}

	total := 0
	for _, result := range report.Results {
		total += len(result.Trades)
	}
	if total == 0 {
		t.Fatal("expected at least one trade across the watchlist")
	}
	if report.Combined.TotalTrades != total {
		t.Errorf("combined metrics counted %d trades, symbols produced %d",
			report.Combined.TotalTrades, total)
	}
}

func TestBacktestAll_FailingSymbolDoesNotAbortOthers(t *testing.T) {
	s := newTestScanner(t)

	report := s.BacktestAll(context.Background(), map[string]SymbolSeries{
		"AAPL":  risingSeries("AAPL", 200),
		"SHORT": risingSeries("SHORT", 10),
	})

	if _, ok := report.Results["AAPL"]; !ok {
		t.Error("expected AAPL to complete despite SHORT failing")
	}
	if _, ok := report.Errors["SHORT"]; !ok {
		t.Errorf("expected an error recorded for SHORT, got %v", report.Errors)
	}
}

func TestScanAll_CancelledContext(t *testing.T) {
	s := newTestScanner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := s.ScanAll(ctx, map[string]SymbolSeries{
		"AAPL": risingSeries("AAPL", 200),
	})
	if len(report.Signals) != 0 {
		t.Errorf("expected no signals after cancellation, got %d", len(report.Signals))
	}
}
