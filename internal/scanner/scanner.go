// Package scanner is the library entry point consumed by serving
// layers: single-point live evaluation of one symbol and full
// historical backtests, across one symbol or a whole watchlist. It owns
// no data fetching and no persistence; callers hand it ordered bar
// slices and take the reports away.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/znyinc/scanner-sub000/internal/backtest"
	"github.com/znyinc/scanner-sub000/internal/core"
	"github.com/znyinc/scanner-sub000/internal/indicator"
	"github.com/znyinc/scanner-sub000/internal/metrics"
	"github.com/znyinc/scanner-sub000/internal/notifier"
	"github.com/znyinc/scanner-sub000/internal/signal"
	sigstore "github.com/znyinc/scanner-sub000/internal/storage/signal"
	"github.com/znyinc/scanner-sub000/internal/timeframe"
)

// SymbolSeries carries one symbol's input data: the primary-timeframe
// series and the higher-timeframe series used for trend confirmation.
type SymbolSeries struct {
	Primary []core.Bar
	Higher  []core.Bar
}

// ScanReport is the outcome of one live scan run. Per-symbol failures
// are recorded, never fatal; an absent symbol in both Signals and
// Errors means it evaluated cleanly with no signal.
type ScanReport struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Signals    []core.Signal     `json:"signals"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// BacktestReport is the outcome of one backtest run across symbols.
// Combined aggregates every symbol's trades into one metrics set.
type BacktestReport struct {
	RunID      string                      `json:"run_id"`
	StartedAt  time.Time                   `json:"started_at"`
	FinishedAt time.Time                   `json:"finished_at"`
	Results    map[string]*backtest.Result `json:"results"`
	Combined   backtest.Metrics            `json:"combined"`
	Errors     map[string]string           `json:"errors,omitempty"`
}

// Scanner runs the rule engine over symbols. Immutable after New; all
// per-run state is local, so one Scanner serves concurrent runs.
type Scanner struct {
	evaluator *signal.Evaluator
	sim       *backtest.Simulator
	logger    *zap.Logger
	metrics   *metrics.Registry
	signals   sigstore.Store
	notifiers *notifier.Registry
}

// Option configures optional collaborators
type Option func(*Scanner)

// WithLogger attaches a logger; the default is a nop logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// WithMetrics attaches a Prometheus registry
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Scanner) { s.metrics = r }
}

// WithSignalStore retains emitted signals for history queries
func WithSignalStore(store sigstore.Store) Option {
	return func(s *Scanner) { s.signals = store }
}

// WithNotifiers pushes live-scan signals to external channels.
// Backtest replays never notify.
func WithNotifiers(reg *notifier.Registry) Option {
	return func(s *Scanner) { s.notifiers = reg }
}

// New validates settings once and builds a scanner. A configuration
// error here aborts before any symbol is touched, since it would
// invalidate every symbol's result identically.
func New(settings core.AlgorithmSettings, simOpts backtest.Options, opts ...Option) (*Scanner, error) {
	sim, err := backtest.NewSimulator(settings, simOpts)
	if err != nil {
		return nil, err
	}

	s := &Scanner{
		evaluator: signal.NewEvaluator(settings, simOpts.Weights),
		sim:       sim,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EvaluateSymbol runs a single-point live scan at the most recent bar.
// Returns (nil, nil) when the symbol evaluates cleanly without a
// signal; per-symbol errors are the caller's to record.
func (s *Scanner) EvaluateSymbol(ctx context.Context, series SymbolSeries) (*core.Signal, error) {
	start := time.Now()

	if err := core.ValidateSeries(series.Primary); err != nil {
		return nil, err
	}
	if len(series.Primary) <= indicator.Warmup {
		return nil, core.WrapError(core.ErrInsufficientData,
			errBars(len(series.Primary), indicator.Warmup+1))
	}

	indicators, err := indicator.Compute(series.Primary, s.evaluator.Settings().ATRMultiplier)
	if err != nil {
		return nil, err
	}
	aligner, err := timeframe.NewAligner(series.Higher)
	if err != nil {
		return nil, err
	}

	i := len(series.Primary) - 1
	bar := series.Primary[i]
	sig := s.evaluator.Evaluate(signal.Context{
		Bar:      bar,
		Prev:     series.Primary[i-1],
		Ind:      indicators[i],
		PrevInd:  indicators[i-1],
		HTFTrend: aligner.TrendAt(bar.Timestamp),
	})

	s.metrics.RecordSymbolEvaluated(time.Since(start))
	if sig != nil {
		s.metrics.RecordSignal(string(sig.Type))
		s.retain(ctx, *sig)
		s.notify(*sig)
		s.logger.Info("signal generated",
			zap.String("symbol", sig.Symbol),
			zap.String("signal_type", string(sig.Type)),
			zap.Float64("price", sig.Price),
			zap.Float64("confidence", sig.Confidence),
		)
	}
	return sig, nil
}

// RunBacktest replays one symbol's full history
func (s *Scanner) RunBacktest(ctx context.Context, series SymbolSeries) (*backtest.Result, error) {
	start := time.Now()

	result, err := s.sim.Run(series.Primary, series.Higher)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBacktest(time.Since(start))
	for _, sig := range result.Signals {
		s.metrics.RecordSignal(string(sig.Type))
		s.retain(ctx, sig)
	}
	s.logger.Debug("backtest complete",
		zap.String("symbol", result.Symbol),
		zap.Int("signals", len(result.Signals)),
		zap.Int("trades", len(result.Trades)),
	)
	return result, nil
}

// ScanAll live-scans a watchlist. Symbols are independent and run
// concurrently; a failing symbol is recorded in the report and never
// aborts the rest.
func (s *Scanner) ScanAll(ctx context.Context, series map[string]SymbolSeries) *ScanReport {
	report := &ScanReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Errors:    make(map[string]string),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for symbol, data := range series {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(symbol string, data SymbolSeries) {
			defer wg.Done()

			sig, err := s.EvaluateSymbol(ctx, data)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Errors[symbol] = err.Error()
				s.recordSkip(symbol, err)
				return
			}
			if sig != nil {
				report.Signals = append(report.Signals, *sig)
			}
		}(symbol, data)
	}
	wg.Wait()

	report.FinishedAt = time.Now()
	s.logger.Info("scan complete",
		zap.String("run_id", report.RunID),
		zap.Int("symbols", len(series)),
		zap.Int("signals", len(report.Signals)),
		zap.Int("errors", len(report.Errors)),
	)
	return report
}

// BacktestAll replays a watchlist and aggregates every symbol's trades
// into one combined metrics set. Each symbol's replay is an independent
// state machine, so they run concurrently with no shared state.
func (s *Scanner) BacktestAll(ctx context.Context, series map[string]SymbolSeries) *BacktestReport {
	report := &BacktestReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Results:   make(map[string]*backtest.Result),
		Errors:    make(map[string]string),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for symbol, data := range series {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(symbol string, data SymbolSeries) {
			defer wg.Done()

			result, err := s.RunBacktest(ctx, data)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Errors[symbol] = err.Error()
				s.recordSkip(symbol, err)
				return
			}
			report.Results[symbol] = result
		}(symbol, data)
	}
	wg.Wait()

	var allTrades []backtest.Trade
	for _, result := range report.Results {
		allTrades = append(allTrades, result.Trades...)
	}
	report.Combined = backtest.CalculateMetrics(allTrades, s.sim.Aggregation())

	report.FinishedAt = time.Now()
	s.logger.Info("backtest run complete",
		zap.String("run_id", report.RunID),
		zap.Int("symbols", len(series)),
		zap.Int("trades", report.Combined.TotalTrades),
		zap.Int("errors", len(report.Errors)),
	)
	return report
}

func errBars(got, want int) error {
	return fmt.Errorf("need at least %d bars, got %d", want, got)
}

func (s *Scanner) retain(ctx context.Context, sig core.Signal) {
	if s.signals == nil {
		return
	}
	if err := s.signals.Save(ctx, sig); err != nil {
		s.logger.Warn("failed to retain signal",
			zap.String("symbol", sig.Symbol),
			zap.Error(err),
		)
	}
}

func (s *Scanner) notify(sig core.Signal) {
	if s.notifiers == nil {
		return
	}
	for name, err := range s.notifiers.NotifyAll(sig) {
		s.logger.Warn("notification failed",
			zap.String("notifier", name),
			zap.String("symbol", sig.Symbol),
			zap.Error(err),
		)
	}
}

func (s *Scanner) recordSkip(symbol string, err error) {
	var coded *core.Error
	code := "UNKNOWN"
	if errors.As(err, &coded) {
		code = coded.Code
	}
	s.metrics.RecordSymbolSkipped(code)
	s.logger.Warn("symbol skipped",
		zap.String("symbol", symbol),
		zap.String("code", code),
		zap.Error(err),
	)
}
