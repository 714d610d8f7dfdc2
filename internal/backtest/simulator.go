// Package backtest replays one symbol's history through the signal rule
// set with a Flat/InPosition state machine and reduces the closed trades
// to performance metrics. Each Simulator run is self-contained, so a
// multi-symbol backtest is N independent replays joined at the end.
package backtest

import (
	"github.com/znyinc/scanner-sub000/internal/core"
	"github.com/znyinc/scanner-sub000/internal/indicator"
	"github.com/znyinc/scanner-sub000/internal/signal"
	"github.com/znyinc/scanner-sub000/internal/timeframe"
)

// Options tunes a Simulator beyond the algorithm settings
type Options struct {
	Weights     signal.ConfidenceWeights
	Exit        ExitPolicy
	Aggregation AggregatorOptions
}

// DefaultOptions returns the stock simulator configuration
func DefaultOptions() Options {
	return Options{
		Weights:     signal.DefaultConfidenceWeights(),
		Exit:        FirstEventExit{},
		Aggregation: DefaultAggregatorOptions(),
	}
}

// Simulator walks a historical bar series bar-by-bar. It holds no state
// between runs; all per-replay state lives on the Run stack.
type Simulator struct {
	evaluator *signal.Evaluator
	exit      ExitPolicy
	agg       AggregatorOptions
}

// NewSimulator validates settings once, before any symbol is processed.
// An invalid configuration is fatal for the whole run.
func NewSimulator(settings core.AlgorithmSettings, opts Options) (*Simulator, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if opts.Exit == nil {
		opts.Exit = FirstEventExit{}
	}
	return &Simulator{
		evaluator: signal.NewEvaluator(settings, opts.Weights),
		exit:      opts.Exit,
		agg:       opts.Aggregation,
	}, nil
}

// Run replays one symbol's primary series against its higher-timeframe
// series. Bars are processed strictly in ascending timestamp order;
// evaluation starts after the indicator warm-up. The returned Metrics
// always equal CalculateMetrics over the returned Trades.
//
// Errors are per-symbol: INSUFFICIENT_DATA when indicators cannot warm
// up, DATA_INTEGRITY when either series is out of order.
func (s *Simulator) Run(primary, higher []core.Bar) (*Result, error) {
	if err := core.ValidateSeries(primary); err != nil {
		return nil, err
	}

	indicators, err := indicator.Compute(primary, s.evaluator.Settings().ATRMultiplier)
	if err != nil {
		return nil, err
	}

	aligner, err := timeframe.NewAligner(higher)
	if err != nil {
		return nil, err
	}

	symbol := primary[0].Symbol
	result := &Result{Symbol: symbol}
	var pos *Position

	// The slope predicates need i-1, so the first evaluation point is
	// one past the warm-up boundary.
	for i := indicator.Warmup; i < len(primary); i++ {
		bar := primary[i]
		ctx := signal.Context{
			Bar:      bar,
			Prev:     primary[i-1],
			Ind:      indicators[i],
			PrevInd:  indicators[i-1],
			HTFTrend: aligner.TrendAt(bar.Timestamp),
		}

		if pos == nil {
			sig := s.evaluator.Evaluate(ctx)
			if sig != nil {
				result.Signals = append(result.Signals, *sig)
				pos = &Position{
					Symbol:     symbol,
					Type:       sig.Type,
					EntryDate:  sig.Timestamp,
					EntryPrice: sig.Price,
				}
			}
			continue
		}

		// While in a position no new entry is considered; the evaluator
		// output only matters as an opposite-direction exit trigger.
		sig := s.evaluator.Evaluate(ctx)
		opposite := sig != nil && sig.Type == pos.Type.Opposite()
		if reason, exit := s.exit.ShouldExit(*pos, bar, indicators[i], opposite); exit {
			result.Trades = append(result.Trades, newTrade(*pos, bar.Timestamp, bar.Close, reason))
			pos = nil
		}
	}

	// Forced close at the end of the series, flagged as such
	if pos != nil {
		last := primary[len(primary)-1]
		result.Trades = append(result.Trades, newTrade(*pos, last.Timestamp, last.Close, ExitEndOfData))
	}

	result.Metrics = CalculateMetrics(result.Trades, s.agg)
	return result, nil
}

// Aggregation exposes the aggregator options the simulator applies, so
// callers can reproduce Result.Metrics from Result.Trades.
func (s *Simulator) Aggregation() AggregatorOptions {
	return s.agg
}
