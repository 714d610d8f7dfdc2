// Package signal applies the entry rule set to one evaluation point and
// produces at most one Signal per bar. The five conditions per direction
// are named predicates over a shared context, so each is unit-testable on
// its own and the confidence score reuses the same evaluations.
package signal

import (
	"math"

	"github.com/znyinc/scanner-sub000/internal/core"
	"github.com/znyinc/scanner-sub000/internal/indicator"
)

// Predicate names, in evaluation order
const (
	CheckPolarFormation  = "polar_formation"
	CheckATRPositioning  = "atr_positioning"
	CheckEMASlope        = "ema_slope"
	CheckFOMOFilter      = "fomo_filter"
	CheckHTFConfirmation = "htf_confirmation"
)

// Context is the evaluation window ending at the current bar
type Context struct {
	Bar      core.Bar
	Prev     core.Bar
	Ind      core.IndicatorSet
	PrevInd  core.IndicatorSet
	HTFTrend core.Trend
}

// Check records one predicate's outcome. Margin is how far the condition
// cleared its threshold, non-negative when OK; predicates without a
// meaningful distance report 0.
type Check struct {
	Name   string
	OK     bool
	Margin float64
}

// Result is the full evaluation of one direction at one bar
type Result struct {
	Direction core.SignalType
	Passed    bool
	Checks    []Check
}

// Predicate is one named entry condition evaluated for a direction
type Predicate struct {
	Name string
	Eval func(s core.AlgorithmSettings, ctx *Context, dir core.SignalType) (bool, float64)
}

// EntryPredicates returns the ordered rule set shared by both directions
func EntryPredicates() []Predicate {
	return []Predicate{
		{Name: CheckPolarFormation, Eval: evalPolarFormation},
		{Name: CheckATRPositioning, Eval: evalATRPositioning},
		{Name: CheckEMASlope, Eval: evalEMASlope},
		{Name: CheckFOMOFilter, Eval: evalFOMOFilter},
		{Name: CheckHTFConfirmation, Eval: evalHTFConfirmation},
	}
}

// evalPolarFormation checks the same-bar directional alignment of close
// against open, EMA8 and EMA21.
func evalPolarFormation(_ core.AlgorithmSettings, ctx *Context, dir core.SignalType) (bool, float64) {
	b, ind := ctx.Bar, ctx.Ind
	if dir == core.SignalLong {
		return b.Close > b.Open && b.Close > ind.EMA8 && b.Close > ind.EMA21, 0
	}
	return b.Close < b.Open && b.Close < ind.EMA8 && b.Close < ind.EMA21, 0
}

// evalATRPositioning requires EMA5 to stay inside the ATR envelope on the
// entry side: a long is rejected once the fast EMA has already run above
// the upper line, a short once it has collapsed below the lower line.
// Margin is the remaining headroom to the line in ATR units.
func evalATRPositioning(_ core.AlgorithmSettings, ctx *Context, dir core.SignalType) (bool, float64) {
	ind := ctx.Ind
	var dist float64
	if dir == core.SignalLong {
		dist = ind.ATRShortLine - ind.EMA5
	} else {
		dist = ind.EMA5 - ind.ATRLongLine
	}
	if dist <= 0 {
		return false, 0
	}
	if ind.ATR <= 0 {
		return true, 0
	}
	return true, dist / ind.ATR
}

// evalEMASlope requires each of EMA5/EMA8/EMA21 to rise (long) or fall
// (short) faster than its configured threshold. Margin is the smallest
// excess over the threshold across the three EMAs.
func evalEMASlope(s core.AlgorithmSettings, ctx *Context, dir core.SignalType) (bool, float64) {
	pairs := []struct {
		period     int
		curr, prev float64
	}{
		{indicator.PeriodEMA5, ctx.Ind.EMA5, ctx.PrevInd.EMA5},
		{indicator.PeriodEMA8, ctx.Ind.EMA8, ctx.PrevInd.EMA8},
		{indicator.PeriodEMA21, ctx.Ind.EMA21, ctx.PrevInd.EMA21},
	}

	minExcess := math.MaxFloat64
	for _, p := range pairs {
		if p.prev == 0 {
			return false, 0
		}
		slope := (p.curr - p.prev) / p.prev
		threshold := s.RisingThreshold(p.period)

		var excess float64
		if dir == core.SignalLong {
			excess = slope - threshold
		} else {
			excess = -slope - threshold
		}
		if excess <= 0 {
			return false, 0
		}
		if excess < minExcess {
			minExcess = excess
		}
	}
	return true, minExcess
}

// evalFOMOFilter rejects bars whose true range already stretched too far
// relative to ATR; entering here would chase an overextended move.
func evalFOMOFilter(s core.AlgorithmSettings, ctx *Context, _ core.SignalType) (bool, float64) {
	if ctx.Ind.ATR <= 0 {
		return true, 0
	}
	ratio := indicator.BarTrueRange(ctx.Prev, ctx.Bar) / ctx.Ind.ATR
	if ratio > s.FOMOFilter {
		return false, 0
	}
	return true, s.FOMOFilter - ratio
}

// evalHTFConfirmation requires the higher-timeframe trend to agree with
// the direction. A flat or missing trend fails closed.
func evalHTFConfirmation(_ core.AlgorithmSettings, ctx *Context, dir core.SignalType) (bool, float64) {
	if dir == core.SignalLong {
		return ctx.HTFTrend == core.TrendUp, 0
	}
	return ctx.HTFTrend == core.TrendDown, 0
}

// Evaluator applies the rule set with fixed settings and confidence
// weights. Stateless per call; safe for concurrent use across symbols.
type Evaluator struct {
	settings   core.AlgorithmSettings
	weights    ConfidenceWeights
	predicates []Predicate
}

// NewEvaluator builds an evaluator; settings must already be validated
func NewEvaluator(settings core.AlgorithmSettings, weights ConfidenceWeights) *Evaluator {
	return &Evaluator{
		settings:   settings,
		weights:    weights,
		predicates: EntryPredicates(),
	}
}

// Settings returns the immutable rule configuration in use
func (e *Evaluator) Settings() core.AlgorithmSettings {
	return e.settings
}

// Evaluate runs the volatility gate and both directions at one bar,
// returning at most one Signal. Long is preferred if both directions
// would fire in the same bar; the predicates are directionally exclusive
// on polar formation so that tie should not occur in normal data.
func (e *Evaluator) Evaluate(ctx Context) *core.Signal {
	// Volatility gate: reject the bar entirely, no signal either way
	if ctx.Bar.Close > 0 && ctx.Ind.ATR/ctx.Bar.Close > e.settings.VolatilityFilter {
		return nil
	}

	for _, dir := range []core.SignalType{core.SignalLong, core.SignalShort} {
		res := e.EvaluateDirection(&ctx, dir)
		if !res.Passed {
			continue
		}
		return &core.Signal{
			Symbol:     ctx.Bar.Symbol,
			Type:       dir,
			Timestamp:  ctx.Bar.Timestamp,
			Price:      ctx.Bar.Close,
			Indicators: ctx.Ind,
			Confidence: e.Confidence(res),
		}
	}
	return nil
}

// EvaluateDirection runs every predicate for one direction. All checks
// are evaluated even after a failure so callers can inspect the full
// outcome; Passed is true only when every check holds.
func (e *Evaluator) EvaluateDirection(ctx *Context, dir core.SignalType) Result {
	res := Result{
		Direction: dir,
		Passed:    true,
		Checks:    make([]Check, 0, len(e.predicates)),
	}
	for _, p := range e.predicates {
		ok, margin := p.Eval(e.settings, ctx, dir)
		res.Checks = append(res.Checks, Check{Name: p.Name, OK: ok, Margin: margin})
		if !ok {
			res.Passed = false
		}
	}
	return res
}
