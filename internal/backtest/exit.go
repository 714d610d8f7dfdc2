package backtest

import (
	"fmt"

	"github.com/znyinc/scanner-sub000/internal/core"
)

// ExitPolicy decides whether the bar just processed closes an open
// position. Policies are stateless so one instance can serve many
// independent symbol replays.
type ExitPolicy interface {
	// ShouldExit inspects the current bar and its indicators. opposite is
	// true when the evaluator produced a signal against the position's
	// direction at this bar.
	ShouldExit(pos Position, bar core.Bar, ind core.IndicatorSet, opposite bool) (ExitReason, bool)
}

// FirstEventExit is the default policy: close on whichever comes first
// of the current ATR envelope line being recrossed or an
// opposite-direction signal. Within one bar the line recross is checked
// before the opposite signal.
type FirstEventExit struct{}

func (FirstEventExit) ShouldExit(pos Position, bar core.Bar, ind core.IndicatorSet, opposite bool) (ExitReason, bool) {
	switch pos.Type {
	case core.SignalLong:
		if bar.Close < ind.ATRLongLine {
			return ExitATRCross, true
		}
	case core.SignalShort:
		if bar.Close > ind.ATRShortLine {
			return ExitATRCross, true
		}
	}
	if opposite {
		return ExitOppositeSignal, true
	}
	return "", false
}

// Exit policy names accepted in configuration
const (
	PolicyFirstEvent     = "first_event"
	PolicyOppositeSignal = "opposite_signal"
)

// ExitPolicyByName resolves a configured policy name
func ExitPolicyByName(name string) (ExitPolicy, error) {
	switch name {
	case PolicyFirstEvent, "":
		return FirstEventExit{}, nil
	case PolicyOppositeSignal:
		return OppositeSignalExit{}, nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown exit policy %q", name))
	}
}

// OppositeSignalExit closes only on an opposite-direction signal,
// letting the envelope line trail without acting on it.
type OppositeSignalExit struct{}

func (OppositeSignalExit) ShouldExit(_ Position, _ core.Bar, _ core.IndicatorSet, opposite bool) (ExitReason, bool) {
	if opposite {
		return ExitOppositeSignal, true
	}
	return "", false
}
