package backtest

import (
	"time"

	"github.com/znyinc/scanner-sub000/internal/core"
)

// Position is the simulator's private record of an open trade. At most
// one exists per symbol at any time.
type Position struct {
	Symbol     string
	Type       core.SignalType
	EntryDate  time.Time
	EntryPrice float64
}

// ExitReason records which event closed a trade first
type ExitReason string

const (
	ExitOppositeSignal ExitReason = "opposite_signal"
	ExitATRCross       ExitReason = "atr_cross"
	// ExitEndOfData flags a forced close at the last available bar
	ExitEndOfData ExitReason = "end_of_data"
)

// Trade is a closed round trip, immutable once created
type Trade struct {
	Symbol     string          `json:"symbol"`
	Type       core.SignalType `json:"trade_type"`
	EntryDate  time.Time       `json:"entry_date"`
	EntryPrice float64         `json:"entry_price"`
	ExitDate   time.Time       `json:"exit_date"`
	ExitPrice  float64         `json:"exit_price"`
	PnL        float64         `json:"pnl"`
	PnLPercent float64         `json:"pnl_percent"`
	ExitReason ExitReason      `json:"exit_reason"`
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.PnL > 0
}

// Metrics holds performance statistics for one trade list. Recomputed
// wholesale from the trades, never incrementally mutated. Ratios are
// fractions, not percentages.
type Metrics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalReturn   float64 `json:"total_return"`
	AverageReturn float64 `json:"average_return"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	SharpeRatio   float64 `json:"sharpe_ratio"`
}

// Result holds the complete replay output for one symbol
type Result struct {
	Symbol  string        `json:"symbol"`
	Signals []core.Signal `json:"signals"`
	Trades  []Trade       `json:"trades"`
	Metrics Metrics       `json:"metrics"`
}

// newTrade closes a position into an immutable Trade
func newTrade(pos Position, exitDate time.Time, exitPrice float64, reason ExitReason) Trade {
	pnl := exitPrice - pos.EntryPrice
	if pos.Type == core.SignalShort {
		pnl = pos.EntryPrice - exitPrice
	}
	var pct float64
	if pos.EntryPrice != 0 {
		pct = pnl / pos.EntryPrice
	}
	return Trade{
		Symbol:     pos.Symbol,
		Type:       pos.Type,
		EntryDate:  pos.EntryDate,
		EntryPrice: pos.EntryPrice,
		ExitDate:   exitDate,
		ExitPrice:  exitPrice,
		PnL:        pnl,
		PnLPercent: pct,
		ExitReason: reason,
	}
}
