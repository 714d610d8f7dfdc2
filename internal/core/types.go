package core

import "time"

// Timeframe identifies a bar resolution
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF1d  Timeframe = "1d"
)

// Bar represents one OHLCV candlestick for a symbol at a timeframe.
// Timestamp is the bar's close time; series are ordered ascending by it.
type Bar struct {
	Symbol    string
	Timeframe Timeframe
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// IsValid checks that the bar has a usable price range
func (b Bar) IsValid() bool {
	return b.Symbol != "" && b.High >= b.Low && b.Low > 0
}

// SignalType represents the direction of a trading signal
type SignalType string

const (
	SignalLong  SignalType = "long"
	SignalShort SignalType = "short"
)

// Opposite returns the other direction
func (s SignalType) Opposite() SignalType {
	if s == SignalLong {
		return SignalShort
	}
	return SignalLong
}

// Trend represents a higher-timeframe trend direction
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// IndicatorSet holds the indicator values aligned to one bar.
// The envelope lines are ema21 offset by a multiple of ATR.
type IndicatorSet struct {
	EMA5         float64 `json:"ema5"`
	EMA8         float64 `json:"ema8"`
	EMA13        float64 `json:"ema13"`
	EMA21        float64 `json:"ema21"`
	EMA50        float64 `json:"ema50"`
	ATR          float64 `json:"atr"`
	ATRLongLine  float64 `json:"atr_long_line"`
	ATRShortLine float64 `json:"atr_short_line"`
}

// Signal is an immutable entry signal emitted at one bar.
// At most one Signal is created per bar per symbol.
type Signal struct {
	Symbol     string       `json:"symbol"`
	Type       SignalType   `json:"signal_type"`
	Timestamp  time.Time    `json:"timestamp"`
	Price      float64      `json:"price"`
	Indicators IndicatorSet `json:"indicators"`
	Confidence float64      `json:"confidence"`
}

// AlgorithmSettings is the immutable rule configuration passed into every
// evaluation. Validate before use; it is never mutated mid-run.
type AlgorithmSettings struct {
	ATRMultiplier        float64 `mapstructure:"atr_multiplier"`
	EMA5RisingThreshold  float64 `mapstructure:"ema5_rising_threshold"`
	EMA8RisingThreshold  float64 `mapstructure:"ema8_rising_threshold"`
	EMA21RisingThreshold float64 `mapstructure:"ema21_rising_threshold"`
	VolatilityFilter     float64 `mapstructure:"volatility_filter"`
	FOMOFilter           float64 `mapstructure:"fomo_filter"`
	HigherTimeframe      string  `mapstructure:"higher_timeframe"`
}

// DefaultSettings returns the stock rule configuration
func DefaultSettings() AlgorithmSettings {
	return AlgorithmSettings{
		ATRMultiplier:        2.0,
		EMA5RisingThreshold:  0.001,
		EMA8RisingThreshold:  0.0008,
		EMA21RisingThreshold: 0.0005,
		VolatilityFilter:     0.05,
		FOMOFilter:           2.0,
		HigherTimeframe:      string(TF15m),
	}
}

// RisingThreshold returns the configured slope threshold for an EMA period
func (s AlgorithmSettings) RisingThreshold(period int) float64 {
	switch period {
	case 5:
		return s.EMA5RisingThreshold
	case 8:
		return s.EMA8RisingThreshold
	default:
		return s.EMA21RisingThreshold
	}
}

// Validate checks every settings value against its domain.
// A violation is fatal for the whole run, not per symbol.
func (s AlgorithmSettings) Validate() error {
	switch {
	case s.ATRMultiplier <= 0:
		return WrapError(ErrConfigInvalid, fieldErrorf("atr_multiplier must be positive, got %v", s.ATRMultiplier))
	case s.EMA5RisingThreshold < 0, s.EMA8RisingThreshold < 0, s.EMA21RisingThreshold < 0:
		return WrapError(ErrConfigInvalid, fieldErrorf("ema rising thresholds must be non-negative"))
	case s.VolatilityFilter <= 0:
		return WrapError(ErrConfigInvalid, fieldErrorf("volatility_filter must be positive, got %v", s.VolatilityFilter))
	case s.FOMOFilter <= 0:
		return WrapError(ErrConfigInvalid, fieldErrorf("fomo_filter must be positive, got %v", s.FOMOFilter))
	case s.HigherTimeframe == "":
		return WrapError(ErrConfigInvalid, fieldErrorf("higher_timeframe must be set"))
	}
	return nil
}

// ValidateSeries checks bar ordering for one symbol/timeframe.
// Non-monotonic or duplicate timestamps make the whole series unusable.
func ValidateSeries(bars []Bar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			return WrapError(ErrDataIntegrity,
				fieldErrorf("bar %d timestamp %s not after previous bar %s",
					i,
					bars[i].Timestamp.Format(time.RFC3339),
					bars[i-1].Timestamp.Format(time.RFC3339)))
		}
	}
	return nil
}
