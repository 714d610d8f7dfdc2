// Package notifier pushes generated signals to external channels. Only
// live scans notify; backtest replays are historical and stay silent.
package notifier

import (
	"github.com/znyinc/scanner-sub000/internal/core"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Notifier defines the interface for signal notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send sends a single signal notification
	Send(sig core.Signal) error

	// SendBatch sends one notification covering a whole scan run
	SendBatch(sigs []core.Signal) error
}
