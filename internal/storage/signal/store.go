// Package signal keeps emitted signals available for run-local history
// queries; the serving layer reads from it, the scanner writes to it.
package signal

import (
	"context"
	"sync"
	"time"

	"github.com/znyinc/scanner-sub000/internal/core"
)

// ListFilter defines criteria for listing stored signals
type ListFilter struct {
	Symbol string
	Type   core.SignalType
	From   time.Time
	To     time.Time
	Limit  int
}

// Store defines the interface for signal retention
type Store interface {
	// Save retains a signal
	Save(ctx context.Context, sig core.Signal) error

	// List retrieves signals matching the filter, oldest first
	List(ctx context.Context, filter ListFilter) ([]core.Signal, error)

	// Latest returns the most recent signal for a symbol, or nil
	Latest(ctx context.Context, symbol string) (*core.Signal, error)

	// Count returns the number of signals matching the filter
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// MemoryStore is an in-memory Store with a retention cap; the oldest
// signals are dropped once the cap is exceeded.
type MemoryStore struct {
	mu      sync.RWMutex
	signals []core.Signal
	maxSize int
}

// NewMemoryStore creates an in-memory store retaining at most maxSize signals
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		signals: make([]core.Signal, 0, maxSize),
		maxSize: maxSize,
	}
}

// Save adds a signal, evicting the oldest past capacity
func (m *MemoryStore) Save(_ context.Context, sig core.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.signals = append(m.signals, sig)
	if m.maxSize > 0 && len(m.signals) > m.maxSize {
		m.signals = m.signals[len(m.signals)-m.maxSize:]
	}
	return nil
}

// List returns signals matching the filter, oldest first
func (m *MemoryStore) List(_ context.Context, filter ListFilter) ([]core.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []core.Signal
	for _, sig := range m.signals {
		if matches(sig, filter) {
			result = append(result, sig)
		}
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[len(result)-filter.Limit:]
	}
	return result, nil
}

// Latest returns the most recent signal for a symbol
func (m *MemoryStore) Latest(_ context.Context, symbol string) (*core.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.signals) - 1; i >= 0; i-- {
		if m.signals[i].Symbol == symbol {
			sig := m.signals[i]
			return &sig, nil
		}
	}
	return nil, core.ErrNoData
}

// Count returns the number of matching signals
func (m *MemoryStore) Count(_ context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, sig := range m.signals {
		if matches(sig, filter) {
			count++
		}
	}
	return count, nil
}

func matches(sig core.Signal, filter ListFilter) bool {
	if filter.Symbol != "" && sig.Symbol != filter.Symbol {
		return false
	}
	if filter.Type != "" && sig.Type != filter.Type {
		return false
	}
	if !filter.From.IsZero() && sig.Timestamp.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && sig.Timestamp.After(filter.To) {
		return false
	}
	return true
}
