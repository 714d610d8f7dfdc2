package notifier

import (
	"fmt"
	"sync"

	"github.com/znyinc/scanner-sub000/internal/core"
)

// Registry manages notifier instances
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

// NewRegistry creates a new notifier registry
func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]Notifier),
	}
}

// Register adds a notifier to the registry
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}

	r.notifiers[name] = n
	return nil
}

// Get retrieves a notifier by name
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, fmt.Errorf("notifier %s not found", name)
	}
	return n, nil
}

// Len reports the number of registered notifiers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// NotifyAll sends a signal to every registered notifier. Delivery
// failures are per-channel and never affect the others.
func (r *Registry) NotifyAll(sig core.Signal) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	errs := make(map[string]error)
	for name, n := range r.notifiers {
		if err := n.Send(sig); err != nil {
			errs[name] = err
		}
	}
	return errs
}

// NotifyAllBatch sends a scan run's signals to every registered notifier
func (r *Registry) NotifyAllBatch(sigs []core.Signal) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	errs := make(map[string]error)
	for name, n := range r.notifiers {
		if err := n.SendBatch(sigs); err != nil {
			errs[name] = err
		}
	}
	return errs
}
