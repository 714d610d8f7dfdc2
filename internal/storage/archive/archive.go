// Package archive persists run reports outside the computational core.
// A Backend is a flat key/value blob store; Archive layers JSON report
// naming on top of it. The core never touches this package.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/znyinc/scanner-sub000/internal/core"
)

// Backend is a blob store for archived artifacts
type Backend interface {
	// Put stores data under key, overwriting any previous value
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the data stored under key
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys with the given prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists reports whether key holds data
	Exists(ctx context.Context, key string) (bool, error)
}

// Archive stores backtest and scan reports as JSON documents keyed by
// run ID.
type Archive struct {
	backend Backend
}

// New creates an Archive over a backend
func New(backend Backend) *Archive {
	return &Archive{backend: backend}
}

func reportKey(kind, runID string) string {
	return path.Join("reports", kind, runID+".json")
}

// SaveReport marshals a report and stores it under its run ID
func (a *Archive) SaveReport(ctx context.Context, kind, runID string, report any) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("marshaling %s report %s: %w", kind, runID, err))
	}
	if err := a.backend.Put(ctx, reportKey(kind, runID), data); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

// LoadReport reads a stored report into out
func (a *Archive) LoadReport(ctx context.Context, kind, runID string, out any) error {
	data, err := a.backend.Get(ctx, reportKey(kind, runID))
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("unmarshaling %s report %s: %w", kind, runID, err))
	}
	return nil
}

// ListReports returns the run IDs archived for a report kind
func (a *Archive) ListReports(ctx context.Context, kind string) ([]string, error) {
	keys, err := a.backend.List(ctx, path.Join("reports", kind))
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		base := path.Base(k)
		if ext := path.Ext(base); ext == ".json" {
			ids = append(ids, base[:len(base)-len(ext)])
		}
	}
	return ids, nil
}
