package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalFS implements Backend on the local filesystem
type LocalFS struct {
	basePath string
}

// NewLocalFS creates a filesystem backend rooted at basePath
func NewLocalFS(basePath string) (*LocalFS, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating base path: %w", err)
	}
	return &LocalFS{basePath: basePath}, nil
}

func (l *LocalFS) fullPath(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

func (l *LocalFS) Put(_ context.Context, key string, data []byte) error {
	full := l.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}
	return os.WriteFile(full, data, 0o644)
}

func (l *LocalFS) Get(_ context.Context, key string) ([]byte, error) {
	return os.ReadFile(l.fullPath(key))
}

func (l *LocalFS) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	root := l.fullPath(prefix)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, relErr := filepath.Rel(l.basePath, p)
			if relErr != nil {
				return relErr
			}
			keys = append(keys, filepath.ToSlash(rel))
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return keys, err
}

func (l *LocalFS) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(l.fullPath(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}
