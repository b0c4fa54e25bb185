package storage

import (
	"context"
	"os"
	"path/filepath"
)

// LocalEndpoint serves an Endpoint from a local directory.
type LocalEndpoint struct {
	Root string
}

// NewLocalEndpoint creates an endpoint rooted at root, creating it if
// necessary.
func NewLocalEndpoint(root string) (*LocalEndpoint, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalEndpoint{Root: root}, nil
}

func (e *LocalEndpoint) path(key string) string {
	return filepath.Join(e.Root, filepath.FromSlash(key))
}

func (e *LocalEndpoint) Get(_ context.Context, key string) ([]byte, error) {
	return os.ReadFile(e.path(key))
}

func (e *LocalEndpoint) Put(_ context.Context, key string, data []byte) error {
	p := e.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (e *LocalEndpoint) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(e.path(key))
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, err
	}
}
