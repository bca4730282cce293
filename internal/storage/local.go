package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const localScheme = "file://"

// LocalStore writes objects under a root directory. It stands in for the
// hosted object store in self-hosted and test environments.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := uuid.NewString() + "_" + filepath.Base(name)
	path := filepath.Join(s.root, key)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return localScheme + path, nil
}

func (s *LocalStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := strings.TrimPrefix(url, localScheme)
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(s.root)) {
		return ErrNotFound
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
