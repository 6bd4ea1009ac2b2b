package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/Raman369AI/fileProcessor/interfaces"
)

// LocalStorageService stores objects as files under a root directory.
// Keys map to relative paths; path traversal outside the root is rejected.
type LocalStorageService struct {
	root string
}

func NewLocalStorageService(root string) (interfaces.StorageService, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create storage root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve storage root")
	}
	return &LocalStorageService{root: abs}, nil
}

func (s *LocalStorageService) resolve(key string) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(path, s.root+string(os.PathSeparator)) {
		return "", errors.Errorf("invalid storage key %q", key)
	}
	return path, nil
}

func (s *LocalStorageService) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create object directory")
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *LocalStorageService) Download(ctx context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read object %s", key)
	}
	return data, nil
}

func (s *LocalStorageService) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete object %s", key)
	}
	return nil
}

func (s *LocalStorageService) GetPublicURL(key string) string {
	return ""
}
