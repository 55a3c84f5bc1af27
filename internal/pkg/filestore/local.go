// Package filestore keeps uploaded document bytes on local disk.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type FileStore interface {
	Save(ctx context.Context, name string, src io.Reader) (string, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("filestore: create %s: %w", root, err)
	}
	return &LocalStore{root: root}, nil
}

// Save writes src under the store root and returns the stored path.
func (s *LocalStore) Save(ctx context.Context, name string, src io.Reader) (string, error) {
	dstPath := filepath.Join(s.root, filepath.Base(name))

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		os.Remove(dstPath)
		return "", err
	}
	return dstPath, nil
}

func (s *LocalStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := s.contains(path); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Delete is idempotent.
func (s *LocalStore) Delete(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if err := s.contains(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) contains(path string) error {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("filestore: %s is outside %s", path, s.root)
	}
	return nil
}
