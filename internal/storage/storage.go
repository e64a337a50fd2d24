// Package storage keeps uploaded files on the local filesystem
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// localStorage stores files under a base directory, one sub directory per category
type localStorage struct {
	basePath string
}

// NewLocalStorage creates a new localStorage instance
func NewLocalStorage(basePath string) *localStorage {
	return &localStorage{
		basePath: basePath,
	}
}

// path resolves a file id inside the category directory.
// Ids containing path elements are rejected.
func (s *localStorage) path(id, category string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid file id %q", id)
	}
	return filepath.Join(s.basePath, category, id), nil
}

// Create creates a new file and returns a WriteCloser
func (s *localStorage) Create(id, category string) (io.WriteCloser, error) {
	path, err := s.path(id, category)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	return os.Create(path)
}

// Open opens a file for reading
func (s *localStorage) Open(id, category string) (*os.File, error) {
	path, err := s.path(id, category)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes a file
func (s *localStorage) Delete(id, category string) error {
	path, err := s.path(id, category)
	if err != nil {
		return err
	}
	return os.Remove(path)
}
