package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects on the local filesystem under a single root
// directory. The returned URL is a file URL pointing at the stored object.
type LocalStore struct {
	root string
}

// NewLocalStore creates a filesystem-backed store rooted at dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("local storage directory required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) Put(_ context.Context, objectPath string, data []byte, _ string) (string, error) {
	full, err := s.resolve(objectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	// Write-then-rename so readers never observe a partial object.
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize object: %w", err)
	}
	return "file://" + full, nil
}

func (s *LocalStore) Get(_ context.Context, objectPath string) ([]byte, error) {
	full, err := s.resolve(objectPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectPath)
		}
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

func (s *LocalStore) Delete(_ context.Context, objectPath string) error {
	full, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, objectPath)
		}
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// resolve joins the object path under the root and rejects traversal outside
// it.
func (s *LocalStore) resolve(objectPath string) (string, error) {
	objectPath = strings.TrimSpace(objectPath)
	if objectPath == "" {
		return "", errors.New("object path required")
	}
	full := filepath.Join(s.root, filepath.FromSlash(objectPath))
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("object path %q escapes storage root", objectPath)
	}
	return full, nil
}
