package durable

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileKV stores each key as a file under a base directory, with an enforced
// per-value byte quota. Writes go through a temp file and rename so a crash
// mid-write never leaves a torn snapshot behind.
type FileKV struct {
	dir   string
	quota int
}

// NewFileKV creates a FileKV rooted at dir, creating it if needed. A
// non-positive quota means unlimited.
func NewFileKV(dir string, quota int) (*FileKV, error) {
	if dir == "" {
		return nil, fmt.Errorf("file kv directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	return &FileKV{dir: dir, quota: quota}, nil
}

// Get returns the value for key.
func (f *FileKV) Get(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read state file: %w", err)
	}
	return string(data), true, nil
}

// Set writes the value for key atomically, enforcing the byte quota.
func (f *FileKV) Set(_ context.Context, key, value string) error {
	if f.quota > 0 && len(value) > f.quota {
		return fmt.Errorf("%w: value is %d bytes, quota is %d", ErrQuotaExceeded, len(value), f.quota)
	}

	target := f.path(key)
	tmp, err := os.CreateTemp(f.dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move state file into place: %w", err)
	}
	return nil
}

// Delete removes the key's file.
func (f *FileKV) Delete(_ context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state file: %w", err)
	}
	return nil
}

// path maps a key to a file name; path separators in keys are flattened so
// a key can never escape the base directory.
func (f *FileKV) path(key string) string {
	safe := make([]rune, 0, len(key))
	for _, r := range key {
		switch r {
		case '/', '\\', ':':
			safe = append(safe, '_')
		default:
			safe = append(safe, r)
		}
	}
	return filepath.Join(f.dir, string(safe)+".json")
}
