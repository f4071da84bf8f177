// Package legacy reads and writes the flat key/value product store used
// before the record store existed.
//
// The storage is a single JSON object of string keys to string values. The
// product list is kept under ProductsKey as a JSON array and the time of the
// last save under LastSyncKey.
package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Storage keys.
const (
	ProductsKey = "sah-stock-products"
	LastSyncKey = "sah-stock-last-sync"
)

// DefaultPath is the file name used when none is configured.
const DefaultPath = "legacy-storage.json"

// Option configures a File.
type Option func(*File)

// WithLogger sets the logger used to report failures.
func WithLogger(l *slog.Logger) Option {
	return func(f *File) { f.logger = l }
}

// WithClock sets the time source used to stamp saves.
func WithClock(now func() time.Time) Option {
	return func(f *File) { f.now = now }
}

// File is a key/value store backed by one JSON file. A missing file reads
// as empty storage.
//
// Thread-safety: all methods are safe for concurrent use within a process.
type File struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewFile returns a File for path. Nothing is read until first use.
func NewFile(path string, opts ...Option) *File {
	f := &File{
		path:   path,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// GetItem returns the value stored under key.
func (f *File) GetItem(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := items[key]
	return v, ok, nil
}

// SetItem stores value under key.
func (f *File) SetItem(key, value string) error {
	return f.update(func(items map[string]string) {
		items[key] = value
	})
}

// RemoveItem deletes key. Removing an absent key is not an error.
func (f *File) RemoveItem(key string) error {
	return f.update(func(items map[string]string) {
		delete(items, key)
	})
}

func (f *File) update(fn func(map[string]string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.read()
	if err != nil {
		return err
	}
	fn(items)
	return f.write(items)
}

func (f *File) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read legacy storage: %w", err)
	}
	items := map[string]string{}
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse legacy storage %s: %w", f.path, err)
	}
	return items, nil
}

// write replaces the file atomically through a temp file in the same
// directory.
func (f *File) write(items map[string]string) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal legacy storage: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".legacy-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace legacy storage: %w", err)
	}
	return nil
}
