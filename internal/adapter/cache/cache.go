// Package cache persists resolved coordinates between runs.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/couchcryptid/chapter-geocoder/internal/domain"
)

// FileCache is a CacheKey -> coordinates map backed by a single JSON file.
// Entries never expire; an operator edits or deletes the file to force
// re-resolution.
type FileCache struct {
	path        string
	persistEach bool

	mu      sync.RWMutex
	entries map[string]domain.Coordinates
	dirty   bool
}

// Option configures a FileCache.
type Option func(*FileCache)

// WithPersistEachPut rewrites the file after every Put so a crash loses at
// most the entry being written.
func WithPersistEachPut(enabled bool) Option {
	return func(c *FileCache) { c.persistEach = enabled }
}

// Open loads the cache at path. A missing file yields an empty cache; a file
// that cannot be parsed is an error so that hand edits are never silently
// discarded.
func Open(path string, opts ...Option) (*FileCache, error) {
	c := &FileCache{
		path:        filepath.Clean(path),
		persistEach: true,
		entries:     make(map[string]domain.Coordinates),
	}
	for _, opt := range opts {
		opt(c)
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("read cache %s: %w", c.path, err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("parse cache %s: %w", c.path, err)
	}
	if c.entries == nil {
		c.entries = make(map[string]domain.Coordinates)
	}
	return c, nil
}

// Get returns the coordinates stored under key.
func (c *FileCache) Get(key string) (domain.Coordinates, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores coordinates under key. Empty keys are ignored.
func (c *FileCache) Put(key string, coords domain.Coordinates) error {
	if key == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[key]; ok && prev == coords {
		return nil
	}
	c.entries[key] = coords
	c.dirty = true
	if !c.persistEach {
		return nil
	}
	return c.saveLocked()
}

// Flush writes pending changes to disk.
func (c *FileCache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	return c.saveLocked()
}

// Len returns the number of entries.
func (c *FileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Path returns the backing file.
func (c *FileCache) Path() string {
	return c.path
}

func (c *FileCache) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	b, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	c.dirty = false
	return nil
}
