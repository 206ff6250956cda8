package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Cache is a file-backed store of JSON records with a freshness window.
// A Cache with an empty directory is disabled: Get always misses and Put
// does nothing.
type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// Entry is the on-disk envelope of a cached record.
type Entry struct {
	Key       string          `json:"key"`
	WrittenAt time.Time       `json:"written_at"`
	Value     json.RawMessage `json:"value"`
}

// New creates a cache rooted at dir whose entries stay fresh for ttl.
func New(dir string, ttl time.Duration) *Cache {
	return &Cache{dir: dir, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the cache that reads time from now.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	cp := *c
	cp.now = now
	return &cp
}

// Namespace returns a cache stored in a subdirectory named after an
// operation. Entries of different namespaces never collide.
func (c *Cache) Namespace(name string) *Cache {
	cp := *c
	if c.dir != "" {
		cp.dir = filepath.Join(c.dir, name)
	}
	return &cp
}

// WithTTL returns a copy of the cache with a different freshness window.
func (c *Cache) WithTTL(ttl time.Duration) *Cache {
	cp := *c
	cp.ttl = ttl
	return &cp
}

// Enabled reports whether the cache persists anything.
func (c *Cache) Enabled() bool {
	return c != nil && c.dir != ""
}

// Dir returns the directory backing the cache.
func (c *Cache) Dir() string {
	return c.dir
}

// Key derives a stable key from an operation name and its semantic inputs.
func Key(operation string, parts ...string) string {
	h := sha256.New()
	writeString(h, operation)
	for _, p := range parts {
		writeString(h, p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get decodes the fresh entry stored under key into v. Missing, expired,
// unreadable and corrupt entries all report false.
func (c *Cache) Get(key string, v any) bool {
	if !c.Enabled() {
		return false
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return false
	}
	if entry.Key != key || len(entry.Value) == 0 {
		return false
	}
	if c.now().Sub(entry.WrittenAt) >= c.ttl {
		return false
	}

	if err := json.Unmarshal(entry.Value, v); err != nil {
		return false
	}
	return true
}

// Put stores v under key, replacing any previous entry.
func (c *Cache) Put(key string, v any) error {
	if !c.Enabled() {
		return nil
	}

	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling cache value: %w", err)
	}
	data, err := json.MarshalIndent(Entry{
		Key:       key,
		WrittenAt: c.now().UTC(),
		Value:     value,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	// Write-then-rename so concurrent readers never observe a partial file.
	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// Clear removes every cached entry under the cache root.
func (c *Cache) Clear() error {
	if !c.Enabled() {
		return nil
	}
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	// Refuse to delete anything that does not look like cache data.
	err := filepath.WalkDir(c.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".json" && filepath.Ext(path) != ".tmp" {
			return fmt.Errorf("cache directory contains non-cache file %s - refusing to delete", path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return os.RemoveAll(c.dir)
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func writeString(w io.Writer, s string) {
	// NUL delimiter keeps ("ab","c") and ("a","bc") apart.
	_, _ = w.Write([]byte(s + "\x00"))
}
