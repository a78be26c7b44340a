package fpcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// jsonEntry mirrors CacheEntry: the serialised fingerprint plus the two
// timestamps, since the single-file backend has no SQL columns to rely
// on for age-based cleanup.
type jsonEntry struct {
	Fingerprint  string `json:"fingerprint"`
	CreatedAt    int64  `json:"created_at"`
	LastAccessed int64  `json:"last_accessed"`
}

// JSONBackend is the fallback cache backend: the entire map is loaded
// at open time, mutated in memory, and flushed atomically on Close if
// dirty. Every method takes one mutex, so calls from several
// goroutines are serialised, never concurrent; SQLiteBackend is the
// backend that serves concurrent readers.
type JSONBackend struct {
	path string

	mu      sync.Mutex
	entries map[string]jsonEntry
	dirty   bool
	hits    int
	misses  int
}

// OpenJSON loads (or creates) the JSON-backed cache at path.
func OpenJSON(path string) (*JSONBackend, error) {
	b := &JSONBackend{path: path, entries: map[string]jsonEntry{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fpcache: reading json cache: %w", err)
	}

	if err := json.Unmarshal(data, &b.entries); err != nil {
		// A corrupt cache file degrades to an empty cache rather than a
		// fatal error, matching the "scan proceeds uncached" policy for
		// cache-open failures.
		b.entries = map[string]jsonEntry{}
	}
	return b, nil
}

func (b *JSONBackend) Get(key string) ([]uint32, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		b.misses++
		return nil, false, nil
	}

	e.LastAccessed = time.Now().Unix()
	b.entries[key] = e
	b.dirty = true
	b.hits++

	fp, err := ParseFingerprint(e.Fingerprint)
	if err != nil {
		return nil, false, fmt.Errorf("fpcache: corrupt entry for %s: %w", key, err)
	}
	return fp, true, nil
}

func (b *JSONBackend) Put(key string, fingerprint []uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().Unix()
	created := now
	if existing, ok := b.entries[key]; ok {
		created = existing.CreatedAt
	}

	b.entries[key] = jsonEntry{
		Fingerprint:  SerializeFingerprint(fingerprint),
		CreatedAt:    created,
		LastAccessed: now,
	}
	b.dirty = true
	return nil
}

func (b *JSONBackend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Hits: b.hits, Misses: b.misses, Entries: len(b.entries)}
}

func (b *JSONBackend) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = map[string]jsonEntry{}
	b.hits, b.misses = 0, 0
	b.dirty = true
	return nil
}

func (b *JSONBackend) CleanupOlderThan(age time.Duration) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := time.Now().Add(-age).Unix()
	removed := 0
	for k, e := range b.entries {
		if e.LastAccessed < cutoff {
			delete(b.entries, k)
			removed++
		}
	}
	if removed > 0 {
		b.dirty = true
	}
	return removed, nil
}

// Close flushes the cache to disk atomically (write to a temp file,
// then rename over the target) if it was modified since open.
func (b *JSONBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dirty {
		return nil
	}

	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("fpcache: creating cache directory: %w", err)
		}
	}

	data, err := json.Marshal(b.entries)
	if err != nil {
		return fmt.Errorf("fpcache: marshalling json cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".hashes-*.tmp")
	if err != nil {
		return fmt.Errorf("fpcache: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("fpcache: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fpcache: closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, b.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fpcache: finalising cache file: %w", err)
	}

	b.dirty = false
	return nil
}

// Migrate copies every entry from src into dst. It is idempotent: dst
// replaces on conflict, so running it twice is harmless.
func Migrate(src, dst Backend) (int, error) {
	jb, ok := src.(*JSONBackend)
	if !ok {
		return 0, fmt.Errorf("fpcache: migrate source must be a *JSONBackend")
	}

	jb.mu.Lock()
	entries := make(map[string]jsonEntry, len(jb.entries))
	for k, v := range jb.entries {
		entries[k] = v
	}
	jb.mu.Unlock()

	count := 0
	for key, e := range entries {
		fp, err := ParseFingerprint(e.Fingerprint)
		if err != nil {
			continue
		}
		if err := dst.Put(key, fp); err != nil {
			return count, fmt.Errorf("fpcache: migrating %s: %w", key, err)
		}
		count++
	}
	return count, nil
}
