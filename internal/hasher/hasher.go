// Package hasher implements the track hasher (C4): it composes the
// fingerprint extractor (C1) and the fingerprint cache (C3) so that
// callers ask for "the fingerprint of this file" without caring whether
// it was computed or retrieved.
package hasher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"duperscooper/internal/extractor"
	"duperscooper/internal/fpcache"
)

// Hasher computes file hashes and perceptual fingerprints, using cache
// as a content-addressed memo keyed by file hash.
type Hasher struct {
	Cache     fpcache.Backend // nil means uncached mode
	Extractor *extractor.Extractor
}

// New returns a Hasher. cache may be nil to run in uncached mode (the
// degraded mode entered when CacheUnavailable is encountered upstream).
func New(cache fpcache.Backend, ex *extractor.Extractor) *Hasher {
	return &Hasher{Cache: cache, Extractor: ex}
}

// FileHash streams path through SHA-256 and returns the hex digest.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hasher: opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hasher: reading %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Fingerprint is the result of hashing one file: its content hash, the
// source audio duration, and the perceptual fingerprint vector.
type Fingerprint struct {
	FileHash        string
	DurationSeconds int
	Vector          []uint32
}

// Hash returns the Fingerprint for path, computing it via the
// extractor on a cache miss and storing the result. On a cache hit,
// DurationSeconds is left 0 since the cache does not persist duration
// (only the fingerprint vector, per the cache's data model) —
// callers needing duration for cached hits should keep their own
// index, e.g. album.TrackRecord populated at first compute.
func (h *Hasher) Hash(ctx context.Context, path string) (Fingerprint, error) {
	fileHash, err := FileHash(path)
	if err != nil {
		return Fingerprint{}, err
	}

	if h.Cache != nil {
		if vec, ok, err := h.Cache.Get(fileHash); err == nil && ok {
			return Fingerprint{FileHash: fileHash, Vector: vec}, nil
		}
	}

	res, err := h.Extractor.Extract(ctx, path)
	if err != nil {
		return Fingerprint{}, err
	}

	if h.Cache != nil {
		_ = h.Cache.Put(fileHash, res.Fingerprint)
	}

	return Fingerprint{
		FileHash:        fileHash,
		DurationSeconds: res.DurationSeconds,
		Vector:          res.Fingerprint,
	}, nil
}

// ExactKey returns the FileHash alone, bypassing the extractor
// entirely. Used by exact-match mode, where duplicates are grouped by
// byte-identical content rather than perceptual similarity.
func (h *Hasher) ExactKey(path string) (string, error) {
	return FileHash(path)
}
