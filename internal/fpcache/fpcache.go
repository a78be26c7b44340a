// Package fpcache implements the fingerprint cache (C3): a
// content-addressed store mapping a file's SHA-256 to its perceptual
// fingerprint. Two backends share one explicit interface, replacing the
// duck-typed protocol pattern with a single declared contract.
package fpcache

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var errEmptyFingerprint = errors.New("fpcache: empty fingerprint")

// Stats reports cache hit/miss counters and current size.
type Stats struct {
	Hits    int
	Misses  int
	Entries int
}

// Backend is the explicit contract both cache implementations satisfy.
type Backend interface {
	// Get returns the cached fingerprint for key, and whether it was
	// present. A hit updates the entry's last-accessed timestamp.
	Get(key string) (fingerprint []uint32, ok bool, err error)

	// Put stores fingerprint under key, replacing any existing value
	// (idempotent).
	Put(key string, fingerprint []uint32) error

	// Stats returns current hit/miss/size counters.
	Stats() Stats

	// Clear removes every entry and resets counters.
	Clear() error

	// CleanupOlderThan removes entries whose last-accessed timestamp is
	// older than the given age, returning the number removed.
	CleanupOlderThan(age time.Duration) (int, error)

	// Close releases any resources held by the backend, flushing
	// pending writes if applicable.
	Close() error
}

// SerializeFingerprint renders a fingerprint as the cache's compact
// delimited string form.
func SerializeFingerprint(fp []uint32) string {
	if len(fp) == 0 {
		return ""
	}
	buf := make([]byte, 0, len(fp)*11)
	for i, v := range fp {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendUint32(buf, v)
	}
	return string(buf)
}

// ParseFingerprint reverses SerializeFingerprint. An empty string is
// an error: per the cache invariant a stored value is always a
// non-empty vector, so an empty string is reported as an error rather
// than silently producing an empty vector.
func ParseFingerprint(s string) ([]uint32, error) {
	if s == "" {
		return nil, errEmptyFingerprint
	}
	parts := strings.Split(s, ",")
	fp := make([]uint32, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, err
		}
		fp = append(fp, uint32(n))
	}
	return fp, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	if v == 0 {
		return append(buf, '0')
	}
	var tmp [10]byte
	i := len(tmp)
	for v > 0 {
		i--
		tmp[i] = byte('0' + v%10)
		v /= 10
	}
	return append(buf, tmp[i:]...)
}
