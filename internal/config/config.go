// Package config holds the tunables shared across the scan pipeline.
// Loading these from a file is out of scope for the core library (the
// command-line front-end owns that); this package only defines the
// struct and its defaults.
package config

import "time"

// Config collects every tunable named by the specification, with its
// documented default.
type Config struct {
	// FingerprintWindowSeconds bounds fingerprint analysis to the first
	// N seconds of audio (default 120).
	FingerprintWindowSeconds int

	// SimilarityThreshold is the minimum percentage for two tracks (or,
	// position-wise, two albums) to be considered duplicates (default 98).
	SimilarityThreshold float64

	// MinOverlapPercent is the minimum partial-album-overlap percentage
	// required to cluster two albums with differing track counts
	// (default 70).
	MinOverlapPercent float64

	// PartialOverlapEnabled toggles the partial-overlap slow path for
	// albums with differing track counts (default true).
	PartialOverlapEnabled bool

	// MinFingerprintElements is the minimum comparable fingerprint
	// length below which similarity is reported as 0 (default 10).
	MinFingerprintElements int

	// Workers is the number of concurrent fingerprinting goroutines
	// (default 8).
	Workers int

	// ExtractorTimeout bounds one fingerprint-extractor subprocess call
	// (default 30s).
	ExtractorTimeout time.Duration

	// ProbeTimeout bounds one metadata-probe subprocess call (default 10s).
	ProbeTimeout time.Duration

	// CacheAcquireTimeout bounds acquisition of the shared cache store
	// (default 30s).
	CacheAcquireTimeout time.Duration

	// CacheCleanupDays is the default age-based cache eviction horizon
	// (default 90).
	CacheCleanupDays int

	// MinSizeBytes skips files smaller than this before fingerprinting
	// (default 0, i.e. no filter).
	MinSizeBytes int64
}

// Default returns the configuration spec.md's defaults describe.
func Default() Config {
	return Config{
		FingerprintWindowSeconds: 120,
		SimilarityThreshold:      98.0,
		MinOverlapPercent:        70.0,
		PartialOverlapEnabled:    true,
		MinFingerprintElements:   10,
		Workers:                  8,
		ExtractorTimeout:         30 * time.Second,
		ProbeTimeout:             10 * time.Second,
		CacheAcquireTimeout:      30 * time.Second,
		CacheCleanupDays:         90,
		MinSizeBytes:             0,
	}
}

// AudioExtensions is the set of recognised audio file extensions
// (case-insensitive, without the leading dot).
var AudioExtensions = map[string]bool{
	"mp3":  true,
	"flac": true,
	"wav":  true,
	"ogg":  true,
	"m4a":  true,
	"aac":  true,
	"wma":  true,
}
