package main

import (
	"fmt"
	"os"
	"path/filepath"

	"duperscooper/internal/fpcache"
)

// openCache opens the SQLite-backed fingerprint cache at the
// conventional per-user configuration directory, falling back to the
// single-file JSON backend, and degrading to an uncached nil backend
// (with a warning) if neither can be opened — the scan proceeds
// uncached rather than failing outright.
func openCache() fpcache.Backend {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	dir = filepath.Join(dir, "duperscooper")

	if b, err := fpcache.OpenSQLite(filepath.Join(dir, "hashes.db")); err == nil {
		return b
	}

	if b, err := fpcache.OpenJSON(filepath.Join(dir, "hashes.json")); err == nil {
		return b
	}

	fmt.Fprintln(os.Stderr, "duperscooper: cache unavailable, proceeding uncached")
	return nil
}
