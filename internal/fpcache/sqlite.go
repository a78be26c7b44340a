package fpcache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackend is the primary cache backend: an embedded relational
// store supporting concurrent readers and serialised writers via WAL
// mode. Go's database/sql connection pool stands in for the
// thread-local-handle discipline the store is specified to use — each
// goroutine that calls into *sql.DB is handed a pooled connection
// configured identically (WAL, foreign keys) on first use.
type SQLiteBackend struct {
	db *sql.DB

	mu            sync.Mutex
	hits, misses  int
}

// OpenSQLite opens (creating if needed) the SQLite-backed cache at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("fpcache: creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("fpcache: opening sqlite cache: %w", err)
	}

	// One writer at a time is the WAL contract; readers are unaffected
	// by SetMaxOpenConns because SQLite's own locking serialises writes
	// regardless. Capping connections avoids "database is locked"
	// thrashing under a large worker pool.
	db.SetMaxOpenConns(8)

	b := &SQLiteBackend{db: db}
	if err := b.init(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) init() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS fingerprint_cache (
			file_hash TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			last_accessed INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("fpcache: creating schema: %w", err)
	}

	_, err = b.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_last_accessed
		ON fingerprint_cache(last_accessed)
	`)
	if err != nil {
		return fmt.Errorf("fpcache: creating index: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Get(key string) ([]uint32, bool, error) {
	var raw string
	err := b.db.QueryRow(
		`SELECT fingerprint FROM fingerprint_cache WHERE file_hash = ?`, key,
	).Scan(&raw)

	if err == sql.ErrNoRows {
		b.mu.Lock()
		b.misses++
		b.mu.Unlock()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("fpcache: get: %w", err)
	}

	_, err = b.db.Exec(
		`UPDATE fingerprint_cache SET last_accessed = ? WHERE file_hash = ?`,
		time.Now().Unix(), key,
	)
	if err != nil {
		return nil, false, fmt.Errorf("fpcache: touching last_accessed: %w", err)
	}

	fp, err := ParseFingerprint(raw)
	if err != nil {
		return nil, false, fmt.Errorf("fpcache: corrupt entry for %s: %w", key, err)
	}

	b.mu.Lock()
	b.hits++
	b.mu.Unlock()
	return fp, true, nil
}

func (b *SQLiteBackend) Put(key string, fingerprint []uint32) error {
	now := time.Now().Unix()
	_, err := b.db.Exec(`
		INSERT INTO fingerprint_cache (file_hash, fingerprint, created_at, last_accessed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(file_hash) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			last_accessed = excluded.last_accessed
	`, key, SerializeFingerprint(fingerprint), now, now)
	if err != nil {
		return fmt.Errorf("fpcache: put: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Stats() Stats {
	var count int
	_ = b.db.QueryRow(`SELECT COUNT(*) FROM fingerprint_cache`).Scan(&count)

	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Hits: b.hits, Misses: b.misses, Entries: count}
}

func (b *SQLiteBackend) Clear() error {
	if _, err := b.db.Exec(`DELETE FROM fingerprint_cache`); err != nil {
		return fmt.Errorf("fpcache: clear: %w", err)
	}
	b.mu.Lock()
	b.hits, b.misses = 0, 0
	b.mu.Unlock()
	return nil
}

func (b *SQLiteBackend) CleanupOlderThan(age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age).Unix()
	res, err := b.db.Exec(`DELETE FROM fingerprint_cache WHERE last_accessed < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("fpcache: cleanup: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fpcache: cleanup rowcount: %w", err)
	}
	return int(n), nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
