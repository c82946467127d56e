package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/docpub/internal/config"
)

// Store is the dependency cache: directory trees on disk plus a SQLite
// index used for LRU eviction accounting.
type Store struct {
	dir        string
	maxEntries int
	db         *sql.DB
	mu         sync.Mutex
}

// Open opens (or creates) the cache at the configured directory.
func Open(cfg config.CacheConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(cfg.Dir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}
	s := &Store{dir: cfg.Dir, maxEntries: cfg.MaxEntries, db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize cache index: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		created INTEGER NOT NULL,
		last_used INTEGER NOT NULL,
		size_bytes INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_last_used ON entries(last_used);
	`
	_, err := s.db.Exec(schema)
	return err
}

// touch updates last_used for key and reports whether it was indexed.
func (s *Store) touch(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE entries SET last_used = ? WHERE key = ?", time.Now().UnixNano(), key)
	if err != nil {
		return false, fmt.Errorf("touch cache entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("touch cache entry: %w", err)
	}
	return n > 0, nil
}

func (s *Store) insert(ctx context.Context, key string, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Nanosecond resolution keeps LRU ordering stable for rapid saves.
	now := time.Now().UnixNano()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (key, created, last_used, size_bytes) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET last_used = excluded.last_used, size_bytes = excluded.size_bytes`,
		key, now, now, size)
	if err != nil {
		return fmt.Errorf("index cache entry: %w", err)
	}
	return nil
}

// evict removes index rows beyond maxEntries (least recently used first) and
// returns the evicted keys for payload removal.
func (s *Store) evict(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM entries ORDER BY last_used DESC LIMIT -1 OFFSET ?`, s.maxEntries)
	if err != nil {
		return nil, fmt.Errorf("query cache eviction candidates: %w", err)
	}
	defer rows.Close()

	var evicted []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan eviction candidate: %w", err)
		}
		evicted = append(evicted, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eviction candidates: %w", err)
	}

	for _, key := range evicted {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE key = ?", key); err != nil {
			return nil, fmt.Errorf("delete evicted entry: %w", err)
		}
	}
	return evicted, nil
}

// Entries returns the number of indexed cache entries.
func (s *Store) Entries(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return n, nil
}

// Close closes the index database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
