// Package sqlite implements the agent-local durable store: cache entries
// for the cache manager plus the small key-value surface the supervisor and
// token manager persist their state in. The store is shared by every client
// of the same deployment, so all mutation goes through SQL rather than
// in-memory maps.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlitedriver "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/phrazzld/vigil/internal/store"
)

// Store provides SQLite-backed persistence for the agent's disposable state.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the agent store at the provided path and applies
// the schema. The caller owns the returned store and must Close it.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", filepath.Clean(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	partition TEXT NOT NULL,
	key TEXT NOT NULL,
	body BLOB NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	stored_at INTEGER NOT NULL,
	PRIMARY KEY(partition, key)
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_stored_at
	ON cache_entries(partition, stored_at);

CREATE TABLE IF NOT EXISTS agent_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// mapError translates sqlite driver errors to store sentinel errors. A full
// database is the agent's storage-quota condition: the cache manager reacts
// by purging the offending partition.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	var sqErr *sqlitedriver.Error
	if errors.As(err, &sqErr) && sqErr.Code() == sqlitelib.SQLITE_FULL {
		return fmt.Errorf("%w: %v", store.ErrQuotaExceeded, err)
	}
	return err
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
