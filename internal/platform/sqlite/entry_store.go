package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/phrazzld/vigil/internal/store"
)

// Ensure Store implements store.CacheEntryStore.
var _ store.CacheEntryStore = (*Store)(nil)

// Get implements store.CacheEntryStore.Get.
func (s *Store) Get(ctx context.Context, partition, key string) (*store.CacheEntryRecord, error) {
	const query = `
		SELECT body, content_type, stored_at
		FROM cache_entries
		WHERE partition = ? AND key = ?
	`
	var (
		body        []byte
		contentType string
		storedAt    int64
	)
	err := s.db.QueryRowContext(ctx, query, partition, key).Scan(&body, &contentType, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", store.ErrEntryNotFound, partition, key)
	}
	if err != nil {
		return nil, mapError(err)
	}

	return &store.CacheEntryRecord{
		Partition:   partition,
		Key:         key,
		Body:        body,
		ContentType: contentType,
		StoredAt:    fromMillis(storedAt),
	}, nil
}

// Put implements store.CacheEntryStore.Put. Replaces any previous entry
// under the same key (last-writer-wins).
func (s *Store) Put(ctx context.Context, record *store.CacheEntryRecord) error {
	const query = `
		INSERT INTO cache_entries (partition, key, body, content_type, stored_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(partition, key) DO UPDATE SET
			body = excluded.body,
			content_type = excluded.content_type,
			stored_at = excluded.stored_at
	`
	_, err := s.db.ExecContext(ctx, query,
		record.Partition,
		record.Key,
		record.Body,
		record.ContentType,
		toMillis(record.StoredAt),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// Delete implements store.CacheEntryStore.Delete.
func (s *Store) Delete(ctx context.Context, partition, key string) error {
	const query = `DELETE FROM cache_entries WHERE partition = ? AND key = ?`
	if _, err := s.db.ExecContext(ctx, query, partition, key); err != nil {
		return mapError(err)
	}
	return nil
}

// Count implements store.CacheEntryStore.Count.
func (s *Store) Count(ctx context.Context, partition string) (int, error) {
	const query = `SELECT COUNT(*) FROM cache_entries WHERE partition = ?`
	var count int
	if err := s.db.QueryRowContext(ctx, query, partition).Scan(&count); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// DeleteOldest implements store.CacheEntryStore.DeleteOldest, removing the
// n entries with the oldest stored-at timestamps.
func (s *Store) DeleteOldest(ctx context.Context, partition string, n int) error {
	if n <= 0 {
		return nil
	}
	const query = `
		DELETE FROM cache_entries
		WHERE partition = ?1 AND key IN (
			SELECT key FROM cache_entries
			WHERE partition = ?1
			ORDER BY stored_at ASC
			LIMIT ?2
		)
	`
	if _, err := s.db.ExecContext(ctx, query, partition, n); err != nil {
		return mapError(err)
	}
	return nil
}

// PurgePartition implements store.CacheEntryStore.PurgePartition.
func (s *Store) PurgePartition(ctx context.Context, partition string) error {
	const query = `DELETE FROM cache_entries WHERE partition = ?`
	if _, err := s.db.ExecContext(ctx, query, partition); err != nil {
		return mapError(err)
	}
	return nil
}

// Partitions implements store.CacheEntryStore.Partitions.
func (s *Store) Partitions(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT partition FROM cache_entries ORDER BY partition`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan partition name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partition names: %w", err)
	}
	return names, nil
}
