package store

import (
	"context"
	"time"
)

// CacheEntryRecord is a stored cache entry as the entry store sees it. The
// body is opaque at this level; the cache manager compresses it before
// handing it down and decompresses it on the way back up.
type CacheEntryRecord struct {
	Partition   string
	Key         string
	Body        []byte
	ContentType string
	StoredAt    time.Time
}

// CacheEntryStore persists cache entries for the cache manager. Only the
// cache manager mutates entries; mutation is last-writer-wins per key with
// no transactional guarantee across multiple keys.
type CacheEntryStore interface {
	// Get retrieves the entry for (partition, key).
	// Returns ErrEntryNotFound on a miss.
	Get(ctx context.Context, partition, key string) (*CacheEntryRecord, error)

	// Put stores an entry, replacing any previous entry under the same key.
	// Returns ErrQuotaExceeded when the store is out of space.
	Put(ctx context.Context, record *CacheEntryRecord) error

	// Delete removes a single entry. Missing entries are not an error.
	Delete(ctx context.Context, partition, key string) error

	// Count returns the number of entries in a partition.
	Count(ctx context.Context, partition string) (int, error)

	// DeleteOldest removes the n oldest entries (by stored-at) from a
	// partition. Used by eviction when a partition exceeds its entry budget.
	DeleteOldest(ctx context.Context, partition string, n int) error

	// PurgePartition removes every entry in a partition.
	PurgePartition(ctx context.Context, partition string) error

	// Partitions lists the partition names that currently hold entries.
	// Used at activation to drop partitions from older code versions.
	Partitions(ctx context.Context) ([]string, error)
}
