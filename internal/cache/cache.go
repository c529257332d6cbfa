// Package cache implements the agent's tiered response cache: named,
// versioned partitions with per-partition admission predicates and eviction
// policies, backed by the agent-local durable store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/vigil/internal/store"
)

// Strategy selects how a partition trades freshness for availability.
type Strategy int

const (
	// CacheFirst serves a cached match when present and fresh, otherwise
	// fetches from the network and stores the result.
	CacheFirst Strategy = iota

	// StaleWhileRevalidate returns a cached match immediately while a
	// network fetch runs concurrently to refresh the entry for next time.
	StaleWhileRevalidate

	// NetworkFirst attempts the network first with a fallback to cache on
	// failure.
	NetworkFirst

	// NetworkOnly bypasses caching entirely. Reserved for authentication
	// and remote-data-store traffic.
	NetworkOnly
)

// String returns the strategy name for logging.
func (s Strategy) String() string {
	switch s {
	case CacheFirst:
		return "cache_first"
	case StaleWhileRevalidate:
		return "stale_while_revalidate"
	case NetworkFirst:
		return "network_first"
	case NetworkOnly:
		return "network_only"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Policy is a partition's eviction policy.
type Policy struct {
	// MaxEntries caps the partition size. Whenever the partition exceeds
	// it, the oldest entries by stored-at are removed until within budget.
	// Zero means unbounded.
	MaxEntries int

	// MaxAge expires entries. An entry older than MaxAge is never served;
	// it is treated as a miss and refreshed on next access. Zero means
	// entries never expire.
	MaxAge time.Duration

	// PurgeOnQuotaError selects whether a storage-quota failure purges the
	// whole partition. Either way the write failure is absorbed, never
	// propagated to the request caller.
	PurgeOnQuotaError bool
}

// Partition is a named, isolated cache region. Partitions are declared once
// at agent install time; entries are mutated on every matching request; the
// partition itself is destroyed and recreated when its version bumps.
type Partition struct {
	// Name is the logical partition name, unique within the manager.
	Name string

	// Strategy is the serving strategy for requests admitted here.
	Strategy Strategy

	// Policy is the eviction policy.
	Policy Policy

	// Admit reports whether a request is eligible for this partition.
	Admit func(*http.Request) bool
}

// Entry is a cached response as callers see it: body decompressed, content
// type and stored-at preserved.
type Entry struct {
	Body        []byte
	ContentType string
	StoredAt    time.Time
}

// Manager owns the set of cache partitions. Only the manager mutates
// entries; application code never touches the entry store directly.
type Manager struct {
	entries store.CacheEntryStore
	version int
	clock   func() time.Time
	logger  *slog.Logger

	mu         sync.RWMutex
	partitions []*Partition
	byName     map[string]*Partition
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Used by tests to control expiry.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// NewManager creates a cache manager over the given entry store. The
// version tags every partition's physical name; partitions written by other
// versions are invisible to this manager and purged at activation.
func NewManager(entries store.CacheEntryStore, version int, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		entries: entries,
		version: version,
		clock:   time.Now,
		logger:  logger.With("component", "cache_manager"),
		byName:  make(map[string]*Partition),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register idempotently declares a named partition. Re-registering a name
// replaces its configuration but keeps its stored entries.
func (m *Manager) Register(p Partition) error {
	if p.Name == "" {
		return fmt.Errorf("register partition: name is required")
	}
	if p.Admit == nil {
		p.Admit = func(*http.Request) bool { return true }
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byName[p.Name]; ok {
		*existing = p
		return nil
	}
	registered := p
	m.partitions = append(m.partitions, &registered)
	m.byName[p.Name] = &registered
	return nil
}

// Route returns the first registered partition that admits the request, in
// registration order. Returns false when no partition admits it.
func (m *Manager) Route(req *http.Request) (*Partition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.partitions {
		if p.Admit(req) {
			return p, true
		}
	}
	return nil, false
}

// IsMiss reports whether an error from Match is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, store.ErrEntryNotFound)
}

// Match returns the cached entry for the request, or a miss error. An entry
// older than the partition's max age is deleted and treated as a miss.
func (m *Manager) Match(ctx context.Context, partition string, req *http.Request) (*Entry, error) {
	p, err := m.lookup(partition)
	if err != nil {
		return nil, err
	}

	key := Key(req)
	record, err := m.entries.Get(ctx, m.qualified(p.Name), key)
	if err != nil {
		return nil, err
	}

	if p.Policy.MaxAge > 0 && m.clock().Sub(record.StoredAt) >= p.Policy.MaxAge {
		// Expired entries are never served. Drop eagerly so the partition
		// does not accumulate dead weight between accesses.
		if delErr := m.entries.Delete(ctx, m.qualified(p.Name), key); delErr != nil {
			m.logger.Warn("failed to drop expired cache entry",
				"partition", p.Name,
				"error", delErr)
		}
		return nil, fmt.Errorf("%w: expired", store.ErrEntryNotFound)
	}

	body, err := decompress(record.Body)
	if err != nil {
		// A corrupt entry is as good as a miss.
		m.logger.Warn("failed to decompress cache entry, treating as miss",
			"partition", p.Name,
			"error", err)
		_ = m.entries.Delete(ctx, m.qualified(p.Name), key)
		return nil, fmt.Errorf("%w: corrupt entry", store.ErrEntryNotFound)
	}

	return &Entry{
		Body:        body,
		ContentType: record.ContentType,
		StoredAt:    record.StoredAt,
	}, nil
}

// Put stores a response body for the request, then enforces the partition's
// entry budget. Storage failures degrade gracefully: a quota error purges
// the partition (when the policy says so) and is absorbed; the caller's
// request never fails because of a cache write.
func (m *Manager) Put(ctx context.Context, partition string, req *http.Request, body []byte, contentType string) error {
	p, err := m.lookup(partition)
	if err != nil {
		return err
	}

	record := &store.CacheEntryRecord{
		Partition:   m.qualified(p.Name),
		Key:         Key(req),
		Body:        compress(body),
		ContentType: contentType,
		StoredAt:    m.clock(),
	}

	if err := m.entries.Put(ctx, record); err != nil {
		if store.IsQuotaError(err) {
			m.handleQuotaError(ctx, p)
			return nil
		}
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	return m.enforceBudget(ctx, p)
}

// Evict runs eviction immediately for the named partition, removing
// whatever exceeds the entry budget. Used on quota-exceeded errors and
// exposed for the message channel.
func (m *Manager) Evict(ctx context.Context, partition string) error {
	p, err := m.lookup(partition)
	if err != nil {
		return err
	}
	return m.enforceBudget(ctx, p)
}

// Clear purges every registered partition. Agent metadata lives outside the
// entry store and is untouched.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.RLock()
	partitions := make([]*Partition, len(m.partitions))
	copy(partitions, m.partitions)
	m.mu.RUnlock()

	var firstErr error
	for _, p := range partitions {
		if err := m.entries.PurgePartition(ctx, m.qualified(p.Name)); err != nil {
			m.logger.Error("failed to purge partition",
				"partition", p.Name,
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// PurgeStale drops stored partitions whose physical name is not in the
// current version's allow-list. Runs once at activation so a new code
// version never reads an older version's partitions.
func (m *Manager) PurgeStale(ctx context.Context) ([]string, error) {
	stored, err := m.entries.Partitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored partitions: %w", err)
	}

	m.mu.RLock()
	current := make(map[string]bool, len(m.partitions))
	for _, p := range m.partitions {
		current[m.qualified(p.Name)] = true
	}
	m.mu.RUnlock()

	var purged []string
	for _, name := range stored {
		if current[name] {
			continue
		}
		if err := m.entries.PurgePartition(ctx, name); err != nil {
			return purged, fmt.Errorf("failed to purge stale partition %s: %w", name, err)
		}
		m.logger.Info("purged stale cache partition", "partition", name)
		purged = append(purged, name)
	}
	return purged, nil
}

// qualified returns the physical partition name, tagged with the manager's
// version, e.g. "static-v3".
func (m *Manager) qualified(name string) string {
	return fmt.Sprintf("%s-v%d", name, m.version)
}

func (m *Manager) lookup(name string) (*Partition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byName[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("unknown cache partition: %s", name)
	}
	return p, nil
}

// enforceBudget removes oldest-first entries until the partition is within
// its max entry count.
func (m *Manager) enforceBudget(ctx context.Context, p *Partition) error {
	if p.Policy.MaxEntries <= 0 {
		return nil
	}
	count, err := m.entries.Count(ctx, m.qualified(p.Name))
	if err != nil {
		return fmt.Errorf("failed to count partition entries: %w", err)
	}
	if count <= p.Policy.MaxEntries {
		return nil
	}
	excess := count - p.Policy.MaxEntries
	if err := m.entries.DeleteOldest(ctx, m.qualified(p.Name), excess); err != nil {
		return fmt.Errorf("failed to evict oldest entries: %w", err)
	}
	m.logger.Debug("evicted cache entries",
		"partition", p.Name,
		"evicted", excess)
	return nil
}

// handleQuotaError purges the partition when its policy allows and surfaces
// a warning through the supervisor's logging channel.
func (m *Manager) handleQuotaError(ctx context.Context, p *Partition) {
	m.logger.Warn("storage quota exceeded",
		"partition", p.Name,
		"purging", p.Policy.PurgeOnQuotaError)
	if !p.Policy.PurgeOnQuotaError {
		return
	}
	if err := m.entries.PurgePartition(ctx, m.qualified(p.Name)); err != nil {
		m.logger.Error("failed to purge partition after quota error",
			"partition", p.Name,
			"error", err)
	}
}
