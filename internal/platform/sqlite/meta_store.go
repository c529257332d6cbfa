package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/phrazzld/vigil/internal/domain"
	"github.com/phrazzld/vigil/internal/store"
)

// Keys in the agent_meta table. The table holds exactly the state the agent
// must remember across restarts: its liveness timestamp and the cached
// push-registration value.
const (
	metaKeyLastActivity = "last_activity"
	metaKeyRegistration = "push_registration"
)

// Ensure Store implements store.MetaStore.
var _ store.MetaStore = (*Store)(nil)

// Liveness implements store.MetaStore.Liveness.
func (s *Store) Liveness(ctx context.Context) (domain.LivenessRecord, error) {
	raw, err := s.getMeta(ctx, metaKeyLastActivity)
	if err != nil {
		return domain.LivenessRecord{}, err
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return domain.LivenessRecord{}, fmt.Errorf("parse liveness timestamp: %w", err)
	}
	return domain.LivenessRecord{LastActivity: fromMillis(millis)}, nil
}

// SetLiveness implements store.MetaStore.SetLiveness.
func (s *Store) SetLiveness(ctx context.Context, record domain.LivenessRecord) error {
	return s.setMeta(ctx, metaKeyLastActivity, strconv.FormatInt(toMillis(record.LastActivity), 10))
}

// CachedRegistration implements store.MetaStore.CachedRegistration.
func (s *Store) CachedRegistration(ctx context.Context) (string, error) {
	value, err := s.getMeta(ctx, metaKeyRegistration)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", fmt.Errorf("%w: cached registration", store.ErrNotFound)
	}
	return value, nil
}

// SetCachedRegistration implements store.MetaStore.SetCachedRegistration.
func (s *Store) SetCachedRegistration(ctx context.Context, value string) error {
	return s.setMeta(ctx, metaKeyRegistration, value)
}

func (s *Store) getMeta(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM agent_meta WHERE key = ?`
	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: meta %s", store.ErrNotFound, key)
	}
	if err != nil {
		return "", mapError(err)
	}
	return value, nil
}

func (s *Store) setMeta(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO agent_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return mapError(err)
	}
	return nil
}
