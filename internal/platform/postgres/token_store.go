package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/vigil/internal/domain"
	"github.com/phrazzld/vigil/internal/platform/logger"
	"github.com/phrazzld/vigil/internal/store"
)

// PostgresTokenStore implements the store.TokenStore interface using a
// PostgreSQL database as the storage backend.
type PostgresTokenStore struct {
	db *sql.DB
}

// NewPostgresTokenStore creates a new PostgreSQL implementation of the
// TokenStore interface. It accepts a database connection that should be
// initialized and managed by the caller.
func NewPostgresTokenStore(db *sql.DB) *PostgresTokenStore {
	return &PostgresTokenStore{
		db: db,
	}
}

// Ensure PostgresTokenStore implements store.TokenStore.
var _ store.TokenStore = (*PostgresTokenStore)(nil)

// Insert implements store.TokenStore.Insert.
func (s *PostgresTokenStore) Insert(ctx context.Context, token *domain.PushToken) error {
	log := logger.FromContext(ctx)

	if err := token.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	const query = `
		INSERT INTO push_tokens (id, value, user_id, device_fingerprint, created_at, last_used_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		token.ID,
		token.Value,
		token.UserID,
		token.DeviceFingerprint,
		token.CreatedAt,
		token.LastUsedAt,
		token.IsActive,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			// Another client inserted the same value first. Callers fall
			// back to UpdateByValue rather than treating this as failure.
			return fmt.Errorf("%w: %v", store.ErrTokenValueExists, err)
		}
		log.Error("failed to insert push token",
			"user_id", token.UserID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetByValue implements store.TokenStore.GetByValue.
func (s *PostgresTokenStore) GetByValue(ctx context.Context, value string) (*domain.PushToken, error) {
	const query = `
		SELECT id, value, user_id, device_fingerprint, created_at, last_used_at, is_active
		FROM push_tokens
		WHERE value = $1
	`
	token := &domain.PushToken{}
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&token.ID,
		&token.Value,
		&token.UserID,
		&token.DeviceFingerprint,
		&token.CreatedAt,
		&token.LastUsedAt,
		&token.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTokenNotFound
	}
	if err != nil {
		return nil, MapError(err)
	}

	return token, nil
}

// UpdateByValue implements store.TokenStore.UpdateByValue. It rewrites the
// row holding token.Value with the given owner, device metadata and flags.
// This is the idempotent re-registration path and the insert-conflict
// fallback; when the row is owned by a different user the update reassigns
// ownership (device reused across accounts).
func (s *PostgresTokenStore) UpdateByValue(ctx context.Context, token *domain.PushToken) error {
	log := logger.FromContext(ctx)

	const query = `
		UPDATE push_tokens
		SET user_id = $1, device_fingerprint = $2, last_used_at = $3, is_active = $4
		WHERE value = $5
	`
	result, err := s.db.ExecContext(ctx, query,
		token.UserID,
		token.DeviceFingerprint,
		token.LastUsedAt,
		token.IsActive,
		token.Value,
	)
	if err != nil {
		log.Error("failed to update push token",
			"user_id", token.UserID,
			"error", err)
		return MapError(err)
	}

	return CheckRowsAffected(result, "push token")
}

// DeactivateForDevice implements store.TokenStore.DeactivateForDevice.
func (s *PostgresTokenStore) DeactivateForDevice(
	ctx context.Context,
	userID uuid.UUID,
	fingerprint, keepValue string,
) error {
	const query = `
		UPDATE push_tokens
		SET is_active = FALSE
		WHERE user_id = $1 AND device_fingerprint = $2 AND is_active AND value <> $3
	`
	if _, err := s.db.ExecContext(ctx, query, userID, fingerprint, keepValue); err != nil {
		return MapError(err)
	}
	return nil
}

// DeactivateForUser implements store.TokenStore.DeactivateForUser. Rows are
// flagged inactive, never deleted: the remote store may still reference them
// for auditing.
func (s *PostgresTokenStore) DeactivateForUser(ctx context.Context, userID uuid.UUID) error {
	const query = `
		UPDATE push_tokens
		SET is_active = FALSE
		WHERE user_id = $1 AND is_active
	`
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return MapError(err)
	}
	return nil
}

// ActiveForUsers implements store.TokenStore.ActiveForUsers.
func (s *PostgresTokenStore) ActiveForUsers(ctx context.Context, userIDs []uuid.UUID) ([]*domain.PushToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	const query = `
		SELECT id, value, user_id, device_fingerprint, created_at, last_used_at, is_active
		FROM push_tokens
		WHERE is_active AND user_id = ANY($1)
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userIDs)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// ActiveAll implements store.TokenStore.ActiveAll.
func (s *PostgresTokenStore) ActiveAll(ctx context.Context) ([]*domain.PushToken, error) {
	const query = `
		SELECT id, value, user_id, device_fingerprint, created_at, last_used_at, is_active
		FROM push_tokens
		WHERE is_active
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

func scanTokens(rows *sql.Rows) ([]*domain.PushToken, error) {
	var tokens []*domain.PushToken
	for rows.Next() {
		token := &domain.PushToken{}
		if err := rows.Scan(
			&token.ID,
			&token.Value,
			&token.UserID,
			&token.DeviceFingerprint,
			&token.CreatedAt,
			&token.LastUsedAt,
			&token.IsActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan push token row: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating push token rows: %w", err)
	}
	return tokens, nil
}
