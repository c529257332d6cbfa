package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/vigil/internal/domain"
)

// TokenStore defines the interface for push-token persistence against the
// system of record. Registration attempts for a given user may run
// concurrently from multiple clients; the store's uniqueness constraint on
// the token value, not an in-process lock, serializes them. Callers handle
// ErrTokenValueExists by falling back to UpdateByValue.
type TokenStore interface {
	// Insert saves a new push token.
	// Returns ErrTokenValueExists if a token with the same value already
	// exists (race with another client registering the same value).
	Insert(ctx context.Context, token *domain.PushToken) error

	// GetByValue retrieves a token by its exact value.
	// Returns ErrTokenNotFound if no such token exists.
	GetByValue(ctx context.Context, value string) (*domain.PushToken, error)

	// UpdateByValue rewrites owner, device metadata, last-used timestamp and
	// active flag of the row holding the given value. Used both for
	// idempotent re-registration and for the insert-conflict fallback.
	// Returns ErrTokenNotFound if no row holds the value.
	UpdateByValue(ctx context.Context, token *domain.PushToken) error

	// DeactivateForDevice marks all active tokens for the given
	// (user, device fingerprint) pair inactive, except the one holding
	// keepValue if non-empty. Enforces the at-most-one-active-per-device
	// invariant before a new token is inserted.
	DeactivateForDevice(ctx context.Context, userID uuid.UUID, fingerprint, keepValue string) error

	// DeactivateForUser marks all of a user's tokens inactive. Used on
	// sign-out. Rows are never deleted, only flagged, so the remote store
	// can keep referencing them for auditing.
	DeactivateForUser(ctx context.Context, userID uuid.UUID) error

	// ActiveForUsers returns the active tokens for the given users. Used by
	// the notification dispatcher to resolve delivery targets.
	ActiveForUsers(ctx context.Context, userIDs []uuid.UUID) ([]*domain.PushToken, error)

	// ActiveAll returns every active token. Used for broadcast dispatch.
	ActiveAll(ctx context.Context) ([]*domain.PushToken, error)
}
