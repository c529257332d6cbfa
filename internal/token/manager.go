// Package token implements the push-token lifecycle: permission gating,
// provider registration with retry, deduplication against previously stored
// tokens, and deactivation on sign-out.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/vigil/internal/domain"
	"github.com/phrazzld/vigil/internal/store"
)

// PermissionState is the user's notification-permission decision.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// Capabilities reports what the hosting platform supports. Provided by the
// application shell; the default implementation is config-backed.
type Capabilities interface {
	// PushSupported reports whether push messaging is available at all.
	PushSupported(ctx context.Context) bool

	// SecureTransport reports whether the client runs over a transport the
	// push provider accepts.
	SecureTransport(ctx context.Context) bool
}

// Permissions is the notification-permission surface.
type Permissions interface {
	// Status returns the current decision without prompting.
	Status(ctx context.Context) (PermissionState, error)

	// Request prompts the user. Only called when Status is "prompt": a
	// previous denial is final until the user changes settings themselves.
	Request(ctx context.Context) (PermissionState, error)
}

// Provider issues push-registration values.
type Provider interface {
	// FetchRegistration requests a fresh registration value. Transient
	// failures are retried by the manager's policy.
	FetchRegistration(ctx context.Context) (string, error)
}

// Readiness gates token generation on the background agent being installed
// and active; generating a token without an active agent silently fails on
// some platforms.
type Readiness interface {
	AwaitReady(ctx context.Context) error
}

// Manager is the push-token lifecycle manager. It is the only component
// allowed to return an explicit failure signal upstream, and even then only
// after exhausting retries.
type Manager struct {
	caps        Capabilities
	perms       Permissions
	provider    Provider
	readiness   Readiness
	tokens      store.TokenStore
	meta        store.MetaStore
	retry       RetryPolicy
	fingerprint string
	clock       func() time.Time
	logger      *slog.Logger
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithRetryPolicy overrides the fetch retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(m *Manager) {
		m.retry = policy
	}
}

// NewManager creates a Manager. The fingerprint identifies this device
// installation; see Fingerprint.
func NewManager(
	caps Capabilities,
	perms Permissions,
	provider Provider,
	readiness Readiness,
	tokens store.TokenStore,
	meta store.MetaStore,
	fingerprint string,
	logger *slog.Logger,
	opts ...Option,
) *Manager {
	m := &Manager{
		caps:        caps,
		perms:       perms,
		provider:    provider,
		readiness:   readiness,
		tokens:      tokens,
		meta:        meta,
		retry:       DefaultRetryPolicy(),
		fingerprint: fingerprint,
		clock:       time.Now,
		logger:      logger.With("component", "token_manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterToken obtains and persists an active push token for the user.
// On any unrecoverable step it returns a nil token and the cause; it never
// panics past this contract. Concurrent registrations from multiple clients
// are serialized by the store's uniqueness constraint, not by a lock: an
// insert conflict falls back to an update by value.
func (m *Manager) RegisterToken(ctx context.Context, userID uuid.UUID) (*domain.PushToken, error) {
	log := m.logger.With("user_id", userID)

	// Step 1: capability probe. No side effects on failure.
	if !m.caps.PushSupported(ctx) || !m.caps.SecureTransport(ctx) {
		log.Info("push messaging unsupported on this platform")
		return nil, ErrUnsupported
	}

	// Step 2: permission gate. A previous denial is never re-prompted.
	if err := m.ensurePermission(ctx); err != nil {
		log.Info("notification permission not granted", "error", err)
		return nil, err
	}

	// Step 3: wait for the agent to be installed and active.
	if err := m.readiness.AwaitReady(ctx); err != nil {
		log.Error("agent not ready for token generation", "error", err)
		return nil, fmt.Errorf("agent readiness: %w", err)
	}

	// Step 4: fetch a registration value, retrying transient failures.
	value, err := m.retry.Do(ctx, m.provider.FetchRegistration)
	if err != nil {
		log.Error("token fetch failed", "error", err)
		return nil, err
	}

	token, err := m.persist(ctx, userID, value)
	if err != nil {
		log.Error("token persistence failed", "error", err)
		return nil, err
	}

	// Remember the current value locally so restarts can tell whether the
	// provider handed back the same registration.
	if err := m.meta.SetCachedRegistration(ctx, value); err != nil {
		log.Warn("failed to cache registration value locally", "error", err)
	}

	log.Info("push token registered", "token_id", token.ID)
	return token, nil
}

// DeactivateTokens marks all of a user's tokens inactive. Used on sign-out.
// Rows are never deleted, only flipped, so the remote store can keep
// referencing them for auditing.
func (m *Manager) DeactivateTokens(ctx context.Context, userID uuid.UUID) error {
	if err := m.tokens.DeactivateForUser(ctx, userID); err != nil {
		m.logger.Error("failed to deactivate tokens",
			"user_id", userID,
			"error", err)
		return err
	}
	if err := m.meta.SetCachedRegistration(ctx, ""); err != nil {
		m.logger.Warn("failed to clear cached registration", "error", err)
	}
	return nil
}

// RefreshToken forces a fresh registration for the user: the locally cached
// value is discarded and the full registration flow runs again.
func (m *Manager) RefreshToken(ctx context.Context, userID uuid.UUID) (*domain.PushToken, error) {
	if err := m.meta.SetCachedRegistration(ctx, ""); err != nil {
		m.logger.Warn("failed to clear cached registration", "error", err)
	}
	return m.RegisterToken(ctx, userID)
}

func (m *Manager) ensurePermission(ctx context.Context) error {
	state, err := m.perms.Status(ctx)
	if err != nil {
		return fmt.Errorf("permission status: %w", err)
	}
	switch state {
	case PermissionGranted:
		return nil
	case PermissionDenied:
		return ErrPermissionDenied
	}

	state, err = m.perms.Request(ctx)
	if err != nil {
		return fmt.Errorf("permission request: %w", err)
	}
	if state != PermissionGranted {
		return ErrPermissionDenied
	}
	return nil
}

// persist runs steps 5-7: dedup by exact value, enforce the
// at-most-one-active-per-device invariant, insert with conflict fallback.
func (m *Manager) persist(ctx context.Context, userID uuid.UUID, value string) (*domain.PushToken, error) {
	now := m.clock().UTC()

	// Step 5: is this exact value already known?
	existing, err := m.tokens.GetByValue(ctx, value)
	switch {
	case err == nil:
		if existing.UserID != userID {
			// Device reused across accounts: reassign ownership rather
			// than duplicating the row.
			m.logger.Info("reassigning token ownership",
				"previous_user_id", existing.UserID,
				"user_id", userID)
		}
		existing.UserID = userID
		existing.DeviceFingerprint = m.fingerprint
		existing.IsActive = true
		existing.Touch(now)
		if err := m.tokens.UpdateByValue(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update existing token: %w", err)
		}
		if err := m.tokens.DeactivateForDevice(ctx, userID, m.fingerprint, value); err != nil {
			return nil, fmt.Errorf("failed to deactivate sibling tokens: %w", err)
		}
		return existing, nil

	case !store.IsNotFoundError(err):
		return nil, fmt.Errorf("failed to look up token by value: %w", err)
	}

	// Step 6: new value. Deactivate whatever else is active for this
	// device before inserting, keeping the invariant.
	if err := m.tokens.DeactivateForDevice(ctx, userID, m.fingerprint, value); err != nil {
		return nil, fmt.Errorf("failed to deactivate previous device tokens: %w", err)
	}

	token, err := domain.NewPushToken(userID, value, m.fingerprint)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	err = m.tokens.Insert(ctx, token)
	if err == nil {
		return token, nil
	}

	// Step 7: another client won the insert race. Fall back to an update
	// by value instead of failing.
	if errors.Is(err, store.ErrTokenValueExists) {
		m.logger.Info("insert conflict, falling back to update by value")
		token.Touch(now)
		if updateErr := m.tokens.UpdateByValue(ctx, token); updateErr != nil {
			return nil, fmt.Errorf("conflict fallback update failed: %w", updateErr)
		}
		return token, nil
	}

	return nil, fmt.Errorf("failed to insert token: %w", err)
}
