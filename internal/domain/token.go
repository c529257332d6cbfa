package domain

import (
	"time"

	"github.com/google/uuid"
)

// PushToken represents a push-registration identifier issued by the push
// provider for one installed client instance. The remote store is the system
// of record; the agent's local store only caches the current value.
//
// Invariant: at most one *active* token exists per (user, device fingerprint)
// pair. Registering a new token for the same device deactivates the previous
// one instead of duplicating it.
type PushToken struct {
	ID                uuid.UUID `json:"id"`
	Value             string    `json:"value"`
	UserID            uuid.UUID `json:"user_id"`
	DeviceFingerprint string    `json:"device_fingerprint"`
	CreatedAt         time.Time `json:"created_at"`
	LastUsedAt        time.Time `json:"last_used_at"`
	IsActive          bool      `json:"is_active"`
}

// NewPushToken creates an active PushToken for the given owner and device.
// It generates a new UUID and sets the creation/last-used timestamps.
// Returns an error if validation fails.
func NewPushToken(userID uuid.UUID, value, deviceFingerprint string) (*PushToken, error) {
	now := time.Now().UTC()
	token := &PushToken{
		ID:                uuid.New(),
		Value:             value,
		UserID:            userID,
		DeviceFingerprint: deviceFingerprint,
		CreatedAt:         now,
		LastUsedAt:        now,
		IsActive:          true,
	}

	if err := token.Validate(); err != nil {
		return nil, err
	}

	return token, nil
}

// Validate checks if the PushToken has valid data.
// Returns an error if any field fails validation.
func (t *PushToken) Validate() error {
	if t.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if t.Value == "" {
		return ErrEmptyTokenValue
	}
	if t.DeviceFingerprint == "" {
		return ErrEmptyDeviceFingerprint
	}
	return nil
}

// Touch updates the last-used timestamp. Called on idempotent
// re-registration of an already known token value.
func (t *PushToken) Touch(now time.Time) {
	t.LastUsedAt = now.UTC()
}

// Deactivate flips the active flag. Rows are never deleted so the remote
// store can keep referencing them for auditing.
func (t *PushToken) Deactivate() {
	t.IsActive = false
}
