package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/vigil/internal/domain"
)

func TestNewPushToken(t *testing.T) {
	userID := uuid.New()

	token, err := domain.NewPushToken(userID, "reg-123", "device-a")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, token.ID)
	assert.Equal(t, userID, token.UserID)
	assert.Equal(t, "reg-123", token.Value)
	assert.Equal(t, "device-a", token.DeviceFingerprint)
	assert.True(t, token.IsActive)
	assert.Equal(t, token.CreatedAt, token.LastUsedAt)
}

func TestNewPushTokenValidation(t *testing.T) {
	tests := []struct {
		name        string
		userID      uuid.UUID
		value       string
		fingerprint string
		wantErr     error
	}{
		{"missing user", uuid.Nil, "reg-123", "device-a", domain.ErrEmptyUserID},
		{"missing value", uuid.New(), "", "device-a", domain.ErrEmptyTokenValue},
		{"missing fingerprint", uuid.New(), "reg-123", "", domain.ErrEmptyDeviceFingerprint},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := domain.NewPushToken(tc.userID, tc.value, tc.fingerprint)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestPushTokenTouchAndDeactivate(t *testing.T) {
	token, err := domain.NewPushToken(uuid.New(), "reg-123", "device-a")
	require.NoError(t, err)

	stamp := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	token.Touch(stamp)
	assert.Equal(t, stamp, token.LastUsedAt)

	token.Deactivate()
	assert.False(t, token.IsActive)
}

func TestNotificationIntentValidate(t *testing.T) {
	intent := domain.NotificationIntent{Title: "Task due"}
	assert.NoError(t, intent.Validate())

	intent.Title = ""
	assert.ErrorIs(t, intent.Validate(), domain.ErrEmptyNotificationTitle)
}

func TestLivenessDormantFor(t *testing.T) {
	record := domain.LivenessRecord{
		LastActivity: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	now := record.LastActivity.Add(50 * time.Minute)
	assert.Equal(t, 50*time.Minute, record.DormantFor(now))
}
