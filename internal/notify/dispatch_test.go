package notify_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/vigil/internal/domain"
	"github.com/phrazzld/vigil/internal/notify"
	"github.com/phrazzld/vigil/internal/platform/provider"
	"github.com/phrazzld/vigil/internal/store"
)

// memTokenStore is an in-memory TokenStore keyed by token value.
type memTokenStore struct {
	mu    sync.Mutex
	byVal map[string]*domain.PushToken
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{byVal: make(map[string]*domain.PushToken)}
}

func (s *memTokenStore) Insert(_ context.Context, t *domain.PushToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byVal[t.Value]; ok {
		return store.ErrTokenValueExists
	}
	clone := *t
	s.byVal[t.Value] = &clone
	return nil
}

func (s *memTokenStore) GetByValue(_ context.Context, value string) (*domain.PushToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byVal[value]
	if !ok {
		return nil, store.ErrTokenNotFound
	}
	clone := *t
	return &clone, nil
}

func (s *memTokenStore) UpdateByValue(_ context.Context, t *domain.PushToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byVal[t.Value]
	if !ok {
		return store.ErrTokenNotFound
	}
	existing.UserID = t.UserID
	existing.DeviceFingerprint = t.DeviceFingerprint
	existing.LastUsedAt = t.LastUsedAt
	existing.IsActive = t.IsActive
	return nil
}

func (s *memTokenStore) DeactivateForDevice(_ context.Context, userID uuid.UUID, fingerprint, keepValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.byVal {
		if t.UserID == userID && t.DeviceFingerprint == fingerprint && t.Value != keepValue {
			t.IsActive = false
		}
	}
	return nil
}

func (s *memTokenStore) DeactivateForUser(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.byVal {
		if t.UserID == userID {
			t.IsActive = false
		}
	}
	return nil
}

func (s *memTokenStore) ActiveForUsers(_ context.Context, userIDs []uuid.UUID) ([]*domain.PushToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.PushToken
	for _, t := range s.byVal {
		for _, id := range userIDs {
			if t.UserID == id && t.IsActive {
				clone := *t
				out = append(out, &clone)
			}
		}
	}
	return out, nil
}

func (s *memTokenStore) ActiveAll(_ context.Context) ([]*domain.PushToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.PushToken
	for _, t := range s.byVal {
		if t.IsActive {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

// fakeSender records sends and fails scripted registration values.
type fakeSender struct {
	mu   sync.Mutex
	sent []string
	gone map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{gone: make(map[string]bool)}
}

func (f *fakeSender) Send(_ context.Context, registration string, _ domain.NotificationIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[registration] {
		return fmt.Errorf("%w: status 410", provider.ErrTokenGone)
	}
	f.sent = append(f.sent, registration)
	return nil
}

func seedToken(t *testing.T, tokens *memTokenStore, userID uuid.UUID, value string) {
	t.Helper()
	tok, err := domain.NewPushToken(userID, value, "device-"+value)
	require.NoError(t, err)
	require.NoError(t, tokens.Insert(context.Background(), tok))
}

func TestDispatchToUsers(t *testing.T) {
	ctx := context.Background()
	tokens := newMemTokenStore()
	sender := newFakeSender()

	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()
	seedToken(t, tokens, alice, "reg-alice")
	seedToken(t, tokens, bob, "reg-bob")
	seedToken(t, tokens, carol, "reg-carol")

	d := notify.NewDispatcher(tokens, sender, nil, testLogger())

	result, err := d.Dispatch(ctx, notify.DispatchRequest{
		TargetUserIDs: []uuid.UUID{alice, bob},
		Title:         "Task assigned",
		Body:          "Check your queue",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Delivered)
	assert.Equal(t, 0, result.Failed)
	assert.ElementsMatch(t, []string{"reg-alice", "reg-bob"}, sender.sent)
}

func TestDispatchBroadcast(t *testing.T) {
	ctx := context.Background()
	tokens := newMemTokenStore()
	sender := newFakeSender()

	for i := 0; i < 3; i++ {
		seedToken(t, tokens, uuid.New(), fmt.Sprintf("reg-%d", i))
	}

	d := notify.NewDispatcher(tokens, sender, nil, testLogger())

	result, err := d.Dispatch(ctx, notify.DispatchRequest{
		BroadcastToAll: true,
		Title:          "Maintenance tonight",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Delivered)
}

func TestDispatchToSection(t *testing.T) {
	ctx := context.Background()
	tokens := newMemTokenStore()
	sender := newFakeSender()

	alice := uuid.New()
	bob := uuid.New()
	seedToken(t, tokens, alice, "reg-alice")
	seedToken(t, tokens, bob, "reg-bob")

	sections := func(_ context.Context, sectionID string) ([]uuid.UUID, error) {
		require.Equal(t, "sec-7", sectionID)
		return []uuid.UUID{alice}, nil
	}

	d := notify.NewDispatcher(tokens, sender, sections, testLogger())

	result, err := d.Dispatch(ctx, notify.DispatchRequest{
		TargetSectionID: "sec-7",
		Title:           "Section update",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, []string{"reg-alice"}, sender.sent)
}

func TestDispatchSectionWithoutResolver(t *testing.T) {
	d := notify.NewDispatcher(newMemTokenStore(), newFakeSender(), nil, testLogger())

	_, err := d.Dispatch(context.Background(), notify.DispatchRequest{
		TargetSectionID: "sec-7",
		Title:           "Section update",
	})
	assert.Error(t, err)
}

func TestDispatchWithoutTarget(t *testing.T) {
	d := notify.NewDispatcher(newMemTokenStore(), newFakeSender(), nil, testLogger())

	_, err := d.Dispatch(context.Background(), notify.DispatchRequest{Title: "Orphan"})
	assert.Error(t, err)
}

func TestDispatchRequiresTitle(t *testing.T) {
	d := notify.NewDispatcher(newMemTokenStore(), newFakeSender(), nil, testLogger())

	_, err := d.Dispatch(context.Background(), notify.DispatchRequest{BroadcastToAll: true})
	assert.ErrorIs(t, err, domain.ErrEmptyNotificationTitle)
}

func TestDispatchRetiresGoneTokens(t *testing.T) {
	ctx := context.Background()
	tokens := newMemTokenStore()
	sender := newFakeSender()

	alice := uuid.New()
	seedToken(t, tokens, alice, "reg-live")
	seedToken(t, tokens, alice, "reg-dead")
	sender.gone["reg-dead"] = true

	d := notify.NewDispatcher(tokens, sender, nil, testLogger())

	result, err := d.Dispatch(ctx, notify.DispatchRequest{
		TargetUserIDs: []uuid.UUID{alice},
		Title:         "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, 1, result.Failed)

	// The dead registration was deactivated so it is skipped next time.
	dead, err := tokens.GetByValue(ctx, "reg-dead")
	require.NoError(t, err)
	assert.False(t, dead.IsActive)

	sender.mu.Lock()
	sender.sent = nil
	sender.mu.Unlock()

	result, err = d.Dispatch(ctx, notify.DispatchRequest{
		TargetUserIDs: []uuid.UUID{alice},
		Title:         "Hello again",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, 0, result.Failed)
}
