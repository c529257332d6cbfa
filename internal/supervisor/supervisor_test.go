package supervisor_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/vigil/internal/domain"
	"github.com/phrazzld/vigil/internal/store"
	"github.com/phrazzld/vigil/internal/supervisor"
)

// memMetaStore is an in-memory MetaStore.
type memMetaStore struct {
	mu           sync.Mutex
	liveness     *domain.LivenessRecord
	registration string
}

func (s *memMetaStore) Liveness(_ context.Context) (domain.LivenessRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveness == nil {
		return domain.LivenessRecord{}, store.ErrNotFound
	}
	return *s.liveness, nil
}

func (s *memMetaStore) SetLiveness(_ context.Context, record domain.LivenessRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = &record
	return nil
}

func (s *memMetaStore) CachedRegistration(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registration == "" {
		return "", store.ErrNotFound
	}
	return s.registration, nil
}

func (s *memMetaStore) SetCachedRegistration(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registration = value
	return nil
}

// fakeMessaging records readiness checks and initializations.
type fakeMessaging struct {
	mu          sync.Mutex
	ready       bool
	initialized int
}

func (m *fakeMessaging) Ready(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

func (m *fakeMessaging) Initialize(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized++
	m.ready = true
	return nil
}

func (m *fakeMessaging) initCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// fakeJanitor records PurgeStale calls.
type fakeJanitor struct {
	mu     sync.Mutex
	purges int
}

func (j *fakeJanitor) PurgeStale(context.Context) ([]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.purges++
	return []string{"pages-v1"}, nil
}

func (j *fakeJanitor) purgeCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.purges
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestActivateFreshStart(t *testing.T) {
	ctx := context.Background()
	meta := &memMetaStore{}
	messaging := &fakeMessaging{}
	janitor := &fakeJanitor{}

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := supervisor.New(meta, messaging, janitor, supervisor.Config{}, testLogger(),
		supervisor.WithClock(func() time.Time { return now }))

	require.NoError(t, s.Activate(ctx))

	record, err := meta.Liveness(ctx)
	require.NoError(t, err)
	assert.Equal(t, now, record.LastActivity)

	// No dormancy on a fresh start, so no messaging repair.
	assert.Equal(t, 0, messaging.initCount())
	assert.Equal(t, 1, janitor.purgeCount())
}

func TestActivateRecoversFromDormancy(t *testing.T) {
	ctx := context.Background()
	meta := &memMetaStore{}
	messaging := &fakeMessaging{}
	janitor := &fakeJanitor{}

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	// Last recorded activity was 50 minutes ago, past the 45 minute
	// threshold.
	require.NoError(t, meta.SetLiveness(ctx, domain.LivenessRecord{
		LastActivity: now.Add(-50 * time.Minute),
	}))

	s := supervisor.New(meta, messaging, janitor, supervisor.Config{
		DormancyThreshold: 45 * time.Minute,
	}, testLogger(), supervisor.WithClock(func() time.Time { return now }))

	require.NoError(t, s.Activate(ctx))

	// Recovery re-initializes the uninitialized messaging handle.
	assert.Equal(t, 1, messaging.initCount())

	// And the liveness record carries a fresh stamp.
	record, err := meta.Liveness(ctx)
	require.NoError(t, err)
	assert.Equal(t, now, record.LastActivity)
}

func TestActivateShortIdleIsNotDormancy(t *testing.T) {
	ctx := context.Background()
	meta := &memMetaStore{}
	messaging := &fakeMessaging{}

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, meta.SetLiveness(ctx, domain.LivenessRecord{
		LastActivity: now.Add(-20 * time.Minute),
	}))

	s := supervisor.New(meta, messaging, &fakeJanitor{}, supervisor.Config{
		DormancyThreshold: 45 * time.Minute,
	}, testLogger(), supervisor.WithClock(func() time.Time { return now }))

	require.NoError(t, s.Activate(ctx))
	assert.Equal(t, 0, messaging.initCount())
}

func TestTouchAndKeepAliveStampActivity(t *testing.T) {
	ctx := context.Background()
	meta := &memMetaStore{}

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := supervisor.New(meta, &fakeMessaging{}, &fakeJanitor{}, supervisor.Config{}, testLogger(),
		supervisor.WithClock(func() time.Time { return now }))

	s.Touch(ctx)
	record, err := meta.Liveness(ctx)
	require.NoError(t, err)
	assert.Equal(t, now, record.LastActivity)

	now = now.Add(5 * time.Minute)
	stamp := s.KeepAlive(ctx)
	assert.Equal(t, now, stamp)

	record, err = meta.Liveness(ctx)
	require.NoError(t, err)
	assert.Equal(t, now, record.LastActivity)
}

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()
	meta := &memMetaStore{}

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	lastActivity := now.Add(-10 * time.Minute)
	require.NoError(t, meta.SetLiveness(ctx, domain.LivenessRecord{LastActivity: lastActivity}))

	s := supervisor.New(meta, &fakeMessaging{}, &fakeJanitor{}, supervisor.Config{}, testLogger(),
		supervisor.WithClock(func() time.Time { return now }))

	status := s.HealthCheck(ctx)
	assert.True(t, status.IsResponding)
	assert.Equal(t, now, status.Timestamp)
	assert.Equal(t, lastActivity, status.LastActivity)
}

func TestCheckMessagingRepairsOnlyWhenNotReady(t *testing.T) {
	ctx := context.Background()
	messaging := &fakeMessaging{ready: true}

	s := supervisor.New(&memMetaStore{}, messaging, &fakeJanitor{}, supervisor.Config{}, testLogger())

	require.NoError(t, s.CheckMessaging(ctx))
	assert.Equal(t, 0, messaging.initCount())

	messaging.mu.Lock()
	messaging.ready = false
	messaging.mu.Unlock()

	require.NoError(t, s.CheckMessaging(ctx))
	assert.Equal(t, 1, messaging.initCount())
}

func TestRevalidateLoopRepairsPeriodically(t *testing.T) {
	messaging := &fakeMessaging{}

	s := supervisor.New(&memMetaStore{}, messaging, &fakeJanitor{}, supervisor.Config{
		RevalidateInterval: 10 * time.Millisecond,
	}, testLogger())

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return messaging.initCount() >= 1
	}, 2*time.Second, 5*time.Millisecond)
}
