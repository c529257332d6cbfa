package api_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/vigil/internal/api"
	"github.com/phrazzld/vigil/internal/cache"
	"github.com/phrazzld/vigil/internal/domain"
	"github.com/phrazzld/vigil/internal/notify"
	"github.com/phrazzld/vigil/internal/supervisor"
)

// stubRenderer records rendered notifications.
type stubRenderer struct {
	shown []domain.NotificationIntent
}

func (r *stubRenderer) Show(_ context.Context, intent domain.NotificationIntent) error {
	r.shown = append(r.shown, intent)
	return nil
}

// stubWindows is a WindowClient with no open windows.
type stubWindows struct {
	opened []string
}

func (w *stubWindows) Windows(context.Context) ([]notify.Window, error) { return nil, nil }

func (w *stubWindows) Open(_ context.Context, url string) error {
	w.opened = append(w.opened, url)
	return nil
}

type pushFixture struct {
	handler  *api.PushHandler
	renderer *stubRenderer
	meta     *memMetaStore
	now      time.Time
}

func newPushFixture(t *testing.T) *pushFixture {
	t.Helper()
	meta := &memMetaStore{}
	f := &pushFixture{
		renderer: &stubRenderer{},
		meta:     meta,
		now:      time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	caches := cache.NewManager(newMemEntryStore(), 1, testLogger())
	sup := supervisor.New(meta, nil, caches, supervisor.Config{}, testLogger(),
		supervisor.WithClock(func() time.Time { return f.now }))

	presenter := notify.NewPresenter(f.renderer, &stubWindows{}, nil,
		"https://app.example.com", testLogger())
	f.handler = api.NewPushHandler(presenter, sup.Touch, testLogger())
	return f
}

func (f *pushFixture) receive(t *testing.T, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	f.handler.Receive(rec, req)
	return rec
}

func TestPushReceiveStampsLiveness(t *testing.T) {
	f := newPushFixture(t)

	rec := f.receive(t, "/api/push", `{"notification": {"title": "Task due", "body": "Report"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, f.renderer.shown, 1)

	record, err := f.meta.Liveness(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.now, record.LastActivity)
}

func TestPushReceiveForegroundStampsLiveness(t *testing.T) {
	f := newPushFixture(t)

	rec := f.receive(t, "/api/push?foreground=true", `{"notification": {"title": "Task due"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, f.renderer.shown, "foreground messages skip the system notification")

	record, err := f.meta.Liveness(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.now, record.LastActivity)
}

func TestPushReceiveMalformedPayloadStillStampsLiveness(t *testing.T) {
	f := newPushFixture(t)

	// The delivery itself proves the agent is awake even when the payload
	// is garbage.
	rec := f.receive(t, "/api/push", `not json`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, f.renderer.shown)

	record, err := f.meta.Liveness(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.now, record.LastActivity)
}

func TestPushReceiveWithoutActivityHook(t *testing.T) {
	renderer := &stubRenderer{}
	presenter := notify.NewPresenter(renderer, &stubWindows{}, nil,
		"https://app.example.com", testLogger())
	handler := api.NewPushHandler(presenter, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/push",
		bytes.NewReader([]byte(`{"notification": {"title": "Task due"}}`)))
	rec := httptest.NewRecorder()
	handler.Receive(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, renderer.shown, 1)
}
