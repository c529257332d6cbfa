package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/vigil/internal/events"
)

// recordingHandler captures the events it receives.
type recordingHandler struct {
	received []*events.EntityEvent
	fail     error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *events.EntityEvent) error {
	if h.fail != nil {
		return h.fail
	}
	h.received = append(h.received, event)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewEntityEvent(t *testing.T) {
	event, err := events.NewEntityEvent("task", events.ActionCreate, map[string]string{"title": "Write report"})
	require.NoError(t, err)

	assert.Equal(t, "task", event.Entity)
	assert.Equal(t, events.ActionCreate, event.Action)
	assert.False(t, event.CreatedAt.IsZero())

	var payload map[string]string
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, "Write report", payload["title"])
}

func TestEmitEventReachesAllHandlers(t *testing.T) {
	emitter := events.NewInMemoryEventEmitter(testLogger())
	first := &recordingHandler{}
	second := &recordingHandler{}
	emitter.RegisterHandler(first)
	emitter.RegisterHandler(second)

	event, err := events.NewEntityEvent("task", events.ActionUpdate, nil)
	require.NoError(t, err)
	require.NoError(t, emitter.EmitEvent(context.Background(), event))

	require.Len(t, first.received, 1)
	require.Len(t, second.received, 1)
	assert.Equal(t, event.ID, first.received[0].ID)
}

func TestEmitEventContinuesPastFailingHandler(t *testing.T) {
	emitter := events.NewInMemoryEventEmitter(testLogger())
	failing := &recordingHandler{fail: errors.New("handler broken")}
	healthy := &recordingHandler{}
	emitter.RegisterHandler(failing)
	emitter.RegisterHandler(healthy)

	event, err := events.NewEntityEvent("announcement", events.ActionCreate, nil)
	require.NoError(t, err)

	err = emitter.EmitEvent(context.Background(), event)
	assert.Error(t, err, "the first handler error is reported")
	require.Len(t, healthy.received, 1, "later handlers still run")
}

func TestEmitEventWithNoHandlers(t *testing.T) {
	emitter := events.NewInMemoryEventEmitter(testLogger())

	event, err := events.NewEntityEvent("task", events.ActionDelete, nil)
	require.NoError(t, err)
	assert.NoError(t, emitter.EmitEvent(context.Background(), event))
}
