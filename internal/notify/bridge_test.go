package notify_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/vigil/internal/events"
	"github.com/phrazzld/vigil/internal/notify"
)

func TestBridgeBroadcastsAnnouncementCreations(t *testing.T) {
	ctx := context.Background()
	tokens := newMemTokenStore()
	sender := newFakeSender()
	seedToken(t, tokens, uuid.New(), "reg-1")
	seedToken(t, tokens, uuid.New(), "reg-2")

	dispatcher := notify.NewDispatcher(tokens, sender, nil, testLogger())
	bridge := notify.NewEventBridge(dispatcher, nil, testLogger())

	event, err := events.NewEntityEvent("announcement", events.ActionCreate, map[string]string{
		"title": "Holiday schedule",
		"body":  "Office closed Friday",
		"url":   "/announcements/12",
	})
	require.NoError(t, err)

	require.NoError(t, bridge.HandleEvent(ctx, event))
	assert.ElementsMatch(t, []string{"reg-1", "reg-2"}, sender.sent)
}

func TestBridgeIgnoresOtherEntities(t *testing.T) {
	sender := newFakeSender()
	dispatcher := notify.NewDispatcher(newMemTokenStore(), sender, nil, testLogger())
	bridge := notify.NewEventBridge(dispatcher, nil, testLogger())

	for _, spec := range []struct {
		entity string
		action events.EntityAction
	}{
		{"task", events.ActionCreate},
		{"announcement", events.ActionUpdate},
		{"announcement", events.ActionDelete},
	} {
		event, err := events.NewEntityEvent(spec.entity, spec.action, nil)
		require.NoError(t, err)
		require.NoError(t, bridge.HandleEvent(context.Background(), event))
	}

	assert.Empty(t, sender.sent)
}

func TestBridgeRecordsActivity(t *testing.T) {
	dispatcher := notify.NewDispatcher(newMemTokenStore(), newFakeSender(), nil, testLogger())

	touches := 0
	bridge := notify.NewEventBridge(dispatcher, func(context.Context) { touches++ }, testLogger())

	event, err := events.NewEntityEvent("task", events.ActionUpdate, nil)
	require.NoError(t, err)
	require.NoError(t, bridge.HandleEvent(context.Background(), event))

	assert.Equal(t, 1, touches)
}
