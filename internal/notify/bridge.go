package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/vigil/internal/events"
)

// EventBridge turns entity CRUD events into agent behavior: every event
// counts as activity for the liveness record, and announcement creations
// fan out as broadcast notifications.
type EventBridge struct {
	dispatcher *Dispatcher
	onActivity func(ctx context.Context)
	logger     *slog.Logger
}

// announcementPayload is the slice of the announcement entity the bridge
// needs for notification content.
type announcementPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// NewEventBridge creates an EventBridge. onActivity may be nil.
func NewEventBridge(dispatcher *Dispatcher, onActivity func(ctx context.Context), logger *slog.Logger) *EventBridge {
	return &EventBridge{
		dispatcher: dispatcher,
		onActivity: onActivity,
		logger:     logger.With("component", "event_bridge"),
	}
}

// HandleEvent implements events.EventHandler.
func (b *EventBridge) HandleEvent(ctx context.Context, event *events.EntityEvent) error {
	if b.onActivity != nil {
		b.onActivity(ctx)
	}

	if event.Entity != "announcement" || event.Action != events.ActionCreate {
		return nil
	}

	var payload announcementPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("decode announcement payload: %w", err)
	}
	if payload.Title == "" {
		payload.Title = "New announcement"
	}
	if payload.URL == "" {
		payload.URL = "/announcements"
	}

	result, err := b.dispatcher.Dispatch(ctx, DispatchRequest{
		BroadcastToAll: true,
		Title:          payload.Title,
		Body:           payload.Body,
		Data: map[string]string{
			"url": payload.URL,
			"tag": "announcement-" + event.ID.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("broadcast announcement: %w", err)
	}

	b.logger.Info("announcement broadcast",
		"event_id", event.ID,
		"delivered", result.Delivered,
		"failed", result.Failed)
	return nil
}
