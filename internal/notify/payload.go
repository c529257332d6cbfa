// Package notify renders inbound push payloads as notifications, routes
// notification clicks back to application views, and dispatches outbound
// notifications for the CRUD collaborators.
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/phrazzld/vigil/internal/domain"
)

// PushPayload is the wire shape the provider delivers. Absence of the
// notification block with presence of data is a data-only message: the
// agent synthesizes its own notification content.
type PushPayload struct {
	Notification *struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Icon  string `json:"icon"`
	} `json:"notification,omitempty"`
	Data map[string]string `json:"data,omitempty"`
}

// Fallback content for data-only messages.
const (
	defaultTitle = "You have a new notification"
	defaultIcon  = "/icons/icon-192.png"
)

// ParsePayload decodes a raw push payload.
func ParsePayload(raw []byte) (PushPayload, error) {
	var payload PushPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return PushPayload{}, fmt.Errorf("decode push payload: %w", err)
	}
	if payload.Notification == nil && len(payload.Data) == 0 {
		return PushPayload{}, fmt.Errorf("push payload carries neither notification nor data")
	}
	return payload, nil
}

// Intent normalizes the payload into a NotificationIntent, synthesizing
// content for data-only messages and attaching the default view/dismiss
// actions when none are carried.
func (p PushPayload) Intent() domain.NotificationIntent {
	intent := domain.NotificationIntent{
		Title: defaultTitle,
		Icon:  defaultIcon,
		Data:  p.Data,
	}

	if p.Notification != nil {
		if p.Notification.Title != "" {
			intent.Title = p.Notification.Title
		}
		intent.Body = p.Notification.Body
		if p.Notification.Icon != "" {
			intent.Icon = p.Notification.Icon
		}
	} else {
		if title := p.Data["title"]; title != "" {
			intent.Title = title
		}
		intent.Body = p.Data["body"]
	}

	intent.Tag = p.Data["tag"]
	intent.TargetURL = p.Data["url"]
	if intent.TargetURL == "" {
		intent.TargetURL = "/"
	}
	intent.RequireInteraction = p.Data["requireInteraction"] == "true"

	if raw := p.Data["actions"]; raw != "" {
		var actions []domain.NotificationAction
		if err := json.Unmarshal([]byte(raw), &actions); err == nil {
			intent.Actions = actions
		}
	}
	if len(intent.Actions) == 0 {
		intent.Actions = []domain.NotificationAction{
			{Action: "view", Title: "View"},
			{Action: "dismiss", Title: "Dismiss"},
		}
	}

	return intent
}
