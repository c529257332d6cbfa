package domain

// NotificationAction is a button attached to a rendered notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// NotificationIntent is the normalized, ephemeral description of a
// notification to render, independent of the payload format that produced
// it. Intents are constructed from an inbound push payload or a foreground
// message, consumed immediately by the presentation layer, and never
// persisted.
type NotificationIntent struct {
	Title              string               `json:"title"`
	Body               string               `json:"body"`
	Icon               string               `json:"icon,omitempty"`
	Tag                string               `json:"tag,omitempty"`
	TargetURL          string               `json:"target_url,omitempty"`
	RequireInteraction bool                 `json:"require_interaction"`
	Actions            []NotificationAction `json:"actions,omitempty"`
	Data               map[string]string    `json:"data,omitempty"`
}

// Validate checks that the intent carries enough content to render.
func (n *NotificationIntent) Validate() error {
	if n.Title == "" {
		return ErrEmptyNotificationTitle
	}
	return nil
}
