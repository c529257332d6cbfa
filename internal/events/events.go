// Package events carries the entity CRUD event stream the surrounding
// application feeds the agent. The agent does not own task or announcement
// data; it only reacts when a collaborator reports a change worth waking up
// for.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntityAction is the kind of change a collaborator reports.
type EntityAction string

const (
	ActionCreate EntityAction = "create"
	ActionUpdate EntityAction = "update"
	ActionDelete EntityAction = "delete"
)

// EntityEvent represents one create/update/delete of an application entity
// (task, routine, announcement) as reported by the CRUD layer.
type EntityEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Entity names the entity kind, e.g. "task" or "announcement"
	Entity string `json:"entity"`

	// Action is the change kind
	Action EntityAction `json:"action"`

	// Payload contains the entity-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *EntityEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEntityEvent creates an EntityEvent with the specified entity, action
// and payload.
func NewEntityEvent(entity string, action EntityAction, payload interface{}) (*EntityEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &EntityEvent{
		ID:        uuid.New(),
		Entity:    entity,
		Action:    action,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *EntityEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows collaborators to publish events without direct knowledge of
// handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *EntityEvent) error
}
