package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/phrazzld/vigil/internal/api/shared"
	"github.com/phrazzld/vigil/internal/events"
)

// EntityEventRequest is the intake shape for a reported entity change.
type EntityEventRequest struct {
	Entity  string          `json:"entity"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// EventHandler accepts entity CRUD events from collaborators and feeds
// them onto the event stream.
type EventHandler struct {
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewEventHandler creates an EventHandler with the given dependencies.
func NewEventHandler(emitter events.EventEmitter, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		emitter: emitter,
		logger:  logger.With("component", "event_handler"),
	}
}

// Intake handles POST /events.
func (h *EventHandler) Intake(w http.ResponseWriter, r *http.Request) {
	var req EntityEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Entity == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "entity is required")
		return
	}

	action := events.EntityAction(req.Action)
	switch action {
	case events.ActionCreate, events.ActionUpdate, events.ActionDelete:
	default:
		shared.RespondWithError(w, r, http.StatusBadRequest, "action must be create, update or delete")
		return
	}

	event, err := events.NewEntityEvent(req.Entity, action, req.Payload)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to build event", err)
		return
	}

	if err := h.emitter.EmitEvent(r.Context(), event); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Event handling failed", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, map[string]string{
		"event_id": event.ID.String(),
	})
}
