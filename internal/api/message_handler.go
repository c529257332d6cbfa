// Package api exposes the agent's message channel and the HTTP endpoints
// its collaborators call: token lifecycle for the auth layer, notification
// dispatch for the CRUD layer, and an entity event intake.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/vigil/internal/api/shared"
	"github.com/phrazzld/vigil/internal/cache"
	"github.com/phrazzld/vigil/internal/supervisor"
)

// MessageType tags a control message on the channel.
type MessageType string

// The control messages the agent understands. Unknown types are rejected
// with a 400 rather than ignored so a misbehaving collaborator surfaces
// immediately.
const (
	MessageSkipWaiting MessageType = "SKIP_WAITING"
	MessageKeepAlive   MessageType = "KEEP_ALIVE"
	MessageHealthCheck MessageType = "HEALTH_CHECK"
	MessageClearCache  MessageType = "CLEAR_CACHE"
)

// Message is the envelope collaborators post to the channel.
type Message struct {
	Type MessageType `json:"type"`
}

// KeepAliveResponse answers a KEEP_ALIVE message.
type KeepAliveResponse struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthStatusResponse answers a HEALTH_CHECK message.
type HealthStatusResponse struct {
	Type   string            `json:"type"`
	Status supervisor.Status `json:"status"`
}

// AckResponse answers messages that carry no payload back.
type AckResponse struct {
	Type string `json:"type"`
	OK   bool   `json:"ok"`
}

// MessageHandler serves the agent's control message channel.
type MessageHandler struct {
	supervisor *supervisor.Supervisor
	caches     *cache.Manager
	logger     *slog.Logger
}

// NewMessageHandler creates a MessageHandler with the given dependencies.
func NewMessageHandler(sup *supervisor.Supervisor, caches *cache.Manager, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		supervisor: sup,
		caches:     caches,
		logger:     logger.With("component", "message_handler"),
	}
}

// Handle processes one control message. The switch over message types is
// exhaustive; adding a message type without a case here is a bug the
// default arm turns into a client-visible 400.
func (h *MessageHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid message body")
		return
	}

	switch msg.Type {
	case MessageSkipWaiting:
		if err := h.supervisor.Activate(r.Context()); err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"Activation failed", err)
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, AckResponse{Type: "SKIP_WAITING_DONE", OK: true})

	case MessageKeepAlive:
		stamp := h.supervisor.KeepAlive(r.Context())
		shared.RespondWithJSON(w, r, http.StatusOK, KeepAliveResponse{
			Type:      "KEEP_ALIVE_RESPONSE",
			Timestamp: stamp,
		})

	case MessageHealthCheck:
		status := h.supervisor.HealthCheck(r.Context())
		shared.RespondWithJSON(w, r, http.StatusOK, HealthStatusResponse{
			Type:   "HEALTH_STATUS",
			Status: status,
		})

	case MessageClearCache:
		if err := h.caches.Clear(r.Context()); err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"Cache clear failed", err)
			return
		}
		h.logger.Info("cache cleared by control message")
		shared.RespondWithJSON(w, r, http.StatusOK, AckResponse{Type: "CACHE_CLEARED", OK: true})

	default:
		h.logger.Warn("unknown control message", "type", msg.Type)
		shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown message type")
	}
}
