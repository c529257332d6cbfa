package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/phrazzld/vigil/internal/api/shared"
	"github.com/phrazzld/vigil/internal/domain"
	"github.com/phrazzld/vigil/internal/notify"
)

// maxPushPayload bounds the inbound webhook body. Provider payloads are
// small; anything larger is malformed or hostile.
const maxPushPayload = 64 << 10

// PushHandler receives inbound push deliveries and click reports from the
// application shell.
type PushHandler struct {
	presenter  *notify.Presenter
	onActivity func(context.Context)
	logger     *slog.Logger
}

// NewPushHandler creates a PushHandler. onActivity is invoked for every
// received push so the liveness record reflects push-driven wakeups; nil
// disables it.
func NewPushHandler(presenter *notify.Presenter, onActivity func(context.Context), logger *slog.Logger) *PushHandler {
	return &PushHandler{
		presenter:  presenter,
		onActivity: onActivity,
		logger:     logger.With("component", "push_handler"),
	}
}

// Receive handles POST /push: an inbound push delivery. A malformed
// payload is logged and dropped; the webhook always acknowledges so the
// provider does not redeliver garbage.
func (h *PushHandler) Receive(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPushPayload))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Unreadable body")
		return
	}

	if h.onActivity != nil {
		h.onActivity(r.Context())
	}

	if r.URL.Query().Get("foreground") == "true" {
		h.presenter.OnForegroundMessage(r.Context(), raw)
	} else {
		h.presenter.OnPush(r.Context(), raw)
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, map[string]bool{"accepted": true})
}

// Click handles POST /push/click: the shell reports a notification click
// and the agent routes the user to the target view.
func (h *PushHandler) Click(w http.ResponseWriter, r *http.Request) {
	var intent domain.NotificationIntent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.presenter.OnNotificationClick(r.Context(), intent)
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]bool{"routed": true})
}
