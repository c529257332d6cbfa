package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/vigil/internal/api/shared"
	"github.com/phrazzld/vigil/internal/domain"
	"github.com/phrazzld/vigil/internal/notify"
)

// DispatchHandler serves the CRUD collaborator's notification entry point.
type DispatchHandler struct {
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
}

// NewDispatchHandler creates a DispatchHandler with the given dependencies.
func NewDispatchHandler(dispatcher *notify.Dispatcher, logger *slog.Logger) *DispatchHandler {
	return &DispatchHandler{
		dispatcher: dispatcher,
		logger:     logger.With("component", "dispatch_handler"),
	}
}

// Dispatch handles POST /notifications/dispatch.
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req notify.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Dispatch failed", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}
