package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/vigil/internal/api/shared"
	"github.com/phrazzld/vigil/internal/token"
)

// TokenResponse describes a registered token to the caller. The raw
// registration value stays server-side.
type TokenResponse struct {
	ID         string `json:"id,omitempty"`
	Registered bool   `json:"registered"`
	Reason     string `json:"reason,omitempty"`
}

// TokenHandler serves push-token lifecycle endpoints.
type TokenHandler struct {
	manager  *token.Manager
	validate *validator.Validate
	logger   *slog.Logger
}

// NewTokenHandler creates a TokenHandler with the given dependencies.
func NewTokenHandler(manager *token.Manager, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		manager:  manager,
		validate: validator.New(),
		logger:   logger.With("component", "token_handler"),
	}
}

// Register handles POST /tokens/register. An environment that cannot do
// push or a denied permission is a clean no, not an error.
func (h *TokenHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.decodeUserID(w, r)
	if !ok {
		return
	}

	t, err := h.manager.RegisterToken(r.Context(), userID)
	if err != nil {
		if reason, declined := declineReason(err); declined {
			h.logger.Debug("registration declined", "reason", reason, "error", err)
			shared.RespondWithJSON(w, r, http.StatusOK, TokenResponse{
				Registered: false,
				Reason:     reason,
			})
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Token registration failed", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, TokenResponse{
		ID:         t.ID.String(),
		Registered: true,
	})
}

// declineReason maps the manager's clean-no outcomes to a caller-facing
// reason. Anything else is a genuine infrastructure failure and keeps its
// 500.
func declineReason(err error) (string, bool) {
	switch {
	case errors.Is(err, token.ErrUnsupported):
		return "push unavailable", true
	case errors.Is(err, token.ErrPermissionDenied):
		return "permission denied", true
	case errors.Is(err, token.ErrRetriesExhausted):
		return "provider unreachable", true
	}
	return "", false
}

// Refresh handles POST /tokens/refresh.
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.decodeUserID(w, r)
	if !ok {
		return
	}

	t, err := h.manager.RefreshToken(r.Context(), userID)
	if err != nil {
		if reason, declined := declineReason(err); declined {
			h.logger.Debug("refresh declined", "reason", reason, "error", err)
			shared.RespondWithJSON(w, r, http.StatusOK, TokenResponse{
				Registered: false,
				Reason:     reason,
			})
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Token refresh failed", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TokenResponse{
		ID:         t.ID.String(),
		Registered: true,
	})
}

// Deactivate handles POST /tokens/deactivate.
func (h *TokenHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.decodeUserID(w, r)
	if !ok {
		return
	}

	if err := h.manager.DeactivateTokens(r.Context(), userID); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Token deactivation failed", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]bool{"deactivated": true})
}

// decodeUserID reads and validates the common {user_id} request body. On
// failure it writes the error response and returns false.
func (h *TokenHandler) decodeUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req struct {
		UserID string `json:"user_id" validate:"required,uuid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return uuid.Nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		var valErrs validator.ValidationErrors
		if errors.As(err, &valErrs) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "user_id must be a valid UUID")
			return uuid.Nil, false
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "user_id must be a valid UUID")
		return uuid.Nil, false
	}
	return userID, true
}
