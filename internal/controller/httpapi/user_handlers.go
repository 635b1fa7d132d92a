package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Freeeeeet/session_booking/internal/apperr"
	"github.com/Freeeeeet/session_booking/internal/model"
)

// RegisterUser POST /api/v1/users
// Called by the identity provider when an account is created.
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	role, ok := model.ParseRole(req.Role)
	if !ok {
		respondError(w, r, h.logger, apperr.BadRequest("role must be trainer or trainee"))
		return
	}

	user, err := h.users.RegisterUser(r.Context(), req.DisplayName, role, req.TelegramChatID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	respondJSON(w, http.StatusCreated, user)
}

// GetMe GET /api/v1/users/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), actor(r).ID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
