package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Freeeeeet/session_booking/internal/apperr"
	"github.com/Freeeeeet/session_booking/internal/controller/identity"
	"github.com/Freeeeeet/session_booking/internal/model"
)

const healthTimeout = 2 * time.Second

// Handler обслуживает REST API бронирований
type Handler struct {
	availability AvailabilityService
	bookings     BookingService
	users        UserService
	db           Pinger
	logger       *zap.Logger
}

func NewHandler(
	availability AvailabilityService,
	bookings BookingService,
	users UserService,
	db Pinger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		availability: availability,
		bookings:     bookings,
		users:        users,
		db:           db,
		logger:       logger,
	}
}

// actor is always present behind authenticate.
func actor(r *http.Request) model.Actor {
	a, _ := identity.ActorFrom(r.Context())
	return a
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("invalid " + name)
	}
	return id, nil
}

// Health GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
