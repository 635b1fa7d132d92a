package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Freeeeeet/session_booking/internal/service"
)

// CreateAvailability POST /api/v1/availabilities
func (h *Handler) CreateAvailability(w http.ResponseWriter, r *http.Request) {
	var in service.CreateAvailabilityInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	caller := actor(r)
	availability, slots, err := h.availability.Create(r.Context(), caller, in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("availability created",
		zap.Int64("trainer_id", caller.ID),
		zap.Int64("availability_id", availability.ID),
		zap.Int("slots", len(slots)),
	)
	respondJSON(w, http.StatusCreated, createAvailabilityResponse{
		Availability: toAvailabilityResponse(availability),
		Slots:        emptyIfNil(slots),
	})
}

// GetAvailabilityByDate GET /api/v1/availabilities?date=YYYY-MM-DD
func (h *Handler) GetAvailabilityByDate(w http.ResponseWriter, r *http.Request) {
	list, err := h.availability.GetByDate(r.Context(), actor(r), r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toAvailabilityList(list))
}

// GetUpcomingAvailability GET /api/v1/availabilities/upcoming?fromDate=YYYY-MM-DD
func (h *Handler) GetUpcomingAvailability(w http.ResponseWriter, r *http.Request) {
	grouped, err := h.availability.GetUpcomingGrouped(r.Context(), actor(r), r.URL.Query().Get("fromDate"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	res := make(map[string][]availabilityResponse, len(grouped))
	for day, list := range grouped {
		res[day] = toAvailabilityList(list)
	}
	respondJSON(w, http.StatusOK, res)
}
