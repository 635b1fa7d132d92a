package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/Freeeeeet/session_booking/internal/model"
)

type cancelFunc func(ctx context.Context, actor model.Actor, bookingID int64, reason string) (*model.Booking, error)

// GetTrainerSlots GET /api/v1/trainers/{trainerId}/slots?date=YYYY-MM-DD
func (h *Handler) GetTrainerSlots(w http.ResponseWriter, r *http.Request) {
	trainerID, err := pathID(r, "trainerId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	slots, err := h.bookings.GetSlotsByTrainerAndDate(r.Context(), trainerID, r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, emptyIfNil(slots))
}

// BookSlot POST /api/v1/slots/{slotId}/book
func (h *Handler) BookSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := pathID(r, "slotId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	caller := actor(r)
	slot, booking, err := h.bookings.BookSlot(r.Context(), caller, slotID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("slot booked",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("booking_id", booking.ID),
		zap.Int64("user_id", caller.ID),
	)
	respondJSON(w, http.StatusCreated, bookSlotResponse{Slot: slot, Booking: booking})
}

// CancelSlot PUT /api/v1/slots/{slotId}/cancel
func (h *Handler) CancelSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := pathID(r, "slotId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	slot, err := h.bookings.CancelAvailableSlot(r.Context(), actor(r), slotID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, slot)
}

// TrainerCancelBooking PUT /api/v1/bookings/{bookingId}/trainer-cancel
func (h *Handler) TrainerCancelBooking(w http.ResponseWriter, r *http.Request) {
	h.cancelBooking(w, r, h.bookings.TrainerCancelBooking)
}

// UserCancelBooking PUT /api/v1/bookings/{bookingId}/user-cancel
func (h *Handler) UserCancelBooking(w http.ResponseWriter, r *http.Request) {
	h.cancelBooking(w, r, h.bookings.UserCancelBooking)
}

func (h *Handler) cancelBooking(w http.ResponseWriter, r *http.Request, cancel cancelFunc) {
	bookingID, err := pathID(r, "bookingId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req cancelBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	caller := actor(r)
	booking, err := cancel(r.Context(), caller, bookingID, req.Reason)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("booking canceled",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("actor_id", caller.ID),
		zap.String("role", string(caller.Role)),
	)
	respondJSON(w, http.StatusOK, booking)
}

// GetUpcomingBookings GET /api/v1/bookings
func (h *Handler) GetUpcomingBookings(w http.ResponseWriter, r *http.Request) {
	list, err := h.bookings.GetUpcomingForTrainer(r.Context(), actor(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toBookingDetailList(list))
}

// GetBooking GET /api/v1/bookings/{bookingId}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathID(r, "bookingId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	detail, err := h.bookings.GetBookingDetail(r.Context(), actor(r), bookingID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toBookingDetail(detail))
}

// GetBookingsWithTrainer GET /api/v1/trainers/{trainerId}/bookings
func (h *Handler) GetBookingsWithTrainer(w http.ResponseWriter, r *http.Request) {
	trainerID, err := pathID(r, "trainerId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	list, err := h.bookings.GetBookingsWithTrainer(r.Context(), actor(r), trainerID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toBookingDetailList(list))
}
