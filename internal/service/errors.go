package service

import "github.com/Freeeeeet/session_booking/internal/apperr"

var (
	ErrUserNotFound    = apperr.NotFound("user not found")
	ErrSlotNotFound    = apperr.NotFound("slot not found")
	ErrBookingNotFound = apperr.NotFound("booking not found")

	ErrSlotNotAvailable  = apperr.Conflict("slot is not available")
	ErrSlotNotCancelable = apperr.Conflict("only an available slot can be canceled")
	ErrBookingNotActive  = apperr.Conflict("booking is already canceled or completed")

	ErrTrainerOnly     = apperr.Forbidden("only trainers can do this")
	ErrTraineeOnly     = apperr.Forbidden("only trainees can do this")
	ErrNotSlotOwner    = apperr.Forbidden("slot belongs to another trainer")
	ErrNotBookingOwner = apperr.Forbidden("booking belongs to another user")
	ErrNotParticipant  = apperr.Forbidden("not a participant of this booking")

	ErrInvalidDate         = apperr.BadRequest("date must be YYYY-MM-DD")
	ErrInvalidTime         = apperr.BadRequest("time must be zero-padded HH:MM")
	ErrInvalidWindow       = apperr.BadRequest("start time must be before end time")
	ErrInvalidSlotDuration = apperr.BadRequest("slot duration must be positive and fit the window")
	ErrDateInPast          = apperr.BadRequest("date is in the past")
	ErrReasonRequired      = apperr.BadRequest("cancellation reason is required")
)
