package httpapi

import (
	"time"

	"github.com/Freeeeeet/session_booking/internal/model"
)

type availabilityResponse struct {
	ID                  int64           `json:"id"`
	TrainerID           int64           `json:"trainerId"`
	Date                string          `json:"date"`
	StartTime           model.ClockTime `json:"startTime"`
	EndTime             model.ClockTime `json:"endTime"`
	SlotDurationMinutes int             `json:"slotDurationMinutes"`
	CreatedAt           time.Time       `json:"createdAt"`
}

type createAvailabilityResponse struct {
	Availability availabilityResponse `json:"availability"`
	Slots        []*model.Slot        `json:"slots"`
}

type bookSlotResponse struct {
	Slot    *model.Slot    `json:"slot"`
	Booking *model.Booking `json:"booking"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type bookingDetailResponse struct {
	*model.BookingDetail
	Date string `json:"date"`
}

type registerUserRequest struct {
	DisplayName    string `json:"displayName"`
	Role           string `json:"role"`
	TelegramChatID *int64 `json:"telegramChatId,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func toAvailabilityResponse(a *model.Availability) availabilityResponse {
	return availabilityResponse{
		ID:                  a.ID,
		TrainerID:           a.TrainerID,
		Date:                a.DateString(),
		StartTime:           a.StartTime,
		EndTime:             a.EndTime,
		SlotDurationMinutes: a.SlotDurationMinutes,
		CreatedAt:           a.CreatedAt,
	}
}

func toAvailabilityList(list []*model.Availability) []availabilityResponse {
	res := make([]availabilityResponse, 0, len(list))
	for _, a := range list {
		res = append(res, toAvailabilityResponse(a))
	}
	return res
}

func toBookingDetail(d *model.BookingDetail) bookingDetailResponse {
	return bookingDetailResponse{BookingDetail: d, Date: d.Date.Format(model.DateFormat)}
}

func toBookingDetailList(list []*model.BookingDetail) []bookingDetailResponse {
	res := make([]bookingDetailResponse, 0, len(list))
	for _, d := range list {
		res = append(res, toBookingDetail(d))
	}
	return res
}

func emptyIfNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
