package httpapi

import (
	"context"
	"time"

	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/Freeeeeet/session_booking/internal/service"
)

type AvailabilityService interface {
	Create(ctx context.Context, actor model.Actor, in service.CreateAvailabilityInput) (*model.Availability, []*model.Slot, error)
	GetByDate(ctx context.Context, actor model.Actor, date string) ([]*model.Availability, error)
	GetUpcomingGrouped(ctx context.Context, actor model.Actor, fromDate string) (map[string][]*model.Availability, error)
}

type BookingService interface {
	BookSlot(ctx context.Context, actor model.Actor, slotID int64) (*model.Slot, *model.Booking, error)
	CancelAvailableSlot(ctx context.Context, actor model.Actor, slotID int64) (*model.Slot, error)
	TrainerCancelBooking(ctx context.Context, actor model.Actor, bookingID int64, reason string) (*model.Booking, error)
	UserCancelBooking(ctx context.Context, actor model.Actor, bookingID int64, reason string) (*model.Booking, error)
	GetSlotsByTrainerAndDate(ctx context.Context, trainerID int64, date string) ([]*model.Slot, error)
	GetUpcomingForTrainer(ctx context.Context, actor model.Actor) ([]*model.BookingDetail, error)
	GetBookingsWithTrainer(ctx context.Context, actor model.Actor, trainerID int64) ([]*model.BookingDetail, error)
	GetBookingDetail(ctx context.Context, actor model.Actor, bookingID int64) (*model.BookingDetail, error)
}

type UserService interface {
	RegisterUser(ctx context.Context, displayName string, role model.Role, telegramChatID *int64) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPRecorder interface {
	ObserveHTTP(route, method string, status int, elapsed time.Duration)
}
