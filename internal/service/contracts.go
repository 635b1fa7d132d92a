package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/Freeeeeet/session_booking/internal/repository"
)

// TxManager выполняет fn в одной транзакции
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type AvailabilityRepository interface {
	Create(ctx context.Context, a *model.Availability) error
	LockTrainer(ctx context.Context, trainerID int64) error
	GetByTrainerAndDate(ctx context.Context, trainerID int64, date time.Time) ([]*model.Availability, error)
	GetByTrainerFrom(ctx context.Context, trainerID int64, from time.Time) ([]*model.Availability, error)
}

type SlotRepository interface {
	CreateBatch(ctx context.Context, slots []*model.Slot) error
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	GetByTrainerAndDate(ctx context.Context, trainerID int64, date time.Time) ([]*model.Slot, error)
	MarkBooked(ctx context.Context, slotID, bookingID int64) error
	Release(ctx context.Context, slotID, bookingID int64) error
	CancelAvailable(ctx context.Context, slotID, trainerID int64) error
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	Cancel(ctx context.Context, id int64, notes string) (*model.Booking, error)
	GetDetail(ctx context.Context, id int64) (*model.BookingDetail, error)
	ListDetails(ctx context.Context, filter repository.BookingFilter) ([]*model.BookingDetail, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type SubscriptionRepository interface {
	GetExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.Subscription, error)
}

// NotificationGateway принимает запросы на уведомления, доставкой занимается реализация
type NotificationGateway interface {
	Send(ctx context.Context, n model.Notification) error
}

// UpcomingBookings источник подтверждённых бронирований для напоминаний
type UpcomingBookings interface {
	GetConfirmedBetween(ctx context.Context, from, to time.Time) ([]*model.BookingDetail, error)
}
