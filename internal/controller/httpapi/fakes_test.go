package httpapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/Freeeeeet/session_booking/internal/service"
)

type fakeAvailability struct {
	create      func(model.Actor, service.CreateAvailabilityInput) (*model.Availability, []*model.Slot, error)
	getByDate   func(model.Actor, string) ([]*model.Availability, error)
	getUpcoming func(model.Actor, string) (map[string][]*model.Availability, error)
}

func (f *fakeAvailability) Create(_ context.Context, a model.Actor, in service.CreateAvailabilityInput) (*model.Availability, []*model.Slot, error) {
	return f.create(a, in)
}

func (f *fakeAvailability) GetByDate(_ context.Context, a model.Actor, date string) ([]*model.Availability, error) {
	return f.getByDate(a, date)
}

func (f *fakeAvailability) GetUpcomingGrouped(_ context.Context, a model.Actor, from string) (map[string][]*model.Availability, error) {
	return f.getUpcoming(a, from)
}

type cancelCall struct {
	actor     model.Actor
	bookingID int64
	reason    string
}

type fakeBookings struct {
	bookSlot    func(model.Actor, int64) (*model.Slot, *model.Booking, error)
	cancelSlot  func(model.Actor, int64) (*model.Slot, error)
	cancel      func(cancelCall) (*model.Booking, error)
	slots       func(int64, string) ([]*model.Slot, error)
	upcoming    func(model.Actor) ([]*model.BookingDetail, error)
	withTrainer func(model.Actor, int64) ([]*model.BookingDetail, error)
	detail      func(model.Actor, int64) (*model.BookingDetail, error)

	cancelCalls []cancelCall
}

func (f *fakeBookings) BookSlot(_ context.Context, a model.Actor, slotID int64) (*model.Slot, *model.Booking, error) {
	return f.bookSlot(a, slotID)
}

func (f *fakeBookings) CancelAvailableSlot(_ context.Context, a model.Actor, slotID int64) (*model.Slot, error) {
	return f.cancelSlot(a, slotID)
}

func (f *fakeBookings) TrainerCancelBooking(_ context.Context, a model.Actor, id int64, reason string) (*model.Booking, error) {
	call := cancelCall{actor: a, bookingID: id, reason: reason}
	f.cancelCalls = append(f.cancelCalls, call)
	return f.cancel(call)
}

func (f *fakeBookings) UserCancelBooking(_ context.Context, a model.Actor, id int64, reason string) (*model.Booking, error) {
	call := cancelCall{actor: a, bookingID: id, reason: reason}
	f.cancelCalls = append(f.cancelCalls, call)
	return f.cancel(call)
}

func (f *fakeBookings) GetSlotsByTrainerAndDate(_ context.Context, trainerID int64, date string) ([]*model.Slot, error) {
	return f.slots(trainerID, date)
}

func (f *fakeBookings) GetUpcomingForTrainer(_ context.Context, a model.Actor) ([]*model.BookingDetail, error) {
	return f.upcoming(a)
}

func (f *fakeBookings) GetBookingsWithTrainer(_ context.Context, a model.Actor, trainerID int64) ([]*model.BookingDetail, error) {
	return f.withTrainer(a, trainerID)
}

func (f *fakeBookings) GetBookingDetail(_ context.Context, a model.Actor, id int64) (*model.BookingDetail, error) {
	return f.detail(a, id)
}

type fakeUsers struct {
	register func(string, model.Role, *int64) (*model.User, error)
	get      func(int64) (*model.User, error)
}

func (f *fakeUsers) RegisterUser(_ context.Context, name string, role model.Role, chatID *int64) (*model.User, error) {
	return f.register(name, role, chatID)
}

func (f *fakeUsers) GetUser(_ context.Context, id int64) (*model.User, error) {
	return f.get(id)
}

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error { return p.err }

type observation struct {
	route  string
	method string
	status int
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (r *recordingObserver) ObserveHTTP(route, method string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, observation{route: route, method: method, status: status})
}

var errDatabaseDown = errors.New("connection refused")
