package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/Freeeeeet/session_booking/internal/repository"
)

// fakeStore is an in-memory database. Do serializes transactions and
// restores a snapshot when fn fails, mirroring a rolled back pgx.Tx.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID         int64
	users          map[int64]*model.User
	availabilities map[int64]*model.Availability
	slots          map[int64]*model.Slot
	bookings       map[int64]*model.Booking
	subscriptions  []*model.Subscription

	// skipUniqueIndex disables the confirmed-booking-per-slot index so the
	// conditional slot update alone has to reject the loser.
	skipUniqueIndex bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:          map[int64]*model.User{},
		availabilities: map[int64]*model.Availability{},
		slots:          map[int64]*model.Slot{},
		bookings:       map[int64]*model.Booking{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	slots := make(map[int64]model.Slot, len(f.slots))
	for id, s := range f.slots {
		slots[id] = *s
	}
	bookings := make(map[int64]model.Booking, len(f.bookings))
	for id, b := range f.bookings {
		bookings[id] = *b
	}
	availabilities := make(map[int64]*model.Availability, len(f.availabilities))
	for id, a := range f.availabilities {
		availabilities[id] = a
	}
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.slots = make(map[int64]*model.Slot, len(slots))
		for id, s := range slots {
			s := s
			f.slots[id] = &s
		}
		f.bookings = make(map[int64]*model.Booking, len(bookings))
		for id, b := range bookings {
			b := b
			f.bookings[id] = &b
		}
		f.availabilities = availabilities
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) addUser(name string, role model.Role) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &model.User{ID: f.id(), DisplayName: name, Role: role}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) slot(id int64) model.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.slots[id]
}

func (f *fakeStore) booking(id int64) model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.bookings[id]
}

func (f *fakeStore) bookingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

type fakeAvailabilityRepo struct{ *fakeStore }

func (r fakeAvailabilityRepo) Create(_ context.Context, a *model.Availability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.id()
	a.CreatedAt = time.Now()
	cp := *a
	r.availabilities[a.ID] = &cp
	return nil
}

func (r fakeAvailabilityRepo) LockTrainer(context.Context, int64) error { return nil }

func (r fakeAvailabilityRepo) GetByTrainerAndDate(_ context.Context, trainerID int64, date time.Time) ([]*model.Availability, error) {
	return r.filter(func(a *model.Availability) bool {
		return a.TrainerID == trainerID && a.Date.Equal(date)
	}), nil
}

func (r fakeAvailabilityRepo) GetByTrainerFrom(_ context.Context, trainerID int64, from time.Time) ([]*model.Availability, error) {
	return r.filter(func(a *model.Availability) bool {
		return a.TrainerID == trainerID && !a.Date.Before(from)
	}), nil
}

func (r fakeAvailabilityRepo) filter(keep func(a *model.Availability) bool) []*model.Availability {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Availability
	for _, a := range r.availabilities {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

type fakeSlotRepo struct{ *fakeStore }

func (r fakeSlotRepo) CreateBatch(_ context.Context, slots []*model.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range slots {
		s.ID = r.id()
		cp := *s
		r.slots[s.ID] = &cp
	}
	return nil
}

func (r fakeSlotRepo) GetByID(_ context.Context, id int64) (*model.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r fakeSlotRepo) GetByTrainerAndDate(_ context.Context, trainerID int64, date time.Time) ([]*model.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Slot
	for _, s := range r.slots {
		a := r.availabilities[s.AvailabilityID]
		if s.TrainerID == trainerID && a != nil && a.Date.Equal(date) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (r fakeSlotRepo) MarkBooked(_ context.Context, slotID, bookingID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok || s.Status != model.SlotStatusAvailable {
		return repository.ErrConditionFailed
	}
	s.Status = model.SlotStatusBooked
	s.BookingID = &bookingID
	return nil
}

func (r fakeSlotRepo) Release(_ context.Context, slotID, bookingID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok || s.Status != model.SlotStatusBooked || s.BookingID == nil || *s.BookingID != bookingID {
		return repository.ErrConditionFailed
	}
	s.Status = model.SlotStatusAvailable
	s.BookingID = nil
	return nil
}

func (r fakeSlotRepo) CancelAvailable(_ context.Context, slotID, trainerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok || s.TrainerID != trainerID || s.Status != model.SlotStatusAvailable {
		return repository.ErrConditionFailed
	}
	s.Status = model.SlotStatusCanceled
	return nil
}

type fakeBookingRepo struct{ *fakeStore }

func (r fakeBookingRepo) Create(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.skipUniqueIndex {
		for _, existing := range r.bookings {
			if existing.SlotID == b.SlotID && existing.Status == model.BookingStatusConfirmed {
				return repository.ErrConditionFailed
			}
		}
	}
	b.ID = r.id()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r fakeBookingRepo) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r fakeBookingRepo) Cancel(_ context.Context, id int64, notes string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status != model.BookingStatusConfirmed {
		return nil, repository.ErrConditionFailed
	}
	b.Status = model.BookingStatusCanceled
	b.Notes = notes
	b.UpdatedAt = time.Now()
	cp := *b
	return &cp, nil
}

func (r fakeBookingRepo) GetDetail(_ context.Context, id int64) (*model.BookingDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	return r.detail(b), nil
}

func (r fakeBookingRepo) ListDetails(_ context.Context, filter repository.BookingFilter) ([]*model.BookingDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.BookingDetail
	for _, b := range r.bookings {
		d := r.detail(b)
		if filter.TrainerID != nil && d.TrainerID != *filter.TrainerID {
			continue
		}
		if filter.UserID != nil && d.UserID != *filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, d.Status) {
			continue
		}
		if filter.FromDate != nil && d.Date.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && d.Date.After(*filter.ToDate) {
			continue
		}
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r fakeBookingRepo) detail(b *model.Booking) *model.BookingDetail {
	s := r.slots[b.SlotID]
	a := r.availabilities[s.AvailabilityID]
	d := &model.BookingDetail{
		Booking:    *b,
		Date:       a.Date,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		SlotStatus: s.Status,
	}
	if u := r.users[b.TrainerID]; u != nil {
		d.TrainerName = u.DisplayName
	}
	if u := r.users[b.UserID]; u != nil {
		d.TraineeName = u.DisplayName
	}
	return d
}

func containsStatus(list []model.BookingStatus, s model.BookingStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type fakeUserRepo struct{ *fakeStore }

func (r fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = r.id()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

type fakeSubscriptionRepo struct{ *fakeStore }

func (r fakeSubscriptionRepo) GetExpiringBetween(_ context.Context, from, to time.Time) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.subscriptions {
		if !s.ExpiresAt.Before(from) && s.ExpiresAt.Before(to) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

type recordingGateway struct {
	mu   sync.Mutex
	sent []model.Notification
	fail map[int64]error
}

func (g *recordingGateway) Send(_ context.Context, n model.Notification) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail[n.UserID]; err != nil {
		return err
	}
	g.sent = append(g.sent, n)
	return nil
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) BookingOutcome(operation, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[operation+"/"+result]++
}
