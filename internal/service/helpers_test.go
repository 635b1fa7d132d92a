package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 2026-03-02 08:00 UTC, a Monday
var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store        *fakeStore
	availability *AvailabilityService
	booking      *BookingService
	recorder     *countingRecorder
	trainer      model.Actor
	trainee      model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newFakeStore()
	logger := zap.NewNop()
	recorder := &countingRecorder{}

	availability := NewAvailabilityService(store, fakeAvailabilityRepo{store}, fakeSlotRepo{store}, time.UTC, logger)
	availability.now = func() time.Time { return fixedNow }

	booking := NewBookingService(
		store,
		fakeSlotRepo{store},
		fakeBookingRepo{store},
		fakeUserRepo{store},
		DefaultCancellationPolicy(),
		recorder,
		time.UTC,
		logger,
	)
	booking.now = func() time.Time { return fixedNow }

	trainer := store.addUser("Tina Trainer", model.RoleTrainer)
	trainee := store.addUser("Ulf Trainee", model.RoleTrainee)

	return &fixture{
		store:        store,
		availability: availability,
		booking:      booking,
		recorder:     recorder,
		trainer:      model.Actor{ID: trainer.ID, Role: model.RoleTrainer},
		trainee:      model.Actor{ID: trainee.ID, Role: model.RoleTrainee},
	}
}

func (f *fixture) newTrainee(name string) model.Actor {
	u := f.store.addUser(name, model.RoleTrainee)
	return model.Actor{ID: u.ID, Role: model.RoleTrainee}
}

func (f *fixture) newTrainer(name string) model.Actor {
	u := f.store.addUser(name, model.RoleTrainer)
	return model.Actor{ID: u.ID, Role: model.RoleTrainer}
}

func (f *fixture) publish(t *testing.T, trainer model.Actor, date, start, end string, d int) []*model.Slot {
	t.Helper()
	_, slots, err := f.availability.Create(context.Background(), trainer, CreateAvailabilityInput{
		Date:                date,
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: d,
	})
	require.NoError(t, err)
	return slots
}

func (f *fixture) book(t *testing.T, trainee model.Actor, slotID int64) *model.Booking {
	t.Helper()
	_, booking, err := f.booking.BookSlot(context.Background(), trainee, slotID)
	require.NoError(t, err)
	return booking
}
