package repository_test

import (
	"context"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/session_booking/internal/app"
	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/Freeeeeet/session_booking/internal/repository"
	"github.com/Freeeeeet/session_booking/internal/repository/base"
	"github.com/Freeeeeet/session_booking/internal/repository/migrations"
	"github.com/Freeeeeet/session_booking/internal/service"
)

// pgEnv собирает настоящие репозитории над тестовой базой из TEST_DB_DSN
type pgEnv struct {
	pool         *pgxpool.Pool
	tx           *base.TxManager
	users        *repository.UserRepository
	availability *repository.AvailabilityRepository
	slots        *repository.SlotRepository
	bookings     *repository.BookingRepository
	day          string
}

func newPgEnv(t *testing.T) *pgEnv {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator, err := app.NewMigrator(pool, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.Run(ctx))
	require.NoError(t, migrator.Close())

	_, err = pool.Exec(ctx, `TRUNCATE subscriptions, bookings, slots, availabilities, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return &pgEnv{
		pool:         pool,
		tx:           base.NewTxManager(pool),
		users:        repository.NewUserRepository(pool),
		availability: repository.NewAvailabilityRepository(pool),
		slots:        repository.NewSlotRepository(pool),
		bookings:     repository.NewBookingRepository(pool),
		day:          time.Now().UTC().AddDate(0, 0, 2).Format(model.DateFormat),
	}
}

func (e *pgEnv) user(t *testing.T, name string, role model.Role) model.Actor {
	t.Helper()
	u := &model.User{DisplayName: name, Role: role}
	require.NoError(t, e.users.Create(context.Background(), u))
	return model.Actor{ID: u.ID, Role: role}
}

func (e *pgEnv) publish(t *testing.T, trainer model.Actor, start, end string, minutes int) []*model.Slot {
	t.Helper()
	svc := service.NewAvailabilityService(e.tx, e.availability, e.slots, time.UTC, zap.NewNop())
	_, slots, err := svc.Create(context.Background(), trainer, service.CreateAvailabilityInput{
		Date:                e.day,
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: minutes,
	})
	require.NoError(t, err)
	return slots
}

func (e *pgEnv) bookingService() *service.BookingService {
	return service.NewBookingService(e.tx, e.slots, e.bookings, e.users,
		service.DefaultCancellationPolicy(), nil, time.UTC, zap.NewNop())
}

func (e *pgEnv) countBookings(t *testing.T, slotID int64) int {
	t.Helper()
	var n int
	err := e.pool.QueryRow(context.Background(), `SELECT count(*) FROM bookings WHERE slot_id = $1`, slotID).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestPostgres_ConcurrentBookSlotSingleWinner(t *testing.T) {
	e := newPgEnv(t)
	trainer := e.user(t, "Tina Trainer", model.RoleTrainer)
	slots := e.publish(t, trainer, "09:00", "10:00", 60)
	require.Len(t, slots, 1)
	slotID := slots[0].ID

	const attempts = 8
	trainees := make([]model.Actor, attempts)
	for i := range trainees {
		trainees[i] = e.user(t, "Trainee", model.RoleTrainee)
	}

	bookings := e.bookingService()
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		errs    = make([]error, attempts)
		winners = make([]*model.Booking, attempts)
	)
	for i := range trainees {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, winners[i], errs[i] = bookings.BookSlot(context.Background(), trainees[i], slotID)
		}(i)
	}
	close(start)
	wg.Wait()

	ok := 0
	for i, err := range errs {
		if err == nil {
			ok++
			require.NotNil(t, winners[i])
			continue
		}
		assert.ErrorIs(t, err, service.ErrSlotNotAvailable)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, e.countBookings(t, slotID))

	slot, err := e.slots.GetByID(context.Background(), slotID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusBooked, slot.Status)
	require.NotNil(t, slot.BookingID)
}

func TestPostgres_SlotTransitions(t *testing.T) {
	e := newPgEnv(t)
	ctx := context.Background()
	trainer := e.user(t, "Tina Trainer", model.RoleTrainer)
	other := e.user(t, "Otto Trainer", model.RoleTrainer)
	trainee := e.user(t, "Ulf Trainee", model.RoleTrainee)
	slots := e.publish(t, trainer, "09:00", "11:00", 30)
	require.Len(t, slots, 4)

	_, booking, err := e.bookingService().BookSlot(ctx, trainee, slots[0].ID)
	require.NoError(t, err)

	t.Run("mark booked twice", func(t *testing.T) {
		err := e.slots.MarkBooked(ctx, slots[0].ID, booking.ID)
		assert.ErrorIs(t, err, repository.ErrConditionFailed)
	})

	t.Run("second confirmed booking hits unique index", func(t *testing.T) {
		dup := &model.Booking{
			SlotID:    slots[0].ID,
			TrainerID: trainer.ID,
			UserID:    trainee.ID,
			Status:    model.BookingStatusConfirmed,
		}
		err := e.bookings.Create(ctx, dup)
		assert.ErrorIs(t, err, repository.ErrConditionFailed)
		assert.Equal(t, 1, e.countBookings(t, slots[0].ID))
	})

	t.Run("cancel booked slot", func(t *testing.T) {
		err := e.slots.CancelAvailable(ctx, slots[0].ID, trainer.ID)
		assert.ErrorIs(t, err, repository.ErrConditionFailed)
	})

	t.Run("cancel someone else's slot", func(t *testing.T) {
		err := e.slots.CancelAvailable(ctx, slots[1].ID, other.ID)
		assert.ErrorIs(t, err, repository.ErrConditionFailed)
	})

	t.Run("cancel free slot", func(t *testing.T) {
		require.NoError(t, e.slots.CancelAvailable(ctx, slots[1].ID, trainer.ID))

		slot, err := e.slots.GetByID(ctx, slots[1].ID)
		require.NoError(t, err)
		assert.Equal(t, model.SlotStatusCanceled, slot.Status)

		err = e.slots.CancelAvailable(ctx, slots[1].ID, trainer.ID)
		assert.ErrorIs(t, err, repository.ErrConditionFailed)
	})

	t.Run("release with wrong booking", func(t *testing.T) {
		err := e.slots.Release(ctx, slots[0].ID, booking.ID+1000)
		assert.ErrorIs(t, err, repository.ErrConditionFailed)
	})

	t.Run("release", func(t *testing.T) {
		require.NoError(t, e.slots.Release(ctx, slots[0].ID, booking.ID))

		slot, err := e.slots.GetByID(ctx, slots[0].ID)
		require.NoError(t, err)
		assert.Equal(t, model.SlotStatusAvailable, slot.Status)
		assert.Nil(t, slot.BookingID)

		err = e.slots.Release(ctx, slots[0].ID, booking.ID)
		assert.ErrorIs(t, err, repository.ErrConditionFailed)
	})

	t.Run("missing rows", func(t *testing.T) {
		slot, err := e.slots.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, slot)

		b, err := e.bookings.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, b)

		d, err := e.bookings.GetDetail(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, d)
	})
}

func TestPostgres_CreateBatchMapsIDsByStart(t *testing.T) {
	e := newPgEnv(t)
	ctx := context.Background()
	trainer := e.user(t, "Tina Trainer", model.RoleTrainer)

	day, err := model.ParseDate(e.day)
	require.NoError(t, err)
	a := &model.Availability{
		TrainerID:           trainer.ID,
		Date:                day,
		StartTime:           model.MustParseClock("13:00"),
		EndTime:             model.MustParseClock("15:00"),
		SlotDurationMinutes: 30,
	}
	require.NoError(t, e.availability.Create(ctx, a))

	// вставляем в обратном порядке, ID должны достаться по времени начала
	var batch []*model.Slot
	for _, start := range []string{"14:30", "14:00", "13:30", "13:00"} {
		begin := model.MustParseClock(start)
		batch = append(batch, &model.Slot{
			AvailabilityID: a.ID,
			TrainerID:      trainer.ID,
			StartTime:      begin,
			EndTime:        model.ClockTime(begin.Minutes() + 30),
			Status:         model.SlotStatusAvailable,
		})
	}
	require.NoError(t, e.slots.CreateBatch(ctx, batch))

	seen := map[int64]bool{}
	for _, s := range batch {
		require.NotZero(t, s.ID)
		assert.False(t, s.CreatedAt.IsZero())
		assert.False(t, seen[s.ID], "duplicate id %d", s.ID)
		seen[s.ID] = true

		stored, err := e.slots.GetByID(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, s.StartTime, stored.StartTime)
		assert.Equal(t, s.EndTime, stored.EndTime)
	}

	listed, err := e.slots.GetByTrainerAndDate(ctx, trainer.ID, day)
	require.NoError(t, err)
	require.Len(t, listed, 4)
	assert.True(t, sort.SliceIsSorted(listed, func(i, j int) bool {
		return listed[i].StartTime.Before(listed[j].StartTime)
	}))
}

func TestPostgres_ListDetailsFilters(t *testing.T) {
	e := newPgEnv(t)
	ctx := context.Background()
	trainer := e.user(t, "Tina Trainer", model.RoleTrainer)
	trainee := e.user(t, "Ulf Trainee", model.RoleTrainee)
	other := e.user(t, "Vera Trainee", model.RoleTrainee)
	slots := e.publish(t, trainer, "09:00", "10:30", 30)

	svc := e.bookingService()
	_, late, err := svc.BookSlot(ctx, trainee, slots[2].ID)
	require.NoError(t, err)
	_, early, err := svc.BookSlot(ctx, trainee, slots[0].ID)
	require.NoError(t, err)
	_, canceled, err := svc.BookSlot(ctx, other, slots[1].ID)
	require.NoError(t, err)
	_, err = e.bookings.Cancel(ctx, canceled.ID, "sick")
	require.NoError(t, err)

	day, err := model.ParseDate(e.day)
	require.NoError(t, err)

	confirmed, err := e.bookings.ListDetails(ctx, repository.BookingFilter{
		TrainerID: &trainer.ID,
		Statuses:  []model.BookingStatus{model.BookingStatusConfirmed},
		FromDate:  &day,
		ToDate:    &day,
	})
	require.NoError(t, err)
	require.Len(t, confirmed, 2)
	assert.Equal(t, early.ID, confirmed[0].ID)
	assert.Equal(t, late.ID, confirmed[1].ID)
	assert.Equal(t, "Tina Trainer", confirmed[0].TrainerName)
	assert.Equal(t, "Ulf Trainee", confirmed[0].TraineeName)
	assert.Equal(t, model.MustParseClock("09:00"), confirmed[0].StartTime)
	assert.Equal(t, model.SlotStatusBooked, confirmed[0].SlotStatus)

	byOther, err := e.bookings.ListDetails(ctx, repository.BookingFilter{UserID: &other.ID})
	require.NoError(t, err)
	require.Len(t, byOther, 1)
	assert.Equal(t, model.BookingStatusCanceled, byOther[0].Status)
	assert.Equal(t, "sick", byOther[0].Notes)

	tomorrow := day.AddDate(0, 0, 1)
	none, err := e.bookings.ListDetails(ctx, repository.BookingFilter{FromDate: &tomorrow})
	require.NoError(t, err)
	assert.Empty(t, none)
}
