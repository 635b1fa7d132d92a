package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Freeeeeet/session_booking/internal/apperr"
	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/Freeeeeet/session_booking/internal/repository"
	"go.uber.org/zap"
)

// CancellationPolicy определяет, какая сторона при отмене бронирования возвращает слот в продажу.
type CancellationPolicy struct {
	ReleaseSlotOnTrainerCancel bool
	ReleaseSlotOnTraineeCancel bool
}

// DefaultCancellationPolicy: отмена тренером оставляет слот занятым, отмена клиентом освобождает его.
func DefaultCancellationPolicy() CancellationPolicy {
	return CancellationPolicy{
		ReleaseSlotOnTrainerCancel: false,
		ReleaseSlotOnTraineeCancel: true,
	}
}

func (p CancellationPolicy) releasesSlot(by model.Role) bool {
	if by == model.RoleTrainer {
		return p.ReleaseSlotOnTrainerCancel
	}
	return p.ReleaseSlotOnTraineeCancel
}

// BookingRecorder получает исходы бронирований, реализуется метриками
type BookingRecorder interface {
	BookingOutcome(operation, result string)
}

type BookingService struct {
	tx          TxManager
	slotRepo    SlotRepository
	bookingRepo BookingRepository
	userRepo    UserRepository
	policy      CancellationPolicy
	recorder    BookingRecorder
	loc         *time.Location
	now         func() time.Time
	logger      *zap.Logger
}

func NewBookingService(
	tx TxManager,
	slotRepo SlotRepository,
	bookingRepo BookingRepository,
	userRepo UserRepository,
	policy CancellationPolicy,
	recorder BookingRecorder,
	loc *time.Location,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		tx:          tx,
		slotRepo:    slotRepo,
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		policy:      policy,
		recorder:    recorder,
		loc:         loc,
		now:         time.Now,
		logger:      logger,
	}
}

// BookSlot бронирует свободный слот для клиента.
// Бронирование и перевод слота в booked выполняются в одной транзакции,
// перевод слота условный, поэтому из конкурентных попыток проходит ровно одна.
func (s *BookingService) BookSlot(ctx context.Context, actor model.Actor, slotID int64) (*model.Slot, *model.Booking, error) {
	slot, booking, err := s.bookSlot(ctx, actor, slotID)
	s.record("book", err)
	return slot, booking, err
}

func (s *BookingService) bookSlot(ctx context.Context, actor model.Actor, slotID int64) (*model.Slot, *model.Booking, error) {
	if actor.Role != model.RoleTrainee {
		return nil, nil, ErrTraineeOnly
	}

	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return nil, nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, nil, ErrSlotNotFound
	}
	if !slot.IsAvailable() {
		return nil, nil, ErrSlotNotAvailable
	}

	booking := &model.Booking{
		SlotID:    slot.ID,
		TrainerID: slot.TrainerID,
		UserID:    actor.ID,
		Status:    model.BookingStatusConfirmed,
	}

	err = s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.bookingRepo.Create(ctx, booking); err != nil {
			return err
		}
		return s.slotRepo.MarkBooked(ctx, slot.ID, booking.ID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, nil, ErrSlotNotAvailable
		}
		return nil, nil, fmt.Errorf("book slot: %w", err)
	}

	slot.Status = model.SlotStatusBooked
	slot.BookingID = &booking.ID

	s.logger.Info("Slot booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("slot_id", slot.ID),
		zap.Int64("trainer_id", slot.TrainerID),
		zap.Int64("user_id", actor.ID),
	)

	return slot, booking, nil
}

// CancelAvailableSlot снимает свободный слот с продажи. Забронированный слот так отменить нельзя.
func (s *BookingService) CancelAvailableSlot(ctx context.Context, actor model.Actor, slotID int64) (*model.Slot, error) {
	if actor.Role != model.RoleTrainer {
		return nil, ErrTrainerOnly
	}

	err := s.slotRepo.CancelAvailable(ctx, slotID, actor.ID)
	if err != nil && !errors.Is(err, repository.ErrConditionFailed) {
		return nil, fmt.Errorf("cancel slot: %w", err)
	}

	slot, getErr := s.slotRepo.GetByID(ctx, slotID)
	if getErr != nil {
		return nil, fmt.Errorf("get slot: %w", getErr)
	}

	if err != nil {
		// Условие не выполнилось, выясняем почему
		switch {
		case slot == nil:
			return nil, ErrSlotNotFound
		case slot.TrainerID != actor.ID:
			return nil, ErrNotSlotOwner
		default:
			return nil, ErrSlotNotCancelable
		}
	}

	s.logger.Info("Slot canceled",
		zap.Int64("slot_id", slotID),
		zap.Int64("trainer_id", actor.ID),
	)

	return slot, nil
}

// TrainerCancelBooking отменяет бронирование со стороны тренера
func (s *BookingService) TrainerCancelBooking(ctx context.Context, actor model.Actor, bookingID int64, reason string) (*model.Booking, error) {
	booking, err := s.cancelBooking(ctx, actor, bookingID, reason, model.RoleTrainer)
	s.record("trainer_cancel", err)
	return booking, err
}

// UserCancelBooking отменяет бронирование со стороны клиента
func (s *BookingService) UserCancelBooking(ctx context.Context, actor model.Actor, bookingID int64, reason string) (*model.Booking, error) {
	booking, err := s.cancelBooking(ctx, actor, bookingID, reason, model.RoleTrainee)
	s.record("user_cancel", err)
	return booking, err
}

func (s *BookingService) cancelBooking(ctx context.Context, actor model.Actor, bookingID int64, reason string, by model.Role) (*model.Booking, error) {
	if actor.Role != by {
		if by == model.RoleTrainer {
			return nil, ErrTrainerOnly
		}
		return nil, ErrTraineeOnly
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	owner := booking.UserID
	if by == model.RoleTrainer {
		owner = booking.TrainerID
	}
	if owner != actor.ID {
		return nil, ErrNotBookingOwner
	}

	if booking.IsTerminal() {
		return nil, ErrBookingNotActive
	}

	release := s.policy.releasesSlot(by)

	var canceled *model.Booking
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		var err error
		canceled, err = s.bookingRepo.Cancel(ctx, booking.ID, model.CancellationNote(by, reason))
		if err != nil {
			return err
		}

		if !release {
			return nil
		}

		if err := s.slotRepo.Release(ctx, booking.SlotID, booking.ID); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return fmt.Errorf("slot %d is not held by booking %d", booking.SlotID, booking.ID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, ErrBookingNotActive
		}
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	s.logger.Info("Booking canceled",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("slot_id", booking.SlotID),
		zap.String("by", string(by)),
		zap.Bool("slot_released", release),
	)

	return canceled, nil
}

// GetSlotsByTrainerAndDate получает все слоты тренера на день
func (s *BookingService) GetSlotsByTrainerAndDate(ctx context.Context, trainerID int64, date string) ([]*model.Slot, error) {
	day, err := model.ParseDate(date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	slots, err := s.slotRepo.GetByTrainerAndDate(ctx, trainerID, day)
	if err != nil {
		return nil, fmt.Errorf("get slots: %w", err)
	}

	return slots, nil
}

// GetUpcomingForTrainer получает будущие подтверждённые бронирования тренера по возрастанию начала
func (s *BookingService) GetUpcomingForTrainer(ctx context.Context, actor model.Actor) ([]*model.BookingDetail, error) {
	if actor.Role != model.RoleTrainer {
		return nil, ErrTrainerOnly
	}

	now := s.now()
	today := model.DayOf(now, s.loc)

	details, err := s.bookingRepo.ListDetails(ctx, repository.BookingFilter{
		TrainerID: &actor.ID,
		Statuses:  []model.BookingStatus{model.BookingStatusConfirmed},
		FromDate:  &today,
	})
	if err != nil {
		return nil, fmt.Errorf("list trainer bookings: %w", err)
	}

	upcoming := make([]*model.BookingDetail, 0, len(details))
	for _, d := range s.withInstants(details) {
		if d.StartsAt.After(now) {
			upcoming = append(upcoming, d)
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].StartsAt.Before(upcoming[j].StartsAt)
	})

	return upcoming, nil
}

// GetBookingsWithTrainer получает все бронирования клиента у одного тренера
func (s *BookingService) GetBookingsWithTrainer(ctx context.Context, actor model.Actor, trainerID int64) ([]*model.BookingDetail, error) {
	if actor.Role != model.RoleTrainee {
		return nil, ErrTraineeOnly
	}

	details, err := s.bookingRepo.ListDetails(ctx, repository.BookingFilter{
		TrainerID: &trainerID,
		UserID:    &actor.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}

	return s.withInstants(details), nil
}

// GetConfirmedBetween получает подтверждённые бронирования всех тренеров с началом в [from, to).
// Используется планировщиком.
func (s *BookingService) GetConfirmedBetween(ctx context.Context, from, to time.Time) ([]*model.BookingDetail, error) {
	fromDay := model.DayOf(from, s.loc)
	toDay := model.DayOf(to, s.loc)

	details, err := s.bookingRepo.ListDetails(ctx, repository.BookingFilter{
		Statuses: []model.BookingStatus{model.BookingStatusConfirmed},
		FromDate: &fromDay,
		ToDate:   &toDay,
	})
	if err != nil {
		return nil, fmt.Errorf("list confirmed bookings: %w", err)
	}

	window := make([]*model.BookingDetail, 0, len(details))
	for _, d := range s.withInstants(details) {
		if !d.StartsAt.Before(from) && d.StartsAt.Before(to) {
			window = append(window, d)
		}
	}

	return window, nil
}

// GetBookingDetail получает бронирование с данными слота и участников. Доступно только участникам.
func (s *BookingService) GetBookingDetail(ctx context.Context, actor model.Actor, bookingID int64) (*model.BookingDetail, error) {
	detail, err := s.bookingRepo.GetDetail(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking detail: %w", err)
	}
	if detail == nil {
		return nil, ErrBookingNotFound
	}
	if !detail.HasParticipant(actor.ID) {
		return nil, ErrNotParticipant
	}

	detail.StartsAt = model.InstantOf(detail.Date, detail.StartTime, s.loc)
	return detail, nil
}

// GetBooking получает бронирование без проверки доступа, для внутренних потребителей
func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

func (s *BookingService) withInstants(details []*model.BookingDetail) []*model.BookingDetail {
	for _, d := range details {
		d.StartsAt = model.InstantOf(d.Date, d.StartTime, s.loc)
	}
	return details
}

func (s *BookingService) record(operation string, err error) {
	if s.recorder == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = apperr.KindOf(err).String()
	}
	s.recorder.BookingOutcome(operation, result)
}
