package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/session_booking/internal/apperr"
	"github.com/Freeeeeet/session_booking/internal/model"
	"go.uber.org/zap"
)

// CreateAvailabilityInput сырые данные окна в том виде, в котором их прислал тренер
type CreateAvailabilityInput struct {
	Date                string `json:"date"`
	StartTime           string `json:"startTime"`
	EndTime             string `json:"endTime"`
	SlotDurationMinutes int    `json:"slotDurationMinutes"`
}

type AvailabilityService struct {
	tx               TxManager
	availabilityRepo AvailabilityRepository
	slotRepo         SlotRepository
	loc              *time.Location
	now              func() time.Time
	logger           *zap.Logger
}

func NewAvailabilityService(
	tx TxManager,
	availabilityRepo AvailabilityRepository,
	slotRepo SlotRepository,
	loc *time.Location,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		tx:               tx,
		availabilityRepo: availabilityRepo,
		slotRepo:         slotRepo,
		loc:              loc,
		now:              time.Now,
		logger:           logger,
	}
}

// Create создаёт окно доступности тренера и сразу нарезает его на слоты.
// Окна одного тренера в один день не пересекаются.
func (s *AvailabilityService) Create(ctx context.Context, actor model.Actor, in CreateAvailabilityInput) (*model.Availability, []*model.Slot, error) {
	if actor.Role != model.RoleTrainer {
		return nil, nil, ErrTrainerOnly
	}

	availability, err := s.parseInput(actor.ID, in)
	if err != nil {
		return nil, nil, err
	}

	var slots []*model.Slot
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		// Без блокировки два параллельных запроса оба пройдут проверку пересечения
		if err := s.availabilityRepo.LockTrainer(ctx, actor.ID); err != nil {
			return err
		}

		existing, err := s.availabilityRepo.GetByTrainerAndDate(ctx, actor.ID, availability.Date)
		if err != nil {
			return fmt.Errorf("get availabilities: %w", err)
		}

		for _, e := range existing {
			if e.Overlaps(availability.StartTime, availability.EndTime) {
				return apperr.Conflict(fmt.Sprintf(
					"availability overlaps existing window %s-%s", e.StartTime, e.EndTime,
				))
			}
		}

		if err := s.availabilityRepo.Create(ctx, availability); err != nil {
			return err
		}

		slots = GenerateSlots(availability)
		if err := s.slotRepo.CreateBatch(ctx, slots); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Availability created",
		zap.Int64("availability_id", availability.ID),
		zap.Int64("trainer_id", actor.ID),
		zap.String("date", availability.DateString()),
		zap.Stringer("start", availability.StartTime),
		zap.Stringer("end", availability.EndTime),
		zap.Int("slots", len(slots)),
	)

	return availability, slots, nil
}

// GetByDate получает окна тренера на конкретный день
func (s *AvailabilityService) GetByDate(ctx context.Context, actor model.Actor, date string) ([]*model.Availability, error) {
	if actor.Role != model.RoleTrainer {
		return nil, ErrTrainerOnly
	}

	day, err := model.ParseDate(date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	availabilities, err := s.availabilityRepo.GetByTrainerAndDate(ctx, actor.ID, day)
	if err != nil {
		return nil, fmt.Errorf("get availabilities: %w", err)
	}

	return availabilities, nil
}

// GetUpcomingGrouped получает окна тренера начиная с fromDate, сгруппированные по дню.
// Пустой fromDate означает сегодня в опорной таймзоне.
func (s *AvailabilityService) GetUpcomingGrouped(ctx context.Context, actor model.Actor, fromDate string) (map[string][]*model.Availability, error) {
	if actor.Role != model.RoleTrainer {
		return nil, ErrTrainerOnly
	}

	from := model.DayOf(s.now(), s.loc)
	if fromDate != "" {
		day, err := model.ParseDate(fromDate)
		if err != nil {
			return nil, ErrInvalidDate
		}
		from = day
	}

	availabilities, err := s.availabilityRepo.GetByTrainerFrom(ctx, actor.ID, from)
	if err != nil {
		return nil, fmt.Errorf("get upcoming availabilities: %w", err)
	}

	// Репозиторий отдаёт окна по дате и времени начала, порядок внутри дня сохраняется
	grouped := make(map[string][]*model.Availability)
	for _, a := range availabilities {
		grouped[a.DateString()] = append(grouped[a.DateString()], a)
	}

	return grouped, nil
}

func (s *AvailabilityService) parseInput(trainerID int64, in CreateAvailabilityInput) (*model.Availability, error) {
	day, err := model.ParseDate(in.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if day.Before(model.DayOf(s.now(), s.loc)) {
		return nil, ErrDateInPast
	}

	start, err := model.ParseClock(in.StartTime)
	if err != nil {
		return nil, ErrInvalidTime
	}
	end, err := model.ParseClock(in.EndTime)
	if err != nil {
		return nil, ErrInvalidTime
	}
	if !start.Before(end) {
		return nil, ErrInvalidWindow
	}

	a := &model.Availability{
		TrainerID:           trainerID,
		Date:                day,
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: in.SlotDurationMinutes,
	}
	if in.SlotDurationMinutes <= 0 || in.SlotDurationMinutes > a.WindowMinutes() {
		return nil, ErrInvalidSlotDuration
	}

	return a, nil
}
