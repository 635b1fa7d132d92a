package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/Freeeeeet/session_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slotColumns = `s.id, s.availability_id, s.trainer_id, s.start_time, s.end_time, s.status, s.booking_id, s.created_at`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

// CreateBatch создаёт все слоты окна одним запросом и проставляет им ID
func (r *SlotRepository) CreateBatch(ctx context.Context, slots []*model.Slot) error {
	if len(slots) == 0 {
		return nil
	}

	insert := base.Psql.
		Insert("slots").
		Columns("availability_id", "trainer_id", "start_time", "end_time", "status")
	for _, slot := range slots {
		insert = insert.Values(slot.AvailabilityID, slot.TrainerID, slot.StartTime.String(), slot.EndTime.String(), slot.Status)
	}

	query, args, err := insert.Suffix("RETURNING id, start_time, created_at").ToSql()
	if err != nil {
		return fmt.Errorf("build insert slots: %w", err)
	}

	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("create slots: %w", err)
	}
	defer rows.Close()

	// RETURNING не гарантирует порядок VALUES, сопоставляем по времени начала
	byStart := make(map[string]*model.Slot, len(slots))
	for _, slot := range slots {
		byStart[slot.StartTime.String()] = slot
	}

	for rows.Next() {
		var (
			id        int64
			start     string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &start, &createdAt); err != nil {
			return fmt.Errorf("scan created slot: %w", err)
		}
		if slot, ok := byStart[start]; ok {
			slot.ID = id
			slot.CreatedAt = createdAt
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("create slots: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots s WHERE s.id = $1`

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetByTrainerAndDate получает все слоты тренера на день
func (r *SlotRepository) GetByTrainerAndDate(ctx context.Context, trainerID int64, date time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots s
		JOIN availabilities a ON a.id = s.availability_id
		WHERE s.trainer_id = $1 AND a.date = $2::date
		ORDER BY s.start_time
	`

	rows, err := r.Query(ctx, query, trainerID, date.Format(model.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("get slots by trainer and date: %w", err)
	}

	return collectSlots(rows)
}

// MarkBooked переводит слот available → booked одним условным UPDATE.
// Из нескольких конкурентных вызовов для одного слота успешен ровно один.
func (r *SlotRepository) MarkBooked(ctx context.Context, slotID, bookingID int64) error {
	query := `
		UPDATE slots
		SET status = 'booked', booking_id = $1
		WHERE id = $2 AND status = 'available'
	`

	affected, err := r.ExecAffected(ctx, query, bookingID, slotID)
	if err != nil {
		return fmt.Errorf("mark slot booked: %w", err)
	}

	if affected == 0 {
		return ErrConditionFailed
	}

	return nil
}

// Release возвращает забронированный слот в available
func (r *SlotRepository) Release(ctx context.Context, slotID, bookingID int64) error {
	query := `
		UPDATE slots
		SET status = 'available', booking_id = NULL
		WHERE id = $1 AND status = 'booked' AND booking_id = $2
	`

	affected, err := r.ExecAffected(ctx, query, slotID, bookingID)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}

	if affected == 0 {
		return ErrConditionFailed
	}

	return nil
}

// CancelAvailable отменяет свободный слот тренера (available → canceled)
func (r *SlotRepository) CancelAvailable(ctx context.Context, slotID, trainerID int64) error {
	query := `
		UPDATE slots
		SET status = 'canceled'
		WHERE id = $1 AND trainer_id = $2 AND status = 'available'
	`

	affected, err := r.ExecAffected(ctx, query, slotID, trainerID)
	if err != nil {
		return fmt.Errorf("cancel slot: %w", err)
	}

	if affected == 0 {
		return ErrConditionFailed
	}

	return nil
}

func collectSlots(rows pgx.Rows) ([]*model.Slot, error) {
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var (
		slot       model.Slot
		start, end string
	)

	err := row.Scan(
		&slot.ID,
		&slot.AvailabilityID,
		&slot.TrainerID,
		&start,
		&end,
		&slot.Status,
		&slot.BookingID,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if slot.StartTime, err = model.ParseClock(start); err != nil {
		return nil, err
	}
	if slot.EndTime, err = model.ParseClock(end); err != nil {
		return nil, err
	}

	return &slot, nil
}
