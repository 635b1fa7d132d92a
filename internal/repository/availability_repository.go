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

const availabilityColumns = `id, trainer_id, date, start_time, end_time, slot_duration_minutes, created_at`

type AvailabilityRepository struct {
	*base.Repository
}

func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт новое окно доступности
func (r *AvailabilityRepository) Create(ctx context.Context, a *model.Availability) error {
	query := `
		INSERT INTO availabilities (trainer_id, date, start_time, end_time, slot_duration_minutes)
		VALUES ($1, $2::date, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		a.TrainerID,
		a.DateString(),
		a.StartTime.String(),
		a.EndTime.String(),
		a.SlotDurationMinutes,
	).Scan(&a.ID, &a.CreatedAt)

	if err != nil {
		return fmt.Errorf("create availability: %w", err)
	}

	return nil
}

// LockTrainer берёт транзакционную advisory-блокировку на расписание тренера.
// Должен вызываться внутри TxManager.Do, иначе блокировка снимается сразу.
func (r *AvailabilityRepository) LockTrainer(ctx context.Context, trainerID int64) error {
	_, err := r.Executor(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, trainerID)
	if err != nil {
		return fmt.Errorf("lock trainer schedule: %w", err)
	}
	return nil
}

// GetByTrainerAndDate получает все окна тренера на конкретный день
func (r *AvailabilityRepository) GetByTrainerAndDate(ctx context.Context, trainerID int64, date time.Time) ([]*model.Availability, error) {
	query := `
		SELECT ` + availabilityColumns + `
		FROM availabilities
		WHERE trainer_id = $1 AND date = $2::date
		ORDER BY start_time
	`

	rows, err := r.Query(ctx, query, trainerID, date.Format(model.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("get availabilities by date: %w", err)
	}

	return collectAvailabilities(rows)
}

// GetByTrainerFrom получает окна тренера начиная с указанного дня
func (r *AvailabilityRepository) GetByTrainerFrom(ctx context.Context, trainerID int64, from time.Time) ([]*model.Availability, error) {
	query := `
		SELECT ` + availabilityColumns + `
		FROM availabilities
		WHERE trainer_id = $1 AND date >= $2::date
		ORDER BY date, start_time
	`

	rows, err := r.Query(ctx, query, trainerID, from.Format(model.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("get availabilities from date: %w", err)
	}

	return collectAvailabilities(rows)
}

func collectAvailabilities(rows pgx.Rows) ([]*model.Availability, error) {
	defer rows.Close()

	var out []*model.Availability
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availabilities: %w", err)
	}

	return out, nil
}

func scanAvailability(row pgx.Row) (*model.Availability, error) {
	var (
		a          model.Availability
		start, end string
	)

	err := row.Scan(
		&a.ID,
		&a.TrainerID,
		&a.Date,
		&start,
		&end,
		&a.SlotDurationMinutes,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if a.StartTime, err = model.ParseClock(start); err != nil {
		return nil, err
	}
	if a.EndTime, err = model.ParseClock(end); err != nil {
		return nil, err
	}

	return &a, nil
}
