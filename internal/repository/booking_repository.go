package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/Freeeeeet/session_booking/internal/repository/base"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// BookingFilter ограничивает выборку детальных бронирований. Пустые поля не фильтруют.
type BookingFilter struct {
	TrainerID *int64
	UserID    *int64
	Statuses  []model.BookingStatus
	FromDate  *time.Time // включительно
	ToDate    *time.Time // включительно
}

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт новое бронирование.
// Второе подтверждённое бронирование того же слота упирается в частичный
// уникальный индекс и возвращает ErrConditionFailed.
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (slot_id, trainer_id, user_id, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		booking.SlotID,
		booking.TrainerID,
		booking.UserID,
		booking.Status,
		booking.Notes,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConditionFailed
		}
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `
		SELECT id, slot_id, trainer_id, user_id, status, notes, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	var booking model.Booking
	err := r.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.SlotID,
		&booking.TrainerID,
		&booking.UserID,
		&booking.Status,
		&booking.Notes,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return &booking, nil
}

// Cancel переводит подтверждённое бронирование в canceled и сохраняет причину
func (r *BookingRepository) Cancel(ctx context.Context, id int64, notes string) (*model.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'canceled', notes = $2, updated_at = now()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING id, slot_id, trainer_id, user_id, status, notes, created_at, updated_at
	`

	var booking model.Booking
	err := r.QueryRow(ctx, query, id, notes).Scan(
		&booking.ID,
		&booking.SlotID,
		&booking.TrainerID,
		&booking.UserID,
		&booking.Status,
		&booking.Notes,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, ErrConditionFailed
		}
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	return &booking, nil
}

// GetDetail получает бронирование вместе со слотом, днём и именами участников
func (r *BookingRepository) GetDetail(ctx context.Context, id int64) (*model.BookingDetail, error) {
	rows, err := r.QueryBuilder(ctx, detailQuery().Where(sq.Eq{"b.id": id}))
	if err != nil {
		return nil, fmt.Errorf("get booking detail: %w", err)
	}

	details, err := collectDetails(rows)
	if err != nil {
		return nil, err
	}

	if len(details) == 0 {
		return nil, nil
	}

	return details[0], nil
}

// ListDetails получает детальные бронирования по фильтру, по возрастанию даты и времени начала
func (r *BookingRepository) ListDetails(ctx context.Context, filter BookingFilter) ([]*model.BookingDetail, error) {
	rows, err := r.QueryBuilder(ctx, detailFilterQuery(filter))
	if err != nil {
		return nil, fmt.Errorf("list booking details: %w", err)
	}

	return collectDetails(rows)
}

func detailFilterQuery(filter BookingFilter) sq.SelectBuilder {
	q := detailQuery()

	if filter.TrainerID != nil {
		q = q.Where(sq.Eq{"b.trainer_id": *filter.TrainerID})
	}
	if filter.UserID != nil {
		q = q.Where(sq.Eq{"b.user_id": *filter.UserID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where(sq.Eq{"b.status": statuses})
	}
	if filter.FromDate != nil {
		q = q.Where(sq.Expr("a.date >= ?::date", filter.FromDate.Format(model.DateFormat)))
	}
	if filter.ToDate != nil {
		q = q.Where(sq.Expr("a.date <= ?::date", filter.ToDate.Format(model.DateFormat)))
	}

	return q.OrderBy("a.date", "s.start_time")
}

func detailQuery() sq.SelectBuilder {
	return base.Psql.
		Select(
			"b.id", "b.slot_id", "b.trainer_id", "b.user_id", "b.status", "b.notes",
			"b.created_at", "b.updated_at",
			"a.date", "s.start_time", "s.end_time", "s.status",
			"t.display_name", "u.display_name",
		).
		From("bookings b").
		Join("slots s ON s.id = b.slot_id").
		Join("availabilities a ON a.id = s.availability_id").
		Join("users t ON t.id = b.trainer_id").
		Join("users u ON u.id = b.user_id")
}

func collectDetails(rows pgx.Rows) ([]*model.BookingDetail, error) {
	defer rows.Close()

	var details []*model.BookingDetail
	for rows.Next() {
		var (
			d          model.BookingDetail
			start, end string
		)

		err := rows.Scan(
			&d.ID,
			&d.SlotID,
			&d.TrainerID,
			&d.UserID,
			&d.Status,
			&d.Notes,
			&d.CreatedAt,
			&d.UpdatedAt,
			&d.Date,
			&start,
			&end,
			&d.SlotStatus,
			&d.TrainerName,
			&d.TraineeName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan booking detail: %w", err)
		}

		if d.StartTime, err = model.ParseClock(start); err != nil {
			return nil, fmt.Errorf("scan booking detail: %w", err)
		}
		if d.EndTime, err = model.ParseClock(end); err != nil {
			return nil, fmt.Errorf("scan booking detail: %w", err)
		}

		details = append(details, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking details: %w", err)
	}

	return details, nil
}
