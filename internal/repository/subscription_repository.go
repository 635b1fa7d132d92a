package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/Freeeeeet/session_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository читает подписки, которыми владеет биллинг. Только чтение.
type SubscriptionRepository struct {
	*base.Repository
}

func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{Repository: base.NewRepository(pool)}
}

// GetExpiringBetween получает активные подписки, истекающие в [from, to)
func (r *SubscriptionRepository) GetExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.Subscription, error) {
	query := `
		SELECT id, user_id, plan_name, expires_at
		FROM subscriptions
		WHERE status = 'active'
		  AND expires_at >= $1
		  AND expires_at < $2
		ORDER BY expires_at
	`

	rows, err := r.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("get expiring subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*model.Subscription
	for rows.Next() {
		var sub model.Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.PlanName, &sub.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, &sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return subs, nil
}
