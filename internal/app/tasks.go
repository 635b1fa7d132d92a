package app

import (
	"context"
	"time"

	"github.com/Freeeeeet/session_booking/internal/realtime"
	"github.com/Freeeeeet/session_booking/internal/service"
	"go.uber.org/zap"
)

const (
	TaskUpcomingSessions      = "upcoming_sessions"
	TaskExpiringSubscriptions = "expiring_subscriptions"
	TaskSessionPrune          = "session_prune"
)

// windowCursor выдаёт смежные окна [from, to), сдвинутые от текущего момента на lead.
// Окно закрывается только после успешного запуска, неудачный запуск повторит его целиком.
type windowCursor struct {
	lead     time.Duration
	interval time.Duration
	next     time.Time
}

func (c *windowCursor) window(now time.Time) (time.Time, time.Time) {
	from := c.next
	if from.IsZero() {
		from = now.Add(c.lead)
	}
	to := now.Add(c.lead + c.interval)
	if to.Before(from) {
		to = from
	}
	return from, to
}

func (c *windowCursor) advance(to time.Time) {
	c.next = to
}

// UpcomingSessionsTask напоминает участникам о скорых сессиях
func UpcomingSessionsTask(reminders *service.ReminderService, interval, lead time.Duration, logger *zap.Logger) Task {
	cursor := &windowCursor{lead: lead, interval: interval}

	return Task{
		Name:     TaskUpcomingSessions,
		Interval: interval,
		Run: func(ctx context.Context, now time.Time) error {
			from, to := cursor.window(now)
			sent, err := reminders.NotifyUpcomingBetween(ctx, from, to)
			if err != nil {
				return err
			}
			cursor.advance(to)

			if sent > 0 {
				logger.Info("Session reminders sent",
					zap.Int("count", sent),
					zap.Time("from", from),
					zap.Time("to", to),
				)
			}
			return nil
		},
	}
}

// ExpiringSubscriptionsTask предупреждает об истекающих подписках
func ExpiringSubscriptionsTask(reminders *service.ReminderService, interval, lookahead time.Duration, logger *zap.Logger) Task {
	cursor := &windowCursor{lead: lookahead, interval: interval}

	return Task{
		Name:     TaskExpiringSubscriptions,
		Interval: interval,
		Run: func(ctx context.Context, now time.Time) error {
			from, to := cursor.window(now)
			sent, err := reminders.NotifyExpiringBetween(ctx, from, to)
			if err != nil {
				return err
			}
			cursor.advance(to)

			if sent > 0 {
				logger.Info("Subscription reminders sent", zap.Int("count", sent))
			}
			return nil
		},
	}
}

// SessionPruneTask забывает давно завершённые видеосессии
func SessionPruneTask(store realtime.SessionStore, interval, retention time.Duration, logger *zap.Logger) Task {
	return Task{
		Name:     TaskSessionPrune,
		Interval: interval,
		Run: func(ctx context.Context, now time.Time) error {
			pruned, err := store.PruneEnded(ctx, now.Add(-retention))
			if err != nil {
				return err
			}
			if pruned > 0 {
				logger.Debug("Ended sessions pruned", zap.Int("count", pruned))
			}
			return nil
		},
	}
}
