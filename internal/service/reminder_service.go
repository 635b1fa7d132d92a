package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/session_booking/internal/model"
	"go.uber.org/zap"
)

// ReminderService формирует запросы на уведомления для фоновых задач.
// Окна сканирования полуоткрытые и идут встык, поэтому каждое событие попадает ровно в одно окно.
type ReminderService struct {
	bookings UpcomingBookings
	subsRepo SubscriptionRepository
	gateway  NotificationGateway
	loc      *time.Location
	logger   *zap.Logger
}

func NewReminderService(
	bookings UpcomingBookings,
	subsRepo SubscriptionRepository,
	gateway NotificationGateway,
	loc *time.Location,
	logger *zap.Logger,
) *ReminderService {
	return &ReminderService{
		bookings: bookings,
		subsRepo: subsRepo,
		gateway:  gateway,
		loc:      loc,
		logger:   logger,
	}
}

// NotifyUpcomingBetween напоминает о бронированиях, начинающихся в [from, to)
func (s *ReminderService) NotifyUpcomingBetween(ctx context.Context, from, to time.Time) (int, error) {
	bookings, err := s.bookings.GetConfirmedBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("get upcoming bookings: %w", err)
	}

	sent := 0
	for _, b := range bookings {
		startsAt := b.StartsAt.In(s.loc).Format("2006-01-02 15:04")
		meta := map[string]string{
			"bookingId": strconv.FormatInt(b.ID, 10),
			"startsAt":  b.StartsAt.Format(time.RFC3339),
		}

		notifications := []model.Notification{
			{
				UserID:   b.TrainerID,
				Type:     model.NotificationSessionReminder,
				Message:  fmt.Sprintf("Upcoming session with %s at %s", b.TraineeName, startsAt),
				Metadata: withRole(meta, model.RoleTrainer),
			},
			{
				UserID:   b.UserID,
				Type:     model.NotificationSessionReminder,
				Message:  fmt.Sprintf("Upcoming session with %s at %s", b.TrainerName, startsAt),
				Metadata: withRole(meta, model.RoleTrainee),
			},
		}

		for _, n := range notifications {
			if s.send(ctx, n) {
				sent++
			}
		}
	}

	return sent, nil
}

// NotifyExpiringBetween уведомляет о подписках, истекающих в [from, to)
func (s *ReminderService) NotifyExpiringBetween(ctx context.Context, from, to time.Time) (int, error) {
	subs, err := s.subsRepo.GetExpiringBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("get expiring subscriptions: %w", err)
	}

	sent := 0
	for _, sub := range subs {
		n := model.Notification{
			UserID: sub.UserID,
			Type:   model.NotificationSubscriptionExpiring,
			Message: fmt.Sprintf("Your %s subscription expires on %s",
				sub.PlanName, sub.ExpiresAt.In(s.loc).Format(model.DateFormat)),
			Metadata: map[string]string{
				"subscriptionId": strconv.FormatInt(sub.ID, 10),
				"expiresAt":      sub.ExpiresAt.Format(time.RFC3339),
			},
		}
		if s.send(ctx, n) {
			sent++
		}
	}

	return sent, nil
}

// send не прерывает обход: ошибка доставки одного уведомления только логируется
func (s *ReminderService) send(ctx context.Context, n model.Notification) bool {
	if err := s.gateway.Send(ctx, n); err != nil {
		s.logger.Warn("Failed to send notification",
			zap.Int64("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
		return false
	}
	return true
}

func withRole(meta map[string]string, role model.Role) map[string]string {
	out := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out["role"] = string(role)
	return out
}
