package notification

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// MessageSender часть *bot.Bot, нужная для отправки сообщений
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// TelegramGateway доставляет уведомления в личный чат пользователя.
// Пользователи без привязанного чата уходят в fallback.
type TelegramGateway struct {
	sender   MessageSender
	users    UserLookup
	fallback Gateway
	logger   *zap.Logger
}

func NewTelegramGateway(sender MessageSender, users UserLookup, fallback Gateway, logger *zap.Logger) *TelegramGateway {
	return &TelegramGateway{
		sender:   sender,
		users:    users,
		fallback: fallback,
		logger:   logger,
	}
}

func (g *TelegramGateway) Send(ctx context.Context, n model.Notification) error {
	user, err := g.users.GetByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if user == nil || user.TelegramChatID == nil {
		g.logger.Debug("User has no telegram chat, using fallback",
			zap.Int64("user_id", n.UserID),
		)
		return g.fallback.Send(ctx, n)
	}

	_, err = g.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *user.TelegramChatID,
		Text:   formatMessage(n),
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	g.logger.Debug("Notification delivered",
		zap.Int64("user_id", n.UserID),
		zap.Int64("chat_id", *user.TelegramChatID),
		zap.String("type", string(n.Type)),
	)

	return nil
}

func formatMessage(n model.Notification) string {
	switch n.Type {
	case model.NotificationSessionReminder:
		return "⏰ " + n.Message
	case model.NotificationSubscriptionExpiring:
		return "💳 " + n.Message
	default:
		return n.Message
	}
}
