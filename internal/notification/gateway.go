package notification

import (
	"context"
	"sort"

	"github.com/Freeeeeet/session_booking/internal/model"
	"go.uber.org/zap"
)

// Gateway принимает запросы на уведомления. Доставка best-effort.
type Gateway interface {
	Send(ctx context.Context, n model.Notification) error
}

// LogGateway только пишет уведомление в лог. Используется, когда канал доставки не настроен.
type LogGateway struct {
	logger *zap.Logger
}

func NewLogGateway(logger *zap.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

func (g *LogGateway) Send(_ context.Context, n model.Notification) error {
	keys := make([]string, 0, len(n.Metadata))
	for k := range n.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := []zap.Field{
		zap.Int64("user_id", n.UserID),
		zap.String("type", string(n.Type)),
		zap.String("message", n.Message),
	}
	for _, k := range keys {
		fields = append(fields, zap.String("meta."+k, n.Metadata[k]))
	}

	g.logger.Info("Notification", fields...)
	return nil
}

// Recorder считает результаты доставки
type Recorder interface {
	NotificationSent(notificationType, result string)
}

type instrumented struct {
	next     Gateway
	recorder Recorder
}

// WithRecorder оборачивает gateway подсчётом результатов
func WithRecorder(next Gateway, recorder Recorder) Gateway {
	return &instrumented{next: next, recorder: recorder}
}

func (g *instrumented) Send(ctx context.Context, n model.Notification) error {
	err := g.next.Send(ctx, n)
	result := "ok"
	if err != nil {
		result = "error"
	}
	g.recorder.NotificationSent(string(n.Type), result)
	return err
}
