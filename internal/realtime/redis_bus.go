package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const connEventsSuffix = ":events"

// connChannel канал Redis, на который подписан процесс, владеющий соединением
func connChannel(connID string) string {
	return connKeyPrefix + connID + connEventsSuffix
}

func connFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, connKeyPrefix) || !strings.HasSuffix(channel, connEventsSuffix) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(channel, connKeyPrefix), connEventsSuffix), true
}

// RedisBus пересылает кадры между процессами через Redis Pub/Sub.
// Процесс подписывается на канал каждого своего соединения, отправитель публикует в канал получателя.
type RedisBus struct {
	client redis.UniversalClient
	pubsub *redis.PubSub
	logger *zap.Logger
}

// NewRedisBus открывает подписку без каналов, каналы добавляются через Attach
func NewRedisBus(ctx context.Context, client redis.UniversalClient, logger *zap.Logger) *RedisBus {
	return &RedisBus{
		client: client,
		pubsub: client.Subscribe(ctx),
		logger: logger,
	}
}

func (b *RedisBus) Attach(ctx context.Context, connID string) error {
	if err := b.pubsub.Subscribe(ctx, connChannel(connID)); err != nil {
		return fmt.Errorf("subscribe %s: %w", connID, err)
	}
	return nil
}

func (b *RedisBus) Detach(ctx context.Context, connID string) error {
	if err := b.pubsub.Unsubscribe(ctx, connChannel(connID)); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", connID, err)
	}
	return nil
}

// Publish возвращает true, если хотя бы один процесс подписан на соединение
func (b *RedisBus) Publish(ctx context.Context, connID string, env Envelope) (bool, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return false, fmt.Errorf("marshal frame: %w", err)
	}

	receivers, err := b.client.Publish(ctx, connChannel(connID), payload).Result()
	if err != nil {
		return false, fmt.Errorf("publish frame: %w", err)
	}
	return receivers > 0, nil
}

// Run передаёт полученные кадры в deliver, пока не отменён ctx или не закрыта подписка
func (b *RedisBus) Run(ctx context.Context, deliver func(connID string, env Envelope) bool) {
	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			connID, ok := connFromChannel(msg.Channel)
			if !ok {
				continue
			}

			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("Dropping malformed frame from bus", zap.String("conn_id", connID), zap.Error(err))
				continue
			}

			if !deliver(connID, env) {
				b.logger.Debug("Bus frame for unknown connection",
					zap.String("conn_id", connID),
					zap.String("event", string(env.Event)),
				)
			}
		}
	}
}

func (b *RedisBus) Close() error {
	return b.pubsub.Close()
}
