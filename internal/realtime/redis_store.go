package realtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/go-redis/redis/v8"
)

const (
	sessionKeyPrefix = "video:session:"
	connKeyPrefix    = "video:conn:"
)

// KEYS[1] хэш сессии, KEYS[2] ключ соединения.
// ARGV[1] поле роли, ARGV[2] id соединения, ARGV[3] id бронирования, ARGV[4] ttl в секундах, ARGV[5] префикс ключа соединения.
var joinScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if (not status) or status == 'ended' then
  redis.call('DEL', KEYS[1])
  redis.call('HSET', KEYS[1], 'status', 'pending')
end
local prev = redis.call('HGET', KEYS[1], ARGV[1])
if prev and prev ~= ARGV[2] then
  redis.call('DEL', ARGV[5] .. prev)
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('SET', KEYS[2], ARGV[3], 'EX', ARGV[4])
if redis.call('HGET', KEYS[1], 'trainer') and redis.call('HGET', KEYS[1], 'trainee') then
  redis.call('HSET', KEYS[1], 'status', 'active')
end
redis.call('EXPIRE', KEYS[1], ARGV[4])
return redis.call('HGETALL', KEYS[1])
`)

// KEYS[1] хэш сессии, KEYS[2] ключ соединения.
// ARGV[1] id соединения, ARGV[2] ended_at в unix-миллисекундах.
var endScript = redis.NewScript(`
redis.call('DEL', KEYS[2])
local status = redis.call('HGET', KEYS[1], 'status')
if (not status) or status == 'ended' then
  return {}
end
if redis.call('HGET', KEYS[1], 'trainer') ~= ARGV[1] and redis.call('HGET', KEYS[1], 'trainee') ~= ARGV[1] then
  return {}
end
redis.call('HSET', KEYS[1], 'status', 'ended', 'ended_at', ARGV[2])
return redis.call('HGETALL', KEYS[1])
`)

// RedisStore хранит сессии в Redis, чтобы их видели все процессы сервера.
// Ключи истекают через ttl, отдельной очистки нет.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(bookingID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(bookingID, 10)
}

func connKey(connID string) string {
	return connKeyPrefix + connID
}

func (s *RedisStore) Join(ctx context.Context, bookingID int64, role model.Role, connID string) (*model.VideoSession, error) {
	res, err := joinScript.Run(ctx, s.client,
		[]string{sessionKey(bookingID), connKey(connID)},
		string(role), connID, bookingID, int64(s.ttl/time.Second), connKeyPrefix,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("join session: %w", err)
	}

	return decodeSession(bookingID, res)
}

func (s *RedisStore) GetByBooking(ctx context.Context, bookingID int64) (*model.VideoSession, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(bookingID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return sessionFromHash(bookingID, fields)
}

func (s *RedisStore) GetByConnection(ctx context.Context, connID string) (*model.VideoSession, error) {
	bookingID, err := s.bookingOf(ctx, connID)
	if err != nil || bookingID == 0 {
		return nil, err
	}
	return s.GetByBooking(ctx, bookingID)
}

func (s *RedisStore) EndByConnection(ctx context.Context, connID string, at time.Time) (*model.VideoSession, bool, error) {
	bookingID, err := s.bookingOf(ctx, connID)
	if err != nil || bookingID == 0 {
		return nil, false, err
	}

	res, err := endScript.Run(ctx, s.client,
		[]string{sessionKey(bookingID), connKey(connID)},
		connID, at.UnixMilli(),
	).Result()
	if err != nil {
		return nil, false, fmt.Errorf("end session: %w", err)
	}

	session, err := decodeSession(bookingID, res)
	if err != nil || session == nil {
		return nil, false, err
	}
	return session, true, nil
}

// PruneEnded ничего не делает: ключи сессий истекают сами
func (s *RedisStore) PruneEnded(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (s *RedisStore) bookingOf(ctx context.Context, connID string) (int64, error) {
	raw, err := s.client.Get(ctx, connKey(connID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get connection: %w", err)
	}

	bookingID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse connection booking %q: %w", raw, err)
	}
	return bookingID, nil
}

// decodeSession разбирает плоский ответ HGETALL из скрипта. Пустой ответ значит, что сессии нет.
func decodeSession(bookingID int64, res any) (*model.VideoSession, error) {
	items, ok := res.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected script reply %T", res)
	}
	if len(items) == 0 {
		return nil, nil
	}

	fields := make(map[string]string, len(items)/2)
	for i := 0; i+1 < len(items); i += 2 {
		k, _ := items[i].(string)
		v, _ := items[i+1].(string)
		fields[k] = v
	}
	return sessionFromHash(bookingID, fields)
}

func sessionFromHash(bookingID int64, fields map[string]string) (*model.VideoSession, error) {
	session := &model.VideoSession{
		BookingID:           bookingID,
		TrainerConnectionID: fields[string(model.RoleTrainer)],
		TraineeConnectionID: fields[string(model.RoleTrainee)],
		Status:              model.VideoSessionStatus(fields["status"]),
	}

	if raw := fields["ended_at"]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse ended_at %q: %w", raw, err)
		}
		endedAt := time.UnixMilli(ms).UTC()
		session.EndedAt = &endedAt
	}

	return session, nil
}
