package realtime

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) SessionStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Hour)
}

func newMemoryStore(*testing.T) SessionStore {
	return NewMemoryStore()
}

var stores = map[string]func(t *testing.T) SessionStore{
	"memory": newMemoryStore,
	"redis":  newRedisStore,
}

func TestSessionStore_PendingUntilBothJoin(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)

			s, err := store.Join(ctx, 42, model.RoleTrainer, "c1")
			require.NoError(t, err)
			assert.Equal(t, model.VideoSessionPending, s.Status)
			assert.Equal(t, "c1", s.TrainerConnectionID)
			assert.Empty(t, s.TraineeConnectionID)

			s, err = store.Join(ctx, 42, model.RoleTrainee, "c2")
			require.NoError(t, err)
			assert.Equal(t, model.VideoSessionActive, s.Status)
			assert.Equal(t, "c1", s.TrainerConnectionID)
			assert.Equal(t, "c2", s.TraineeConnectionID)
			assert.Equal(t, int64(42), s.BookingID)

			byConn, err := store.GetByConnection(ctx, "c2")
			require.NoError(t, err)
			require.NotNil(t, byConn)
			assert.Equal(t, int64(42), byConn.BookingID)

			byBooking, err := store.GetByBooking(ctx, 42)
			require.NoError(t, err)
			assert.Equal(t, byConn, byBooking)
		})
	}
}

func TestSessionStore_Missing(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)

			s, err := store.GetByBooking(ctx, 1)
			require.NoError(t, err)
			assert.Nil(t, s)

			s, err = store.GetByConnection(ctx, "nobody")
			require.NoError(t, err)
			assert.Nil(t, s)

			s, ended, err := store.EndByConnection(ctx, "nobody", time.Now())
			require.NoError(t, err)
			assert.False(t, ended)
			assert.Nil(t, s)
		})
	}
}

func TestSessionStore_EndOnce(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			_, err := store.Join(ctx, 7, model.RoleTrainer, "c1")
			require.NoError(t, err)
			_, err = store.Join(ctx, 7, model.RoleTrainee, "c2")
			require.NoError(t, err)

			at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
			s, ended, err := store.EndByConnection(ctx, "c1", at)
			require.NoError(t, err)
			require.True(t, ended)
			assert.Equal(t, model.VideoSessionEnded, s.Status)
			require.NotNil(t, s.EndedAt)
			assert.True(t, s.EndedAt.Equal(at))
			assert.Equal(t, "c2", s.Counterpart("c1"))

			_, ended, err = store.EndByConnection(ctx, "c1", at.Add(time.Minute))
			require.NoError(t, err)
			assert.False(t, ended)

			_, ended, err = store.EndByConnection(ctx, "c2", at.Add(time.Minute))
			require.NoError(t, err)
			assert.False(t, ended, "the counterpart leaving an ended session is not a second end")

			stored, err := store.GetByBooking(ctx, 7)
			require.NoError(t, err)
			assert.True(t, stored.EndedAt.Equal(at))
		})
	}
}

func TestSessionStore_ConcurrentDisconnectEndsOnce(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			_, err := store.Join(ctx, 9, model.RoleTrainer, "c1")
			require.NoError(t, err)
			_, err = store.Join(ctx, 9, model.RoleTrainee, "c2")
			require.NoError(t, err)

			var (
				wg    sync.WaitGroup
				mu    sync.Mutex
				count int
			)
			for _, conn := range []string{"c1", "c2", "c1", "c2"} {
				wg.Add(1)
				go func(conn string) {
					defer wg.Done()
					_, ended, err := store.EndByConnection(ctx, conn, time.Now())
					assert.NoError(t, err)
					if ended {
						mu.Lock()
						count++
						mu.Unlock()
					}
				}(conn)
			}
			wg.Wait()

			assert.Equal(t, 1, count)
		})
	}
}

func TestSessionStore_ReconnectReplacesConnection(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			_, err := store.Join(ctx, 5, model.RoleTrainer, "old")
			require.NoError(t, err)

			s, err := store.Join(ctx, 5, model.RoleTrainer, "new")
			require.NoError(t, err)
			assert.Equal(t, "new", s.TrainerConnectionID)
			assert.Equal(t, model.VideoSessionPending, s.Status)

			gone, err := store.GetByConnection(ctx, "old")
			require.NoError(t, err)
			assert.Nil(t, gone)

			_, ended, err := store.EndByConnection(ctx, "old", time.Now())
			require.NoError(t, err)
			assert.False(t, ended)
		})
	}
}

func TestSessionStore_RejoinAfterEnd(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			_, err := store.Join(ctx, 3, model.RoleTrainer, "c1")
			require.NoError(t, err)
			_, err = store.Join(ctx, 3, model.RoleTrainee, "c2")
			require.NoError(t, err)
			_, _, err = store.EndByConnection(ctx, "c1", time.Now())
			require.NoError(t, err)

			s, err := store.Join(ctx, 3, model.RoleTrainer, "c3")
			require.NoError(t, err)
			assert.Equal(t, model.VideoSessionPending, s.Status)
			assert.Equal(t, "c3", s.TrainerConnectionID)
			assert.Empty(t, s.TraineeConnectionID)
			assert.Nil(t, s.EndedAt)
		})
	}
}

func TestMemoryStore_PruneEnded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	for _, id := range []int64{1, 2} {
		_, err := store.Join(ctx, id, model.RoleTrainer, "t"+strconv.FormatInt(id, 10))
		require.NoError(t, err)
	}
	_, ended, err := store.EndByConnection(ctx, "t1", at)
	require.NoError(t, err)
	require.True(t, ended)

	pruned, err := store.PruneEnded(ctx, at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	s, err := store.GetByBooking(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = store.GetByBooking(ctx, 2)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestRedisStore_KeysExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisStore(client, time.Minute)

	_, err := store.Join(context.Background(), 11, model.RoleTrainee, "c1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("video:session:11"))
	assert.True(t, mr.Exists("video:conn:c1"))

	mr.FastForward(2 * time.Minute)

	s, err := store.GetByBooking(context.Background(), 11)
	require.NoError(t, err)
	assert.Nil(t, s)
}
