package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const remoteTimeout = 2 * time.Second

// Conn одно живое соединение с точки зрения координатора
type Conn interface {
	ID() string
	// Send ставит env в очередь отправки, false означает, что кадр отброшен
	Send(env Envelope) bool
}

// Remote доставляет кадры соединениям, открытым в других процессах
type Remote interface {
	// Attach начинает приём кадров для локального соединения
	Attach(ctx context.Context, connID string) error
	Detach(ctx context.Context, connID string) error
	// Publish отправляет кадр соединению в другом процессе, false если его никто не принял
	Publish(ctx context.Context, connID string, env Envelope) (bool, error)
}

// Hub реестр живых соединений процесса.
// Если задан Remote, кадры для чужих соединений уходят через него.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]Conn
	remote Remote
	logger *zap.Logger
}

// NewHub создаёт реестр для одного процесса
func NewHub() *Hub {
	return &Hub{conns: make(map[string]Conn), logger: zap.NewNop()}
}

// NewClusterHub создаёт реестр, который делит сессии с другими процессами через remote
func NewClusterHub(remote Remote, logger *zap.Logger) *Hub {
	return &Hub{conns: make(map[string]Conn), remote: remote, logger: logger}
}

// Register добавляет соединение и подписывает его на кадры из других процессов
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	h.mu.Unlock()

	if h.remote == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()
	if err := h.remote.Attach(ctx, c.ID()); err != nil {
		h.logger.Warn("Failed to attach connection", zap.String("conn_id", c.ID()), zap.Error(err))
	}
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()

	if h.remote == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()
	if err := h.remote.Detach(ctx, id); err != nil {
		h.logger.Warn("Failed to detach connection", zap.String("conn_id", id), zap.Error(err))
	}
}

// Send доставляет env соединению id: локально, а иначе через Remote
func (h *Hub) Send(id string, env Envelope) bool {
	if c, ok := h.local(id); ok {
		return c.Send(env)
	}
	if h.remote == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	delivered, err := h.remote.Publish(ctx, id, env)
	if err != nil {
		h.logger.Warn("Failed to publish frame",
			zap.String("conn_id", id),
			zap.String("event", string(env.Event)),
			zap.Error(err),
		)
		return false
	}
	return delivered
}

// SendLocal доставляет только соединениям этого процесса. Кадры из Remote приходят сюда.
func (h *Hub) SendLocal(id string, env Envelope) bool {
	c, ok := h.local(id)
	if !ok {
		return false
	}
	return c.Send(env)
}

func (h *Hub) local(id string) (Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}
