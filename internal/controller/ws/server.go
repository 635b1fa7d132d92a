// Package ws exposes the video session coordinator over websocket.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Freeeeeet/session_booking/internal/controller/identity"
	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/Freeeeeet/session_booking/internal/realtime"
)

const disconnectTimeout = 5 * time.Second

type Coordinator interface {
	Handle(ctx context.Context, connID string, actor model.Actor, env realtime.Envelope)
	RejectFrame(connID string)
	Disconnect(ctx context.Context, connID string)
}

// Registry is satisfied by *realtime.Hub.
type Registry interface {
	Register(c realtime.Conn)
	Unregister(id string)
}

type ConnRecorder interface {
	ConnectionOpened()
	ConnectionClosed()
}

type Options struct {
	SendBuffer      int
	MaxMessageBytes int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingInterval    time.Duration
	// AllowedOrigins restricts the handshake Origin header; empty allows any.
	AllowedOrigins []string
}

func DefaultOptions() Options {
	return Options{
		SendBuffer:      64,
		MaxMessageBytes: 64 << 10,
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		PingInterval:    54 * time.Second,
	}
}

// Server upgrades HTTP requests and runs one client per connection.
type Server struct {
	upgrader websocket.Upgrader
	coord    Coordinator
	hub      Registry
	recorder ConnRecorder
	opts     Options
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[string]*client
}

func NewServer(coord Coordinator, hub Registry, recorder ConnRecorder, opts Options, logger *zap.Logger) *Server {
	s := &Server{
		coord:    coord,
		hub:      hub,
		recorder: recorder,
		opts:     opts,
		logger:   logger,
		clients:  make(map[string]*client),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.opts.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.ActorFrom(r.Context())
	if !ok {
		var err error
		if actor, err = identity.FromRequest(r); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(uuid.NewString(), actor, conn, s.opts, s.logger)
	s.add(c)
	s.logger.Info("Websocket connected",
		zap.String("conn_id", c.id),
		zap.Int64("user_id", actor.ID),
		zap.String("role", string(actor.Role)),
	)

	go c.writePump()
	c.readPump(r.Context(), s.coord)

	s.remove(c)
}

func (s *Server) add(c *client) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	s.hub.Register(c)
	if s.recorder != nil {
		s.recorder.ConnectionOpened()
	}
}

// remove runs once per client after its read loop stops.
func (s *Server) remove(c *client) {
	s.hub.Unregister(c.id)
	c.close()

	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	s.coord.Disconnect(ctx, c.id)

	if s.recorder != nil {
		s.recorder.ConnectionClosed()
	}
	s.logger.Info("Websocket disconnected", zap.String("conn_id", c.id))
}

// Close drops every live connection; each read loop then runs the normal disconnect path.
func (s *Server) Close() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// Len is the number of live connections.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
