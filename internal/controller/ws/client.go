package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Freeeeeet/session_booking/internal/model"
	"github.com/Freeeeeet/session_booking/internal/realtime"
)

// client is one websocket connection registered in the hub.
type client struct {
	id     string
	actor  model.Actor
	conn   *websocket.Conn
	send   chan realtime.Envelope
	done   chan struct{}
	once   sync.Once
	opts   Options
	logger *zap.Logger
}

func newClient(id string, actor model.Actor, conn *websocket.Conn, opts Options, logger *zap.Logger) *client {
	return &client{
		id:     id,
		actor:  actor,
		conn:   conn,
		send:   make(chan realtime.Envelope, opts.SendBuffer),
		done:   make(chan struct{}),
		opts:   opts,
		logger: logger.With(zap.String("conn_id", id), zap.Int64("user_id", actor.ID)),
	}
}

func (c *client) ID() string { return c.id }

// Send never blocks: a full buffer or a closed client drops the frame.
func (c *client) Send(env realtime.Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- env:
		return true
	default:
		c.logger.Warn("Send buffer full, dropping frame", zap.String("event", string(env.Event)))
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump feeds inbound frames to the coordinator until the connection fails.
func (c *client) readPump(ctx context.Context, coord Coordinator) {
	c.conn.SetReadLimit(c.opts.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("Websocket read failed", zap.Error(err))
			}
			return
		}

		var env realtime.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			coord.RejectFrame(c.id)
			continue
		}

		coord.Handle(ctx, c.id, c.actor, env)
	}
}

// writePump is the only writer of the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteJSON(env); err != nil {
				c.logWriteError(err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logWriteError(err)
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) logWriteError(err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	c.logger.Debug("Websocket write failed", zap.Error(err))
}
