package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Freeeeeet/session_booking/internal/apperr"
	"github.com/Freeeeeet/session_booking/internal/model"
	"go.uber.org/zap"
)

type BookingLookup interface {
	GetBooking(ctx context.Context, bookingID int64) (*model.Booking, error)
}

// SessionRecorder получает события жизненного цикла сессии, реализуется метриками
type SessionRecorder interface {
	SessionReady()
	SessionEnded()
}

var (
	errRoleMismatch   = apperr.Forbidden("userType does not match the authenticated role")
	errUserMismatch   = apperr.Forbidden("userId does not match the authenticated user")
	errNotParty       = apperr.Forbidden("not a participant of this booking")
	errNotConfirmed   = apperr.Conflict("booking is not confirmed")
	errUnknownEvent   = apperr.BadRequest("unknown event")
	errMalformedFrame = apperr.BadRequest("malformed payload")
	errInternal       = apperr.New(apperr.KindInternal, "internal error")
)

// Coordinator связывает два соединения одного бронирования и пересылает между ними сигнальные кадры.
// Пересылка без подтверждения: отсутствие сессии или собеседника ошибкой не считается.
type Coordinator struct {
	store    SessionStore
	hub      *Hub
	bookings BookingLookup
	recorder SessionRecorder
	now      func() time.Time
	logger   *zap.Logger
}

func NewCoordinator(store SessionStore, hub *Hub, bookings BookingLookup, recorder SessionRecorder, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		hub:      hub,
		bookings: bookings,
		recorder: recorder,
		now:      time.Now,
		logger:   logger,
	}
}

// Handle обрабатывает один входящий кадр соединения connID
func (c *Coordinator) Handle(ctx context.Context, connID string, actor model.Actor, env Envelope) {
	switch {
	case env.Event == EventJoinSession:
		var req JoinRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.sendError(connID, errMalformedFrame)
			return
		}
		_ = c.Join(ctx, connID, actor, req)
	case relayed[env.Event]:
		c.Relay(ctx, connID, env)
	default:
		c.sendError(connID, errUnknownEvent)
	}
}

// RejectFrame отвечает на кадр, который не удалось разобрать как Envelope
func (c *Coordinator) RejectFrame(connID string) {
	c.sendError(connID, errMalformedFrame)
}

// Join записывает connID как сторону actor в сессии бронирования.
// Когда обе стороны на месте, каждая получает readyForCall.
func (c *Coordinator) Join(ctx context.Context, connID string, actor model.Actor, req JoinRequest) error {
	bookingID := int64(req.BookingID)

	if err := c.authorize(ctx, actor, bookingID, req); err != nil {
		c.logger.Debug("Join rejected",
			zap.String("conn_id", connID),
			zap.Int64("booking_id", bookingID),
			zap.Int64("user_id", actor.ID),
			zap.Error(err),
		)
		c.sendError(connID, err)
		return err
	}

	session, err := c.store.Join(ctx, bookingID, actor.Role, connID)
	if err != nil {
		c.logger.Error("Failed to join session",
			zap.String("conn_id", connID),
			zap.Int64("booking_id", bookingID),
			zap.Error(err),
		)
		c.sendError(connID, err)
		return err
	}

	c.logger.Info("Joined video session",
		zap.String("conn_id", connID),
		zap.Int64("booking_id", bookingID),
		zap.String("role", string(actor.Role)),
		zap.String("status", string(session.Status)),
	)

	if session.Status != model.VideoSessionActive {
		return nil
	}

	if c.recorder != nil {
		c.recorder.SessionReady()
	}
	c.send(session.TrainerConnectionID, EventReadyForCall, bookingPayload{BookingID: bookingID})
	c.send(session.TraineeConnectionID, EventReadyForCall, bookingPayload{BookingID: bookingID})
	return nil
}

// Relay пересылает env без изменений второй стороне сессии connID
func (c *Coordinator) Relay(ctx context.Context, connID string, env Envelope) {
	session, err := c.store.GetByConnection(ctx, connID)
	if err != nil {
		c.logger.Warn("Failed to look up session for relay",
			zap.String("conn_id", connID),
			zap.String("event", string(env.Event)),
			zap.Error(err),
		)
		return
	}
	if session == nil {
		return
	}

	target := session.Counterpart(connID)
	if target == "" {
		return
	}

	if !c.hub.Send(target, env) {
		c.logger.Debug("Relay dropped",
			zap.String("from", connID),
			zap.String("to", target),
			zap.String("event", string(env.Event)),
		)
	}
}

// Disconnect завершает сессию connID и сообщает об этом второй стороне. Повторный вызов ничего не делает.
func (c *Coordinator) Disconnect(ctx context.Context, connID string) {
	session, ended, err := c.store.EndByConnection(ctx, connID, c.now())
	if err != nil {
		c.logger.Warn("Failed to end session",
			zap.String("conn_id", connID),
			zap.Error(err),
		)
		return
	}
	if !ended {
		return
	}

	if c.recorder != nil {
		c.recorder.SessionEnded()
	}

	c.logger.Info("Video session ended",
		zap.Int64("booking_id", session.BookingID),
		zap.String("conn_id", connID),
	)

	if target := session.Counterpart(connID); target != "" {
		c.send(target, EventCallEnded, bookingPayload{BookingID: session.BookingID})
	}
}

func (c *Coordinator) authorize(ctx context.Context, actor model.Actor, bookingID int64, req JoinRequest) error {
	if req.UserType != actor.Role {
		return errRoleMismatch
	}
	if req.UserID != 0 && req.UserID != actor.ID {
		return errUserMismatch
	}

	booking, err := c.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.Status != model.BookingStatusConfirmed {
		return errNotConfirmed
	}

	party := booking.UserID
	if actor.Role == model.RoleTrainer {
		party = booking.TrainerID
	}
	if party != actor.ID {
		return errNotParty
	}

	return nil
}

func (c *Coordinator) send(connID string, event Event, payload any) {
	if connID == "" {
		return
	}
	env, err := NewEnvelope(event, payload)
	if err != nil {
		c.logger.Error("Failed to build event", zap.String("event", string(event)), zap.Error(err))
		return
	}
	c.hub.Send(connID, env)
}

func (c *Coordinator) sendError(connID string, err error) {
	msg := errInternal.Message
	if e, ok := apperr.As(err); ok && e.Kind != apperr.KindInternal {
		msg = e.Message
	}
	c.send(connID, EventError, errorPayload{Message: msg})
}
