package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Freeeeeet/session_booking/internal/model"
)

type Event string

// Входящие
const (
	EventJoinSession  Event = "joinSession"
	EventOffer        Event = "offer"
	EventAnswer       Event = "answer"
	EventIceCandidate Event = "ice-candidate"
	EventEndCall      Event = "endCall"
	EventUserStatus   Event = "user-status"
	EventUserLeft     Event = "user-left"
)

// Только исходящие
const (
	EventReadyForCall Event = "readyForCall"
	EventCallEnded    Event = "callEnded"
	EventError        Event = "error"
)

// relayed события, которые пересылаются собеседнику без изменений
var relayed = map[Event]bool{
	EventOffer:        true,
	EventAnswer:       true,
	EventIceCandidate: true,
	EventEndCall:      true,
	EventUserStatus:   true,
	EventUserLeft:     true,
}

// Envelope кадр протокола в обе стороны: {"event": "...", "data": {...}}
type Envelope struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(event Event, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}

// BookingKey id бронирования, клиент может прислать его числом или строкой с числом
type BookingKey int64

func (k *BookingKey) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid booking id %q", b)
	}
	*k = BookingKey(id)
	return nil
}

type JoinRequest struct {
	BookingID BookingKey `json:"bookingId"`
	UserID    int64      `json:"userId,omitempty"`
	UserType  model.Role `json:"userType"`
}

type bookingPayload struct {
	BookingID int64 `json:"bookingId"`
}

type errorPayload struct {
	Message string `json:"message"`
}
