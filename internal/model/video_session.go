package model

import "time"

type VideoSessionStatus string

const (
	VideoSessionPending VideoSessionStatus = "pending"
	VideoSessionActive  VideoSessionStatus = "active"
	VideoSessionEnded   VideoSessionStatus = "ended"
)

// VideoSession is the ephemeral pairing of the two live connections of a booking.
type VideoSession struct {
	BookingID           int64              `json:"bookingId"`
	TrainerConnectionID string             `json:"trainerConnectionId,omitempty"`
	TraineeConnectionID string             `json:"traineeConnectionId,omitempty"`
	Status              VideoSessionStatus `json:"status"`
	EndedAt             *time.Time         `json:"endedAt,omitempty"`
}

// Paired reports whether both sides have a connection recorded.
func (s *VideoSession) Paired() bool {
	return s.TrainerConnectionID != "" && s.TraineeConnectionID != ""
}

// Counterpart returns the other side's connection id, or "" if connID is not a participant.
func (s *VideoSession) Counterpart(connID string) string {
	switch connID {
	case "":
		return ""
	case s.TrainerConnectionID:
		return s.TraineeConnectionID
	case s.TraineeConnectionID:
		return s.TrainerConnectionID
	}
	return ""
}
