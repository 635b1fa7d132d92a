package model

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCanceled  BookingStatus = "canceled"  // terminal
	BookingStatusCompleted BookingStatus = "completed" // terminal, written outside this service
)

type Booking struct {
	ID        int64         `json:"id"`
	SlotID    int64         `json:"slotId"`
	TrainerID int64         `json:"trainerId"`
	UserID    int64         `json:"userId"`
	Status    BookingStatus `json:"status"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// IsTerminal reports whether no further transition is allowed.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCanceled || b.Status == BookingStatusCompleted
}

// HasParticipant reports whether userID is the trainer or trainee of the booking.
func (b *Booking) HasParticipant(userID int64) bool {
	return b.TrainerID == userID || b.UserID == userID
}

// CancellationNote tags a cancellation reason with the cancelling side.
func CancellationNote(by Role, reason string) string {
	switch by {
	case RoleTrainer:
		return fmt.Sprintf("Trainer Cancellation Reason : %s", reason)
	default:
		return fmt.Sprintf("Trainee Cancellation Reason : %s", reason)
	}
}

// BookingDetail is a booking joined with its slot, availability and both parties.
type BookingDetail struct {
	Booking
	Date        time.Time  `json:"-"`
	StartTime   ClockTime  `json:"startTime"`
	EndTime     ClockTime  `json:"endTime"`
	SlotStatus  SlotStatus `json:"slotStatus"`
	TrainerName string     `json:"trainerName"`
	TraineeName string     `json:"traineeName"`
	StartsAt    time.Time  `json:"startsAt"`
}
