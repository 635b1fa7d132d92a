package model

import "time"

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusCanceled  SlotStatus = "canceled" // terminal
)

type Slot struct {
	ID             int64      `json:"id"`
	AvailabilityID int64      `json:"availabilityId"`
	TrainerID      int64      `json:"trainerId"`
	StartTime      ClockTime  `json:"startTime"`
	EndTime        ClockTime  `json:"endTime"`
	Status         SlotStatus `json:"status"`
	BookingID      *int64     `json:"bookingId,omitempty"` // set only while booked
	CreatedAt      time.Time  `json:"createdAt"`
}

func (s *Slot) IsAvailable() bool {
	return s.Status == SlotStatusAvailable
}
