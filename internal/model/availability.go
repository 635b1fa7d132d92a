package model

import "time"

// Availability is a window of a trainer's day split into fixed-duration slots.
type Availability struct {
	ID                  int64     `json:"id"`
	TrainerID           int64     `json:"trainerId"`
	Date                time.Time `json:"-"`
	StartTime           ClockTime `json:"startTime"`
	EndTime             ClockTime `json:"endTime"`
	SlotDurationMinutes int       `json:"slotDurationMinutes"`
	CreatedAt           time.Time `json:"createdAt"`
}

// DateString returns the availability day as YYYY-MM-DD.
func (a *Availability) DateString() string {
	return a.Date.Format(DateFormat)
}

// Overlaps reports whether the half-open windows [a.Start, a.End) and [start, end) share any minute.
func (a *Availability) Overlaps(start, end ClockTime) bool {
	return start < a.EndTime && end > a.StartTime
}

// WindowMinutes is the length of the window.
func (a *Availability) WindowMinutes() int {
	return a.EndTime.Minutes() - a.StartTime.Minutes()
}
