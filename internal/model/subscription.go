package model

import "time"

// Subscription is the billing-owned read model used for expiry reminders.
type Subscription struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	PlanName  string    `json:"planName"`
	ExpiresAt time.Time `json:"expiresAt"`
}
