package model

type NotificationType string

const (
	NotificationSessionReminder      NotificationType = "session_reminder"
	NotificationSubscriptionExpiring NotificationType = "subscription_expiring"
)

// Notification is a delivery request handed to the notification gateway.
type Notification struct {
	UserID   int64             `json:"userId"`
	Type     NotificationType  `json:"type"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
