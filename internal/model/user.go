package model

import "time"

type Role string

const (
	RoleTrainer Role = "trainer"
	RoleTrainee Role = "trainee"
)

// ParseRole accepts the two participant roles.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleTrainer, RoleTrainee:
		return Role(s), true
	}
	return "", false
}

// Actor is the verified identity attached to every call.
type Actor struct {
	ID   int64
	Role Role
}

type User struct {
	ID             int64     `json:"id"`
	DisplayName    string    `json:"displayName"`
	Role           Role      `json:"role"`
	TelegramChatID *int64    `json:"-"` // nil when the user never linked Telegram
	CreatedAt      time.Time `json:"createdAt"`
}
