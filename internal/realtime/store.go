package realtime

import (
	"context"
	"time"

	"github.com/Freeeeeet/session_booking/internal/model"
)

// SessionStore хранит связь соединение ↔ бронирование ↔ роль.
// Каждый метод атомарен в пределах одной сессии.
type SessionStore interface {
	// Join находит или создаёт сессию bookingID и записывает connID под ролью role.
	// Завершённая сессия открывается заново как pending. Когда обе роли на месте, сессия active.
	Join(ctx context.Context, bookingID int64, role model.Role, connID string) (*model.VideoSession, error)
	// GetByBooking возвращает nil, если сессии нет
	GetByBooking(ctx context.Context, bookingID int64) (*model.VideoSession, error)
	// GetByConnection возвращает nil, если connID не входит ни в одну сессию
	GetByConnection(ctx context.Context, connID string) (*model.VideoSession, error)
	// EndByConnection завершает сессию connID. ended равен true только у вызова, который её завершил.
	EndByConnection(ctx context.Context, connID string, at time.Time) (session *model.VideoSession, ended bool, err error)
	// PruneEnded удаляет сессии, завершённые раньше указанного момента
	PruneEnded(ctx context.Context, before time.Time) (int, error)
}
