package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/session_booking/internal/model"
)

// MemoryStore хранит видеосессии в памяти процесса
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*model.VideoSession // bookingID -> session
	conns    map[string]int64              // connID -> bookingID
}

// NewMemoryStore создаёт новое хранилище сессий
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]*model.VideoSession),
		conns:    make(map[string]int64),
	}
}

// Join записывает подключение участника в сессию бронирования
func (s *MemoryStore) Join(_ context.Context, bookingID int64, role model.Role, connID string) (*model.VideoSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[bookingID]
	if !exists || session.Status == model.VideoSessionEnded {
		session = &model.VideoSession{
			BookingID: bookingID,
			Status:    model.VideoSessionPending,
		}
		s.sessions[bookingID] = session
	}

	// Переподключение той же роли вытесняет старое соединение
	slot := &session.TraineeConnectionID
	if role == model.RoleTrainer {
		slot = &session.TrainerConnectionID
	}
	if *slot != "" && *slot != connID {
		delete(s.conns, *slot)
	}
	*slot = connID
	s.conns[connID] = bookingID

	if session.Paired() {
		session.Status = model.VideoSessionActive
	}

	copied := *session
	return &copied, nil
}

// GetByBooking получает сессию по ID бронирования
func (s *MemoryStore) GetByBooking(_ context.Context, bookingID int64) (*model.VideoSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if session, exists := s.sessions[bookingID]; exists {
		copied := *session
		return &copied, nil
	}
	return nil, nil
}

// GetByConnection получает сессию, в которой участвует соединение
func (s *MemoryStore) GetByConnection(_ context.Context, connID string) (*model.VideoSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookingID, ok := s.conns[connID]
	if !ok {
		return nil, nil
	}
	if session, exists := s.sessions[bookingID]; exists {
		copied := *session
		return &copied, nil
	}
	return nil, nil
}

// EndByConnection завершает сессию соединения. Повторный вызов ничего не делает.
func (s *MemoryStore) EndByConnection(_ context.Context, connID string, at time.Time) (*model.VideoSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookingID, ok := s.conns[connID]
	if !ok {
		return nil, false, nil
	}
	delete(s.conns, connID)

	session, exists := s.sessions[bookingID]
	if !exists || session.Status == model.VideoSessionEnded {
		return nil, false, nil
	}

	if session.TrainerConnectionID != connID && session.TraineeConnectionID != connID {
		return nil, false, nil
	}

	endedAt := at
	session.Status = model.VideoSessionEnded
	session.EndedAt = &endedAt

	copied := *session
	return &copied, true, nil
}

// PruneEnded удаляет сессии, завершённые раньше before
func (s *MemoryStore) PruneEnded(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for bookingID, session := range s.sessions {
		if session.Status != model.VideoSessionEnded || session.EndedAt == nil || !session.EndedAt.Before(before) {
			continue
		}
		for _, connID := range []string{session.TrainerConnectionID, session.TraineeConnectionID} {
			if id, ok := s.conns[connID]; ok && id == bookingID {
				delete(s.conns, connID)
			}
		}
		delete(s.sessions, bookingID)
		pruned++
	}

	return pruned, nil
}
