package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/session_booking/internal/apperr"
	"github.com/Freeeeeet/session_booking/internal/model"
	"go.uber.org/zap"
)

type UserDirectory interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// UserService ведёт справочник участников. Сами учётные записи живут в сервисе идентификации,
// сюда попадают только id, роль, отображаемое имя и чат для уведомлений.
type UserService struct {
	userRepo UserDirectory
	logger   *zap.Logger
}

func NewUserService(userRepo UserDirectory, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// RegisterUser добавляет пользователя в справочник
func (s *UserService) RegisterUser(ctx context.Context, displayName string, role model.Role, telegramChatID *int64) (*model.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, apperr.BadRequest("display name is required")
	}
	if _, ok := model.ParseRole(string(role)); !ok {
		return nil, apperr.BadRequest("role must be trainer or trainee")
	}

	user := &model.User{
		DisplayName:    displayName,
		Role:           role,
		TelegramChatID: telegramChatID,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(role)),
	)

	return user, nil
}

// GetUser получает пользователя по ID
func (s *UserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
