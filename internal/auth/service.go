package auth

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/Ultrahd-dev/session-booking/backend/internal/users"
)

// TokenIssuer выпускает токен для email
type TokenIssuer interface {
	GenerateToken(subject string) (string, error)
}

// Credentials хранилище учетных данных
type Credentials interface {
	RegisterUser(ctx context.Context, input users.RegisterUserInput) (*users.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*users.User, error)
	GetUserByEmail(ctx context.Context, email string) (*users.User, error)
}

// LoginResult ответ на успешный вход
type LoginResult struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Admin     bool   `json:"admin"`
}

// Service выполняет вход и регистрацию
type Service struct {
	users  Credentials
	tokens TokenIssuer
	log    logr.Logger
}

// NewService создает сервис аутентификации
func NewService(credentials Credentials, tokens TokenIssuer, log logr.Logger) *Service {
	return &Service{
		users:  credentials,
		tokens: tokens,
		log:    log.WithName("auth"),
	}
}

// Login проверяет email и пароль и выпускает токен
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.AuthenticateUser(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user.Email)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации токена: %w", err)
	}

	// Флаг admin берется из свежей записи; если она недоступна, считаем false
	admin := false
	if fresh, err := s.users.GetUserByEmail(ctx, user.Email); err == nil {
		admin = fresh.Admin
	} else {
		s.log.Info("не удалось перечитать пользователя после входа", "email", user.Email, "error", err.Error())
	}

	return &LoginResult{
		Token:     token,
		Type:      "Bearer",
		ID:        user.ID,
		Username:  user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Admin:     admin,
	}, nil
}

// Register регистрирует пользователя без прав администратора
func (s *Service) Register(ctx context.Context, input users.RegisterUserInput) error {
	user, err := s.users.RegisterUser(ctx, input)
	if err != nil {
		return err
	}

	s.log.Info("пользователь зарегистрирован", "id", user.ID, "email", user.Email)
	return nil
}
