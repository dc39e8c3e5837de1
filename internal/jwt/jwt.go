// Package jwt предоставляет функции для работы с JWT токенами
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/thejerf/abtime"
)

// ErrInvalidToken возвращается, если из токена нельзя извлечь subject
var ErrInvalidToken = errors.New("invalid token")

var errUnsupportedMethod = errors.New("unsupported signing method")

// Status результат проверки токена.
// Наружу отдается только булево значение, детали нужны для логов и тестов.
type Status int

const (
	StatusValid Status = iota
	StatusEmpty
	StatusMalformed
	StatusBadSignature
	StatusExpired
	StatusUnsupported
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusEmpty:
		return "empty"
	case StatusMalformed:
		return "malformed"
	case StatusBadSignature:
		return "bad signature"
	case StatusExpired:
		return "expired"
	case StatusUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Manager отвечает за создание и проверку JWT токенов
type Manager struct {
	secretKey     []byte              // Секретный ключ для подписи токенов
	tokenLifetime time.Duration       // Время жизни токена
	clock         abtime.AbstractTime // Источник текущего времени
	parser        *jwt.Parser
}

// Option настраивает Manager
type Option func(*Manager)

// WithClock подменяет источник времени (используется в тестах)
func WithClock(clock abtime.AbstractTime) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// NewManager создает новый менеджер JWT
// secretKey - секретный ключ для подписи токенов
// lifetime - время жизни токена (например, 24 * time.Hour)
func NewManager(secretKey string, lifetime time.Duration, opts ...Option) *Manager {
	m := &Manager{
		secretKey:     []byte(secretKey),
		tokenLifetime: lifetime,
		clock:         abtime.NewRealTime(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.parser = jwt.NewParser(
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.clock.Now),
	)
	return m
}

// GenerateToken создает подписанный токен, subject - email пользователя
func (m *Manager) GenerateToken(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("пустой subject токена")
	}

	now := m.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenLifetime)),
		ID:        uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)

	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи токена: %w", err)
	}

	return tokenString, nil
}

// SubjectOf возвращает subject проверенного токена
func (m *Manager) SubjectOf(tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("%w: пустой токен", ErrInvalidToken)
	}

	claims, err := m.parse(tokenString)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: пустой subject", ErrInvalidToken)
	}

	return claims.Subject, nil
}

// Check проверяет токен и возвращает причину отказа
func (m *Manager) Check(tokenString string) Status {
	if tokenString == "" {
		return StatusEmpty
	}

	_, err := m.parse(tokenString)
	return statusOf(err)
}

// IsValid сворачивает результат Check в булево значение и никогда не паникует
func (m *Manager) IsValid(tokenString string) bool {
	return m.Check(tokenString) == StatusValid
}

func (m *Manager) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := m.parser.ParseWithClaims(tokenString, claims, m.keyFunc)
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("токен недействителен")
	}

	return claims, nil
}

func (m *Manager) keyFunc(token *jwt.Token) (interface{}, error) {
	// Принимаем только HS512
	if token.Method != jwt.SigningMethodHS512 {
		return nil, fmt.Errorf("%w: %v", errUnsupportedMethod, token.Header["alg"])
	}
	return m.secretKey, nil
}

func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusValid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return StatusMalformed
	case errors.Is(err, errUnsupportedMethod), errors.Is(err, jwt.ErrTokenUnverifiable):
		return StatusUnsupported
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return StatusBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return StatusExpired
	default:
		return StatusMalformed
	}
}
