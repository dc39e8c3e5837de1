// Package auth предоставляет функции для аутентификации и авторизации
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-logr/logr"

	"github.com/Ultrahd-dev/session-booking/backend/internal/apperr"
	"github.com/Ultrahd-dev/session-booking/backend/internal/jwt"
	"github.com/Ultrahd-dev/session-booking/backend/internal/users"
)

const bearerPrefix = "Bearer "

// UnauthorizedMessage сообщение для запросов без аутентификации
const UnauthorizedMessage = "Full authentication is required to access this resource"

// TokenVerifier проверяет токены и извлекает из них email
type TokenVerifier interface {
	Check(token string) jwt.Status
	SubjectOf(token string) (string, error)
}

// UserDirectory находит пользователя по email из токена
type UserDirectory interface {
	GetUserByEmail(ctx context.Context, email string) (*users.User, error)
}

// Middleware предоставляет middleware функции для аутентификации
type Middleware struct {
	tokens         TokenVerifier
	users          UserDirectory
	log            logr.Logger
	publicPrefixes []string
}

// NewMiddleware создает новый middleware для аутентификации.
// Пути с префиксом /api/auth/ доступны без токена.
func NewMiddleware(tokens TokenVerifier, directory UserDirectory, log logr.Logger) *Middleware {
	return &Middleware{
		tokens:         tokens,
		users:          directory,
		log:            log.WithName("auth"),
		publicPrefixes: []string{"/api/auth/"},
	}
}

// BearerToken извлекает токен из заголовка Authorization.
// Префикс "Bearer " чувствителен к регистру.
func BearerToken(header string) (string, bool) {
	return strings.CutPrefix(header, bearerPrefix)
}

// Authenticate проверяет JWT токен из заголовка Authorization и, если он
// действителен, добавляет пользователя в контекст запроса. Запрос никогда
// не прерывается: решение о доступе принимает RequireAuth.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenString, ok := BearerToken(r.Header.Get("Authorization")); ok {
			principal, err := m.resolve(r.Context(), tokenString)
			if err != nil {
				m.log.V(1).Info("не удалось аутентифицировать запрос", "path", r.URL.Path, "reason", err.Error())
			} else {
				r = r.WithContext(ContextWithPrincipal(r.Context(), principal))
			}
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAuth отклоняет запросы без пользователя в контексте ответом 401
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if _, ok := PrincipalFromContext(r.Context()); !ok {
			apperr.WriteError(w, r, http.StatusUnauthorized, UnauthorizedMessage)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) isPublic(path string) bool {
	for _, prefix := range m.publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// resolve превращает токен в Principal. Любой сбой, включая панику
// хранилища, возвращается как ошибка.
func (m *Middleware) resolve(ctx context.Context, tokenString string) (p *Principal, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p, err = nil, fmt.Errorf("panic: %v", rec)
		}
	}()

	if status := m.tokens.Check(tokenString); status != jwt.StatusValid {
		return nil, fmt.Errorf("токен отклонен: %s", status)
	}

	email, err := m.tokens.SubjectOf(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := m.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("пользователь %s не найден: %w", email, err)
	}

	return PrincipalFromUser(user), nil
}
