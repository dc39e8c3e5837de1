package auth

import (
	"context"

	"github.com/Ultrahd-dev/session-booking/backend/internal/apperr"
	"github.com/Ultrahd-dev/session-booking/backend/internal/users"
)

// Ключи для хранения данных в контексте HTTP запроса
type contextKey string

const (
	// Ключ для хранения аутентифицированного пользователя в контексте
	principalContextKey contextKey = "principal"
)

// ErrNotOwner действие над чужим ресурсом. Отдается как 401.
var ErrNotOwner = apperr.New(apperr.ErrForbidden, "Unauthorized")

// Principal пользователь, от имени которого выполняется запрос.
// Создается заново для каждого запроса.
type Principal struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Admin     bool   `json:"admin"`
	Password  string `json:"-"` // хэш, после аутентификации не используется
}

// PrincipalFromUser строит Principal по записи пользователя
func PrincipalFromUser(u *users.User) *Principal {
	return &Principal{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Admin:     u.Admin,
		Password:  u.Password,
	}
}

// ContextWithPrincipal возвращает контекст с пользователем
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext извлекает пользователя из контекста запроса
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok && p != nil
}

// RequireOwner разрешает действие только владельцу ресурса.
// Сравнение email точное, флаг admin не учитывается.
func RequireOwner(ctx context.Context, ownerEmail string) error {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.Email != ownerEmail {
		return ErrNotOwner
	}
	return nil
}
