// Package apperr описывает классы ошибок бизнес-логики и их коды HTTP
package apperr

import (
	"errors"
	"net/http"
)

// Базовые классы ошибок. Доменные ошибки оборачивают один из них.
var (
	ErrValidation     = errors.New("validation failed")     // 400
	ErrDuplicate      = errors.New("duplicate")             // 400
	ErrNotFound       = errors.New("not found")             // 404
	ErrAuthentication = errors.New("authentication failed") // 401
	ErrForbidden      = errors.New("forbidden")             // 401, не 403
)

// Error доменная ошибка с сообщением для клиента
type Error struct {
	Kind    error
	Message string
}

// New создает доменную ошибку класса kind
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Validation создает ошибку валидации входных данных
func Validation(message string) *Error {
	return New(ErrValidation, message)
}

// HTTPStatus возвращает код ответа для ошибки.
// Неизвестные ошибки считаются внутренними.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrDuplicate):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAuthentication), errors.Is(err, ErrForbidden):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message возвращает сообщение, которое можно показать клиенту
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}
