package users

import "github.com/Ultrahd-dev/session-booking/backend/internal/apperr"

var (
	ErrUserNotFound   = apperr.New(apperr.ErrNotFound, "User not found")                  // 404
	ErrDuplicateEmail = apperr.New(apperr.ErrDuplicate, "Error: Email is already taken!") // 400
	ErrBadCredentials = apperr.New(apperr.ErrAuthentication, "Bad credentials")           // 401
)
