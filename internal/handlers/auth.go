package handlers

import (
	"net/http"

	"github.com/Ultrahd-dev/session-booking/backend/internal/users"
)

// LoginRequest данные входа из тела запроса
type LoginRequest struct {
	Email    string `json:"email" validate:"required,notblank"`
	Password string `json:"password" validate:"required,notblank"`
}

// Register обрабатывает регистрацию нового пользователя
// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req users.RegisterUserInput
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.auth.Register(r.Context(), req); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "User registered successfully!"})
}

// Login обрабатывает вход и выдает JWT токен
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
