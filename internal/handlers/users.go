package handlers

import (
	"net/http"

	"github.com/Ultrahd-dev/session-booking/backend/internal/auth"
)

// GetUser GET /api/user/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.users.GetUserByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// DeleteUser удаляет учетную запись. Удалить можно только свою.
// DELETE /api/user/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.users.GetUserByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := auth.RequireOwner(r.Context(), user.Email); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
