package handlers

import (
	"net/http"

	"github.com/Ultrahd-dev/session-booking/backend/internal/teachers"
)

// ListTeachers GET /api/teacher
func (h *Handler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	list, err := h.teachers.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []teachers.Teacher{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetTeacher GET /api/teacher/{id}
func (h *Handler) GetTeacher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	teacher, err := h.teachers.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teacher)
}
