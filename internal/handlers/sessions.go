package handlers

import (
	"fmt"
	"net/http"

	"github.com/spf13/cast"

	"github.com/Ultrahd-dev/session-booking/backend/internal/apperr"
	"github.com/Ultrahd-dev/session-booking/backend/internal/sessions"
)

// SessionRequest тело запроса создания и изменения занятия.
// Дата разбирается spf13/cast: RFC3339, 2006-01-02T15:04:05, 2006-01-02,
// 2006-01-02 15:04:05 (в том числе со смещением зоны), семейства RFC1123,
// RFC822 и RFC850, ANSIC, UnixDate, RubyDate и 02 Jan 2006.
// Без зоны время считается UTC.
type SessionRequest struct {
	Name        string  `json:"name" validate:"required,notblank,max=50"`
	Date        string  `json:"date" validate:"required"`
	TeacherID   *int64  `json:"teacher_id"`
	Description string  `json:"description" validate:"required,notblank,max=2500"`
	Users       []int64 `json:"users"`
}

func (req SessionRequest) input() (sessions.Input, error) {
	date, err := cast.ToTimeE(req.Date)
	if err != nil {
		return sessions.Input{}, apperr.Validation(fmt.Sprintf("date: cannot parse %q", req.Date))
	}
	return sessions.Input{
		Name:        req.Name,
		Description: req.Description,
		Date:        date,
		TeacherID:   req.TeacherID,
		Users:       req.Users,
	}, nil
}

// ListSessions GET /api/session
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.sessions.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []sessions.Session{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetSession GET /api/session/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	session, err := h.sessions.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// CreateSession POST /api/session
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	in, err := h.sessionInput(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	session, err := h.sessions.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// UpdateSession PUT /api/session/{id}
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	in, err := h.sessionInput(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	session, err := h.sessions.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// DeleteSession DELETE /api/session/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.sessions.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Participate POST /api/session/{id}/participate/{userId}
func (h *Handler) Participate(w http.ResponseWriter, r *http.Request) {
	sessionID, userID, err := rosterIDs(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.sessions.Participate(r.Context(), sessionID, userID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Unparticipate DELETE /api/session/{id}/participate/{userId}
func (h *Handler) Unparticipate(w http.ResponseWriter, r *http.Request) {
	sessionID, userID, err := rosterIDs(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.sessions.Unparticipate(r.Context(), sessionID, userID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) sessionInput(r *http.Request) (sessions.Input, error) {
	var req SessionRequest
	if err := h.decode(r, &req); err != nil {
		return sessions.Input{}, err
	}
	return req.input()
}

func rosterIDs(r *http.Request) (sessionID, userID int64, err error) {
	if sessionID, err = pathID(r, "id"); err != nil {
		return 0, 0, err
	}
	if userID, err = pathID(r, "userId"); err != nil {
		return 0, 0, err
	}
	return sessionID, userID, nil
}
