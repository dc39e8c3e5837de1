package sessions

import (
	"time"

	"github.com/Ultrahd-dev/session-booking/backend/internal/apperr"
)

var (
	ErrSessionNotFound      = apperr.New(apperr.ErrNotFound, "Session not found")
	ErrAlreadyParticipating = apperr.New(apperr.ErrDuplicate, "User already participates in this session")
	ErrNotParticipating     = apperr.New(apperr.ErrValidation, "User does not participate in this session")
	ErrBlankName            = apperr.New(apperr.ErrValidation, "Session name must not be blank")
)

// Session represents a bookable session led by an optional teacher
type Session struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Date        time.Time `db:"date" json:"date"`
	TeacherID   *int64    `db:"teacher_id" json:"teacher_id"` // NULL when no teacher is assigned
	Description string    `db:"description" json:"description"`
	Users       []int64   `json:"users"` // participants in insertion order, no duplicates
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// HasParticipant reports whether userID is on the roster
func (s *Session) HasParticipant(userID int64) bool {
	for _, id := range s.Users {
		if id == userID {
			return true
		}
	}
	return false
}

// Input is the writable part of a session
type Input struct {
	Name        string
	Description string
	Date        time.Time
	TeacherID   *int64
	Users       []int64
}

// withoutParticipant returns a copy of ids with the first occurrence of userID removed
func withoutParticipant(ids []int64, userID int64) []int64 {
	out := make([]int64, 0, len(ids))
	removed := false
	for _, id := range ids {
		if id == userID && !removed {
			removed = true
			continue
		}
		out = append(out, id)
	}
	return out
}

// uniqueIDs drops repeated ids keeping the first occurrence
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
