// Package memstore keeps users, teachers and sessions in process memory.
// It backs the "memory" database driver for local runs and serves as the
// store in handler and service tests. Semantics mirror the SQL schema:
// unique emails, cascading roster cleanup, insertion-ordered rosters.
package memstore

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Ultrahd-dev/session-booking/backend/internal/sessions"
	"github.com/Ultrahd-dev/session-booking/backend/internal/teachers"
	"github.com/Ultrahd-dev/session-booking/backend/internal/users"
)

// Store implements users.Store, teachers.Store and sessions.Store
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	users    map[int64]users.User
	teachers map[int64]teachers.Teacher
	sessions map[int64]sessions.Session
	calls    atomic.Int64
	now      func() time.Time
}

var (
	_ users.Store    = (*Store)(nil)
	_ teachers.Store = (*Store)(nil)
	_ sessions.Store = (*Store)(nil)
)

// New creates an empty store
func New() *Store {
	return &Store{
		users:    make(map[int64]users.User),
		teachers: make(map[int64]teachers.Teacher),
		sessions: make(map[int64]sessions.Session),
		now:      time.Now,
	}
}

// Calls returns how many store operations have been invoked
func (s *Store) Calls() int64 {
	return s.calls.Load()
}

// CountUsers returns the number of stored users
func (s *Store) CountUsers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// users

func (s *Store) CreateUser(_ context.Context, user *users.User) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return users.ErrDuplicateEmail
		}
	}

	now := s.now()
	user.ID = s.id()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*users.User, error) {
	s.calls.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, users.ErrUserNotFound
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*users.User, error) {
	s.calls.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.calls.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return users.ErrUserNotFound
	}
	delete(s.users, id)

	// ON DELETE CASCADE on participate.user_id
	for sid, sess := range s.sessions {
		if sess.HasParticipant(id) {
			kept := make([]int64, 0, len(sess.Users))
			for _, uid := range sess.Users {
				if uid != id {
					kept = append(kept, uid)
				}
			}
			sess.Users = kept
			s.sessions[sid] = sess
		}
	}
	return nil
}

// teachers

func (s *Store) ListTeachers(_ context.Context) ([]teachers.Teacher, error) {
	s.calls.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]teachers.Teacher, 0, len(s.teachers))
	for _, t := range s.teachers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetTeacherByID(_ context.Context, id int64) (*teachers.Teacher, error) {
	s.calls.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.teachers[id]
	if !ok {
		return nil, teachers.ErrTeacherNotFound
	}
	return &t, nil
}

func (s *Store) CreateTeacher(_ context.Context, teacher *teachers.Teacher) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	teacher.ID = s.id()
	teacher.CreatedAt, teacher.UpdatedAt = now, now
	s.teachers[teacher.ID] = *teacher
	return nil
}

// sessions

func (s *Store) ListSessions(_ context.Context) ([]sessions.Session, error) {
	s.calls.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]sessions.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, cloneSession(sess))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetSessionByID(_ context.Context, id int64) (*sessions.Session, error) {
	s.calls.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	c := cloneSession(sess)
	return &c, nil
}

func (s *Store) CreateSession(_ context.Context, sess *sessions.Session) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess.ID = s.id()
	sess.CreatedAt, sess.UpdatedAt = now, now
	if sess.Users == nil {
		sess.Users = []int64{}
	}
	s.sessions[sess.ID] = cloneSession(*sess)
	return nil
}

func (s *Store) UpdateSession(_ context.Context, sess *sessions.Session) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.sessions[sess.ID]
	if !ok {
		return sessions.ErrSessionNotFound
	}

	sess.CreatedAt = old.CreatedAt
	sess.UpdatedAt = s.now()
	if sess.Users == nil {
		sess.Users = []int64{}
	}
	s.sessions[sess.ID] = cloneSession(*sess)
	return nil
}

func (s *Store) SaveParticipants(_ context.Context, sessionID int64, userIDs []int64) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return sessions.ErrSessionNotFound
	}

	// primary key (session_id, user_id)
	seen := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			return sessions.ErrAlreadyParticipating
		}
		seen[id] = struct{}{}
	}

	sess.Users = append([]int64{}, userIDs...)
	sess.UpdatedAt = s.now()
	s.sessions[sessionID] = sess
	return nil
}

func (s *Store) DeleteSession(_ context.Context, id int64) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return sessions.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func cloneSession(sess sessions.Session) sessions.Session {
	sess.Users = append([]int64{}, sess.Users...)
	if sess.TeacherID != nil {
		id := *sess.TeacherID
		sess.TeacherID = &id
	}
	return sess
}

// PingContext always succeeds; the store lives in process memory
func (s *Store) PingContext(context.Context) error {
	return nil
}
