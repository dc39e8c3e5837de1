package sessions

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ultrahd-dev/session-booking/backend/internal/teachers"
	"github.com/Ultrahd-dev/session-booking/backend/internal/users"
)

var tracer = otel.Tracer("github.com/Ultrahd-dev/session-booking/backend/internal/sessions")

// Store is the persistence contract for sessions and their rosters
type Store interface {
	ListSessions(ctx context.Context) ([]Session, error)
	GetSessionByID(ctx context.Context, id int64) (*Session, error)
	CreateSession(ctx context.Context, s *Session) error
	UpdateSession(ctx context.Context, s *Session) error
	SaveParticipants(ctx context.Context, sessionID int64, userIDs []int64) error
	DeleteSession(ctx context.Context, id int64) error
}

// UserDirectory resolves participants
type UserDirectory interface {
	GetUserByID(ctx context.Context, id int64) (*users.User, error)
}

// TeacherDirectory resolves the session owner
type TeacherDirectory interface {
	GetTeacherByID(ctx context.Context, id int64) (*teachers.Teacher, error)
}

// Service provides session CRUD and roster management.
// Every mutation of a session runs under that session's lock, so the
// read-check-write of the roster cannot interleave with another request.
type Service struct {
	repo     Store
	users    UserDirectory
	teachers TeacherDirectory
	locks    *KeyedMutex
	log      logr.Logger
}

// NewService creates a new session service
func NewService(repo Store, users UserDirectory, teachers TeacherDirectory, log logr.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		teachers: teachers,
		locks:    NewKeyedMutex(),
		log:      log.WithName("sessions"),
	}
}

// List returns all sessions
func (s *Service) List(ctx context.Context) ([]Session, error) {
	return s.repo.ListSessions(ctx)
}

// GetByID returns a session or ErrSessionNotFound
func (s *Service) GetByID(ctx context.Context, id int64) (*Session, error) {
	return s.repo.GetSessionByID(ctx, id)
}

// Create stores a new session
func (s *Service) Create(ctx context.Context, in Input) (*Session, error) {
	session, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	s.log.V(1).Info("session created", "sessionID", session.ID)
	return session, nil
}

// Update replaces every field of an existing session, roster included
func (s *Service) Update(ctx context.Context, id int64, in Input) (*Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.repo.GetSessionByID(ctx, id); err != nil {
		return nil, err
	}

	session, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	session.ID = id

	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// Delete removes a session
func (s *Service) Delete(ctx context.Context, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.DeleteSession(ctx, id); err != nil {
		return err
	}

	s.log.V(1).Info("session deleted", "sessionID", id)
	return nil
}

// Participate adds userID to the session roster
func (s *Service) Participate(ctx context.Context, sessionID, userID int64) (err error) {
	ctx, span := tracer.Start(ctx, "sessions.Participate", trace.WithAttributes(
		attribute.Int64("session.id", sessionID),
		attribute.Int64("user.id", userID),
	))
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return err
	}

	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return err
	}

	if session.HasParticipant(userID) {
		return ErrAlreadyParticipating
	}

	roster := append(append([]int64{}, session.Users...), userID)
	if err := s.repo.SaveParticipants(ctx, sessionID, roster); err != nil {
		return err
	}

	s.log.V(1).Info("user joined session", "sessionID", sessionID, "userID", userID)
	return nil
}

// Unparticipate removes userID from the session roster.
// A missing session is reported before a missing participation.
func (s *Service) Unparticipate(ctx context.Context, sessionID, userID int64) (err error) {
	ctx, span := tracer.Start(ctx, "sessions.Unparticipate", trace.WithAttributes(
		attribute.Int64("session.id", sessionID),
		attribute.Int64("user.id", userID),
	))
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return err
	}

	if !session.HasParticipant(userID) {
		return ErrNotParticipating
	}

	if err := s.repo.SaveParticipants(ctx, sessionID, withoutParticipant(session.Users, userID)); err != nil {
		return err
	}

	s.log.V(1).Info("user left session", "sessionID", sessionID, "userID", userID)
	return nil
}

// build validates the input and checks that referenced teacher and users exist
func (s *Service) build(ctx context.Context, in Input) (*Session, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrBlankName
	}

	if in.TeacherID != nil {
		if _, err := s.teachers.GetTeacherByID(ctx, *in.TeacherID); err != nil {
			return nil, err
		}
	}

	roster := uniqueIDs(in.Users)
	for _, userID := range roster {
		if _, err := s.users.GetUserByID(ctx, userID); err != nil {
			return nil, err
		}
	}

	return &Session{
		Name:        in.Name,
		Description: in.Description,
		Date:        in.Date,
		TeacherID:   in.TeacherID,
		Users:       roster,
	}, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
