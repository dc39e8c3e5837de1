// Package sessions предоставляет хранение занятий и управление списком участников
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Ultrahd-dev/session-booking/backend/internal/database"
)

var sessionColumns = []string{"id", "name", "description", "date", "teacher_id", "created_at", "updated_at"}

// Repository предоставляет доступ к хранению занятий
type Repository struct {
	db  *sql.DB
	sql sq.StatementBuilderType
}

// NewRepository создает новый репозиторий занятий
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, sql: database.Builder()}
}

// ListSessions возвращает все занятия вместе с участниками
func (r *Repository) ListSessions(ctx context.Context) ([]Session, error) {
	query, args, err := r.sql.Select(sessionColumns...).From("sessions").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list sessions query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	roster, err := r.participants(ctx, r.db, nil)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].Users = roster[sessions[i].ID]
		if sessions[i].Users == nil {
			sessions[i].Users = []int64{}
		}
	}

	return sessions, nil
}

// GetSessionByID получает занятие по ID
func (r *Repository) GetSessionByID(ctx context.Context, id int64) (*Session, error) {
	query, args, err := r.sql.Select(sessionColumns...).From("sessions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get session query: %w", err)
	}

	s, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	roster, err := r.participants(ctx, r.db, sq.Eq{"session_id": id})
	if err != nil {
		return nil, err
	}
	s.Users = roster[id]
	if s.Users == nil {
		s.Users = []int64{}
	}

	return s, nil
}

// CreateSession сохраняет новое занятие и его участников в одной транзакции
func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query, args, err := r.sql.Insert("sessions").
			Columns("name", "description", "date", "teacher_id").
			Values(s.Name, s.Description, s.Date, s.TeacherID).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert session query: %w", err)
		}

		if err := tx.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		return r.insertParticipants(ctx, tx, s.ID, s.Users)
	})
}

// UpdateSession полностью заменяет поля занятия и список участников
func (r *Repository) UpdateSession(ctx context.Context, s *Session) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query, args, err := r.sql.Update("sessions").
			Set("name", s.Name).
			Set("description", s.Description).
			Set("date", s.Date).
			Set("teacher_id", s.TeacherID).
			Set("updated_at", sq.Expr("now()")).
			Where(sq.Eq{"id": s.ID}).
			Suffix("RETURNING created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build update session query: %w", err)
		}

		if err := tx.QueryRowContext(ctx, query, args...).Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to update session: %w", err)
		}

		return r.replaceParticipants(ctx, tx, s.ID, s.Users)
	})
}

// SaveParticipants заменяет список участников занятия
func (r *Repository) SaveParticipants(ctx context.Context, sessionID int64, userIDs []int64) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query, args, err := r.touchQuery(sessionID).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build touch session query: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		if err := database.RequireAffected(res, ErrSessionNotFound); err != nil {
			return err
		}

		return r.replaceParticipants(ctx, tx, sessionID, userIDs)
	})
}

// DeleteSession удаляет занятие, участники удаляются каскадно
func (r *Repository) DeleteSession(ctx context.Context, id int64) error {
	query, args, err := r.sql.Delete("sessions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete session query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return database.RequireAffected(res, ErrSessionNotFound)
}

func (r *Repository) replaceParticipants(ctx context.Context, tx *sql.Tx, sessionID int64, userIDs []int64) error {
	query, args, err := r.sql.Delete("participate").Where(sq.Eq{"session_id": sessionID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build clear participants query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}

	return r.insertParticipants(ctx, tx, sessionID, userIDs)
}

func (r *Repository) insertParticipants(ctx context.Context, tx *sql.Tx, sessionID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}

	query, args, err := r.insertParticipantsQuery(sessionID, userIDs).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert participants query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return participantsWriteError(err)
	}

	return nil
}

// touchQuery обновляет updated_at занятия
func (r *Repository) touchQuery(sessionID int64) sq.UpdateBuilder {
	return r.sql.Update("sessions").
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": sessionID})
}

// insertParticipantsQuery вставляет участников одной командой.
// position - bigserial, поэтому порядок вставки сохраняется.
func (r *Repository) insertParticipantsQuery(sessionID int64, userIDs []int64) sq.InsertBuilder {
	insert := r.sql.Insert("participate").Columns("session_id", "user_id")
	for _, userID := range userIDs {
		insert = insert.Values(sessionID, userID)
	}
	return insert
}

// participantsQuery выбирает участников в порядке записи
func (r *Repository) participantsQuery(where sq.Sqlizer) sq.SelectBuilder {
	builder := r.sql.Select("session_id", "user_id").From("participate").OrderBy("position")
	if where != nil {
		builder = builder.Where(where)
	}
	return builder
}

// participantsWriteError переводит нарушение первичного ключа (session_id, user_id)
// в повторную запись на занятие
func participantsWriteError(err error) error {
	if database.IsUniqueViolation(err) {
		return ErrAlreadyParticipating
	}
	return fmt.Errorf("failed to save participants: %w", err)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// participants возвращает участников, сгруппированных по занятию
func (r *Repository) participants(ctx context.Context, q queryer, where sq.Sqlizer) (map[int64][]int64, error) {
	query, args, err := r.participantsQuery(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build participants query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()

	roster := make(map[int64][]int64)
	for rows.Next() {
		var sessionID, userID int64
		if err := rows.Scan(&sessionID, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		roster[sessionID] = append(roster[sessionID], userID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return roster, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*Session, error) {
	s := &Session{}
	var teacherID sql.NullInt64
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Date, &teacherID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if teacherID.Valid {
		id := teacherID.Int64
		s.TeacherID = &id
	}
	return s, nil
}
