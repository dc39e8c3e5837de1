// Package teachers предоставляет доступ к преподавателям.
// Через REST API преподаватели доступны только для чтения.
package teachers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Ultrahd-dev/session-booking/backend/internal/apperr"
	"github.com/Ultrahd-dev/session-booking/backend/internal/database"
)

// ErrTeacherNotFound преподаватель не найден
var ErrTeacherNotFound = apperr.New(apperr.ErrNotFound, "Teacher not found")

// Teacher преподаватель, ведущий занятия
type Teacher struct {
	ID        int64     `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"firstName"`
	LastName  string    `db:"last_name" json:"lastName"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Store хранилище преподавателей
type Store interface {
	ListTeachers(ctx context.Context) ([]Teacher, error)
	GetTeacherByID(ctx context.Context, id int64) (*Teacher, error)
	CreateTeacher(ctx context.Context, teacher *Teacher) error
}

// Repository реализует Store поверх PostgreSQL
type Repository struct {
	db  *sql.DB
	sql sq.StatementBuilderType
}

// NewRepository создает новый репозиторий преподавателей
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, sql: database.Builder()}
}

func (r *Repository) selectQuery() sq.SelectBuilder {
	return r.sql.Select("id", "first_name", "last_name", "created_at", "updated_at").From("teachers")
}

// ListTeachers возвращает всех преподавателей в порядке создания
func (r *Repository) ListTeachers(ctx context.Context) ([]Teacher, error) {
	query, args, err := r.selectQuery().OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list teachers query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}
	defer rows.Close()

	teachers := []Teacher{}
	for rows.Next() {
		var t Teacher
		if err := rows.Scan(&t.ID, &t.FirstName, &t.LastName, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan teacher: %w", err)
		}
		teachers = append(teachers, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return teachers, nil
}

// GetTeacherByID получает преподавателя по ID
func (r *Repository) GetTeacherByID(ctx context.Context, id int64) (*Teacher, error) {
	query, args, err := r.selectQuery().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get teacher query: %w", err)
	}

	t := &Teacher{}
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&t.ID, &t.FirstName, &t.LastName, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeacherNotFound
		}
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}

	return t, nil
}

// CreateTeacher добавляет преподавателя (используется при импорте)
func (r *Repository) CreateTeacher(ctx context.Context, teacher *Teacher) error {
	query, args, err := r.sql.Insert("teachers").
		Columns("first_name", "last_name").
		Values(teacher.FirstName, teacher.LastName).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert teacher query: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&teacher.ID, &teacher.CreatedAt, &teacher.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create teacher: %w", err)
	}

	return nil
}

// Service бизнес-логика преподавателей
type Service struct {
	repo Store
}

// NewService создает сервис преподавателей
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// List возвращает всех преподавателей
func (s *Service) List(ctx context.Context) ([]Teacher, error) {
	return s.repo.ListTeachers(ctx)
}

// GetByID возвращает преподавателя или ErrTeacherNotFound
func (s *Service) GetByID(ctx context.Context, id int64) (*Teacher, error) {
	return s.repo.GetTeacherByID(ctx, id)
}

// Create добавляет преподавателя
func (s *Service) Create(ctx context.Context, firstName, lastName string) (*Teacher, error) {
	if firstName == "" || lastName == "" {
		return nil, apperr.Validation("first and last name are required")
	}

	t := &Teacher{FirstName: firstName, LastName: lastName}
	if err := s.repo.CreateTeacher(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
