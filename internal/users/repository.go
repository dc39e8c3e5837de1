// Package users предоставляет доступ к хранению пользователей
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Ultrahd-dev/session-booking/backend/internal/database"
)

var userColumns = []string{"id", "email", "first_name", "last_name", "password", "admin", "created_at", "updated_at"}

// Repository предоставляет доступ к хранению пользователей
type Repository struct {
	db  *sql.DB
	sql sq.StatementBuilderType
}

// NewRepository создает новый репозиторий пользователей
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:  db,
		sql: database.Builder(),
	}
}

// CreateUser создает нового пользователя в базе данных
func (r *Repository) CreateUser(ctx context.Context, user *User) error {
	query, args, err := r.sql.Insert("users").
		Columns("email", "first_name", "last_name", "password", "admin").
		Values(user.Email, user.FirstName, user.LastName, user.Password, user.Admin).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert user query: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		// Уникальность email гарантирует индекс, даже если предварительная проверка проиграла гонку
		if database.IsUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByEmail получает пользователя по email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, sq.Eq{"email": email})
}

// GetUserByID получает пользователя по ID
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return r.getUser(ctx, sq.Eq{"id": id})
}

func (r *Repository) getUser(ctx context.Context, where sq.Eq) (*User, error) {
	query, args, err := r.sql.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select user query: %w", err)
	}

	user := &User{}
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Password,
		&user.Admin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func (r *Repository) existsQuery(email string) sq.SelectBuilder {
	return r.sql.Select("1").From("users").Where(sq.Eq{"email": email}).
		Prefix("SELECT EXISTS (").Suffix(")")
}

// ExistsByEmail проверяет, занят ли email
func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query, args, err := r.existsQuery(email).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build exists query: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}

	return exists, nil
}

// DeleteUser удаляет пользователя, его участие в занятиях удаляется каскадно
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	query, args, err := r.sql.Delete("users").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete user query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return database.RequireAffected(res, ErrUserNotFound)
}
