// Package database открывает подключение к PostgreSQL и содержит общие помощники для репозиториев
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-logr/logr"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // драйвер "pgx"
	"github.com/lib/pq"                 // драйвер "postgres"
	"github.com/sethvargo/go-retry"
)

// Коды ошибок PostgreSQL
const uniqueViolation = "23505"

// Builder возвращает построитель запросов с плейсхолдерами $1, $2, ...
func Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// Options параметры подключения
type Options struct {
	Driver         string // "pgx" или "postgres"
	DSN            string
	MaxOpenConns   int
	ConnectRetries uint64
}

// Open открывает пул соединений и проверяет доступность базы.
// Ping повторяется с экспоненциальной задержкой, пока не исчерпаны попытки.
func Open(ctx context.Context, opts Options, log logr.Logger) (*sql.DB, error) {
	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	backoff := retry.WithMaxRetries(opts.ConnectRetries, retry.NewExponential(500*time.Millisecond))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := db.PingContext(pingCtx); err != nil {
			log.Info("база данных недоступна", "attempt", attempt, "error", err.Error())
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка проверки подключения к БД: %w", err)
	}

	log.Info("успешное подключение к базе данных", "driver", opts.Driver)
	return db, nil
}

// IsUniqueViolation сообщает, нарушено ли ограничение уникальности.
// Понимает ошибки обоих драйверов.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	return false
}
