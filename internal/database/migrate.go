package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/pressly/goose/v3"

	"github.com/Ultrahd-dev/session-booking/backend/migrations"
)

// Migrator применяет встроенные миграции goose
type Migrator struct {
	db *sql.DB
}

// NewMigrator настраивает goose на встроенные файлы миграций
func NewMigrator(db *sql.DB, log logr.Logger) (*Migrator, error) {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{log: log.WithName("goose"), exit: os.Exit})
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("ошибка настройки goose: %w", err)
	}
	return &Migrator{db: db}, nil
}

// Up применяет все непримененные миграции
func (m *Migrator) Up(ctx context.Context) error {
	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}
	return nil
}

// Down откатывает последнюю миграцию
func (m *Migrator) Down(ctx context.Context) error {
	if err := goose.DownContext(ctx, m.db, "."); err != nil {
		return fmt.Errorf("ошибка отката миграций: %w", err)
	}
	return nil
}

// Status выводит состояние миграций в журнал
func (m *Migrator) Status(ctx context.Context) error {
	if err := goose.StatusContext(ctx, m.db, "."); err != nil {
		return fmt.Errorf("ошибка получения статуса миграций: %w", err)
	}
	return nil
}

// gooseLogger направляет вывод goose в logr
type gooseLogger struct {
	log  logr.Logger
	exit func(code int)
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...))
}

// Fatalf завершает процесс, как того ожидает goose.Logger
func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Errorf(format, v...), "goose")
	l.exit(1)
}
