// cmd/migrator/main.go
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/joho/godotenv"

	"github.com/Ultrahd-dev/session-booking/backend/internal/config"
	"github.com/Ultrahd-dev/session-booking/backend/internal/database"
	"github.com/Ultrahd-dev/session-booking/backend/internal/logging"
	"github.com/Ultrahd-dev/session-booking/backend/internal/teachers"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "путь к файлу конфигурации")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return
	}

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}
	log := logging.New("migrator", cfg.Log.Verbosity)

	if err := run(context.Background(), cfg, log, args); err != nil {
		log.Error(err, "команда завершилась с ошибкой", "command", args[0])
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logr.Logger, args []string) error {
	if cfg.Database.InMemory() {
		return errors.New("migrator requires a SQL database driver")
	}

	db, err := database.Open(ctx, database.Options{
		Driver:         cfg.Database.Driver,
		DSN:            cfg.Database.GetDSN(),
		ConnectRetries: cfg.Database.ConnectRetries,
	}, log)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := database.NewMigrator(db, log)
	if err != nil {
		return err
	}

	switch args[0] {
	case "up":
		if err := m.Up(ctx); err != nil {
			return err
		}
		fmt.Println("Миграции успешно применены")
	case "down":
		if err := m.Down(ctx); err != nil {
			return err
		}
		fmt.Println("Миграции успешно откачены")
	case "status":
		return m.Status(ctx)
	case "import-teachers":
		if len(args) < 2 {
			return errors.New("необходимо указать путь к CSV файлу с преподавателями")
		}
		file, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("ошибка открытия файла: %w", err)
		}
		defer file.Close()

		n, err := importTeachers(ctx, teachers.NewService(teachers.NewRepository(db)), file)
		if err != nil {
			return err
		}
		fmt.Printf("Импортировано преподавателей: %d\n", n)
	default:
		flag.Usage()
		return fmt.Errorf("неизвестная команда: %s", args[0])
	}
	return nil
}

// teacherCreator создает преподавателя
type teacherCreator interface {
	Create(ctx context.Context, firstName, lastName string) (*teachers.Teacher, error)
}

// importTeachers читает CSV с колонками first_name,last_name.
// Строка заголовка пропускается, если она есть.
func importTeachers(ctx context.Context, svc teacherCreator, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	imported := 0
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return imported, nil
		}
		if err != nil {
			return imported, fmt.Errorf("ошибка чтения CSV: %w", err)
		}

		if line == 1 && strings.EqualFold(record[0], "first_name") {
			continue
		}

		if _, err := svc.Create(ctx, strings.TrimSpace(record[0]), strings.TrimSpace(record[1])); err != nil {
			return imported, fmt.Errorf("строка %d: %w", line, err)
		}
		imported++
	}
}

func usage() {
	fmt.Println("Использование: migrator [-config FILE] [команда]")
	fmt.Println("Доступные команды:")
	fmt.Println("  up                    - Применить все непримененные миграции")
	fmt.Println("  down                  - Откатить последнюю миграцию")
	fmt.Println("  status                - Показать статус миграций")
	fmt.Println("  import-teachers FILE  - Загрузить преподавателей из CSV (first_name,last_name)")
	fmt.Println("")
	fmt.Println("Примеры:")
	fmt.Println("  migrator up")
	fmt.Println("  migrator status")
	fmt.Println("  migrator import-teachers teachers.csv")
}
