// Package main запускает REST API бронирования занятий и служебный gRPC сервер
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/joho/godotenv"
	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	"github.com/Ultrahd-dev/session-booking/backend/internal/auth"
	"github.com/Ultrahd-dev/session-booking/backend/internal/config"
	"github.com/Ultrahd-dev/session-booking/backend/internal/database"
	bookinggrpc "github.com/Ultrahd-dev/session-booking/backend/internal/grpc"
	"github.com/Ultrahd-dev/session-booking/backend/internal/handlers"
	"github.com/Ultrahd-dev/session-booking/backend/internal/jwt"
	"github.com/Ultrahd-dev/session-booking/backend/internal/logging"
	"github.com/Ultrahd-dev/session-booking/backend/internal/memstore"
	"github.com/Ultrahd-dev/session-booking/backend/internal/sessions"
	"github.com/Ultrahd-dev/session-booking/backend/internal/teachers"
	"github.com/Ultrahd-dev/session-booking/backend/internal/users"
)

// stores хранилища всех сущностей и проверка их доступности
type stores struct {
	users    users.Store
	teachers teachers.Store
	sessions sessions.Store
	pinger   bookinggrpc.Pinger
	close    func() error
}

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "путь к файлу конфигурации (пусто - только окружение)")
	flag.Parse()

	// .env необязателен
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	log := logging.New("booking", cfg.Log.Verbosity)
	if err := run(cfg, log); err != nil {
		log.Error(err, "сервер остановлен с ошибкой")
		os.Exit(1)
	}
	log.Info("сервер остановлен")
}

func run(cfg *config.Config, log logr.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.close()) }()

	// Инициализируем компоненты
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expiration)
	userService := users.NewService(st.users, cfg.Auth.BcryptCost)
	teacherService := teachers.NewService(st.teachers)
	sessionService := sessions.NewService(st.sessions, userService, st.teachers, log)

	api := handlers.New(handlers.Services{
		Auth:       auth.NewService(userService, tokens, log),
		Users:      userService,
		Teachers:   teacherService,
		Sessions:   sessionService,
		Middleware: auth.NewMiddleware(tokens, userService, log),
	}, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var grpcServer *bookinggrpc.Server
	var grpcListener net.Listener
	if cfg.Server.GRPCPort != 0 {
		grpcListener, err = net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			return fmt.Errorf("ошибка создания TCP слушателя: %w", err)
		}
		grpcServer = bookinggrpc.NewServer(log)
	}

	var wg conc.WaitGroup
	errs := make(chan error, 2)
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()

	wg.Go(func() {
		log.Info("HTTP сервер запущен", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("ошибка HTTP сервера: %w", err)
		}
	})

	if grpcServer != nil {
		wg.Go(func() {
			if err := grpcServer.Serve(grpcListener); err != nil {
				errs <- err
			}
		})
		wg.Go(func() { grpcServer.Watch(watchCtx, st.pinger, cfg.Health.Interval) })
	}

	// Ожидаем сигнала завершения или падения одного из серверов
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("получен сигнал завершения, останавливаем сервер")
	case serveErr = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	cancelWatch()
	shutdownErr := httpServer.Shutdown(shutdownCtx)
	if grpcServer != nil {
		grpcServer.Stop()
	}
	wg.Wait()

	return multierr.Combine(serveErr, shutdownErr)
}

// openStores выбирает хранилище по database.driver
func openStores(ctx context.Context, cfg *config.Config, log logr.Logger) (*stores, error) {
	if cfg.Database.InMemory() {
		log.Info("данные хранятся в памяти процесса")
		mem := memstore.New()
		return &stores{users: mem, teachers: mem, sessions: mem, pinger: mem, close: func() error { return nil }}, nil
	}

	db, err := database.Open(ctx, database.Options{
		Driver:         cfg.Database.Driver,
		DSN:            cfg.Database.GetDSN(),
		MaxOpenConns:   cfg.Database.MaxOpenConns,
		ConnectRetries: cfg.Database.ConnectRetries,
	}, log.WithName("database"))
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := migrate(ctx, db, log); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &stores{
		users:    users.NewRepository(db),
		teachers: teachers.NewRepository(db),
		sessions: sessions.NewRepository(db),
		pinger:   db,
		close:    db.Close,
	}, nil
}

func migrate(ctx context.Context, db *sql.DB, log logr.Logger) error {
	m, err := database.NewMigrator(db, log)
	if err != nil {
		return err
	}
	return m.Up(ctx)
}
