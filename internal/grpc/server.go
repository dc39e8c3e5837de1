// Package grpc реализует служебный gRPC сервер: проверку здоровья и reflection
package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-logr/logr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName имя сервиса бронирования в протоколе health
const ServiceName = "booking.v1.SessionBooking"

// Pinger проверяет доступность хранилища
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server gRPC сервер со статусом готовности, зависящим от базы данных
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	log    logr.Logger
}

// NewServer создает gRPC сервер. До первой проверки статус NOT_SERVING.
func NewServer(log logr.Logger) *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		log:    log.WithName("grpc"),
	}

	healthpb.RegisterHealthServer(s.grpc, s.health)
	// Включаем Reflection API для grpcurl и других инструментов
	reflection.Register(s.grpc)

	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Check однократно проверяет хранилище и обновляет статус
func (s *Server) Check(ctx context.Context, pinger Pinger) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pinger.PingContext(ctx); err != nil {
		s.log.Info("хранилище недоступно", "error", err.Error())
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

// Watch проверяет хранилище с интервалом до отмены ctx
func (s *Server) Watch(ctx context.Context, pinger Pinger, interval time.Duration) {
	s.Check(ctx, pinger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx, pinger)
		}
	}
}

// Serve обслуживает соединения lis до вызова Stop
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("запуск gRPC сервера", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("ошибка запуска gRPC сервера: %w", err)
	}
	return nil
}

// Stop переводит статус в NOT_SERVING и дожидается завершения вызовов
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
