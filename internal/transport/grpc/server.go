// Package grpc — служебный gRPC-сервер thinkedin: стандартный grpc.health.v1 (+ reflection в local/dev).
//
// Статус health отражает доступность хранилища:
//
//	Ping == nil -> SERVING
//	Ping != nil -> NOT_SERVING
package grpc

import (
	"context"
	"log/slog"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/pribylovaa/thinkedin/internal/interceptors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName — имя сервиса в health-ответах (помимо общего "").
const ServiceName = "thinkedin"

// Pinger — проверка живости хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewServer собирает grpc.Server с интерсепторами (recover, логирование, таймаут, prometheus)
// и регистрирует health (и reflection, если withReflection). Статус NOT_SERVING до первой проверки.
func NewServer(log *slog.Logger, timeout time.Duration, withReflection bool) (*grpc.Server, *health.Server) {
	grpc_prometheus.EnableHandlingTimeHistogram()

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(log),
			interceptors.UnaryLoggingInterceptor(log),
			interceptors.WithTimeout(timeout),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamRecover(log),
			interceptors.StreamLoggingInterceptor(log),
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	healthpb.RegisterHealthServer(srv, hs)
	if withReflection {
		reflection.Register(srv)
	}
	grpc_prometheus.Register(srv)

	return srv, hs
}

// WatchHealth периодически пингует хранилище и обновляет статус до отмены ctx.
// При выходе выставляет NOT_SERVING, чтобы балансировщик снял инстанс заранее.
func WatchHealth(ctx context.Context, hs *health.Server, p Pinger, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	check := func() {
		pctx, cancel := context.WithTimeout(ctx, interval/2)
		defer cancel()

		st := healthpb.HealthCheckResponse_SERVING
		if err := p.Ping(pctx); err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			log.Warn("health_ping_failed", "err", err)
		}

		hs.SetServingStatus("", st)
		hs.SetServingStatus(ServiceName, st)
	}

	check()

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-t.C:
			check()
		}
	}
}
