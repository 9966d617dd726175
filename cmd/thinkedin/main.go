package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/pribylovaa/thinkedin/internal/auth"
	"github.com/pribylovaa/thinkedin/internal/cache"
	"github.com/pribylovaa/thinkedin/internal/config"
	thttp "github.com/pribylovaa/thinkedin/internal/http"
	"github.com/pribylovaa/thinkedin/internal/moderation"
	"github.com/pribylovaa/thinkedin/internal/realtime"
	"github.com/pribylovaa/thinkedin/internal/recommend"
	"github.com/pribylovaa/thinkedin/internal/service"
	tmongo "github.com/pribylovaa/thinkedin/internal/storage/mongo"
	tgrpc "github.com/pribylovaa/thinkedin/internal/transport/grpc"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting thinkedin", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	log.Info("service_stopped")
}

// run поднимает зависимости, HTTP и gRPC и блокируется до отмены ctx.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// Шина изменений счётчиков: NATS между инстансами или локальный hub.
	var bus realtime.Bus
	if cfg.NATS.URL != "" {
		nb, err := realtime.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log)
		if err != nil {
			return err
		}
		bus = nb
		log.Info("nats_connected")
	} else {
		bus = realtime.NewHub()
	}
	defer func() { _ = bus.Close() }()

	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := tmongo.New(dbCtx, cfg, bus)
	dbCancel()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()
	log.Info("mongo_connected")

	deps := service.Deps{}

	// Состояние устройств и rate limit: Redis или память процесса.
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis.URL, cfg.Redis.Prefix, cfg.Redis.DeviceTTL)
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()

		deps.Devices = rc
		deps.Limiter = rc
		log.Info("redis_connected")
	}

	validators := moderation.Chain{moderation.NewStatic(moderation.RulesFromConfig(cfg.Moderation), store)}
	if cfg.Moderation.RemoteURL != "" {
		remote := moderation.NewRemote(cfg.Moderation.RemoteURL, cfg.Moderation.RemoteTimeout)
		defer func() { _ = remote.Close() }()
		validators = append(validators, remote)
	}
	deps.Validator = validators

	if cfg.Chatbot.URL != "" {
		llm := recommend.NewLLM(cfg.Chatbot.URL, cfg.Chatbot.APIKey, cfg.Chatbot.Timeout)
		defer func() { _ = llm.Close() }()
		deps.Recommender = llm
		log.Info("chatbot_enabled")
	}

	svc := service.New(store, *cfg, deps)
	log.Info("service_initialized")

	httpSrv := &http.Server{
		Addr: cfg.HTTP.Addr(),
		Handler: thttp.NewRouter(svc, thttp.Options{
			Logger:   log,
			Timeout:  cfg.Timeouts.Service,
			BasePath: cfg.HTTP.BasePath,
			Verifier: auth.NewVerifier(cfg.Auth),
			Ping:     store.Ping,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, hs := tgrpc.NewServer(log, cfg.Timeouts.Service, cfg.Env == envLocal || cfg.Env == envDev)

	lis, err := net.Listen("tcp", cfg.GRPC.Addr())
	if err != nil {
		return err
	}

	healthCtx, healthCancel := context.WithCancel(ctx)
	defer healthCancel()
	go tgrpc.WatchHealth(healthCtx, hs, store, cfg.GRPC.HealthInterval, log)

	serveErrCh := make(chan error, 2)

	go func() {
		log.Info("http_listen_start", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
	}()

	go func() {
		log.Info("grpc_listen_start", slog.String("addr", cfg.GRPC.Addr()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErrCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		log.Error("serve_failed", slog.String("err", serveErr.Error()))
	}

	healthCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc_stopped")
	case <-shutdownCtx.Done():
		log.Warn("grpc_force_stop")
		grpcServer.Stop()
	}

	// Дожидаемся фоновых инкрементов реакций до закрытия Mongo.
	svc.Wait()

	return serveErr
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
