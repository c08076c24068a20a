package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/hxzd-portal/internal/adapter/backend"
	"github.com/pscheid92/hxzd-portal/internal/adapter/httpserver"
	"github.com/pscheid92/hxzd-portal/internal/adapter/metrics"
	"github.com/pscheid92/hxzd-portal/internal/adapter/redis"
	"github.com/pscheid92/hxzd-portal/internal/adapter/websocket"
	"github.com/pscheid92/hxzd-portal/internal/app"
	"github.com/pscheid92/hxzd-portal/internal/domain"
	"github.com/pscheid92/hxzd-portal/internal/platform/config"
	"github.com/pscheid92/hxzd-portal/internal/platform/crypto"
	"github.com/pscheid92/hxzd-portal/internal/platform/logging"
	"github.com/pscheid92/hxzd-portal/internal/session"
	goredis "github.com/redis/go-redis/v9"
)

const memorySweepInterval = 5 * time.Minute

func runGracefulShutdown(srv *httpserver.Server, stopBackground context.CancelFunc, hub *websocket.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopBackground()
		hub.Stop()

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) *goredis.Client {
	hook := redis.NewMetricsHook(metrics.NewRedisMetrics(reg))
	client, err := redis.NewClient(ctx, cfg.RedisURL, hook)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupSealer(cfg *config.Config) crypto.Sealer {
	if cfg.TokenEncryptionKey == "" {
		return crypto.NoopSealer{}
	}
	sealer, err := crypto.NewAESGCMSealer(cfg.TokenEncryptionKey)
	if err != nil {
		slog.Error("Failed to create token sealer", "error", err)
		os.Exit(1)
	}
	return sealer
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "backend", cfg.BackendURL)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	registry := metrics.NewRegistry()

	// Without Redis, credentials live in process memory and the settings
	// cache keeps only its in-memory layer.
	var (
		credentials   domain.CredentialRepository
		redisClient   *goredis.Client
		settingsRedis goredis.Cmdable
		healthChecks  []httpserver.HealthCheck
	)
	if cfg.RedisURL != "" {
		redisClient = setupRedis(bgCtx, cfg, registry)
		defer func() { _ = redisClient.Close() }()

		credentials = redis.NewCredentialRepo(redisClient, setupSealer(cfg))
		settingsRedis = redisClient
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	} else {
		slog.Warn("REDIS_URL not set, sessions are kept in memory")
		memory := session.NewMemoryRepository(clock)
		memory.StartSweeper(bgCtx, memorySweepInterval)
		credentials = memory
	}

	gateway := backend.NewGateway(backend.GatewayConfig{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.BackendTimeout,
		Metrics: metrics.NewBackendMetrics(registry),
	})
	client := backend.NewClient(gateway)
	healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "backend", Check: gateway.CheckAvailable})

	sessions := session.NewStore(credentials, session.Options{
		Secret: cfg.SessionSecret,
		Secure: cfg.IsProduction(),
		MaxAge: cfg.SessionMaxAge,
	})

	settings := redis.NewSettingsCacheRepo(settingsRedis, client, cfg.SettingsCacheTTL, clock, metrics.NewCacheMetrics(registry))
	if redisClient != nil {
		go redis.NewSettingsInvalidator(redisClient, settings).Start(bgCtx)
	}

	hub := websocket.NewHub(cfg.MaxWebSocketConnections, metrics.NewWebSocketMetrics(registry))
	poller := app.NewStatusPoller(app.StatusPollerConfig{
		Source:    client,
		Publisher: hub,
		Clock:     clock,
		Interval:  cfg.StatusPollInterval,
		Metrics:   metrics.NewStatusMetrics(registry),
	})
	go poller.Run(bgCtx)

	srv, err := httpserver.NewServer(cfg, httpserver.Deps{
		Backend:          client,
		Sessions:         sessions,
		Status:           poller,
		Settings:         settings,
		Rotation:         app.NewRotation(clock, cfg.RotationInterval),
		WebsocketHandler: websocket.NewHandler(hub, !cfg.IsProduction()),
		MetricsHandler:   metrics.Handler(registry),
		HTTPMetrics:      metrics.NewHTTPMetrics(registry),
		HealthChecks:     healthChecks,
		Clock:            clock,
	})
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, stopBackground, hub)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
