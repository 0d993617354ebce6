package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hiroki-koketsu/taskboard/internal/auth"
	"github.com/hiroki-koketsu/taskboard/internal/config"
	"github.com/hiroki-koketsu/taskboard/internal/handler"
	"github.com/hiroki-koketsu/taskboard/internal/repository"
	"github.com/hiroki-koketsu/taskboard/internal/service"
	"github.com/hiroki-koketsu/taskboard/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

func main() {
	// Create a basic logger for startup (before OTel is initialized)
	startupLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		startupLogger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	startupLogger.Info("starting application",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store", cfg.Store.Driver),
	)

	ctx := context.Background()
	logger := startupLogger

	if cfg.TelemetryEnabled {
		tp, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			startupLogger.Error("failed to initialize tracer provider", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				startupLogger.Error("failed to shutdown tracer provider", slog.Any("error", err))
			}
		}()

		mp, err := telemetry.InitMeterProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			startupLogger.Error("failed to initialize meter provider", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := mp.Shutdown(ctx); err != nil {
				startupLogger.Error("failed to shutdown meter provider", slog.Any("error", err))
			}
		}()

		// Logger provider last so log records correlate with traces
		lp, otelLogger, err := telemetry.InitLoggerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			startupLogger.Error("failed to initialize logger provider", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := lp.Shutdown(ctx); err != nil {
				startupLogger.Error("failed to shutdown logger provider", slog.Any("error", err))
			}
		}()
		logger = otelLogger
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open task store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	verifier, err := newVerifier(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize token verifier", slog.Any("error", err))
		os.Exit(1)
	}
	defer verifier.Close()

	taskService := service.NewTaskService(store)

	meter := otel.Meter(cfg.ServiceName)
	metrics, err := telemetry.NewMetrics(meter, taskService.Count)
	if err != nil {
		logger.Error("failed to create metrics", slog.Any("error", err))
		os.Exit(1)
	}

	taskHandler := handler.NewTaskHandler(taskService, logger, metrics)
	r := handler.NewRouter(taskHandler, verifier, logger)

	// Wrap router with OpenTelemetry HTTP instrumentation
	otelHandler := otelhttp.NewHandler(r, "http-server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			// Skip tracing for health checks
			return r.URL.Path != "/health"
		}),
	)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      otelHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}

	logger.Info("server stopped")
}

// openStore builds the configured store, wrapped in the Redis cache when
// REDIS_ADDR is set. The returned func releases its connections.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	var (
		store   repository.Store
		closers []func()
	)

	switch cfg.Store.Driver {
	case config.StoreMongo:
		ms, err := repository.NewMongoStore(ctx, repository.MongoConfig{
			URI:        cfg.Store.MongoURI,
			Database:   cfg.Store.MongoDatabase,
			Collection: cfg.Store.MongoCollection,
			Timeout:    cfg.Store.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		store = ms
		closers = append(closers, func() { _ = ms.Close(context.Background()) })
	default:
		store = repository.NewMemoryStore()
	}

	if cfg.Cache.Addr != "" {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		store = repository.NewCachedStore(store, rc, cfg.Cache.TTL)
		closers = append(closers, func() { _ = rc.Close() })
	}

	return store, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

func newVerifier(cfg *config.Config, logger *slog.Logger) (*auth.Verifier, error) {
	if cfg.Auth.JWKSURL != "" {
		return auth.NewJWKSVerifier(cfg.Auth.JWKSURL, cfg.Auth.Audience, cfg.Auth.Issuer, logger)
	}
	return auth.NewHMACVerifier(cfg.Auth.JWTSecret, cfg.Auth.Audience, cfg.Auth.Issuer), nil
}
