package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/JonMunkholm/smartclean/internal/config"
	"github.com/JonMunkholm/smartclean/internal/logging"
	"github.com/JonMunkholm/smartclean/internal/metrics"
	"github.com/JonMunkholm/smartclean/internal/service"
	"github.com/JonMunkholm/smartclean/internal/session"
	"github.com/JonMunkholm/smartclean/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"session_backend", cfg.Session.Backend,
		"session_ttl", cfg.Session.TTL,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open session store", "backend", cfg.Session.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	limiter := service.NewJobLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	m.RegisterGauge("jobs_active", "Upload and cleaning jobs currently running.", func() float64 {
		return float64(limiter.ActiveCount())
	})

	svc := service.New(store, limiter, m, service.Options{
		MaxFileSize:    cfg.Upload.MaxFileSize,
		PreviewRows:    cfg.Upload.PreviewRows,
		MaxPreviewRows: cfg.Upload.MaxPreviewRows,
		IngestWorkers:  cfg.Upload.IngestWorkers,
	})
	server := web.NewServer(svc, cfg, m)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for running uploads and cleaning jobs
		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for jobs to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("jobs did not complete in time", "error", err)
			} else {
				slog.Info("all jobs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		closeStore()
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStore connects the configured session backend. The returned function
// releases its resources and is safe to call more than once.
func openStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	switch strings.ToLower(cfg.Session.Backend) {
	case config.BackendPostgres:
		return openPostgres(ctx, cfg)

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("connected to redis", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		return session.NewRedisStore(client, cfg.Redis.KeyPrefix, cfg.Session.TTL), func() { _ = client.Close() }, nil

	default:
		store := session.NewMemoryStore(cfg.Session.TTL)
		if err := store.StartJanitor(cfg.Session.SweepSchedule); err != nil {
			return nil, nil, fmt.Errorf("session sweep schedule: %w", err)
		}
		return store, store.Stop, nil
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	store := session.NewPostgresStore(pool, cfg.Session.TTL)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure session schema: %w", err)
	}

	// Expired rows are invisible to Get but stay on disk until swept.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Session.SweepSchedule, func() {
		n, err := store.Sweep(context.Background())
		if err != nil {
			slog.Warn("session sweep failed", "error", err)
			return
		}
		if n > 0 {
			slog.Info("expired sessions removed", "count", n)
		}
	}); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("session sweep schedule: %w", err)
	}
	sweeper.Start()

	var closed bool
	return store, func() {
		if closed {
			return
		}
		closed = true
		<-sweeper.Stop().Done()
		pool.Close()
	}, nil
}
