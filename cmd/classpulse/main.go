package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/nats-io/nats.go"

	"github.com/classpulse-systems/classpulse/internal/config"
	"github.com/classpulse-systems/classpulse/internal/handlers"
	"github.com/classpulse-systems/classpulse/internal/hub"
	"github.com/classpulse-systems/classpulse/internal/logging"
	"github.com/classpulse-systems/classpulse/internal/middleware"
	"github.com/classpulse-systems/classpulse/internal/notify"
	"github.com/classpulse-systems/classpulse/internal/ratelimit"
	"github.com/classpulse-systems/classpulse/internal/repository"
	"github.com/classpulse-systems/classpulse/internal/scheduler"
	"github.com/classpulse-systems/classpulse/internal/server"
	"github.com/classpulse-systems/classpulse/internal/service"
	"github.com/classpulse-systems/classpulse/pkg/tokens"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("classpulse"))
	logging.SetDefault(logger)

	slog.Info("Starting ClassPulse service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Repository
	var repo repository.Repository
	if cfg.Database.Type == "postgres" {
		connString := cfg.Database.Postgres.ConnString()

		slog.Info("Connecting to PostgreSQL",
			slog.String("host", cfg.Database.Postgres.Host),
			slog.String("database", cfg.Database.Postgres.Database),
		)

		pgRepo, err := repository.NewPostgresRepository(context.Background(), connString)
		if err != nil {
			slog.Error("Failed to connect to PostgreSQL", logging.Error(err))
			os.Exit(1)
		}
		defer pgRepo.Close()
		repo = pgRepo

		if err := runMigrations(connString); err != nil {
			slog.Error("Failed to run migrations", logging.Error(err))
			os.Exit(1)
		}
	} else {
		slog.Warn("Using in-memory repository (development only)")
		repo = repository.NewInMemoryRepository()
	}

	// Login throttle
	throttle, err := ratelimit.NewRedisLimiter(
		cfg.Throttle.URL, cfg.Throttle.Limit, cfg.Throttle.Window, !cfg.Throttle.Enabled,
	)
	if err != nil {
		slog.Error("Failed to initialize login throttle", logging.Error(err))
		os.Exit(1)
	}
	defer throttle.Close()

	// Token issuance and auth service
	tokenGen := tokens.NewTokenGenerator(
		cfg.Auth.JWTSecret,
		cfg.Auth.Issuer,
		cfg.Auth.Audience,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenBytes,
	)
	authService := service.NewAuthService(repo, tokenGen, throttle, cfg.Auth.RefreshTokenTTL)

	// Push hub and notification dispatcher
	pushHub := hub.New()
	dispatcher := notify.NewDispatcher(pushHub, repo)

	// Domain event bridge
	if cfg.NATS.Enabled {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name(cfg.NATS.Name),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			slog.Error("Failed to connect to NATS", logging.Error(err))
			os.Exit(1)
		}
		defer nc.Drain()

		subscriber := notify.NewSubscriber(nc, dispatcher)
		if err := subscriber.Start(); err != nil {
			slog.Error("Failed to subscribe to domain events", logging.Error(err))
			os.Exit(1)
		}
		defer subscriber.Stop()
	} else {
		slog.Warn("NATS disabled, domain event notifications are off")
	}

	// Token sweeper
	sweeper := scheduler.NewSweeper(authService, cfg.Sweep.Interval)
	go sweeper.Start(context.Background())
	defer sweeper.Stop()

	// HTTP surface
	authHandler := handlers.NewAuthHandler(authService)
	wsHandler := handlers.NewWSHandler(pushHub, tokenGen, cfg.Server.AllowedOrigins)
	authMiddleware := middleware.NewAuthMiddleware(tokenGen)

	router := server.NewRouter(authHandler, wsHandler, authMiddleware, middleware.CORSConfig{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("ClassPulse listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", logging.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Forced shutdown", logging.Error(err))
		os.Exit(1)
	}

	slog.Info("Server stopped")
}

func runMigrations(connString string) error {
	slog.Info("Running database migrations")

	m, err := migrate.New("file://migrations", connString)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		slog.Warn("Could not get migration version", logging.Error(err))
		return nil
	}

	slog.Info("Database migration complete",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}
