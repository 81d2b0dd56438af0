package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ctkuo2438/NUboard/internal/config"
	"github.com/ctkuo2438/NUboard/internal/database"
	"github.com/ctkuo2438/NUboard/internal/handler"
	"github.com/ctkuo2438/NUboard/internal/logger"
	"github.com/ctkuo2438/NUboard/internal/middleware"
	"github.com/ctkuo2438/NUboard/internal/repository"
	"github.com/ctkuo2438/NUboard/internal/router"
	"github.com/ctkuo2438/NUboard/internal/service"
	"github.com/ctkuo2438/NUboard/internal/validator"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting NUboard authorization service")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Apply Migrations ──────────────────────────────────────────────
	if cfg.AutoMigrate {
		if err := database.RunMigrations(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Str("path", cfg.MigrationsPath).Msg("Migrations applied")
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Store ──────────────────────────────────────────────
	store := repository.NewStore(pool)
	uow := service.NewUnitOfWork(store)

	// ─── Seed Authorization Catalog ────────────────────────────────────
	// Runs before accepting traffic so every request sees USER and ADMIN.
	seeder := service.NewCatalogSeeder(uow, log)
	if _, err := seeder.EnsureCatalog(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed authorization catalog")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	accessService := service.NewAccessService(uow, rdb, cfg.AccessCacheTTL, log)
	activityPublisher := service.NewActivityPublisher(rdb, log)
	rolePermissionService := service.NewRolePermissionService(uow, accessService, activityPublisher, log)
	assignmentService := service.NewAssignmentService(uow, accessService, activityPublisher, log)
	accountService := service.NewAccountService(uow, accessService, activityPublisher, log)
	reportService := service.NewReportService(uow, store.Registrations, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Authorization: handler.NewAuthorizationHandler(
			rolePermissionService,
			assignmentService,
			accountService,
			reportService,
			cfg.ActivityWindowDays,
			cfg.ActivityLimit,
		),
		Activity: handler.NewActivityWSHandler(activityPublisher, log, cfg.AllowedOrigins),
		System: handler.NewSystemHandler(map[string]handler.HealthCheck{
			"postgres": pool.Ping,
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		}, log),
	}

	guards := router.Guards{
		Tokens: authService,
		Access: accessService,
	}
	if cfg.AdminRateLimitPerMin > 0 {
		guards.Limiter = middleware.NewRateLimiter(ctx, cfg.AdminRateLimitPerMin, time.Minute)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(guards, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the rate limiter sweeper and close activity subscriptions.
	cancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
