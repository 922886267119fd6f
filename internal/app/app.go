// Package app wires configuration, storage, services and transport into
// a runnable process.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jonboulle/clockwork"
	"github.com/pressly/goose/v3"

	"github.com/bloxpulse/backend/internal/adapter/postgres"
	gamerepo "github.com/bloxpulse/backend/internal/adapter/postgres/game"
	snapshotrepo "github.com/bloxpulse/backend/internal/adapter/postgres/snapshot"
	scraperunrepo "github.com/bloxpulse/backend/internal/adapter/postgres/scraperun"
	"github.com/bloxpulse/backend/internal/adapter/roblox"
	"github.com/bloxpulse/backend/internal/config"
	"github.com/bloxpulse/backend/internal/service/analytics"
	"github.com/bloxpulse/backend/internal/service/catalog"
	"github.com/bloxpulse/backend/internal/service/scrape"
	"github.com/bloxpulse/backend/internal/transport/middleware"
	"github.com/bloxpulse/backend/internal/transport/rest"
)

// Run is the application entry point. It loads configuration, connects
// to the database, wires the services and serves HTTP until the context
// is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	if cfg.Database.AutoMigrate {
		if err := runMigrations(ctx, cfg.Database); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied", slog.String("dir", cfg.Database.MigrationsDir))
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	gameRepo := gamerepo.New(pool)
	snapshotRepo := snapshotrepo.New(pool)
	runRepo := scraperunrepo.New(pool)
	txm := postgres.NewTxManager(pool)

	source := roblox.New(cfg.Scraper, logger)
	clock := clockwork.NewRealClock()

	runner := scrape.NewRunner(logger, source, gameRepo, snapshotRepo, runRepo, txm, cfg.Scraper, clock)
	scheduler := scrape.NewScheduler(logger, runner, clock)
	scrapeSvc := scrape.NewService(scheduler, runRepo, cfg.Scraper.Interval)
	catalogSvc := catalog.NewService(logger, gameRepo, snapshotRepo)
	analyticsSvc := analytics.NewService(logger, gameRepo, snapshotRepo, runRepo, source, clock)

	mux := rest.NewRouter(
		rest.NewScrapingHandler(scrapeSvc, logger),
		rest.NewGamesHandler(catalogSvc, logger),
		rest.NewAnalyticsHandler(analyticsSvc, cfg.Analytics, logger),
		rest.NewHealthHandler(pool, BuildVersion()),
	)

	rateLimiter := middleware.NewRateLimiter(time.Minute)
	defer rateLimiter.Stop()

	handler := middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS),
		rateLimiter.Limit(cfg.Server.RateLimitPerMin),
		middleware.Logger(logger),
	)(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.String("error", err.Error()))
	}
	if err := scheduler.Shutdown(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown", slog.String("error", err.Error()))
	}

	logger.Info("application stopped")
	return nil
}

// runMigrations applies pending goose migrations. goose requires a
// *sql.DB, so this opens a short-lived stdlib connection.
func runMigrations(ctx context.Context, cfg config.DatabaseConfig) error {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(cfg.MigrationsDir))
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
