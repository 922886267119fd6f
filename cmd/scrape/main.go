// Command scrape runs one scrape cycle and exits. It is intended for
// cron-style operation and for backfilling without the long-running
// scheduler.
//
// Flags:
//
//	--timeout  hard deadline for the cycle (default 10m)
//
// Exit codes: 0 = cycle completed successfully, 1 = error or failed run.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bloxpulse/backend/internal/adapter/postgres"
	gamerepo "github.com/bloxpulse/backend/internal/adapter/postgres/game"
	snapshotrepo "github.com/bloxpulse/backend/internal/adapter/postgres/snapshot"
	scraperunrepo "github.com/bloxpulse/backend/internal/adapter/postgres/scraperun"
	"github.com/bloxpulse/backend/internal/adapter/roblox"
	"github.com/bloxpulse/backend/internal/app"
	"github.com/bloxpulse/backend/internal/config"
	"github.com/bloxpulse/backend/internal/domain"
	"github.com/bloxpulse/backend/internal/service/scrape"
)

func main() {
	timeoutFlag := flag.Duration("timeout", 10*time.Minute, "hard deadline for the cycle")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	source := roblox.New(cfg.Scraper, logger)
	runner := scrape.NewRunner(logger,
		source,
		gamerepo.New(pool),
		snapshotrepo.New(pool),
		scraperunrepo.New(pool),
		postgres.NewTxManager(pool),
		cfg.Scraper,
		clockwork.NewRealClock(),
	)

	run, err := runner.RunCycle(ctx)
	if err != nil {
		logger.Error("cycle failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("cycle completed",
		slog.String("run_id", run.ID.String()),
		slog.String("status", string(run.Status)),
		slog.Int("games_scraped", run.GamesScraped),
		slog.Int("new_games_found", run.NewGamesFound),
	)
	if run.Status != domain.RunStatusSuccess {
		os.Exit(1)
	}
}
