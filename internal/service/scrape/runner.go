package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/bloxpulse/backend/internal/config"
	"github.com/bloxpulse/backend/internal/domain"
)

// maxRecordedErrors caps the number of per-game messages aggregated into
// a run's error text; the total failure count is always recorded.
const maxRecordedErrors = 20

// TxManager runs a function inside a database transaction.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Runner executes one scrape cycle: list trending games, upsert each into
// the catalogue and append one snapshot per game. Exactly one ScrapeRun
// row is written per cycle.
type Runner struct {
	log       *slog.Logger
	source    Source
	games     GameRepo
	snapshots SnapshotRepo
	runs      RunRepo
	txm       TxManager
	clock     clockwork.Clock

	limiter *rate.Limiter
	// maxConsecutiveFailures escalates the cycle to failed once reached;
	// 0 disables escalation.
	maxConsecutiveFailures int
}

// NewRunner creates a Runner. The request delay between games comes from
// the scraper config; a zero delay disables the limiter.
func NewRunner(log *slog.Logger, source Source, games GameRepo, snapshots SnapshotRepo,
	runs RunRepo, txm TxManager, cfg config.ScraperConfig, clock clockwork.Clock) *Runner {

	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestDelay > 0 {
		lim = rate.NewLimiter(rate.Every(cfg.RequestDelay), 1)
	}

	return &Runner{
		log:                    log.With("service", "scrape.runner"),
		source:                 source,
		games:                  games,
		snapshots:              snapshots,
		runs:                   runs,
		txm:                    txm,
		clock:                  clock,
		limiter:                lim,
		maxConsecutiveFailures: cfg.MaxConsecutiveFailures,
	}
}

// RunCycle performs one full cycle and returns the completed run record.
// Listing failure marks the run failed; per-game failures are aggregated
// and never abort the cycle; ctx cancellation is honored between games
// and marks the run cancelled. The returned error reports persistence
// problems only.
func (r *Runner) RunCycle(ctx context.Context) (domain.ScrapeRun, error) {
	startedAt := r.clock.Now().UTC()

	run, err := r.runs.Create(ctx, startedAt)
	if err != nil {
		return domain.ScrapeRun{}, fmt.Errorf("create run: %w", err)
	}
	if run, err = r.runs.MarkRunning(ctx, run.ID); err != nil {
		return domain.ScrapeRun{}, fmt.Errorf("mark run running: %w", err)
	}

	r.log.InfoContext(ctx, "scrape cycle started", slog.String("run_id", run.ID.String()))

	// The run record must reach a terminal state even when ctx is
	// cancelled mid-cycle.
	finishCtx := context.WithoutCancel(ctx)

	listing, err := r.source.ListTrending(ctx)
	if err != nil {
		r.log.ErrorContext(ctx, "listing failed, cycle aborted",
			slog.String("run_id", run.ID.String()),
			slog.String("error", err.Error()),
		)
		status := domain.RunStatusFailed
		if ctx.Err() != nil {
			status = domain.RunStatusCancelled
		}
		return r.runs.Complete(finishCtx, run.ID, status, 0, 0, err.Error(), r.clock.Now().UTC())
	}

	// Every snapshot of the cycle shares the run's start instant, so one
	// cycle forms a single point on every game's timeline.
	capturedAt := startedAt

	var (
		scraped     int
		newGames    int
		failures    []string
		failCount   int
		consecutive int
		cancelled   bool
		escalated   bool
	)

	for _, sg := range listing {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if err := r.limiter.Wait(ctx); err != nil {
			cancelled = true
			break
		}

		if err := r.ingestGame(ctx, sg, capturedAt, &newGames); err != nil {
			failCount++
			consecutive++
			if len(failures) < maxRecordedErrors {
				failures = append(failures, fmt.Sprintf("game %s: %v", sg.RobloxID, err))
			}
			r.log.WarnContext(ctx, "game ingest failed",
				slog.String("roblox_id", sg.RobloxID),
				slog.String("error", err.Error()),
			)
			if r.maxConsecutiveFailures > 0 && consecutive >= r.maxConsecutiveFailures {
				escalated = true
				failures = append(failures, fmt.Sprintf(
					"aborted after %d consecutive failures", consecutive))
				break
			}
			continue
		}

		consecutive = 0
		scraped++
	}

	status := domain.RunStatusSuccess
	switch {
	case cancelled:
		status = domain.RunStatusCancelled
	case escalated:
		status = domain.RunStatusFailed
	}

	errText := strings.Join(failures, "; ")
	if failCount > len(failures) {
		errText = fmt.Sprintf("%s; (%d failures total)", errText, failCount)
	}

	completed, err := r.runs.Complete(finishCtx, run.ID, status, scraped, newGames, errText, r.clock.Now().UTC())
	if err != nil {
		return domain.ScrapeRun{}, fmt.Errorf("complete run: %w", err)
	}

	r.log.InfoContext(ctx, "scrape cycle finished",
		slog.String("run_id", completed.ID.String()),
		slog.String("status", completed.Status.String()),
		slog.Int("games_scraped", completed.GamesScraped),
		slog.Int("new_games", completed.NewGamesFound),
		slog.Int("failures", failCount),
		slog.Duration("duration", completed.Duration()),
	)

	return completed, nil
}

// ingestGame upserts one listing entry and appends its snapshot. Both
// writes commit in one transaction so a game never gains a catalogue row
// without its first snapshot.
func (r *Runner) ingestGame(ctx context.Context, sg domain.ScrapedGame, capturedAt time.Time, newGames *int) error {
	var created bool
	err := r.txm.RunInTx(ctx, func(ctx context.Context) error {
		game, c, err := r.games.Upsert(ctx, sg.GameUpsert, capturedAt)
		if err != nil {
			return fmt.Errorf("upsert: %w", err)
		}
		created = c

		if _, err := r.snapshots.Create(ctx, sg.Counters(game.ID, capturedAt)); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if created {
		*newGames++
	}
	return nil
}
