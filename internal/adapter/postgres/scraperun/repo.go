// Package scraperun implements persistence for scrape run records.
package scraperun

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/bloxpulse/backend/internal/adapter/postgres"
	"github.com/bloxpulse/backend/internal/domain"
)

// Repo provides scrape run persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new scrape run repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const runColumns = `id, status, games_scraped, new_games_found, errors, started_at, completed_at`

// Create persists a new run in PENDING state.
func (r *Repo) Create(ctx context.Context, startedAt time.Time) (domain.ScrapeRun, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, `
		INSERT INTO scrape_runs (id, status, started_at)
		VALUES ($1, $2, $3)
		RETURNING `+runColumns,
		uuid.New(), domain.RunStatusPending, startedAt.UTC().Truncate(time.Microsecond),
	)

	run, err := scanRun(row)
	if err != nil {
		return domain.ScrapeRun{}, postgres.MapError(err, "scrape run", "new")
	}
	return run, nil
}

// MarkRunning transitions a pending run to RUNNING.
func (r *Repo) MarkRunning(ctx context.Context, id uuid.UUID) (domain.ScrapeRun, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, `
		UPDATE scrape_runs
		SET status = $2
		WHERE id = $1 AND status = $3
		RETURNING `+runColumns,
		id, domain.RunStatusRunning, domain.RunStatusPending,
	)

	run, err := scanRun(row)
	if err != nil {
		return domain.ScrapeRun{}, postgres.MapError(err, "scrape run", id.String())
	}
	return run, nil
}

// Complete finalizes a run with its terminal status and counters.
func (r *Repo) Complete(ctx context.Context, id uuid.UUID, status domain.RunStatus,
	gamesScraped, newGamesFound int, errText string, completedAt time.Time) (domain.ScrapeRun, error) {

	if !status.IsTerminal() {
		return domain.ScrapeRun{}, fmt.Errorf("status %q is not terminal: %w", status, domain.ErrValidation)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, `
		UPDATE scrape_runs
		SET status = $2, games_scraped = $3, new_games_found = $4, errors = $5, completed_at = $6
		WHERE id = $1
		RETURNING `+runColumns,
		id, status, gamesScraped, newGamesFound, errText,
		completedAt.UTC().Truncate(time.Microsecond),
	)

	run, err := scanRun(row)
	if err != nil {
		return domain.ScrapeRun{}, postgres.MapError(err, "scrape run", id.String())
	}
	return run, nil
}

// GetByID returns a run by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.ScrapeRun, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, `SELECT `+runColumns+` FROM scrape_runs WHERE id = $1`, id)

	run, err := scanRun(row)
	if err != nil {
		return domain.ScrapeRun{}, postgres.MapError(err, "scrape run", id.String())
	}
	return run, nil
}

// List returns the most recent runs, newest first.
func (r *Repo) List(ctx context.Context, limit int) ([]domain.ScrapeRun, error) {
	if limit <= 0 {
		limit = 20
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, `
		SELECT `+runColumns+`
		FROM scrape_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scrape runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ScrapeRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scrape run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scrape runs: %w", err)
	}

	if runs == nil {
		runs = []domain.ScrapeRun{}
	}
	return runs, nil
}

// Latest returns the most recently started run.
func (r *Repo) Latest(ctx context.Context) (domain.ScrapeRun, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, `
		SELECT `+runColumns+`
		FROM scrape_runs
		ORDER BY started_at DESC
		LIMIT 1`)

	run, err := scanRun(row)
	if err != nil {
		return domain.ScrapeRun{}, postgres.MapError(err, "scrape run", "latest")
	}
	return run, nil
}

func scanRun(row pgx.Row) (domain.ScrapeRun, error) {
	var run domain.ScrapeRun
	err := row.Scan(&run.ID, &run.Status, &run.GamesScraped, &run.NewGamesFound,
		&run.Errors, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		return domain.ScrapeRun{}, err
	}
	return run, nil
}
