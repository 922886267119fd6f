// Package game implements the game catalogue repository using PostgreSQL.
// The upsert is the write path of every scrape cycle; listing queries are
// built dynamically with squirrel.
package game

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

// Repo provides game persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new game repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const gameColumns = `id, roblox_id, name, description, creator_id, creator_name, genre,
       roblox_created, roblox_updated, first_seen_at, updated_at`

const upsertSQL = `
INSERT INTO games (id, roblox_id, name, description, creator_id, creator_name, genre,
                   roblox_created, roblox_updated, first_seen_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
ON CONFLICT (roblox_id) DO UPDATE SET
    name           = EXCLUDED.name,
    description    = EXCLUDED.description,
    creator_id     = EXCLUDED.creator_id,
    creator_name   = EXCLUDED.creator_name,
    genre          = EXCLUDED.genre,
    roblox_created = EXCLUDED.roblox_created,
    roblox_updated = EXCLUDED.roblox_updated,
    updated_at     = EXCLUDED.updated_at
RETURNING ` + gameColumns + `, (xmax = 0) AS inserted`

// Upsert creates the game on first sight of its roblox_id, or overwrites
// the mutable display fields on a known one. first_seen_at is written once
// and never updated. The returned bool is true when a new row was created.
// Re-ingesting identical data is idempotent: one row, created=false.
func (r *Repo) Upsert(ctx context.Context, in domain.GameUpsert, now time.Time) (domain.Game, bool, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, upsertSQL,
		uuid.New(), in.RobloxID, in.Name, in.Description, in.CreatorID, in.CreatorName,
		in.Genre, in.RobloxCreated, in.RobloxUpdated, now.UTC().Truncate(time.Microsecond),
	)

	var (
		g        domain.Game
		inserted bool
	)
	if err := row.Scan(&g.ID, &g.RobloxID, &g.Name, &g.Description, &g.CreatorID,
		&g.CreatorName, &g.Genre, &g.RobloxCreated, &g.RobloxUpdated,
		&g.FirstSeenAt, &g.UpdatedAt, &inserted); err != nil {
		return domain.Game{}, false, postgres.MapError(err, "game", in.RobloxID)
	}

	return g, inserted, nil
}

// GetByID returns a game by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Game, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)

	g, err := scanGame(row)
	if err != nil {
		return domain.Game{}, postgres.MapError(err, "game", id.String())
	}
	return g, nil
}

// GetByRobloxID returns a game by its external identifier.
func (r *Repo) GetByRobloxID(ctx context.Context, robloxID string) (domain.Game, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE roblox_id = $1`, robloxID)

	g, err := scanGame(row)
	if err != nil {
		return domain.Game{}, postgres.MapError(err, "game", robloxID)
	}
	return g, nil
}

// GetAll returns every game in the catalogue, name ascending.
// Used by the analytics batch surfaces; the catalogue is bounded by the
// trending listing size, so no pagination is needed here.
func (r *Repo) GetAll(ctx context.Context) ([]domain.Game, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, `SELECT `+gameColumns+` FROM games ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("get all games: %w", err)
	}
	defer rows.Close()

	games, err := scanGames(rows)
	if err != nil {
		return nil, fmt.Errorf("get all games: %w", err)
	}
	return games, nil
}

// List returns games matching the filter, each joined with its latest
// snapshot (nil when the game has no snapshots yet).
func (r *Repo) List(ctx context.Context, filter domain.GameFilter) ([]domain.GameWithSnapshot, error) {
	sql, args, err := buildListQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var result []domain.GameWithSnapshot
	for rows.Next() {
		var (
			gws  domain.GameWithSnapshot
			seq  *int64
			vis  *int64
			fav  *int64
			lik  *int64
			dis  *int64
			act  *int64
			capt *time.Time
		)
		if err := rows.Scan(&gws.ID, &gws.RobloxID, &gws.Name, &gws.Description,
			&gws.CreatorID, &gws.CreatorName, &gws.Genre, &gws.RobloxCreated,
			&gws.RobloxUpdated, &gws.FirstSeenAt, &gws.UpdatedAt,
			&seq, &vis, &fav, &lik, &dis, &act, &capt); err != nil {
			return nil, fmt.Errorf("scan game with snapshot: %w", err)
		}
		if seq != nil {
			gws.Latest = &domain.Snapshot{
				Seq:           *seq,
				GameID:        gws.ID,
				Visits:        *vis,
				Favorites:     *fav,
				Likes:         *lik,
				Dislikes:      *dis,
				ActivePlayers: *act,
				CapturedAt:    *capt,
			}
		}
		result = append(result, gws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}

	if result == nil {
		result = []domain.GameWithSnapshot{}
	}
	return result, nil
}

// Count returns the total number of games in the catalogue.
func (r *Repo) Count(ctx context.Context) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := querier.QueryRow(ctx, `SELECT count(*) FROM games`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return count, nil
}

// CountNewSince returns how many games were first seen at or after t.
func (r *Repo) CountNewSince(ctx context.Context, t time.Time) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := querier.QueryRow(ctx,
		`SELECT count(*) FROM games WHERE first_seen_at >= $1`, t).Scan(&count); err != nil {
		return 0, fmt.Errorf("count new games: %w", err)
	}
	return count, nil
}

// ---------------------------------------------------------------------------
// Row scanning helpers
// ---------------------------------------------------------------------------

func scanGame(row pgx.Row) (domain.Game, error) {
	var g domain.Game
	err := row.Scan(&g.ID, &g.RobloxID, &g.Name, &g.Description, &g.CreatorID,
		&g.CreatorName, &g.Genre, &g.RobloxCreated, &g.RobloxUpdated,
		&g.FirstSeenAt, &g.UpdatedAt)
	if err != nil {
		return domain.Game{}, err
	}
	return g, nil
}

func scanGames(rows pgx.Rows) ([]domain.Game, error) {
	var games []domain.Game
	for rows.Next() {
		var g domain.Game
		if err := rows.Scan(&g.ID, &g.RobloxID, &g.Name, &g.Description, &g.CreatorID,
			&g.CreatorName, &g.Genre, &g.RobloxCreated, &g.RobloxUpdated,
			&g.FirstSeenAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if games == nil {
		games = []domain.Game{}
	}
	return games, nil
}
