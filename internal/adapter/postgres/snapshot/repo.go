// Package snapshot implements the append-only counter history repository.
// Snapshot rows are only ever inserted; history queries order by
// (captured_at, id) so same-instant captures keep insertion order.
package snapshot

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/bloxpulse/backend/internal/adapter/postgres"
	"github.com/bloxpulse/backend/internal/domain"
)

// Repo provides snapshot persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new snapshot repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const snapshotColumns = `id, game_id, visits, favorites, likes, dislikes, active_players, captured_at`

// Create appends a snapshot for a game. The returned snapshot carries the
// assigned insertion sequence.
func (r *Repo) Create(ctx context.Context, s domain.Snapshot) (domain.Snapshot, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, `
		INSERT INTO game_snapshots (game_id, visits, favorites, likes, dislikes, active_players, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+snapshotColumns,
		s.GameID, s.Visits, s.Favorites, s.Likes, s.Dislikes, s.ActivePlayers,
		s.CapturedAt.UTC().Truncate(time.Microsecond),
	)

	created, err := scanSnapshot(row)
	if err != nil {
		return domain.Snapshot{}, postgres.MapError(err, "snapshot", s.GameID.String())
	}
	return created, nil
}

// Latest returns the most recent snapshot of a game.
func (r *Repo) Latest(ctx context.Context, gameID uuid.UUID) (domain.Snapshot, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, `
		SELECT `+snapshotColumns+`
		FROM game_snapshots
		WHERE game_id = $1
		ORDER BY captured_at DESC, id DESC
		LIMIT 1`, gameID)

	s, err := scanSnapshot(row)
	if err != nil {
		return domain.Snapshot{}, postgres.MapError(err, "snapshot", gameID.String())
	}
	return s, nil
}

// NearestAtOrBefore returns the latest snapshot captured at or before t.
// Returns domain.ErrNotFound when the game has no snapshot that early.
func (r *Repo) NearestAtOrBefore(ctx context.Context, gameID uuid.UUID, t time.Time) (domain.Snapshot, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, `
		SELECT `+snapshotColumns+`
		FROM game_snapshots
		WHERE game_id = $1 AND captured_at <= $2
		ORDER BY captured_at DESC, id DESC
		LIMIT 1`, gameID, t)

	s, err := scanSnapshot(row)
	if err != nil {
		return domain.Snapshot{}, postgres.MapError(err, "snapshot", gameID.String())
	}
	return s, nil
}

// ListByGame returns a game's history, newest capture first. A
// non-positive limit means no limit.
func (r *Repo) ListByGame(ctx context.Context, gameID uuid.UUID, limit int) ([]domain.Snapshot, error) {
	b := sq.Select("id", "game_id", "visits", "favorites", "likes", "dislikes", "active_players", "captured_at").
		From("game_snapshots").
		Where(sq.Eq{"game_id": gameID}).
		OrderBy("captured_at DESC, id DESC").
		PlaceholderFormat(sq.Dollar)

	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	if snaps == nil {
		snaps = []domain.Snapshot{}
	}
	return snaps, nil
}

// WindowedAverage returns the mean of one counter over snapshots captured
// in [from, to). Returns nil when the window holds no snapshots.
func (r *Repo) WindowedAverage(ctx context.Context, gameID uuid.UUID, counter domain.Counter, from, to time.Time) (*float64, error) {
	if !counter.IsValid() {
		return nil, fmt.Errorf("counter %q: %w", counter, domain.ErrValidation)
	}

	// Counter names come from the domain whitelist above, never from
	// raw input, so interpolating the column is safe.
	sql, args, err := sq.Select(fmt.Sprintf("AVG(%s)", counter)).
		From("game_snapshots").
		Where(sq.Eq{"game_id": gameID}).
		Where(sq.GtOrEq{"captured_at": from}).
		Where(sq.Lt{"captured_at": to}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build average query: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var avg *float64
	if err := querier.QueryRow(ctx, sql, args...).Scan(&avg); err != nil {
		return nil, fmt.Errorf("windowed average: %w", err)
	}
	return avg, nil
}

// TotalVisitsLatest sums the visits counter across every game's latest
// snapshot. Games without snapshots contribute nothing.
func (r *Repo) TotalVisitsLatest(ctx context.Context) (int64, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var total int64
	err := querier.QueryRow(ctx, `
		SELECT COALESCE(SUM(ls.visits), 0)
		FROM games g
		JOIN LATERAL (
			SELECT s.visits
			FROM game_snapshots s
			WHERE s.game_id = g.id
			ORDER BY s.captured_at DESC, s.id DESC
			LIMIT 1
		) ls ON true`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total visits: %w", err)
	}
	return total, nil
}

func scanSnapshot(row pgx.Row) (domain.Snapshot, error) {
	var s domain.Snapshot
	err := row.Scan(&s.Seq, &s.GameID, &s.Visits, &s.Favorites, &s.Likes,
		&s.Dislikes, &s.ActivePlayers, &s.CapturedAt)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return s, nil
}
