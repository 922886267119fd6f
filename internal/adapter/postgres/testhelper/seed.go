package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloxpulse/backend/internal/domain"
)

// SeedGame inserts a game row directly and returns it. robloxID must be
// unique per test; pass something like "rbx-"+uuid.New().String()[:8].
func SeedGame(t *testing.T, pool *pgxpool.Pool, robloxID, name string) domain.Game {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	g := domain.Game{
		ID:          uuid.New(),
		RobloxID:    robloxID,
		Name:        name,
		Genre:       "Adventure",
		FirstSeenAt: now,
		UpdatedAt:   now,
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO games (id, roblox_id, name, description, creator_id, creator_name, genre, first_seen_at, updated_at)
		VALUES ($1, $2, $3, '', '', '', $4, $5, $5)`,
		g.ID, g.RobloxID, g.Name, g.Genre, now,
	)
	if err != nil {
		t.Fatalf("SeedGame: %v", err)
	}
	return g
}

// SeedSnapshot inserts a snapshot row for a game at the given capture time.
func SeedSnapshot(t *testing.T, pool *pgxpool.Pool, gameID uuid.UUID, activePlayers, visits int64, capturedAt time.Time) domain.Snapshot {
	t.Helper()
	ctx := context.Background()

	s := domain.Snapshot{
		GameID:        gameID,
		Visits:        visits,
		ActivePlayers: activePlayers,
		CapturedAt:    capturedAt.UTC().Truncate(time.Microsecond),
	}

	err := pool.QueryRow(ctx, `
		INSERT INTO game_snapshots (game_id, visits, favorites, likes, dislikes, active_players, captured_at)
		VALUES ($1, $2, 0, 0, 0, $3, $4)
		RETURNING id`,
		s.GameID, s.Visits, s.ActivePlayers, s.CapturedAt,
	).Scan(&s.Seq)
	if err != nil {
		t.Fatalf("SeedSnapshot: %v", err)
	}
	return s
}
