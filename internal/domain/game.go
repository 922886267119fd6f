package domain

import (
	"time"

	"github.com/google/uuid"
)

// Game is a tracked Roblox game. Identity is the immutable RobloxID;
// display attributes are overwritten on every scrape cycle that sees
// the game again. Games are never deleted.
type Game struct {
	ID          uuid.UUID
	RobloxID    string
	Name        string
	Description string
	CreatorID   string
	CreatorName string
	Genre       string

	// Timestamps reported by the Roblox API.
	RobloxCreated *time.Time
	RobloxUpdated *time.Time

	// FirstSeenAt is set when the game is scraped for the first time
	// and never changes afterwards.
	FirstSeenAt time.Time
	UpdatedAt   time.Time
}

// GameUpsert carries the fields written by the job runner on each cycle.
type GameUpsert struct {
	RobloxID      string
	Name          string
	Description   string
	CreatorID     string
	CreatorName   string
	Genre         string
	RobloxCreated *time.Time
	RobloxUpdated *time.Time
}

// ScrapedGame is one trending listing entry with its counter readings,
// as returned by the source in a single cycle.
type ScrapedGame struct {
	GameUpsert

	Visits        int64
	Favorites     int64
	Likes         int64
	Dislikes      int64
	ActivePlayers int64
}

// Counters converts the scraped readings into a snapshot for the game.
func (s ScrapedGame) Counters(gameID uuid.UUID, capturedAt time.Time) Snapshot {
	return Snapshot{
		GameID:        gameID,
		Visits:        s.Visits,
		Favorites:     s.Favorites,
		Likes:         s.Likes,
		Dislikes:      s.Dislikes,
		ActivePlayers: s.ActivePlayers,
		CapturedAt:    capturedAt,
	}
}

// GameWithSnapshot pairs a game with its most recent snapshot, if any.
type GameWithSnapshot struct {
	Game
	Latest *Snapshot
}

// GameFilter controls catalogue listing.
type GameFilter struct {
	Search    string
	SortBy    GameSortField
	SortOrder SortOrder
	Limit     int
	Offset    int
}
