package domain

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is one immutable observation of a game's counters.
// Snapshots are append-only: nothing in the codebase updates or deletes
// a written row. For one game, (CapturedAt, Seq) is strictly increasing
// by insertion order; ties on CapturedAt are broken by Seq and are
// deliberately not deduplicated.
type Snapshot struct {
	// Seq is the insertion sequence assigned by the store.
	Seq           int64
	GameID        uuid.UUID
	Visits        int64
	Favorites     int64
	Likes         int64
	Dislikes      int64
	ActivePlayers int64
	CapturedAt    time.Time
}

// Counter identifies one of the snapshot counter columns for
// windowed-average and growth queries.
type Counter string

const (
	CounterVisits        Counter = "visits"
	CounterFavorites     Counter = "favorites"
	CounterLikes         Counter = "likes"
	CounterDislikes      Counter = "dislikes"
	CounterActivePlayers Counter = "active_players"
)

func (c Counter) String() string { return string(c) }

func (c Counter) IsValid() bool {
	switch c {
	case CounterVisits, CounterFavorites, CounterLikes, CounterDislikes, CounterActivePlayers:
		return true
	}
	return false
}

// Value returns the counter's value from a snapshot.
func (c Counter) Value(s Snapshot) int64 {
	switch c {
	case CounterVisits:
		return s.Visits
	case CounterFavorites:
		return s.Favorites
	case CounterLikes:
		return s.Likes
	case CounterDislikes:
		return s.Dislikes
	case CounterActivePlayers:
		return s.ActivePlayers
	}
	return 0
}
