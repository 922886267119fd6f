package domain

import "time"

// ScheduleMode is the scheduler's externally visible state.
type ScheduleMode string

const (
	ScheduleModeIdle      ScheduleMode = "IDLE"
	ScheduleModeScheduled ScheduleMode = "SCHEDULED"
	ScheduleModeRunning   ScheduleMode = "RUNNING"
)

func (m ScheduleMode) String() string { return string(m) }

// ScheduleStatus is the read-only snapshot returned by the scheduler.
// Reading it never blocks on an in-flight cycle.
type ScheduleStatus struct {
	Mode      ScheduleMode
	Interval  time.Duration
	NextRunAt *time.Time
	LastRun   *ScrapeRun
}

// SortOrder is the direction of a listing sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func (o SortOrder) IsValid() bool { return o == SortAsc || o == SortDesc }

// GameSortField enumerates the catalogue listing sort keys.
type GameSortField string

const (
	GameSortName          GameSortField = "name"
	GameSortVisits        GameSortField = "visits"
	GameSortFavorites     GameSortField = "favorites"
	GameSortLikes         GameSortField = "likes"
	GameSortDislikes      GameSortField = "dislikes"
	GameSortActivePlayers GameSortField = "active_players"
	GameSortFirstSeenAt   GameSortField = "first_seen_at"
	GameSortUpdatedAt     GameSortField = "updated_at"
)

func (f GameSortField) IsValid() bool {
	switch f {
	case GameSortName, GameSortVisits, GameSortFavorites, GameSortLikes,
		GameSortDislikes, GameSortActivePlayers, GameSortFirstSeenAt, GameSortUpdatedAt:
		return true
	}
	return false
}

// IsCounterField reports whether the sort key lives on the latest
// snapshot rather than on the game row.
func (f GameSortField) IsCounterField() bool {
	switch f {
	case GameSortVisits, GameSortFavorites, GameSortLikes, GameSortDislikes, GameSortActivePlayers:
		return true
	}
	return false
}
