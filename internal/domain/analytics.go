package domain

import (
	"time"

	"github.com/google/uuid"
)

// RetentionResult is the D-N retention of one game.
// Percent is nil when the stored history is insufficient to compute it;
// callers must not coerce the absence of data to zero.
type RetentionResult struct {
	GameID      uuid.UUID
	GameName    string
	HorizonDays int
	// Percent = horizon active players / baseline active players * 100,
	// rounded to 3 decimals, clamped to >= 0.
	Percent          *float64
	BaselineActive   int64
	BaselineCaptured time.Time
	HorizonCaptured  time.Time
}

// GrowthResult compares the recent counter window against the one before it.
// Percent is nil when the older window has no data or averages to zero.
type GrowthResult struct {
	GameID     uuid.UUID
	GameName   string
	WindowDays int
	Counter    Counter
	// Percent = (recent - older) / older * 100, 3-decimal rounding.
	// Negative growth is a valid value, not an error.
	Percent   *float64
	RecentAvg *float64
	OlderAvg  *float64
}

// ResonanceResult scores the audience overlap between a target game and
// one candidate.
type ResonanceResult struct {
	GameID   uuid.UUID
	GameName string
	// OverlapPercent = |shared groups| / |union of groups| * 100.
	// Symmetric in its two games.
	OverlapPercent  float64
	GenreSimilarity float64
	// Score = 0.6*OverlapPercent + 0.4*GenreSimilarity*100.
	Score        float64
	SharedGroups int
}

// AnalyticsSummary is the aggregate dashboard view.
type AnalyticsSummary struct {
	TotalGames     int
	TotalVisits    int64
	NewGamesLast24 int
	LastRun        *ScrapeRun
	GeneratedAt    time.Time
}
