package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/bloxpulse/backend/internal/domain"
)

// Summary aggregates the dashboard view: catalogue size, total visits
// over every game's latest snapshot, games first seen in the last 24
// hours and the last run.
func (s *Service) Summary(ctx context.Context) (domain.AnalyticsSummary, error) {
	now := s.clock.Now().UTC()

	totalGames, err := s.games.Count(ctx)
	if err != nil {
		return domain.AnalyticsSummary{}, err
	}

	totalVisits, err := s.snapshots.TotalVisitsLatest(ctx)
	if err != nil {
		return domain.AnalyticsSummary{}, err
	}

	newGames, err := s.games.CountNewSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return domain.AnalyticsSummary{}, err
	}

	summary := domain.AnalyticsSummary{
		TotalGames:     totalGames,
		TotalVisits:    totalVisits,
		NewGamesLast24: newGames,
		GeneratedAt:    now,
	}

	lastRun, err := s.runs.Latest(ctx)
	switch {
	case err == nil:
		summary.LastRun = &lastRun
	case errors.Is(err, domain.ErrNotFound):
		// no runs yet
	default:
		return domain.AnalyticsSummary{}, err
	}

	return summary, nil
}
