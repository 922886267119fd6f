package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bloxpulse/backend/internal/domain"
)

// Growth compares a game's recent counter window against the window
// immediately before it: (recent - older) / older * 100. Percent is nil
// when the older window is empty or averages to zero; negative growth is
// a valid result.
func (s *Service) Growth(ctx context.Context, gameID uuid.UUID, windowDays int, counter domain.Counter) (domain.GrowthResult, error) {
	if windowDays < 1 {
		return domain.GrowthResult{}, fmt.Errorf("window %d days: %w", windowDays, domain.ErrValidation)
	}
	if !counter.IsValid() {
		return domain.GrowthResult{}, fmt.Errorf("counter %q: %w", counter, domain.ErrValidation)
	}

	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return domain.GrowthResult{}, err
	}

	return s.growthForGame(ctx, game, windowDays, counter)
}

// GrowthAll computes growth for every game, drops games without a
// computable value or below minGrowthPercent, and sorts by growth,
// fastest first.
func (s *Service) GrowthAll(ctx context.Context, windowDays int, counter domain.Counter, minGrowthPercent float64) ([]domain.GrowthResult, error) {
	if windowDays < 1 {
		return nil, fmt.Errorf("window %d days: %w", windowDays, domain.ErrValidation)
	}
	if !counter.IsValid() {
		return nil, fmt.Errorf("counter %q: %w", counter, domain.ErrValidation)
	}

	games, err := s.games.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]domain.GrowthResult, 0, len(games))
	for _, game := range games {
		res, err := s.growthForGame(ctx, game, windowDays, counter)
		if err != nil {
			return nil, err
		}
		if res.Percent == nil || *res.Percent < minGrowthPercent {
			continue
		}
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool {
		if *results[i].Percent != *results[j].Percent {
			return *results[i].Percent > *results[j].Percent
		}
		return results[i].GameName < results[j].GameName
	})

	return results, nil
}

func (s *Service) growthForGame(ctx context.Context, game domain.Game, windowDays int, counter domain.Counter) (domain.GrowthResult, error) {
	result := domain.GrowthResult{
		GameID:     game.ID,
		GameName:   game.Name,
		WindowDays: windowDays,
		Counter:    counter,
	}

	now := s.clock.Now().UTC()
	window := time.Duration(windowDays) * 24 * time.Hour

	recent, err := s.snapshots.WindowedAverage(ctx, game.ID, counter, now.Add(-window), now)
	if err != nil {
		return domain.GrowthResult{}, err
	}
	older, err := s.snapshots.WindowedAverage(ctx, game.ID, counter, now.Add(-2*window), now.Add(-window))
	if err != nil {
		return domain.GrowthResult{}, err
	}

	result.RecentAvg = recent
	result.OlderAvg = older

	// No older window means nothing to compare against; a zero older
	// average admits no ratio. "No data" stays nil, never 0.
	if recent == nil || older == nil || *older == 0 {
		return result, nil
	}

	pct := round3((*recent - *older) / *older * 100)
	result.Percent = &pct

	return result, nil
}
