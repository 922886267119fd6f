package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bloxpulse/backend/internal/domain"
)

// retentionHorizons are the supported day offsets from first sight.
var retentionHorizons = map[int]bool{1: true, 7: true, 30: true}

// Retention computes the D-N retention of one game: the ratio of active
// players at first_seen_at + N days against the baseline at first sight.
// Percent is nil when fewer than two distinct snapshots cover the span or
// the baseline is zero.
func (s *Service) Retention(ctx context.Context, gameID uuid.UUID, horizonDays int) (domain.RetentionResult, error) {
	if !retentionHorizons[horizonDays] {
		return domain.RetentionResult{}, fmt.Errorf("horizon %d days: %w", horizonDays, domain.ErrValidation)
	}

	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return domain.RetentionResult{}, err
	}

	return s.retentionForGame(ctx, game, horizonDays)
}

// RetentionAll computes retention for every game with enough history.
// Games whose baseline active players fall below minBaselineActive are
// excluded; results sort by retention percent, best first.
func (s *Service) RetentionAll(ctx context.Context, horizonDays int, minBaselineActive int64) ([]domain.RetentionResult, error) {
	if !retentionHorizons[horizonDays] {
		return nil, fmt.Errorf("horizon %d days: %w", horizonDays, domain.ErrValidation)
	}

	games, err := s.games.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]domain.RetentionResult, 0, len(games))
	for _, game := range games {
		res, err := s.retentionForGame(ctx, game, horizonDays)
		if err != nil {
			return nil, err
		}
		if res.Percent == nil || res.BaselineActive < minBaselineActive {
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

func (s *Service) retentionForGame(ctx context.Context, game domain.Game, horizonDays int) (domain.RetentionResult, error) {
	result := domain.RetentionResult{
		GameID:      game.ID,
		GameName:    game.Name,
		HorizonDays: horizonDays,
	}

	baseline, err := s.snapshots.NearestAtOrBefore(ctx, game.ID, game.FirstSeenAt)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return result, nil
		}
		return domain.RetentionResult{}, err
	}

	horizonAt := game.FirstSeenAt.Add(time.Duration(horizonDays) * 24 * time.Hour)
	horizon, err := s.snapshots.NearestAtOrBefore(ctx, game.ID, horizonAt)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return result, nil
		}
		return domain.RetentionResult{}, err
	}

	result.BaselineActive = baseline.ActivePlayers
	result.BaselineCaptured = baseline.CapturedAt
	result.HorizonCaptured = horizon.CapturedAt

	// One snapshot standing in for both points is no history at all, and
	// a zero baseline admits no ratio. Both stay nil rather than 0.
	if horizon.Seq == baseline.Seq || baseline.ActivePlayers == 0 {
		return result, nil
	}

	pct := float64(horizon.ActivePlayers) / float64(baseline.ActivePlayers) * 100
	pct = round3(math.Max(pct, 0))
	result.Percent = &pct

	return result, nil
}
