package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bloxpulse/backend/internal/domain"
)

// groupFetchConcurrency bounds parallel group lookups against the source
// during a resonance pass.
const groupFetchConcurrency = 5

// Resonance ranks every other catalogue game by audience overlap with the
// target: shared community groups weighted with genre similarity.
// Candidates below minOverlap percent are dropped; the result sorts by
// score, then overlap, then name, truncated to limit.
func (s *Service) Resonance(ctx context.Context, gameID uuid.UUID, limit int, minOverlap float64) ([]domain.ResonanceResult, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit %d: %w", limit, domain.ErrValidation)
	}

	target, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	games, err := s.games.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Game, 0, len(games))
	for _, g := range games {
		if g.ID != target.ID {
			candidates = append(candidates, g)
		}
	}

	groupSets, err := s.fetchGroupSets(ctx, append(candidates, target))
	if err != nil {
		return nil, err
	}
	targetGroups := groupSets[target.ID]

	results := make([]domain.ResonanceResult, 0, len(candidates))
	for _, g := range candidates {
		shared, overlap := groupOverlap(targetGroups, groupSets[g.ID])
		if overlap < minOverlap {
			continue
		}

		genreSim := genreSimilarity(target.Genre, g.Genre)
		results = append(results, domain.ResonanceResult{
			GameID:          g.ID,
			GameName:        g.Name,
			OverlapPercent:  round3(overlap),
			GenreSimilarity: round3(genreSim),
			Score:           round3(0.6*overlap + 0.4*genreSim*100),
			SharedGroups:    shared,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].OverlapPercent != results[j].OverlapPercent {
			return results[i].OverlapPercent > results[j].OverlapPercent
		}
		return results[i].GameName < results[j].GameName
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// fetchGroupSets resolves each game's linked groups concurrently. A
// failed lookup degrades that game to an empty set rather than failing
// the whole pass.
func (s *Service) fetchGroupSets(ctx context.Context, games []domain.Game) (map[uuid.UUID]map[string]bool, error) {
	sets := make(map[uuid.UUID]map[string]bool, len(games))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(groupFetchConcurrency)

	results := make([]map[string]bool, len(games))
	for i, game := range games {
		g.Go(func() error {
			groups, err := s.groups.FetchGameGroups(gctx, game.RobloxID)
			if err != nil {
				s.log.WarnContext(gctx, "group lookup failed",
					slog.String("roblox_id", game.RobloxID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			set := make(map[string]bool, len(groups))
			for _, id := range groups {
				set[id] = true
			}
			results[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, game := range games {
		if results[i] == nil {
			results[i] = map[string]bool{}
		}
		sets[game.ID] = results[i]
	}
	return sets, nil
}

// groupOverlap returns the shared group count and the Jaccard overlap of
// two group sets as a percentage. It is symmetric in its arguments.
func groupOverlap(a, b map[string]bool) (int, float64) {
	if len(a) == 0 && len(b) == 0 {
		return 0, 0
	}

	shared := 0
	for id := range a {
		if b[id] {
			shared++
		}
	}
	union := len(a) + len(b) - shared

	return shared, float64(shared) / float64(union) * 100
}

// genreSimilarity is 1 for equal genres (case-insensitive) and the
// word-set Jaccard index otherwise.
func genreSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	wordsA := wordSet(a)
	wordsB := wordSet(b)

	shared := 0
	for w := range wordsA {
		if wordsB[w] {
			shared++
		}
	}
	union := len(wordsA) + len(wordsB) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}
