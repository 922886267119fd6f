// Package analytics derives retention, growth and resonance metrics from
// the snapshot history. All derivations are deterministic given the store
// contents and the clock; absence of data surfaces as nil values, never
// as zeros.
package analytics

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/bloxpulse/backend/internal/domain"
)

// GameRepo is the catalogue read surface used by the analytics engine.
type GameRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Game, error)
	GetAll(ctx context.Context) ([]domain.Game, error)
	Count(ctx context.Context) (int, error)
	CountNewSince(ctx context.Context, t time.Time) (int, error)
}

// SnapshotRepo is the history read surface.
type SnapshotRepo interface {
	NearestAtOrBefore(ctx context.Context, gameID uuid.UUID, t time.Time) (domain.Snapshot, error)
	WindowedAverage(ctx context.Context, gameID uuid.UUID, counter domain.Counter, from, to time.Time) (*float64, error)
	TotalVisitsLatest(ctx context.Context) (int64, error)
}

// RunRepo exposes the last run for the summary.
type RunRepo interface {
	Latest(ctx context.Context) (domain.ScrapeRun, error)
}

// GroupSource resolves the community groups linked to a game.
type GroupSource interface {
	FetchGameGroups(ctx context.Context, robloxID string) ([]string, error)
}

// Service computes analytics over the stored history.
type Service struct {
	log       *slog.Logger
	games     GameRepo
	snapshots SnapshotRepo
	runs      RunRepo
	groups    GroupSource
	clock     clockwork.Clock
}

// NewService creates an analytics service.
func NewService(log *slog.Logger, games GameRepo, snapshots SnapshotRepo,
	runs RunRepo, groups GroupSource, clock clockwork.Clock) *Service {
	return &Service{
		log:       log.With("service", "analytics"),
		games:     games,
		snapshots: snapshots,
		runs:      runs,
		groups:    groups,
		clock:     clock,
	}
}

// round3 rounds to 3 decimal places, the precision of every derived
// percentage.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
