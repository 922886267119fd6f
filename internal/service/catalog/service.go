// Package catalog serves the read side of the game catalogue: listing,
// detail and counter history.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bloxpulse/backend/internal/domain"
)

// defaultHistoryLimit caps history responses when the caller does not
// ask for a specific depth.
const defaultHistoryLimit = 100

// GameRepo reads games from storage.
type GameRepo interface {
	List(ctx context.Context, filter domain.GameFilter) ([]domain.GameWithSnapshot, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Game, error)
}

// SnapshotRepo reads counter history from storage.
type SnapshotRepo interface {
	Latest(ctx context.Context, gameID uuid.UUID) (domain.Snapshot, error)
	ListByGame(ctx context.Context, gameID uuid.UUID, limit int) ([]domain.Snapshot, error)
}

// Service exposes catalogue reads to the transport layer.
type Service struct {
	log       *slog.Logger
	games     GameRepo
	snapshots SnapshotRepo
}

func NewService(log *slog.Logger, games GameRepo, snapshots SnapshotRepo) *Service {
	return &Service{
		log:       log.With("service", "catalog"),
		games:     games,
		snapshots: snapshots,
	}
}

// List returns games matching the filter, each with its latest snapshot
// when one exists.
func (s *Service) List(ctx context.Context, filter domain.GameFilter) ([]domain.GameWithSnapshot, error) {
	return s.games.List(ctx, filter)
}

// Get returns one game with its latest snapshot. A game without
// snapshots comes back with a nil Latest.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.GameWithSnapshot, error) {
	game, err := s.games.GetByID(ctx, id)
	if err != nil {
		return domain.GameWithSnapshot{}, err
	}

	result := domain.GameWithSnapshot{Game: game}

	latest, err := s.snapshots.Latest(ctx, id)
	switch {
	case err == nil:
		result.Latest = &latest
	case errors.Is(err, domain.ErrNotFound):
		// not captured yet
	default:
		return domain.GameWithSnapshot{}, err
	}

	return result, nil
}

// History returns a game's snapshots, newest first. A non-positive
// limit falls back to the default; the game must exist.
func (s *Service) History(ctx context.Context, id uuid.UUID, limit int) ([]domain.Snapshot, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	if _, err := s.games.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("game %s: %w", id, err)
	}

	return s.snapshots.ListByGame(ctx, id, limit)
}
