// Package scrape owns the scrape cadence state machine and the per-cycle
// job runner.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bloxpulse/backend/internal/domain"
)

// MinInterval is the smallest accepted cadence.
const MinInterval = time.Minute

// Source lists trending games from the upstream platform.
type Source interface {
	ListTrending(ctx context.Context) ([]domain.ScrapedGame, error)
}

// GameRepo is the catalogue write surface used by the runner.
type GameRepo interface {
	Upsert(ctx context.Context, in domain.GameUpsert, now time.Time) (domain.Game, bool, error)
}

// SnapshotRepo appends counter snapshots.
type SnapshotRepo interface {
	Create(ctx context.Context, s domain.Snapshot) (domain.Snapshot, error)
}

// RunRepo persists scrape run records.
type RunRepo interface {
	Create(ctx context.Context, startedAt time.Time) (domain.ScrapeRun, error)
	MarkRunning(ctx context.Context, id uuid.UUID) (domain.ScrapeRun, error)
	Complete(ctx context.Context, id uuid.UUID, status domain.RunStatus,
		gamesScraped, newGamesFound int, errText string, completedAt time.Time) (domain.ScrapeRun, error)
	List(ctx context.Context, limit int) ([]domain.ScrapeRun, error)
	Latest(ctx context.Context) (domain.ScrapeRun, error)
}

// Service is the transport-facing facade over the scheduler and the run
// history.
type Service struct {
	scheduler       *Scheduler
	runs            RunRepo
	defaultInterval time.Duration
}

// NewService creates the scrape service.
func NewService(scheduler *Scheduler, runs RunRepo, defaultInterval time.Duration) *Service {
	return &Service{
		scheduler:       scheduler,
		runs:            runs,
		defaultInterval: defaultInterval,
	}
}

// Start begins or replaces the scrape cadence. A nil interval keeps the
// configured default. Calling Start while a cadence is active is not a
// conflict; the new cadence supersedes the old one.
func (s *Service) Start(ctx context.Context, interval *time.Duration) (domain.ScheduleStatus, error) {
	iv := s.defaultInterval
	if interval != nil {
		iv = *interval
	}
	if iv < MinInterval {
		return domain.ScheduleStatus{}, fmt.Errorf("interval %s below minimum %s: %w",
			iv, MinInterval, domain.ErrValidation)
	}

	s.scheduler.Start(iv)
	return s.Status(ctx)
}

// Stop cancels the cadence and cooperatively cancels any in-flight cycle.
func (s *Service) Stop(ctx context.Context) (domain.ScheduleStatus, error) {
	s.scheduler.Stop()
	return s.Status(ctx)
}

// Status reports the schedule state. The last run summary falls back to
// the persisted history when no cycle has completed in this process yet.
func (s *Service) Status(ctx context.Context) (domain.ScheduleStatus, error) {
	st := s.scheduler.Status()
	if st.LastRun == nil {
		last, err := s.runs.Latest(ctx)
		switch {
		case err == nil:
			st.LastRun = &last
		case errors.Is(err, domain.ErrNotFound):
			// no runs yet
		default:
			return domain.ScheduleStatus{}, err
		}
	}
	return st, nil
}

// Runs returns the most recent run records, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]domain.ScrapeRun, error) {
	return s.runs.List(ctx, limit)
}
