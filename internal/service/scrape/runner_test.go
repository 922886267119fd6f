package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/bloxpulse/backend/internal/config"
	"github.com/bloxpulse/backend/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockSource struct {
	listTrendingFn func(ctx context.Context) ([]domain.ScrapedGame, error)
}

func (m *mockSource) ListTrending(ctx context.Context) ([]domain.ScrapedGame, error) {
	return m.listTrendingFn(ctx)
}

type mockGameRepo struct {
	upsertFn func(ctx context.Context, in domain.GameUpsert, now time.Time) (domain.Game, bool, error)
}

func (m *mockGameRepo) Upsert(ctx context.Context, in domain.GameUpsert, now time.Time) (domain.Game, bool, error) {
	return m.upsertFn(ctx, in, now)
}

type mockSnapshotRepo struct {
	mu       sync.Mutex
	created  []domain.Snapshot
	createFn func(ctx context.Context, s domain.Snapshot) (domain.Snapshot, error)
}

func (m *mockSnapshotRepo) Create(ctx context.Context, s domain.Snapshot) (domain.Snapshot, error) {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	m.mu.Lock()
	m.created = append(m.created, s)
	m.mu.Unlock()
	return s, nil
}

// mockRunRepo keeps run records in memory through the pending → running →
// terminal lifecycle.
type mockRunRepo struct {
	mu   sync.Mutex
	runs map[uuid.UUID]domain.ScrapeRun
}

func newMockRunRepo() *mockRunRepo {
	return &mockRunRepo{runs: make(map[uuid.UUID]domain.ScrapeRun)}
}

func (m *mockRunRepo) Create(_ context.Context, startedAt time.Time) (domain.ScrapeRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := domain.ScrapeRun{ID: uuid.New(), Status: domain.RunStatusPending, StartedAt: startedAt}
	m.runs[run.ID] = run
	return run, nil
}

func (m *mockRunRepo) MarkRunning(_ context.Context, id uuid.UUID) (domain.ScrapeRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return domain.ScrapeRun{}, domain.ErrNotFound
	}
	run.Status = domain.RunStatusRunning
	m.runs[id] = run
	return run, nil
}

func (m *mockRunRepo) Complete(_ context.Context, id uuid.UUID, status domain.RunStatus,
	gamesScraped, newGamesFound int, errText string, completedAt time.Time) (domain.ScrapeRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return domain.ScrapeRun{}, domain.ErrNotFound
	}
	run.Status = status
	run.GamesScraped = gamesScraped
	run.NewGamesFound = newGamesFound
	run.Errors = errText
	run.CompletedAt = &completedAt
	m.runs[id] = run
	return run, nil
}

func (m *mockRunRepo) List(_ context.Context, limit int) ([]domain.ScrapeRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ScrapeRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRunRepo) Latest(_ context.Context) (domain.ScrapeRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest domain.ScrapeRun
	found := false
	for _, r := range m.runs {
		if !found || r.StartedAt.After(latest.StartedAt) {
			latest = r
			found = true
		}
	}
	if !found {
		return domain.ScrapeRun{}, domain.ErrNotFound
	}
	return latest, nil
}

func scrapedGame(robloxID string, active int64) domain.ScrapedGame {
	return domain.ScrapedGame{
		GameUpsert:    domain.GameUpsert{RobloxID: robloxID, Name: "Game " + robloxID},
		ActivePlayers: active,
		Visits:        active * 100,
	}
}

// passthroughTxManager runs the callback directly, without a database.
type passthroughTxManager struct{}

func (passthroughTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestRunner(source Source, games GameRepo, snapshots SnapshotRepo, runs RunRepo,
	cfg config.ScraperConfig, clock clockwork.Clock) *Runner {
	return NewRunner(testLogger(), source, games, snapshots, runs, passthroughTxManager{}, cfg, clock)
}

// ---------------------------------------------------------------------------
// RunCycle tests
// ---------------------------------------------------------------------------

func TestRunner_RunCycle_HappyPath(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	startTime := clock.Now().UTC()

	src := &mockSource{listTrendingFn: func(context.Context) ([]domain.ScrapedGame, error) {
		return []domain.ScrapedGame{scrapedGame("101", 500), scrapedGame("102", 300)}, nil
	}}

	gameIDs := map[string]uuid.UUID{"101": uuid.New(), "102": uuid.New()}
	games := &mockGameRepo{upsertFn: func(_ context.Context, in domain.GameUpsert, now time.Time) (domain.Game, bool, error) {
		// 102 is new to the catalogue.
		return domain.Game{ID: gameIDs[in.RobloxID], RobloxID: in.RobloxID}, in.RobloxID == "102", nil
	}}
	snapshots := &mockSnapshotRepo{}
	runs := newMockRunRepo()

	runner := newTestRunner(src, games, snapshots, runs, config.ScraperConfig{}, clock)

	run, err := runner.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: unexpected error: %v", err)
	}

	if run.Status != domain.RunStatusSuccess {
		t.Errorf("expected SUCCESS, got %s", run.Status)
	}
	if run.GamesScraped != 2 {
		t.Errorf("expected 2 games scraped, got %d", run.GamesScraped)
	}
	if run.NewGamesFound != 1 {
		t.Errorf("expected 1 new game, got %d", run.NewGamesFound)
	}
	if run.Errors != "" {
		t.Errorf("expected no errors, got %q", run.Errors)
	}
	if !run.StartedAt.Equal(startTime) {
		t.Errorf("StartedAt mismatch: got %v, want %v", run.StartedAt, startTime)
	}
	if run.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}

	if len(snapshots.created) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snapshots.created))
	}
	for _, s := range snapshots.created {
		// Every snapshot of a cycle shares the run's start instant.
		if !s.CapturedAt.Equal(run.StartedAt) {
			t.Errorf("CapturedAt mismatch: got %v, want %v", s.CapturedAt, run.StartedAt)
		}
	}
	if snapshots.created[0].GameID != gameIDs["101"] {
		t.Errorf("snapshot bound to wrong game: %s", snapshots.created[0].GameID)
	}
	if snapshots.created[0].ActivePlayers != 500 || snapshots.created[0].Visits != 50000 {
		t.Errorf("counters mismatch: %+v", snapshots.created[0])
	}
}

func TestRunner_RunCycle_ListingFailureIsRunFatal(t *testing.T) {
	t.Parallel()

	src := &mockSource{listTrendingFn: func(context.Context) ([]domain.ScrapedGame, error) {
		return nil, fmt.Errorf("listing: %w", domain.ErrSourceUnavailable)
	}}
	games := &mockGameRepo{upsertFn: func(context.Context, domain.GameUpsert, time.Time) (domain.Game, bool, error) {
		t.Error("no upsert must happen when the listing fails")
		return domain.Game{}, false, nil
	}}
	snapshots := &mockSnapshotRepo{}
	runs := newMockRunRepo()

	runner := newTestRunner(src, games, snapshots, runs, config.ScraperConfig{}, clockwork.NewFakeClock())

	run, err := runner.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: unexpected error: %v", err)
	}

	if run.Status != domain.RunStatusFailed {
		t.Errorf("expected FAILED, got %s", run.Status)
	}
	if run.GamesScraped != 0 || run.NewGamesFound != 0 {
		t.Errorf("expected zero counters, got %+v", run)
	}
	if run.Errors == "" {
		t.Error("expected the listing error to be recorded")
	}
	if len(snapshots.created) != 0 {
		t.Errorf("expected no snapshots, got %d", len(snapshots.created))
	}
}

func TestRunner_RunCycle_PerGameFailuresDoNotAbort(t *testing.T) {
	t.Parallel()

	src := &mockSource{listTrendingFn: func(context.Context) ([]domain.ScrapedGame, error) {
		return []domain.ScrapedGame{scrapedGame("1", 1), scrapedGame("2", 2), scrapedGame("3", 3)}, nil
	}}
	games := &mockGameRepo{upsertFn: func(_ context.Context, in domain.GameUpsert, _ time.Time) (domain.Game, bool, error) {
		if in.RobloxID == "2" {
			return domain.Game{}, false, errors.New("deadlock detected")
		}
		return domain.Game{ID: uuid.New(), RobloxID: in.RobloxID}, false, nil
	}}
	snapshots := &mockSnapshotRepo{}
	runs := newMockRunRepo()

	runner := newTestRunner(src, games, snapshots, runs, config.ScraperConfig{}, clockwork.NewFakeClock())

	run, err := runner.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: unexpected error: %v", err)
	}

	if run.Status != domain.RunStatusSuccess {
		t.Errorf("per-game failures must not fail the run, got %s", run.Status)
	}
	if run.GamesScraped != 2 {
		t.Errorf("expected 2 games scraped, got %d", run.GamesScraped)
	}
	if !strings.Contains(run.Errors, "game 2") {
		t.Errorf("expected the failed game in the error text, got %q", run.Errors)
	}
	if len(snapshots.created) != 2 {
		t.Errorf("expected 2 snapshots, got %d", len(snapshots.created))
	}
}

func TestRunner_RunCycle_SnapshotFailureCountsAsGameFailure(t *testing.T) {
	t.Parallel()

	src := &mockSource{listTrendingFn: func(context.Context) ([]domain.ScrapedGame, error) {
		return []domain.ScrapedGame{scrapedGame("1", 1)}, nil
	}}
	games := &mockGameRepo{upsertFn: func(_ context.Context, in domain.GameUpsert, _ time.Time) (domain.Game, bool, error) {
		return domain.Game{ID: uuid.New(), RobloxID: in.RobloxID}, true, nil
	}}
	snapshots := &mockSnapshotRepo{createFn: func(context.Context, domain.Snapshot) (domain.Snapshot, error) {
		return domain.Snapshot{}, errors.New("disk full")
	}}
	runs := newMockRunRepo()

	runner := newTestRunner(src, games, snapshots, runs, config.ScraperConfig{}, clockwork.NewFakeClock())

	run, err := runner.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: unexpected error: %v", err)
	}

	if run.GamesScraped != 0 {
		t.Errorf("expected 0 games scraped, got %d", run.GamesScraped)
	}
	if !strings.Contains(run.Errors, "snapshot") {
		t.Errorf("expected snapshot failure in error text, got %q", run.Errors)
	}
	// The transaction rolled back, so the new game was never kept.
	if run.NewGamesFound != 0 {
		t.Errorf("expected 0 new games, got %d", run.NewGamesFound)
	}
}

func TestRunner_RunCycle_ConsecutiveFailureEscalation(t *testing.T) {
	t.Parallel()

	var attempts int
	src := &mockSource{listTrendingFn: func(context.Context) ([]domain.ScrapedGame, error) {
		return []domain.ScrapedGame{
			scrapedGame("1", 1), scrapedGame("2", 2), scrapedGame("3", 3), scrapedGame("4", 4),
		}, nil
	}}
	games := &mockGameRepo{upsertFn: func(context.Context, domain.GameUpsert, time.Time) (domain.Game, bool, error) {
		attempts++
		return domain.Game{}, false, errors.New("connection reset")
	}}
	runs := newMockRunRepo()

	cfg := config.ScraperConfig{MaxConsecutiveFailures: 2}
	runner := newTestRunner(src, games, &mockSnapshotRepo{}, runs, cfg, clockwork.NewFakeClock())

	run, err := runner.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: unexpected error: %v", err)
	}

	if run.Status != domain.RunStatusFailed {
		t.Errorf("expected FAILED after escalation, got %s", run.Status)
	}
	if attempts != 2 {
		t.Errorf("expected the cycle to abort after 2 attempts, got %d", attempts)
	}
	if !strings.Contains(run.Errors, "consecutive failures") {
		t.Errorf("expected escalation note in error text, got %q", run.Errors)
	}
}

func TestRunner_RunCycle_CancelledBetweenGames(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &mockSource{listTrendingFn: func(context.Context) ([]domain.ScrapedGame, error) {
		return []domain.ScrapedGame{scrapedGame("1", 1), scrapedGame("2", 2), scrapedGame("3", 3)}, nil
	}}
	games := &mockGameRepo{upsertFn: func(_ context.Context, in domain.GameUpsert, _ time.Time) (domain.Game, bool, error) {
		// Cancellation arrives after the first game finishes.
		cancel()
		return domain.Game{ID: uuid.New(), RobloxID: in.RobloxID}, false, nil
	}}
	snapshots := &mockSnapshotRepo{}
	runs := newMockRunRepo()

	runner := newTestRunner(src, games, snapshots, runs, config.ScraperConfig{}, clockwork.NewFakeClock())

	run, err := runner.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: unexpected error: %v", err)
	}

	if run.Status != domain.RunStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", run.Status)
	}
	if run.GamesScraped != 1 {
		t.Errorf("expected 1 game scraped before cancellation, got %d", run.GamesScraped)
	}
	if run.CompletedAt == nil {
		t.Error("cancelled runs must still record a completion time")
	}
}
