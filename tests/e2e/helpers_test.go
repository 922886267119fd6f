//go:build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/bloxpulse/backend/internal/adapter/postgres"
	gamerepo "github.com/bloxpulse/backend/internal/adapter/postgres/game"
	snapshotrepo "github.com/bloxpulse/backend/internal/adapter/postgres/snapshot"
	scraperunrepo "github.com/bloxpulse/backend/internal/adapter/postgres/scraperun"
	"github.com/bloxpulse/backend/internal/adapter/postgres/testhelper"
	"github.com/bloxpulse/backend/internal/adapter/roblox"
	"github.com/bloxpulse/backend/internal/config"
	"github.com/bloxpulse/backend/internal/service/analytics"
	"github.com/bloxpulse/backend/internal/service/catalog"
	"github.com/bloxpulse/backend/internal/service/scrape"
	"github.com/bloxpulse/backend/internal/transport/middleware"
	"github.com/bloxpulse/backend/internal/transport/rest"
)

// ---------------------------------------------------------------------------
// Fake Roblox upstream.
// ---------------------------------------------------------------------------

type fakeGame struct {
	UniverseID  int64
	Name        string
	PlayerCount int64
	UpVotes     int64
	DownVotes   int64
	Description string
	Genre       string
	Visits      int64
	Favorites   int64
	Groups      []int64
}

// fakeRoblox serves the explore listing, batch details and social links
// endpoints from in-memory data.
type fakeRoblox struct {
	mu    sync.Mutex
	games []fakeGame
}

func (f *fakeRoblox) setGames(games []fakeGame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games = games
}

func (f *fakeRoblox) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /explore-api/v1/get-sort-content", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		entries := make([]map[string]any, 0, len(f.games))
		for _, g := range f.games {
			entries = append(entries, map[string]any{
				"universeId":     g.UniverseID,
				"name":           g.Name,
				"playerCount":    g.PlayerCount,
				"totalUpVotes":   g.UpVotes,
				"totalDownVotes": g.DownVotes,
			})
		}
		writeFakeJSON(w, map[string]any{"games": entries})
	})

	mux.HandleFunc("GET /games", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		wanted := map[string]bool{}
		for _, id := range strings.Split(r.URL.Query().Get("universeIds"), ",") {
			wanted[id] = true
		}

		data := make([]map[string]any, 0, len(f.games))
		for _, g := range f.games {
			if !wanted[strconv.FormatInt(g.UniverseID, 10)] {
				continue
			}
			data = append(data, map[string]any{
				"id":             g.UniverseID,
				"description":    g.Description,
				"creator":        map[string]any{"id": 7, "name": "Fake Studio", "type": "Group"},
				"genre":          g.Genre,
				"visits":         g.Visits,
				"favoritedCount": g.Favorites,
				"playing":        g.PlayerCount,
				"created":        "2024-01-01T00:00:00Z",
				"updated":        "2024-06-01T00:00:00Z",
			})
		}
		writeFakeJSON(w, map[string]any{"data": data})
	})

	mux.HandleFunc("GET /games/{id}/social-links/list", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		links := []map[string]any{}
		for _, g := range f.games {
			if g.UniverseID != id {
				continue
			}
			for _, groupID := range g.Groups {
				links = append(links, map[string]any{
					"id":    groupID,
					"type":  "Group",
					"title": "Community",
					"url":   "https://example.com/groups/" + strconv.FormatInt(groupID, 10),
				})
			}
		}
		writeFakeJSON(w, map[string]any{"data": links})
	})

	return mux
}

func writeFakeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// ---------------------------------------------------------------------------
// testServer wraps the full-stack HTTP server for E2E tests.
// ---------------------------------------------------------------------------

type testServer struct {
	URL     string
	Client  *http.Client
	Pool    *pgxpool.Pool
	Roblox  *fakeRoblox
	Service *scrape.Service
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	// 1. Database (shared container, fresh pool).
	pool := testhelper.SetupTestDB(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// 2. Fake upstream.
	fake := &fakeRoblox{}
	upstream := httptest.NewServer(fake.handler())
	t.Cleanup(upstream.Close)

	scraperCfg := config.ScraperConfig{
		Interval:             time.Hour,
		RequestTimeout:       5 * time.Second,
		MaxConcurrentFetches: 2,
	}
	source := roblox.NewWithURLs(
		upstream.URL+"/explore-api/v1/get-sort-content",
		upstream.URL+"/games",
		scraperCfg, logger,
	)

	// 3. Repositories and services.
	gameRepo := gamerepo.New(pool)
	snapshotRepo := snapshotrepo.New(pool)
	runRepo := scraperunrepo.New(pool)
	txm := postgres.NewTxManager(pool)
	clock := clockwork.NewRealClock()

	runner := scrape.NewRunner(logger, source, gameRepo, snapshotRepo, runRepo, txm, scraperCfg, clock)
	scheduler := scrape.NewScheduler(logger, runner, clock)
	t.Cleanup(scheduler.Stop)

	scrapeSvc := scrape.NewService(scheduler, runRepo, scraperCfg.Interval)
	catalogSvc := catalog.NewService(logger, gameRepo, snapshotRepo)
	analyticsSvc := analytics.NewService(logger, gameRepo, snapshotRepo, runRepo, source, clock)

	// 4. Transport.
	mux := rest.NewRouter(
		rest.NewScrapingHandler(scrapeSvc, logger),
		rest.NewGamesHandler(catalogSvc, logger),
		rest.NewAnalyticsHandler(analyticsSvc, config.AnalyticsConfig{
			GrowthWindowDays: 7,
			MinOverlap:       0.1,
			ResonanceLimit:   20,
			MinActivePlayers: 1,
		}, logger),
		rest.NewHealthHandler(pool, "test-version"),
	)

	handler := middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logger(logger),
	)(mux)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		URL:     srv.URL,
		Client:  srv.Client(),
		Pool:    pool,
		Roblox:  fake,
		Service: scrapeSvc,
	}
}

// ---------------------------------------------------------------------------
// HTTP helpers.
// ---------------------------------------------------------------------------

func (ts *testServer) getJSON(t *testing.T, path string) (int, map[string]any) {
	t.Helper()

	resp, err := ts.Client.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func (ts *testServer) postJSON(t *testing.T, path string, payload any) (int, map[string]any) {
	t.Helper()

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	}

	resp, err := ts.Client.Post(ts.URL+path, "application/json", reqBody)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

// waitForTerminalRun polls the runs endpoint until a run started at or
// after since settles, or the deadline passes.
func (ts *testServer) waitForTerminalRun(t *testing.T, since time.Time, deadline time.Duration) map[string]any {
	t.Helper()

	terminal := map[string]bool{"SUCCESS": true, "FAILED": true, "CANCELLED": true}
	var last map[string]any

	stop := time.Now().Add(deadline)
	for time.Now().Before(stop) {
		status, body := ts.getJSON(t, "/api/scraping/runs?limit=5")
		require.Equal(t, http.StatusOK, status)

		runs, _ := body["runs"].([]any)
		for _, entry := range runs {
			run, _ := entry.(map[string]any)
			startedAt, err := time.Parse(time.RFC3339Nano, run["started_at"].(string))
			require.NoError(t, err)
			if startedAt.Before(since) {
				continue
			}
			if s, _ := run["status"].(string); terminal[s] {
				return run
			}
			last = run
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("no terminal run within %s, last seen: %v", deadline, last)
	return nil
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s %d", prefix, time.Now().UnixNano())
}

func urlQuery(value string) string {
	return url.QueryEscape(value)
}
