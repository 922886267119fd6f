package roblox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bloxpulse/backend/internal/config"
	"github.com/bloxpulse/backend/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.ScraperConfig {
	return config.ScraperConfig{
		RequestTimeout:       5 * time.Second,
		MaxConcurrentFetches: 2,
		RetryAttempts:        0,
	}
}

const listingJSON = `{
	"games": [
		{"universeId": 101, "rootPlaceId": 1, "name": "Tower Climb", "playerCount": 1200, "totalUpVotes": 900, "totalDownVotes": 50},
		{"universeId": 102, "rootPlaceId": 2, "name": "Pet Ranch", "playerCount": 800, "totalUpVotes": 400, "totalDownVotes": 20}
	]
}`

const detailsJSON = `{
	"data": [
		{
			"id": 101,
			"description": "Climb the tower.",
			"creator": {"id": 55, "name": "TowerStudio", "type": "Group"},
			"genre": "Adventure",
			"visits": 5000000,
			"favoritedCount": 12000,
			"playing": 1250,
			"created": "2020-01-02T10:00:00Z",
			"updated": "2024-06-01T08:30:00Z"
		}
	]
}`

// newTestClient wires a Client against a single httptest server that
// serves both the explore and the games endpoints.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWithURLs(srv.URL+"/explore", srv.URL+"/games", testConfig(), testLogger())
}

func TestClient_ListTrending_HappyPath(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/explore", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sortId") != "top-trending" {
			t.Errorf("expected sortId=top-trending, got %q", r.URL.Query().Get("sortId"))
		}
		io.WriteString(w, listingJSON)
	})
	mux.HandleFunc("/games", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("universeIds") == "" {
			t.Error("expected universeIds query parameter")
		}
		io.WriteString(w, detailsJSON)
	})

	client := newTestClient(t, mux)

	games, err := client.ListTrending(context.Background())
	if err != nil {
		t.Fatalf("ListTrending: unexpected error: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}

	enriched := games[0]
	if enriched.RobloxID != "101" {
		t.Fatalf("expected first game 101, got %s", enriched.RobloxID)
	}
	if enriched.Name != "Tower Climb" {
		t.Errorf("Name mismatch: %q", enriched.Name)
	}
	if enriched.Genre != "Adventure" {
		t.Errorf("expected enriched genre, got %q", enriched.Genre)
	}
	if enriched.CreatorName != "TowerStudio" {
		t.Errorf("CreatorName mismatch: %q", enriched.CreatorName)
	}
	if enriched.Visits != 5000000 || enriched.Favorites != 12000 {
		t.Errorf("counters mismatch: %+v", enriched)
	}
	// Vote totals come from the listing, playing from the details.
	if enriched.Likes != 900 || enriched.Dislikes != 50 {
		t.Errorf("votes mismatch: likes=%d dislikes=%d", enriched.Likes, enriched.Dislikes)
	}
	if enriched.ActivePlayers != 1250 {
		t.Errorf("expected details playing to win, got %d", enriched.ActivePlayers)
	}
	if enriched.RobloxCreated == nil || enriched.RobloxCreated.Year() != 2020 {
		t.Errorf("RobloxCreated mismatch: %v", enriched.RobloxCreated)
	}

	// Game 102 has no details entry and keeps listing-level data.
	degraded := games[1]
	if degraded.Genre != "" || degraded.Visits != 0 {
		t.Errorf("expected un-enriched game, got %+v", degraded)
	}
	if degraded.ActivePlayers != 800 {
		t.Errorf("expected listing player count, got %d", degraded.ActivePlayers)
	}
}

func TestClient_ListTrending_ListingFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/explore", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	client := newTestClient(t, mux)

	_, err := client.ListTrending(context.Background())
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestClient_ListTrending_DetailFailureDegrades(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/explore", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, listingJSON)
	})
	mux.HandleFunc("/games", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	client := newTestClient(t, mux)

	games, err := client.ListTrending(context.Background())
	if err != nil {
		t.Fatalf("detail failures must not fail the listing: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
	for _, g := range games {
		if g.Genre != "" || g.Visits != 0 {
			t.Errorf("expected un-enriched game, got %+v", g)
		}
	}
}

func TestClient_ListTrending_RetriesTransientListingError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/explore", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "transient", http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"games": []}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.RetryAttempts = 1
	client := NewWithURLs(srv.URL+"/explore", srv.URL+"/games", cfg, testLogger())

	games, err := client.ListTrending(context.Background())
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if len(games) != 0 {
		t.Errorf("expected empty listing, got %d games", len(games))
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 listing calls, got %d", calls.Load())
	}
}

func TestClient_FetchGameGroups(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/games/101/social-links/list", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"data": [
				{"id": 7001, "type": "Group", "title": "Fan Club", "url": "https://www.roblox.com/groups/7001"},
				{"id": 1, "type": "Twitter", "title": "News", "url": "https://twitter.com/x"},
				{"id": 7002, "type": "Group", "title": "Dev Group", "url": "https://www.roblox.com/groups/7002"}
			]
		}`)
	})

	client := newTestClient(t, mux)

	groups, err := client.FetchGameGroups(context.Background(), "101")
	if err != nil {
		t.Fatalf("FetchGameGroups: unexpected error: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0] != "7001" || groups[1] != "7002" {
		t.Errorf("unexpected group ids: %v", groups)
	}
}

func TestClient_FetchGameGroups_NotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.NewServeMux())

	_, err := client.FetchGameGroups(context.Background(), "999")
	if err == nil {
		t.Fatal("expected an error for a missing game")
	}
}
