//go:build e2e

package e2e_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE2E_LiveEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	status, body := ts.getJSON(t, "/live")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestE2E_ReadyEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	status, body := ts.getJSON(t, "/ready")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestE2E_HealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	status, body := ts.getJSON(t, "/health")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-version", body["version"])

	components, ok := body["components"].(map[string]any)
	require.True(t, ok, "components missing: %v", body)
	db, ok := components["database"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", db["status"])
}

// TestE2E_ScrapeFlow drives a full cycle through the HTTP API: start the
// cadence, wait for the run to settle, then read the ingested games,
// their history and the analytics summary back out.
func TestE2E_ScrapeFlow(t *testing.T) {
	ts := setupTestServer(t)

	base := time.Now().UnixNano()
	prefix := uniqueName("Flow")
	ts.Roblox.setGames([]fakeGame{
		{
			UniverseID:  base + 1,
			Name:        prefix + " Alpha",
			PlayerCount: 1500,
			UpVotes:     900,
			DownVotes:   100,
			Description: "An obby about towers",
			Genre:       "Adventure",
			Visits:      50000,
			Favorites:   4000,
			Groups:      []int64{base + 101, base + 202},
		},
		{
			UniverseID:  base + 2,
			Name:        prefix + " Beta",
			PlayerCount: 300,
			UpVotes:     200,
			DownVotes:   50,
			Description: "A tycoon spinoff",
			Genre:       "Adventure",
			Visits:      12000,
			Favorites:   800,
			Groups:      []int64{base + 101, base + 202},
		},
	})

	since := time.Now().UTC().Add(-time.Second)

	status, body := ts.postJSON(t, "/api/scraping/start", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, []any{"RUNNING", "SCHEDULED"}, body["mode"])
	assert.EqualValues(t, 3600, body["interval_seconds"])

	run := ts.waitForTerminalRun(t, since, 15*time.Second)
	assert.Equal(t, "SUCCESS", run["status"])
	assert.EqualValues(t, 2, run["games_scraped"])
	assert.EqualValues(t, 2, run["new_games_found"])
	assert.NotNil(t, run["completed_at"])

	// The catalogue now holds both games with their first snapshot.
	status, body = ts.getJSON(t, "/api/games?search="+urlQuery(prefix))
	require.Equal(t, http.StatusOK, status)
	games, _ := body["games"].([]any)
	require.Len(t, games, 2)

	var alpha map[string]any
	for _, entry := range games {
		g := entry.(map[string]any)
		if g["name"] == prefix+" Alpha" {
			alpha = g
		}
	}
	require.NotNil(t, alpha, "alpha not listed: %v", games)
	assert.Equal(t, fmt.Sprintf("%d", base+1), alpha["roblox_id"])
	assert.Equal(t, "Adventure", alpha["genre"])

	snap, ok := alpha["latest_snapshot"].(map[string]any)
	require.True(t, ok, "latest_snapshot missing: %v", alpha)
	assert.EqualValues(t, 1500, snap["active_players"])
	assert.EqualValues(t, 50000, snap["visits"])
	assert.EqualValues(t, 900, snap["likes"])

	alphaID := alpha["id"].(string)

	status, body = ts.getJSON(t, "/api/games/"+alphaID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, prefix+" Alpha", body["name"])
	assert.Equal(t, "An obby about towers", body["description"])

	status, body = ts.getJSON(t, "/api/games/"+alphaID+"/history")
	require.Equal(t, http.StatusOK, status)
	history, _ := body["history"].([]any)
	require.Len(t, history, 1)

	// Resonance: the two games share both community groups.
	status, body = ts.getJSON(t, "/api/analytics/resonance/"+alphaID)
	require.Equal(t, http.StatusOK, status)
	resonance, _ := body["resonance"].([]any)
	require.NotEmpty(t, resonance, "no resonance results")
	top := resonance[0].(map[string]any)
	assert.Equal(t, prefix+" Beta", top["game_name"])
	assert.EqualValues(t, 2, top["shared_groups"])
	assert.InDelta(t, 100.0, top["overlap_percent"], 0.01)
	assert.InDelta(t, 1.0, top["genre_similarity"], 0.01)

	status, body = ts.getJSON(t, "/api/analytics/summary")
	require.Equal(t, http.StatusOK, status)
	assert.GreaterOrEqual(t, body["total_games"].(float64), 2.0)
	require.NotNil(t, body["last_run"], "summary last_run missing")

	status, body = ts.postJSON(t, "/api/scraping/stop", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "IDLE", body["mode"])
	assert.Nil(t, body["next_run_at"])
}

// TestE2E_SecondCycleAppendsHistory starts the cadence twice and checks
// that the game keeps one snapshot per cycle.
func TestE2E_SecondCycleAppendsHistory(t *testing.T) {
	ts := setupTestServer(t)

	base := time.Now().UnixNano()
	name := uniqueName("Repeat")
	game := fakeGame{
		UniverseID:  base,
		Name:        name,
		PlayerCount: 100,
		Visits:      1000,
		Genre:       "Strategy",
	}
	ts.Roblox.setGames([]fakeGame{game})

	since := time.Now().UTC().Add(-time.Second)
	status, _ := ts.postJSON(t, "/api/scraping/start", nil)
	require.Equal(t, http.StatusOK, status)
	first := ts.waitForTerminalRun(t, since, 15*time.Second)
	require.Equal(t, "SUCCESS", first["status"])

	game.PlayerCount = 250
	game.Visits = 2000
	ts.Roblox.setGames([]fakeGame{game})

	// Replacing the cadence fires a fresh cycle immediately.
	firstStart, err := time.Parse(time.RFC3339Nano, first["started_at"].(string))
	require.NoError(t, err)
	status, _ = ts.postJSON(t, "/api/scraping/start", nil)
	require.Equal(t, http.StatusOK, status)
	second := ts.waitForTerminalRun(t, firstStart.Add(time.Millisecond), 15*time.Second)
	require.Equal(t, "SUCCESS", second["status"])
	assert.EqualValues(t, 0, second["new_games_found"])

	status, body := ts.getJSON(t, "/api/games?search="+urlQuery(name))
	require.Equal(t, http.StatusOK, status)
	games, _ := body["games"].([]any)
	require.Len(t, games, 1)
	id := games[0].(map[string]any)["id"].(string)

	status, body = ts.getJSON(t, "/api/games/"+id+"/history")
	require.Equal(t, http.StatusOK, status)
	history, _ := body["history"].([]any)
	require.Len(t, history, 2)

	// Newest first.
	newest := history[0].(map[string]any)
	assert.EqualValues(t, 250, newest["active_players"])
	oldest := history[1].(map[string]any)
	assert.EqualValues(t, 100, oldest["active_players"])

	ts.postJSON(t, "/api/scraping/stop", nil)
}

func TestE2E_StartRejectsTinyInterval(t *testing.T) {
	ts := setupTestServer(t)

	status, body := ts.postJSON(t, "/api/scraping/start", map[string]any{"interval_seconds": 5})
	require.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, body["error"])
}

func TestE2E_UnknownGameReturns404(t *testing.T) {
	ts := setupTestServer(t)

	status, _ := ts.getJSON(t, "/api/games/00000000-0000-0000-0000-000000000001")
	require.Equal(t, http.StatusNotFound, status)

	status, _ = ts.getJSON(t, "/api/games/not-a-uuid")
	require.Equal(t, http.StatusBadRequest, status)
}

func TestE2E_RequestIDPropagated(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := ts.Client.Get(ts.URL + "/live")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}
