package rest

import "net/http"

// NewRouter assembles the HTTP surface. Middleware is applied by the
// caller around the returned mux.
func NewRouter(scraping *ScrapingHandler, games *GamesHandler, analytics *AnalyticsHandler, health *HealthHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/scraping/start", scraping.Start)
	mux.HandleFunc("POST /api/scraping/stop", scraping.Stop)
	mux.HandleFunc("GET /api/scraping/status", scraping.Status)
	mux.HandleFunc("GET /api/scraping/runs", scraping.Runs)

	mux.HandleFunc("GET /api/games", games.List)
	mux.HandleFunc("GET /api/games/{id}", games.Get)
	mux.HandleFunc("GET /api/games/{id}/history", games.History)

	mux.HandleFunc("GET /api/analytics/retention", analytics.Retention)
	mux.HandleFunc("GET /api/analytics/growth", analytics.Growth)
	mux.HandleFunc("GET /api/analytics/resonance/{id}", analytics.Resonance)
	mux.HandleFunc("GET /api/analytics/summary", analytics.Summary)

	mux.HandleFunc("GET /live", health.Live)
	mux.HandleFunc("GET /ready", health.Ready)
	mux.HandleFunc("GET /health", health.Health)

	return mux
}
