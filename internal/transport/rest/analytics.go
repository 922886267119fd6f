package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bloxpulse/backend/internal/config"
	"github.com/bloxpulse/backend/internal/domain"
)

// analyticsService defines the minimal interface needed by AnalyticsHandler.
type analyticsService interface {
	RetentionAll(ctx context.Context, horizonDays int, minBaselineActive int64) ([]domain.RetentionResult, error)
	GrowthAll(ctx context.Context, windowDays int, counter domain.Counter, minGrowthPercent float64) ([]domain.GrowthResult, error)
	Resonance(ctx context.Context, gameID uuid.UUID, limit int, minOverlap float64) ([]domain.ResonanceResult, error)
	Summary(ctx context.Context) (domain.AnalyticsSummary, error)
}

// AnalyticsHandler serves the analytics endpoints.
type AnalyticsHandler struct {
	svc analyticsService
	cfg config.AnalyticsConfig
	log *slog.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(svc analyticsService, cfg config.AnalyticsConfig, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, cfg: cfg, log: logger.With("handler", "analytics")}
}

type retentionResponse struct {
	GameID           string    `json:"game_id"`
	GameName         string    `json:"game_name"`
	HorizonDays      int       `json:"horizon_days"`
	Percent          *float64  `json:"percent"`
	BaselineActive   int64     `json:"baseline_active"`
	BaselineCaptured time.Time `json:"baseline_captured"`
	HorizonCaptured  time.Time `json:"horizon_captured"`
}

type growthResponse struct {
	GameID     string   `json:"game_id"`
	GameName   string   `json:"game_name"`
	WindowDays int      `json:"window_days"`
	Metric     string   `json:"metric"`
	Percent    *float64 `json:"percent"`
	RecentAvg  *float64 `json:"recent_avg"`
	OlderAvg   *float64 `json:"older_avg"`
}

type resonanceResponse struct {
	GameID          string  `json:"game_id"`
	GameName        string  `json:"game_name"`
	OverlapPercent  float64 `json:"overlap_percent"`
	GenreSimilarity float64 `json:"genre_similarity"`
	Score           float64 `json:"score"`
	SharedGroups    int     `json:"shared_groups"`
}

type summaryResponse struct {
	TotalGames     int          `json:"total_games"`
	TotalVisits    int64        `json:"total_visits"`
	NewGamesLast24 int          `json:"new_games_last_24h"`
	LastRun        *runResponse `json:"last_run"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

// Retention handles GET /api/analytics/retention?horizon_days=&min_active=.
func (h *AnalyticsHandler) Retention(w http.ResponseWriter, r *http.Request) {
	horizon, ok := intQuery(r, "horizon_days", 7)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid horizon_days")
		return
	}
	minActive, ok := intQuery(r, "min_active", int(h.cfg.MinActivePlayers))
	if !ok || minActive < 0 {
		writeError(w, http.StatusBadRequest, "invalid min_active")
		return
	}

	results, err := h.svc.RetentionAll(r.Context(), horizon, int64(minActive))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := make([]retentionResponse, 0, len(results))
	for _, res := range results {
		out = append(out, retentionResponse{
			GameID:           res.GameID.String(),
			GameName:         res.GameName,
			HorizonDays:      res.HorizonDays,
			Percent:          res.Percent,
			BaselineActive:   res.BaselineActive,
			BaselineCaptured: res.BaselineCaptured,
			HorizonCaptured:  res.HorizonCaptured,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"retention": out})
}

// Growth handles GET /api/analytics/growth?window_days=&metric=&min_growth=.
func (h *AnalyticsHandler) Growth(w http.ResponseWriter, r *http.Request) {
	window, ok := intQuery(r, "window_days", h.cfg.GrowthWindowDays)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid window_days")
		return
	}
	minGrowth, ok := floatQuery(r, "min_growth", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid min_growth")
		return
	}

	metric := domain.Counter(r.URL.Query().Get("metric"))
	if metric == "" {
		metric = domain.CounterActivePlayers
	}

	results, err := h.svc.GrowthAll(r.Context(), window, metric, minGrowth)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := make([]growthResponse, 0, len(results))
	for _, res := range results {
		out = append(out, growthResponse{
			GameID:     res.GameID.String(),
			GameName:   res.GameName,
			WindowDays: res.WindowDays,
			Metric:     string(res.Counter),
			Percent:    res.Percent,
			RecentAvg:  res.RecentAvg,
			OlderAvg:   res.OlderAvg,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"growth": out})
}

// Resonance handles GET /api/analytics/resonance/{id}?limit=&min_overlap=.
func (h *AnalyticsHandler) Resonance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}

	limit, ok := intQuery(r, "limit", h.cfg.ResonanceLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	minOverlap, ok := floatQuery(r, "min_overlap", h.cfg.MinOverlap)
	if !ok || minOverlap < 0 {
		writeError(w, http.StatusBadRequest, "invalid min_overlap")
		return
	}

	results, err := h.svc.Resonance(r.Context(), id, limit, minOverlap)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := make([]resonanceResponse, 0, len(results))
	for _, res := range results {
		out = append(out, resonanceResponse{
			GameID:          res.GameID.String(),
			GameName:        res.GameName,
			OverlapPercent:  res.OverlapPercent,
			GenreSimilarity: res.GenreSimilarity,
			Score:           res.Score,
			SharedGroups:    res.SharedGroups,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"resonance": out})
}

// Summary handles GET /api/analytics/summary.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	resp := summaryResponse{
		TotalGames:     sum.TotalGames,
		TotalVisits:    sum.TotalVisits,
		NewGamesLast24: sum.NewGamesLast24,
		GeneratedAt:    sum.GeneratedAt,
	}
	if sum.LastRun != nil {
		run := toRunResponse(*sum.LastRun)
		resp.LastRun = &run
	}
	writeJSON(w, http.StatusOK, resp)
}
