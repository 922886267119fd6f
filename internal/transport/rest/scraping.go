package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bloxpulse/backend/internal/domain"
)

// scrapeService defines the minimal interface needed by ScrapingHandler.
type scrapeService interface {
	Start(ctx context.Context, interval *time.Duration) (domain.ScheduleStatus, error)
	Stop(ctx context.Context) (domain.ScheduleStatus, error)
	Status(ctx context.Context) (domain.ScheduleStatus, error)
	Runs(ctx context.Context, limit int) ([]domain.ScrapeRun, error)
}

// ScrapingHandler serves the scrape scheduling endpoints.
type ScrapingHandler struct {
	svc scrapeService
	log *slog.Logger
}

// NewScrapingHandler creates a ScrapingHandler.
func NewScrapingHandler(svc scrapeService, logger *slog.Logger) *ScrapingHandler {
	return &ScrapingHandler{svc: svc, log: logger.With("handler", "scraping")}
}

type startRequest struct {
	IntervalSeconds *int64 `json:"interval_seconds"`
}

type scheduleStatusResponse struct {
	Mode            string       `json:"mode"`
	IntervalSeconds int64        `json:"interval_seconds"`
	NextRunAt       *time.Time   `json:"next_run_at"`
	LastRun         *runResponse `json:"last_run"`
}

type runResponse struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	GamesScraped    int        `json:"games_scraped"`
	NewGamesFound   int        `json:"new_games_found"`
	Errors          string     `json:"errors,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	DurationSeconds *float64   `json:"duration_seconds"`
}

// Start handles POST /api/scraping/start. The body is optional; an
// interval override replaces the configured cadence. Starting while a
// cadence is active replaces it and is never a conflict.
func (h *ScrapingHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var interval *time.Duration
	if req.IntervalSeconds != nil {
		iv := time.Duration(*req.IntervalSeconds) * time.Second
		interval = &iv
	}

	status, err := h.svc.Start(r.Context(), interval)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toScheduleStatusResponse(status))
}

// Stop handles POST /api/scraping/stop.
func (h *ScrapingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Stop(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toScheduleStatusResponse(status))
}

// Status handles GET /api/scraping/status.
func (h *ScrapingHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toScheduleStatusResponse(status))
}

// Runs handles GET /api/scraping/runs?limit=.
func (h *ScrapingHandler) Runs(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(r, "limit", 20)
	if !ok || limit < 1 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

func toScheduleStatusResponse(s domain.ScheduleStatus) scheduleStatusResponse {
	resp := scheduleStatusResponse{
		Mode:            string(s.Mode),
		IntervalSeconds: int64(s.Interval / time.Second),
		NextRunAt:       s.NextRunAt,
	}
	if s.LastRun != nil {
		run := toRunResponse(*s.LastRun)
		resp.LastRun = &run
	}
	return resp
}

func toRunResponse(run domain.ScrapeRun) runResponse {
	resp := runResponse{
		ID:            run.ID.String(),
		Status:        string(run.Status),
		GamesScraped:  run.GamesScraped,
		NewGamesFound: run.NewGamesFound,
		Errors:        run.Errors,
		StartedAt:     run.StartedAt,
		CompletedAt:   run.CompletedAt,
	}
	if run.CompletedAt != nil {
		d := run.Duration().Seconds()
		resp.DurationSeconds = &d
	}
	return resp
}
