package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bloxpulse/backend/internal/domain"
)

// catalogService defines the minimal interface needed by GamesHandler.
type catalogService interface {
	List(ctx context.Context, filter domain.GameFilter) ([]domain.GameWithSnapshot, error)
	Get(ctx context.Context, id uuid.UUID) (domain.GameWithSnapshot, error)
	History(ctx context.Context, id uuid.UUID, limit int) ([]domain.Snapshot, error)
}

// GamesHandler serves the game catalogue endpoints.
type GamesHandler struct {
	svc catalogService
	log *slog.Logger
}

// NewGamesHandler creates a GamesHandler.
func NewGamesHandler(svc catalogService, logger *slog.Logger) *GamesHandler {
	return &GamesHandler{svc: svc, log: logger.With("handler", "games")}
}

type gameResponse struct {
	ID            string            `json:"id"`
	RobloxID      string            `json:"roblox_id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	CreatorID     string            `json:"creator_id,omitempty"`
	CreatorName   string            `json:"creator_name,omitempty"`
	Genre         string            `json:"genre,omitempty"`
	RobloxCreated *time.Time        `json:"roblox_created"`
	RobloxUpdated *time.Time        `json:"roblox_updated"`
	FirstSeenAt   time.Time         `json:"first_seen_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Latest        *snapshotResponse `json:"latest_snapshot"`
}

type snapshotResponse struct {
	Visits        int64     `json:"visits"`
	Favorites     int64     `json:"favorites"`
	Likes         int64     `json:"likes"`
	Dislikes      int64     `json:"dislikes"`
	ActivePlayers int64     `json:"active_players"`
	CapturedAt    time.Time `json:"captured_at"`
}

// List handles GET /api/games with search, sort and pagination query
// parameters.
func (h *GamesHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(r, "limit", 0)
	if !ok || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, ok := intQuery(r, "offset", 0)
	if !ok || offset < 0 {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	q := r.URL.Query()
	filter := domain.GameFilter{
		Search:    q.Get("search"),
		SortBy:    domain.GameSortField(q.Get("sort_by")),
		SortOrder: domain.SortOrder(q.Get("order")),
		Limit:     limit,
		Offset:    offset,
	}

	games, err := h.svc.List(r.Context(), filter)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := make([]gameResponse, 0, len(games))
	for _, g := range games {
		out = append(out, toGameResponse(g))
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": out})
}

// Get handles GET /api/games/{id}.
func (h *GamesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}

	game, err := h.svc.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toGameResponse(game))
}

// History handles GET /api/games/{id}/history?limit=, newest first.
func (h *GamesHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}

	limit, ok := intQuery(r, "limit", 0)
	if !ok || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	snaps, err := h.svc.History(r.Context(), id, limit)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := make([]snapshotResponse, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, toSnapshotResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": out})
}

func toGameResponse(g domain.GameWithSnapshot) gameResponse {
	resp := gameResponse{
		ID:            g.ID.String(),
		RobloxID:      g.RobloxID,
		Name:          g.Name,
		Description:   g.Description,
		CreatorID:     g.CreatorID,
		CreatorName:   g.CreatorName,
		Genre:         g.Genre,
		RobloxCreated: g.RobloxCreated,
		RobloxUpdated: g.RobloxUpdated,
		FirstSeenAt:   g.FirstSeenAt,
		UpdatedAt:     g.UpdatedAt,
	}
	if g.Latest != nil {
		s := toSnapshotResponse(*g.Latest)
		resp.Latest = &s
	}
	return resp
}

func toSnapshotResponse(s domain.Snapshot) snapshotResponse {
	return snapshotResponse{
		Visits:        s.Visits,
		Favorites:     s.Favorites,
		Likes:         s.Likes,
		Dislikes:      s.Dislikes,
		ActivePlayers: s.ActivePlayers,
		CapturedAt:    s.CapturedAt,
	}
}
