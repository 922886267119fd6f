// Package roblox fetches trending game data from the public Roblox APIs.
// The listing comes from the explore API; counters and display fields are
// enriched through the games API in bounded concurrent chunks.
package roblox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/bloxpulse/backend/internal/config"
	"github.com/bloxpulse/backend/internal/domain"
)

const (
	defaultExploreURL = "https://apis.roblox.com/explore-api/v1/get-sort-content"
	defaultGamesURL   = "https://games.roblox.com/v1/games"

	// The details endpoint caps universeIds at 50 per request.
	detailChunkSize = 49

	trendingSortID = "top-trending"
)

// Client fetches trending game data from the Roblox APIs.
type Client struct {
	exploreURL string
	gamesURL   string
	httpClient *http.Client
	log        *slog.Logger

	maxConcurrent int
	retryAttempts uint64
}

// New creates a Client against the public Roblox API endpoints.
func New(cfg config.ScraperConfig, logger *slog.Logger) *Client {
	return NewWithURLs(defaultExploreURL, defaultGamesURL, cfg, logger)
}

// NewWithURLs creates a Client with custom endpoints (for testing).
func NewWithURLs(exploreURL, gamesURL string, cfg config.ScraperConfig, logger *slog.Logger) *Client {
	maxConcurrent := cfg.MaxConcurrentFetches
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Client{
		exploreURL:    exploreURL,
		gamesURL:      gamesURL,
		httpClient:    &http.Client{Timeout: cfg.RequestTimeout},
		log:           logger.With("adapter", "roblox"),
		maxConcurrent: maxConcurrent,
		retryAttempts: uint64(max(cfg.RetryAttempts, 0)),
	}
}

// ListTrending returns the current trending games with their counter
// readings. A failed listing call returns domain.ErrSourceUnavailable;
// failed detail chunks only degrade the affected games to listing-level
// data.
func (c *Client) ListTrending(ctx context.Context) ([]domain.ScrapedGame, error) {
	listing, err := c.fetchListing(ctx)
	if err != nil {
		c.log.ErrorContext(ctx, "trending listing failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("trending listing: %w (%v)", domain.ErrSourceUnavailable, err)
	}

	games := make([]domain.ScrapedGame, 0, len(listing.Games))
	universeIDs := make([]string, 0, len(listing.Games))
	for _, g := range listing.Games {
		if g.UniverseID == 0 {
			continue
		}
		id := strconv.FormatInt(g.UniverseID, 10)
		universeIDs = append(universeIDs, id)
		games = append(games, domain.ScrapedGame{
			GameUpsert: domain.GameUpsert{
				RobloxID: id,
				Name:     g.Name,
			},
			Likes:         g.TotalUpVotes,
			Dislikes:      g.TotalDownVotes,
			ActivePlayers: g.PlayerCount,
		})
	}

	details := c.fetchDetails(ctx, universeIDs)
	for i := range games {
		d, ok := details[games[i].RobloxID]
		if !ok {
			continue
		}
		games[i].Description = d.Description
		games[i].CreatorID = strconv.FormatInt(d.Creator.ID, 10)
		games[i].CreatorName = d.Creator.Name
		games[i].Genre = d.Genre
		games[i].RobloxCreated = parseAPITime(d.Created)
		games[i].RobloxUpdated = parseAPITime(d.Updated)
		games[i].Visits = d.Visits
		games[i].Favorites = d.FavoritedCount
		if d.Playing > 0 {
			games[i].ActivePlayers = d.Playing
		}
	}

	c.log.InfoContext(ctx, "trending listing fetched",
		slog.Int("games", len(games)),
		slog.Int("enriched", len(details)),
	)

	return games, nil
}

// FetchGameGroups returns the ids of community groups linked from the
// game's social links.
func (c *Client) FetchGameGroups(ctx context.Context, robloxID string) ([]string, error) {
	reqURL := c.gamesURL + "/" + url.PathEscape(robloxID) + "/social-links/list"

	body, err := c.getWithRetry(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("roblox: fetch game groups %s: %w", robloxID, err)
	}

	var links socialLinksResponse
	if err := json.Unmarshal(body, &links); err != nil {
		return nil, fmt.Errorf("roblox: decode social links: %w", err)
	}

	var groups []string
	for _, l := range links.Data {
		if strings.EqualFold(l.Type, "Group") {
			groups = append(groups, strconv.FormatInt(l.ID, 10))
		}
	}
	return groups, nil
}

func (c *Client) fetchListing(ctx context.Context) (*sortContentResponse, error) {
	params := url.Values{}
	params.Set("sortId", trendingSortID)
	params.Set("country", "all")
	params.Set("device", "all")

	body, err := c.getWithRetry(ctx, c.exploreURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var listing sortContentResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return &listing, nil
}

// fetchDetails resolves batch details for the given universe ids, keyed by
// universe id. Chunks run concurrently, bounded by the configured fetch
// limit; a failed chunk is logged and skipped.
func (c *Client) fetchDetails(ctx context.Context, universeIDs []string) map[string]gameDetail {
	details := make(map[string]gameDetail, len(universeIDs))
	if len(universeIDs) == 0 {
		return details
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)

	for start := 0; start < len(universeIDs); start += detailChunkSize {
		chunk := universeIDs[start:min(start+detailChunkSize, len(universeIDs))]
		g.Go(func() error {
			reqURL := c.gamesURL + "?universeIds=" + strings.Join(chunk, ",")

			body, err := c.getWithRetry(gctx, reqURL)
			if err != nil {
				c.log.WarnContext(gctx, "detail chunk failed",
					slog.Int("chunk_size", len(chunk)),
					slog.String("error", err.Error()),
				)
				return nil
			}

			var resp gameDetailsResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				c.log.WarnContext(gctx, "detail chunk decode failed", slog.String("error", err.Error()))
				return nil
			}

			mu.Lock()
			for _, d := range resp.Data {
				details[strconv.FormatInt(d.ID, 10)] = d
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return details
}

// getWithRetry performs a GET with exponential backoff on network errors
// and 5xx responses. 4xx responses are not retried.
func (c *Client) getWithRetry(ctx context.Context, reqURL string) ([]byte, error) {
	backoff := retry.WithMaxRetries(c.retryAttempts, retry.NewExponential(500*time.Millisecond))

	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func parseAPITime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
