package game

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/bloxpulse/backend/internal/domain"
)

// latestSnapshotJoin picks each game's most recent snapshot. Ordering by
// (captured_at, id) matches the store's insertion sequence so same-instant
// snapshots resolve deterministically.
const latestSnapshotJoin = `LATERAL (
    SELECT s.id, s.visits, s.favorites, s.likes, s.dislikes, s.active_players, s.captured_at
    FROM game_snapshots s
    WHERE s.game_id = g.id
    ORDER BY s.captured_at DESC, s.id DESC
    LIMIT 1
) ls ON true`

// buildListQuery renders the catalogue listing query from a filter.
// Sort fields go through the domain whitelist; raw user input never
// reaches the ORDER BY clause.
func buildListQuery(filter domain.GameFilter) (string, []any, error) {
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = domain.GameSortUpdatedAt
	}
	if !sortBy.IsValid() {
		return "", nil, fmt.Errorf("sort field %q: %w", sortBy, domain.ErrValidation)
	}

	order := filter.SortOrder
	if order == "" {
		order = domain.SortDesc
	}
	if !order.IsValid() {
		return "", nil, fmt.Errorf("sort order %q: %w", order, domain.ErrValidation)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	b := sq.Select(
		"g.id", "g.roblox_id", "g.name", "g.description",
		"g.creator_id", "g.creator_name", "g.genre",
		"g.roblox_created", "g.roblox_updated", "g.first_seen_at", "g.updated_at",
		"ls.id", "ls.visits", "ls.favorites", "ls.likes", "ls.dislikes",
		"ls.active_players", "ls.captured_at",
	).
		From("games g").
		LeftJoin(latestSnapshotJoin).
		PlaceholderFormat(sq.Dollar).
		Limit(uint64(limit)).
		Offset(uint64(max(filter.Offset, 0)))

	if filter.Search != "" {
		b = b.Where(sq.ILike{"g.name": "%" + filter.Search + "%"})
	}

	b = b.OrderBy(orderClause(sortBy, order))

	return b.ToSql()
}

func orderClause(field domain.GameSortField, order domain.SortOrder) string {
	dir := "ASC"
	if order == domain.SortDesc {
		dir = "DESC"
	}

	if field.IsCounterField() {
		// Counter sorts read from the joined latest snapshot; games with
		// no snapshots sort last either way.
		return fmt.Sprintf("ls.%s %s NULLS LAST", field, dir)
	}
	return fmt.Sprintf("g.%s %s", field, dir)
}
