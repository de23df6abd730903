package query

import (
	"context"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/season"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEASON QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// GetSeasonLeaderboardQuery requests a season's user leaderboard.
// SeasonID 0 means the active season.
type GetSeasonLeaderboardQuery struct {
	SeasonID int64
	Limit    int
}

// Validate validates the query and applies the default limit.
func (q *GetSeasonLeaderboardQuery) Validate() error {
	if q.SeasonID < 0 {
		return shared.ErrSeasonNotFound
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 50
	}
	return nil
}

// GetSeasonLeaderboardResult is the leaderboard plus its season header.
type GetSeasonLeaderboardResult struct {
	Season  *season.Season             `json:"season"`
	Entries []*season.LeaderboardEntry `json:"entries"`
}

// GetSeasonLeaderboardHandler handles the GetSeasonLeaderboardQuery.
type GetSeasonLeaderboardHandler struct {
	seasons season.Repository
}

// NewGetSeasonLeaderboardHandler creates a new GetSeasonLeaderboardHandler.
func NewGetSeasonLeaderboardHandler(seasons season.Repository) *GetSeasonLeaderboardHandler {
	return &GetSeasonLeaderboardHandler{seasons: seasons}
}

// Handle returns the leaderboard for the requested or active season.
func (h *GetSeasonLeaderboardHandler) Handle(ctx context.Context, q GetSeasonLeaderboardQuery) (*GetSeasonLeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var target *season.Season
	var err error
	if q.SeasonID == 0 {
		target, err = h.seasons.GetActive(ctx)
	} else {
		target, err = h.seasons.GetByID(ctx, q.SeasonID)
	}
	if err != nil {
		return nil, err
	}

	entries, err := h.seasons.UserLeaderboard(ctx, target.ID, q.Limit)
	if err != nil {
		return nil, shared.WrapError("query", "GetSeasonLeaderboard", shared.ErrStorage, "failed to load season leaderboard", err)
	}

	if entries == nil {
		entries = []*season.LeaderboardEntry{}
	}
	return &GetSeasonLeaderboardResult{Season: target, Entries: entries}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SEASON LIST / MY POINTS
// ══════════════════════════════════════════════════════════════════════════════

// GetSeasonsHandler lists all seasons.
type GetSeasonsHandler struct {
	seasons season.Repository
}

// NewGetSeasonsHandler creates a new GetSeasonsHandler.
func NewGetSeasonsHandler(seasons season.Repository) *GetSeasonsHandler {
	return &GetSeasonsHandler{seasons: seasons}
}

// Handle returns every season, newest first.
func (h *GetSeasonsHandler) Handle(ctx context.Context) ([]*season.Season, error) {
	list, err := h.seasons.List(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetSeasons", shared.ErrStorage, "failed to load seasons", err)
	}
	return list, nil
}

// GetMySeasonPointsQuery requests one user's points in the active season.
type GetMySeasonPointsQuery struct {
	UserID string
}

// Validate validates the query.
func (q GetMySeasonPointsQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetMySeasonPoints", shared.ErrInvalidID, "user id is required")
	}
	return nil
}

// GetMySeasonPointsHandler handles the GetMySeasonPointsQuery.
type GetMySeasonPointsHandler struct {
	seasons season.Repository
}

// NewGetMySeasonPointsHandler creates a new GetMySeasonPointsHandler.
func NewGetMySeasonPointsHandler(seasons season.Repository) *GetMySeasonPointsHandler {
	return &GetMySeasonPointsHandler{seasons: seasons}
}

// Handle returns the user's running total in the active season; a zero-point
// row when they have not scored yet. Returns shared.ErrNoActiveSeason between
// seasons.
func (h *GetMySeasonPointsHandler) Handle(ctx context.Context, q GetMySeasonPointsQuery) (*season.UserPoints, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	active, err := h.seasons.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	points, err := h.seasons.PointsFor(ctx, q.UserID, active.ID)
	if err != nil {
		return nil, shared.WrapError("query", "GetMySeasonPoints", shared.ErrStorage, "failed to load season points", err)
	}
	return points, nil
}
