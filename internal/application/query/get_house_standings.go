package query

import (
	"context"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/house"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/season"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HOUSE CUP QUERY
/// The cup view compares all four houses twice: lifetime points and the
// current season's points. The season block is nil between seasons.
// ══════════════════════════════════════════════════════════════════════════════

// StandingsCache is an optional read-through cache for cup standings.
// Implementations live in infrastructure/persistence/redis.
type StandingsCache interface {
	// GetSeasonStandings returns cached standings, ok=false on miss.
	GetSeasonStandings(ctx context.Context, seasonID int64) ([]*house.Standing, bool, error)

	// SetSeasonStandings stores the standings for a short TTL.
	SetSeasonStandings(ctx context.Context, seasonID int64, standings []*house.Standing) error
}

// SeasonCupDTO is the seasonal half of the cup view.
type SeasonCupDTO struct {
	SeasonID   int64             `json:"seasonId"`
	SeasonName string            `json:"seasonName"`
	Standings  []*house.Standing `json:"standings"`
}

// HouseCupResult is the full cup comparison.
type HouseCupResult struct {
	General []*house.Standing `json:"general"`
	Season  *SeasonCupDTO     `json:"season,omitempty"`
}

// GetHouseCupHandler handles the cup standings query.
type GetHouseCupHandler struct {
	houses  house.Repository
	seasons season.Repository
	cache   StandingsCache
}

// NewGetHouseCupHandler creates a new GetHouseCupHandler. cache may be nil.
func NewGetHouseCupHandler(houses house.Repository, seasons season.Repository, cache StandingsCache) *GetHouseCupHandler {
	return &GetHouseCupHandler{houses: houses, seasons: seasons, cache: cache}
}

// Handle returns the cup standings. Cache misses and cache failures both
// fall through to the repository; the cache is never load-bearing.
func (h *GetHouseCupHandler) Handle(ctx context.Context) (*HouseCupResult, error) {
	general, err := h.houses.GeneralStandings(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetHouseCup", shared.ErrStorage, "failed to load general standings", err)
	}

	result := &HouseCupResult{General: general}

	active, err := h.seasons.GetActive(ctx)
	if err != nil {
		if shared.IsNotFound(err) {
			return result, nil
		}
		return nil, shared.WrapError("query", "GetHouseCup", shared.ErrStorage, "failed to resolve active season", err)
	}

	standings, err := h.seasonStandings(ctx, active.ID)
	if err != nil {
		return nil, err
	}

	result.Season = &SeasonCupDTO{
		SeasonID:   active.ID,
		SeasonName: active.Name,
		Standings:  standings,
	}
	return result, nil
}

func (h *GetHouseCupHandler) seasonStandings(ctx context.Context, seasonID int64) ([]*house.Standing, error) {
	if h.cache != nil {
		if cached, ok, err := h.cache.GetSeasonStandings(ctx, seasonID); err == nil && ok {
			return cached, nil
		}
	}

	standings, err := h.houses.SeasonStandings(ctx, seasonID)
	if err != nil {
		return nil, shared.WrapError("query", "GetHouseCup", shared.ErrStorage, "failed to load season standings", err)
	}

	if h.cache != nil {
		_ = h.cache.SetSeasonStandings(ctx, seasonID, standings)
	}
	return standings, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HOUSE LIST / MEMBERS / QUIZ QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// GetHousesHandler returns all houses with membership aggregates.
type GetHousesHandler struct {
	houses house.Repository
}

// NewGetHousesHandler creates a new GetHousesHandler.
func NewGetHousesHandler(houses house.Repository) *GetHousesHandler {
	return &GetHousesHandler{houses: houses}
}

// Handle returns the house overviews ordered by house ID.
func (h *GetHousesHandler) Handle(ctx context.Context) ([]*house.Overview, error) {
	overviews, err := h.houses.ListOverviews(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetHouses", shared.ErrStorage, "failed to load houses", err)
	}
	return overviews, nil
}

// GetHouseMembersQuery requests one house's internal leaderboard.
type GetHouseMembersQuery struct {
	HouseID int64
	Limit   int
}

// Validate validates the query and applies the default limit.
func (q *GetHouseMembersQuery) Validate() error {
	if q.HouseID <= 0 {
		return shared.ErrHouseNotFound
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 50
	}
	return nil
}

// GetHouseMembersHandler handles the GetHouseMembersQuery.
type GetHouseMembersHandler struct {
	houses house.Repository
}

// NewGetHouseMembersHandler creates a new GetHouseMembersHandler.
func NewGetHouseMembersHandler(houses house.Repository) *GetHouseMembersHandler {
	return &GetHouseMembersHandler{houses: houses}
}

// Handle returns the members ranked by lifetime points.
func (h *GetHouseMembersHandler) Handle(ctx context.Context, q GetHouseMembersQuery) ([]*house.Member, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if _, err := h.houses.GetByID(ctx, q.HouseID); err != nil {
		return nil, err
	}

	members, err := h.houses.ListMembers(ctx, q.HouseID, q.Limit)
	if err != nil {
		return nil, shared.WrapError("query", "GetHouseMembers", shared.ErrStorage, "failed to load house members", err)
	}
	return members, nil
}

// GetQuizHandler returns the sorting quiz.
type GetQuizHandler struct {
	houses house.Repository
}

// NewGetQuizHandler creates a new GetQuizHandler.
func NewGetQuizHandler(houses house.Repository) *GetQuizHandler {
	return &GetQuizHandler{houses: houses}
}

// Handle returns the quiz questions in display order.
func (h *GetQuizHandler) Handle(ctx context.Context) ([]*house.QuizQuestion, error) {
	questions, err := h.houses.ListQuizQuestions(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetQuiz", shared.ErrStorage, "failed to load quiz questions", err)
	}
	return questions, nil
}
