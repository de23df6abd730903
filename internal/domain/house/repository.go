package house

import "context"

// Repository is the storage contract for houses and the sorting quiz.
// Houses are seeded by migrations; there is no create or delete.
type Repository interface {
	// ListOverviews returns all houses with live membership aggregates,
	// ordered by house ID.
	ListOverviews(ctx context.Context) ([]*Overview, error)

	// GetByID returns a house by ID.
	// Returns shared.ErrHouseNotFound when absent.
	GetByID(ctx context.Context, id int64) (*House, error)

	// GeneralStandings returns the lifetime cup table, ordered by points
	// descending with ranks assigned.
	GeneralStandings(ctx context.Context) ([]*Standing, error)

	// SeasonStandings returns the cup table for one season, ordered by
	// points descending with ranks assigned. Houses with no standing row
	// appear with zero points.
	SeasonStandings(ctx context.Context, seasonID int64) ([]*Standing, error)

	// ListMembers returns a house's internal leaderboard, ordered by
	// lifetime points descending, capped at limit.
	ListMembers(ctx context.Context, houseID int64, limit int) ([]*Member, error)

	// ListQuizQuestions returns the sorting quiz ordered by OrderIndex.
	ListQuizQuestions(ctx context.Context) ([]*QuizQuestion, error)
}
