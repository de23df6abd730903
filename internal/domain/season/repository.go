package season

import "context"

// Repository is the storage contract for seasons and per-season user points.
// House standings live in the house repository; the award ledger writes both.
type Repository interface {
	// GetActive returns the single active season.
	// Returns shared.ErrNoActiveSeason when no season is active.
	GetActive(ctx context.Context) (*Season, error)

	// GetByID returns a season by ID.
	// Returns shared.ErrSeasonNotFound when absent.
	GetByID(ctx context.Context, id int64) (*Season, error)

	// List returns all seasons, newest first.
	List(ctx context.Context) ([]*Season, error)

	// Create inserts a new season (administrative flows only).
	Create(ctx context.Context, s *Season) error

	// Activate makes the given season the single active one, deactivating
	// any other, as one atomic statement pair.
	Activate(ctx context.Context, id int64) error

	// UserLeaderboard returns the season's user leaderboard ordered by
	// points descending, capped at limit, with ranks assigned.
	UserLeaderboard(ctx context.Context, seasonID int64, limit int) ([]*LeaderboardEntry, error)

	// PointsFor returns one user's running total for a season; a zero-point
	// row when the user has not scored yet.
	PointsFor(ctx context.Context, userID string, seasonID int64) (*UserPoints, error)
}
