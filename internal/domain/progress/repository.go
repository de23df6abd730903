package progress

import (
	"context"
	"time"
)

// Repository defines storage operations for game progress and unlock history.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// UpsertGameProgress creates or refreshes the per-(user, game) row.
	UpsertGameProgress(ctx context.Context, p *GameProgress) error

	// GetGameProgress returns the progress row for a user and game.
	// Returns shared.ErrProgressNotFound when no row exists.
	GetGameProgress(ctx context.Context, userID string, appID int64) (*GameProgress, error)

	// ListCompletedGames returns the app IDs of the user's 100% games.
	ListCompletedGames(ctx context.Context, userID string) ([]int64, error)

	// UpsertUnlocks replaces or inserts the unlock rows for one game sync.
	UpsertUnlocks(ctx context.Context, unlocks []AchievementUnlock) error
}

// HistoryReader is the narrow read contract the metric resolver needs. It is
// intentionally smaller than Repository: evaluation must not be able to write.
type HistoryReader interface {
	// UnlockBounds returns the first and most recent unlock timestamps for a
	// game. ok is false when fewer than two unlock timestamps exist.
	UnlockBounds(ctx context.Context, userID string, appID int64) (first, last time.Time, ok bool, err error)

	// DistinctUnlockDayCount counts distinct UTC days with at least one
	// unlock for the given game.
	DistinctUnlockDayCount(ctx context.Context, userID string, appID int64) (int, error)

	// RecentUnlockDays returns the user's distinct unlock days across ALL
	// games, most recent first, capped at limit.
	RecentUnlockDays(ctx context.Context, userID string, limit int) ([]time.Time, error)

	// CompletedGameCount counts the user's 100% completed games.
	CompletedGameCount(ctx context.Context, userID string) (int, error)

	// DormancyAnchor returns the game's most recent unlock that happened
	// strictly more than one day before the progress row's last sync time.
	// ok is false when no such unlock exists.
	DormancyAnchor(ctx context.Context, userID string, appID int64) (prevUnlock time.Time, ok bool, err error)
}
