// Package postgres implements the PostgreSQL persistence layer for the
// Houses Steam Planner.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/progress"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// Implements both progress.Repository (sync writes) and progress.HistoryReader
// (the read-only slice the metric resolver sees).
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository and progress.HistoryReader.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Sync writes
// ─────────────────────────────────────────────────────────────────────────────

// UpsertGameProgress creates or refreshes the per-(user, game) row.
func (r *ProgressRepository) UpsertGameProgress(ctx context.Context, p *progress.GameProgress) error {
	query := `
		INSERT INTO user_games (
			user_id, app_id, playtime_forever, achievements_unlocked, achievements_total,
			completion_percentage, first_achievement_at, last_achievement_at, completed_at, synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, app_id) DO UPDATE SET
			playtime_forever = EXCLUDED.playtime_forever,
			achievements_unlocked = EXCLUDED.achievements_unlocked,
			achievements_total = EXCLUDED.achievements_total,
			completion_percentage = EXCLUDED.completion_percentage,
			first_achievement_at = EXCLUDED.first_achievement_at,
			last_achievement_at = EXCLUDED.last_achievement_at,
			completed_at = COALESCE(user_games.completed_at, EXCLUDED.completed_at),
			synced_at = EXCLUDED.synced_at
	`

	_, err := r.conn.Exec(ctx, query,
		p.UserID,
		p.AppID,
		p.PlaytimeForever,
		p.AchievementsUnlocked,
		p.AchievementsTotal,
		p.CompletionPercentage,
		p.FirstAchievementAt,
		p.LastAchievementAt,
		p.CompletedAt,
		p.SyncedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert game progress: %w", err)
	}

	return nil
}

// GetGameProgress returns the progress row for a user and game.
func (r *ProgressRepository) GetGameProgress(ctx context.Context, userID string, appID int64) (*progress.GameProgress, error) {
	query := `
		SELECT user_id, app_id, playtime_forever, achievements_unlocked, achievements_total,
			   completion_percentage, first_achievement_at, last_achievement_at, completed_at, synced_at
		FROM user_games
		WHERE user_id = $1 AND app_id = $2
	`

	var p progress.GameProgress
	err := r.conn.QueryRow(ctx, query, userID, appID).Scan(
		&p.UserID,
		&p.AppID,
		&p.PlaytimeForever,
		&p.AchievementsUnlocked,
		&p.AchievementsTotal,
		&p.CompletionPercentage,
		&p.FirstAchievementAt,
		&p.LastAchievementAt,
		&p.CompletedAt,
		&p.SyncedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to get game progress: %w", err)
	}

	return &p, nil
}

// ListCompletedGames returns the app IDs of the user's 100% games, ordered by
// app ID so re-evaluation batches walk them in a stable order.
func (r *ProgressRepository) ListCompletedGames(ctx context.Context, userID string) ([]int64, error) {
	query := `
		SELECT app_id FROM user_games
		WHERE user_id = $1 AND completion_percentage = 100
		ORDER BY app_id ASC
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed games: %w", err)
	}
	defer rows.Close()

	var appIDs []int64
	for rows.Next() {
		var appID int64
		if err := rows.Scan(&appID); err != nil {
			return nil, fmt.Errorf("failed to scan app id: %w", err)
		}
		appIDs = append(appIDs, appID)
	}

	return appIDs, rows.Err()
}

// UpsertUnlocks replaces or inserts the unlock rows for one game sync.
// Uses a pgx batch so a large game costs one round trip.
func (r *ProgressRepository) UpsertUnlocks(ctx context.Context, unlocks []progress.AchievementUnlock) error {
	if len(unlocks) == 0 {
		return nil
	}

	query := `
		INSERT INTO user_achievements (user_id, app_id, api_name, unlocked, unlock_time, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, app_id, api_name) DO UPDATE SET
			unlocked = EXCLUDED.unlocked,
			unlock_time = EXCLUDED.unlock_time,
			synced_at = EXCLUDED.synced_at
	`

	batch := &pgx.Batch{}
	for _, u := range unlocks {
		batch.Queue(query, u.UserID, u.AppID, u.APIName, u.Unlocked, u.UnlockTime, u.SyncedAt)
	}

	results := r.conn.Pool().SendBatch(ctx, batch)
	defer results.Close()

	for range unlocks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert unlocks: %w", err)
		}
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// HistoryReader (metric resolver queries)
// ─────────────────────────────────────────────────────────────────────────────

// UnlockBounds returns the first and most recent unlock timestamps for a game.
func (r *ProgressRepository) UnlockBounds(ctx context.Context, userID string, appID int64) (time.Time, time.Time, bool, error) {
	query := `
		SELECT MIN(unlock_time), MAX(unlock_time), COUNT(*)
		FROM user_achievements
		WHERE user_id = $1 AND app_id = $2 AND unlocked AND unlock_time IS NOT NULL
	`

	var (
		first, last *time.Time
		count       int
	)
	err := r.conn.QueryRow(ctx, query, userID, appID).Scan(&first, &last, &count)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("failed to query unlock bounds: %w", err)
	}
	if count < 2 || first == nil || last == nil {
		return time.Time{}, time.Time{}, false, nil
	}

	return *first, *last, true, nil
}

// DistinctUnlockDayCount counts distinct UTC days with at least one unlock.
func (r *ProgressRepository) DistinctUnlockDayCount(ctx context.Context, userID string, appID int64) (int, error) {
	query := `
		SELECT COUNT(DISTINCT (unlock_time AT TIME ZONE 'UTC')::date)
		FROM user_achievements
		WHERE user_id = $1 AND app_id = $2 AND unlocked AND unlock_time IS NOT NULL
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, userID, appID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unlock days: %w", err)
	}

	return count, nil
}

// RecentUnlockDays returns the user's distinct unlock days across all games,
// most recent first.
func (r *ProgressRepository) RecentUnlockDays(ctx context.Context, userID string, limit int) ([]time.Time, error) {
	query := `
		SELECT DISTINCT (unlock_time AT TIME ZONE 'UTC')::date AS day
		FROM user_achievements
		WHERE user_id = $1 AND unlocked AND unlock_time IS NOT NULL
		ORDER BY day DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unlock days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("failed to scan unlock day: %w", err)
		}
		days = append(days, day.UTC())
	}

	return days, rows.Err()
}

// CompletedGameCount counts the user's 100% completed games.
func (r *ProgressRepository) CompletedGameCount(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM user_games
		WHERE user_id = $1 AND completion_percentage = 100
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed games: %w", err)
	}

	return count, nil
}

// DormancyAnchor returns the game's most recent unlock that happened strictly
// more than one day before the row's last sync. An unlock inside that final
// window belongs to the completing session, not to the dormant period.
func (r *ProgressRepository) DormancyAnchor(ctx context.Context, userID string, appID int64) (time.Time, bool, error) {
	query := `
		SELECT MAX(ua.unlock_time)
		FROM user_achievements ua
		JOIN user_games ug ON ug.user_id = ua.user_id AND ug.app_id = ua.app_id
		WHERE ua.user_id = $1 AND ua.app_id = $2
		  AND ua.unlocked AND ua.unlock_time IS NOT NULL
		  AND ua.unlock_time < ug.synced_at - INTERVAL '1 day'
	`

	var anchor *time.Time
	if err := r.conn.QueryRow(ctx, query, userID, appID).Scan(&anchor); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query dormancy anchor: %w", err)
	}
	if anchor == nil {
		return time.Time{}, false, nil
	}

	return *anchor, true, nil
}
