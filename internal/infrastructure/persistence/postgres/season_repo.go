// Package postgres implements the PostgreSQL persistence layer for the
// Houses Steam Planner.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/season"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEASON REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SeasonRepository implements season.Repository for PostgreSQL.
type SeasonRepository struct {
	conn *Connection
}

// NewSeasonRepository creates a new SeasonRepository.
func NewSeasonRepository(conn *Connection) *SeasonRepository {
	return &SeasonRepository{conn: conn}
}

const seasonColumns = `id, name, start_date, end_date, is_active, created_at`

// GetActive returns the single active season. A partial unique index on the
// seasons table guarantees at most one row can match.
func (r *SeasonRepository) GetActive(ctx context.Context) (*season.Season, error) {
	query := fmt.Sprintf(`SELECT %s FROM seasons WHERE is_active`, seasonColumns)

	s, err := r.scanSeason(r.conn.QueryRow(ctx, query))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNoActiveSeason
		}
		return nil, fmt.Errorf("failed to get active season: %w", err)
	}
	return s, nil
}

// GetByID returns a season by ID.
func (r *SeasonRepository) GetByID(ctx context.Context, id int64) (*season.Season, error) {
	query := fmt.Sprintf(`SELECT %s FROM seasons WHERE id = $1`, seasonColumns)

	s, err := r.scanSeason(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSeasonNotFound
		}
		return nil, fmt.Errorf("failed to get season %d: %w", id, err)
	}
	return s, nil
}

// List returns all seasons, newest first.
func (r *SeasonRepository) List(ctx context.Context) ([]*season.Season, error) {
	query := fmt.Sprintf(`SELECT %s FROM seasons ORDER BY start_date DESC, id DESC`, seasonColumns)

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query seasons: %w", err)
	}
	defer rows.Close()

	var seasons []*season.Season
	for rows.Next() {
		s, err := r.scanSeason(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan season row: %w", err)
		}
		seasons = append(seasons, s)
	}

	return seasons, rows.Err()
}

// Create inserts a new season. New seasons start inactive; Activate flips the
// switch.
func (r *SeasonRepository) Create(ctx context.Context, s *season.Season) error {
	if err := s.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO seasons (name, start_date, end_date, is_active)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id, created_at
	`

	err := r.conn.QueryRow(ctx, query, s.Name, s.StartDate, s.EndDate).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create season: %w", err)
	}
	s.IsActive = false

	return nil
}

// Activate makes the given season the single active one. Both statements run
// in one transaction so the partial unique index never sees two active rows.
func (r *SeasonRepository) Activate(ctx context.Context, id int64) error {
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE seasons SET is_active = FALSE WHERE is_active`); err != nil {
			return fmt.Errorf("failed to deactivate seasons: %w", err)
		}

		tag, err := tx.Exec(ctx, `UPDATE seasons SET is_active = TRUE WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to activate season: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrSeasonNotFound
		}
		return nil
	})
	if err != nil {
		if shared.IsNotFound(err) {
			return err
		}
		return shared.WrapError("season", "Activate", shared.ErrStorage, "season activation failed", err)
	}

	return nil
}

// UserLeaderboard returns the season's user leaderboard with ranks assigned.
func (r *SeasonRepository) UserLeaderboard(ctx context.Context, seasonID int64, limit int) ([]*season.LeaderboardEntry, error) {
	query := `
		SELECT sp.user_id, u.username, COALESCE(u.avatar_url, ''), COALESCE(u.house_id, 0), sp.points
		FROM season_points sp
		JOIN users u ON u.id = sp.user_id
		WHERE sp.season_id = $1
		ORDER BY sp.points DESC, u.username ASC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, seasonID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query season leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*season.LeaderboardEntry
	for rows.Next() {
		var e season.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.AvatarURL, &e.HouseID, &e.Points); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// PointsFor returns one user's running total for a season. A user without a
// season_points row has simply not scored yet, so a zero-point row comes back
// instead of an error.
func (r *SeasonRepository) PointsFor(ctx context.Context, userID string, seasonID int64) (*season.UserPoints, error) {
	query := `
		SELECT points, updated_at FROM season_points
		WHERE user_id = $1 AND season_id = $2
	`

	p := &season.UserPoints{UserID: userID, SeasonID: seasonID}
	err := r.conn.QueryRow(ctx, query, userID, seasonID).Scan(&p.Points, &p.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return p, nil
		}
		return nil, fmt.Errorf("failed to query season points: %w", err)
	}

	return p, nil
}

func (r *SeasonRepository) scanSeason(row pgx.Row) (*season.Season, error) {
	var s season.Season
	err := row.Scan(&s.ID, &s.Name, &s.StartDate, &s.EndDate, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
