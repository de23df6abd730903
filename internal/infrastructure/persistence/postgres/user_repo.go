// Package postgres implements the PostgreSQL persistence layer for the
// Houses Steam Planner.
package postgres

import (
	"context"
	"fmt"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

const userColumns = `id, steam_id, username, COALESCE(avatar_url, ''), COALESCE(profile_url, ''),
	   house_id, general_points, start_date, created_at, updated_at`

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, steam_id, username, avatar_url, profile_url, start_date, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		u.ID,
		u.SteamID.String(),
		u.Username,
		u.AvatarURL,
		u.ProfileURL,
		u.StartDate,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("user", "Create", shared.ErrUserAlreadyExists, "steam id already registered", err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID returns a user by internal ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.scanUser(ctx, query, id)
}

// GetBySteamID returns a user by Steam identity.
func (r *UserRepository) GetBySteamID(ctx context.Context, steamID user.SteamID) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE steam_id = $1`, userColumns)
	return r.scanUser(ctx, query, steamID.String())
}

// UpdateProfile persists display metadata after a Steam profile refresh.
// Lifetime points are deliberately not written here; only the award ledger
// touches them.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET username = $2, avatar_url = NULLIF($3, ''), profile_url = NULLIF($4, '')
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query, u.ID, u.Username, u.AvatarURL, u.ProfileURL)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}

	return nil
}

// SetHouse persists a house assignment.
func (r *UserRepository) SetHouse(ctx context.Context, userID string, houseID int64) error {
	query := `UPDATE users SET house_id = $2 WHERE id = $1`

	tag, err := r.conn.Exec(ctx, query, userID, houseID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrHouseNotFound
		}
		return fmt.Errorf("failed to set house: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}

	return nil
}

// TopByGeneralPoints returns the lifetime leaderboard head.
func (r *UserRepository) TopByGeneralPoints(ctx context.Context, limit int) ([]*user.User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		ORDER BY general_points DESC, username ASC
		LIMIT $1
	`, userColumns)

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		var (
			u       user.User
			steamID string
			houseID *int64
		)
		if err := rows.Scan(&u.ID, &steamID, &u.Username, &u.AvatarURL, &u.ProfileURL,
			&houseID, &u.GeneralPoints, &u.StartDate, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		u.SteamID = user.SteamID(steamID)
		if houseID != nil {
			u.HouseID = *houseID
		}
		users = append(users, &u)
	}

	return users, rows.Err()
}

// ListIDs pages through user IDs for batch jobs.
func (r *UserRepository) ListIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	query := `
		SELECT id FROM users
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *UserRepository) scanUser(ctx context.Context, query string, arg any) (*user.User, error) {
	var (
		u       user.User
		steamID string
		houseID *int64
	)

	err := r.conn.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&steamID,
		&u.Username,
		&u.AvatarURL,
		&u.ProfileURL,
		&houseID,
		&u.GeneralPoints,
		&u.StartDate,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.SteamID = user.SteamID(steamID)
	if houseID != nil {
		u.HouseID = *houseID
	}

	return &u, nil
}
