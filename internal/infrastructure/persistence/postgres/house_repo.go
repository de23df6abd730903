// Package postgres implements the PostgreSQL persistence layer for the
// Houses Steam Planner.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/house"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HOUSE REPOSITORY IMPLEMENTATION
// Houses are seeded by migrations, so this repository is read-only apart from
// the standing rows the award ledger maintains.
// ══════════════════════════════════════════════════════════════════════════════

// HouseRepository implements house.Repository for PostgreSQL.
type HouseRepository struct {
	conn *Connection
}

// NewHouseRepository creates a new HouseRepository.
func NewHouseRepository(conn *Connection) *HouseRepository {
	return &HouseRepository{conn: conn}
}

// ListOverviews returns all houses with live membership aggregates.
func (r *HouseRepository) ListOverviews(ctx context.Context) ([]*house.Overview, error) {
	query := `
		SELECT h.id, h.name, h.archetype, COALESCE(h.description, ''),
			   h.color_primary, COALESCE(h.color_secondary, ''), COALESCE(h.icon, ''), h.created_at,
			   COUNT(u.id), COALESCE(SUM(u.general_points), 0)
		FROM houses h
		LEFT JOIN users u ON u.house_id = h.id
		GROUP BY h.id
		ORDER BY h.id ASC
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query house overviews: %w", err)
	}
	defer rows.Close()

	var overviews []*house.Overview
	for rows.Next() {
		var (
			o    house.Overview
			arch string
		)
		if err := rows.Scan(&o.ID, &o.Name, &arch, &o.Description,
			&o.ColorPrimary, &o.ColorSecondary, &o.Icon, &o.CreatedAt,
			&o.MemberCount, &o.TotalPoints); err != nil {
			return nil, fmt.Errorf("failed to scan house overview: %w", err)
		}
		o.Archetype = house.Archetype(arch)
		overviews = append(overviews, &o)
	}

	return overviews, rows.Err()
}

// GetByID returns a house by ID.
func (r *HouseRepository) GetByID(ctx context.Context, id int64) (*house.House, error) {
	query := `
		SELECT id, name, archetype, COALESCE(description, ''),
			   color_primary, COALESCE(color_secondary, ''), COALESCE(icon, ''), created_at
		FROM houses
		WHERE id = $1
	`

	var (
		h    house.House
		arch string
	)
	err := r.conn.QueryRow(ctx, query, id).Scan(&h.ID, &h.Name, &arch, &h.Description,
		&h.ColorPrimary, &h.ColorSecondary, &h.Icon, &h.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrHouseNotFound
		}
		return nil, fmt.Errorf("failed to get house %d: %w", id, err)
	}

	h.Archetype = house.Archetype(arch)
	return &h, nil
}

// GeneralStandings returns the lifetime cup table. Every house appears even
// with zero members.
func (r *HouseRepository) GeneralStandings(ctx context.Context) ([]*house.Standing, error) {
	query := `
		SELECT h.id, h.name, h.archetype, h.color_primary, COALESCE(h.color_secondary, ''), COALESCE(h.icon, ''),
			   COUNT(u.id), COALESCE(SUM(u.general_points), 0)
		FROM houses h
		LEFT JOIN users u ON u.house_id = h.id
		GROUP BY h.id
		ORDER BY COALESCE(SUM(u.general_points), 0) DESC, h.id ASC
	`

	return r.queryStandings(ctx, query)
}

// SeasonStandings returns the cup table for one season. Houses without a
// standing row show zero points so the table always has four rows.
func (r *HouseRepository) SeasonStandings(ctx context.Context, seasonID int64) ([]*house.Standing, error) {
	query := `
		SELECT h.id, h.name, h.archetype, h.color_primary, COALESCE(h.color_secondary, ''), COALESCE(h.icon, ''),
			   (SELECT COUNT(*) FROM users u WHERE u.house_id = h.id),
			   COALESCE(hss.total_points, 0)
		FROM houses h
		LEFT JOIN house_season_standings hss ON hss.house_id = h.id AND hss.season_id = $1
		ORDER BY COALESCE(hss.total_points, 0) DESC, h.id ASC
	`

	return r.queryStandings(ctx, query, seasonID)
}

// ListMembers returns a house's internal leaderboard with per-member medal
// and completed game counts.
func (r *HouseRepository) ListMembers(ctx context.Context, houseID int64, limit int) ([]*house.Member, error) {
	query := `
		SELECT u.id, u.username, COALESCE(u.avatar_url, ''), u.general_points,
			   (SELECT COUNT(*) FROM user_medals um WHERE um.user_id = u.id),
			   (SELECT COUNT(*) FROM user_games ug WHERE ug.user_id = u.id AND ug.completion_percentage = 100)
		FROM users u
		WHERE u.house_id = $1
		ORDER BY u.general_points DESC, u.username ASC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, houseID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query house members: %w", err)
	}
	defer rows.Close()

	var members []*house.Member
	for rows.Next() {
		var m house.Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.AvatarURL, &m.GeneralPoints,
			&m.TotalMedals, &m.CompletedGames); err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		m.Rank = len(members) + 1
		members = append(members, &m)
	}

	return members, rows.Err()
}

// ListQuizQuestions returns the sorting quiz in presentation order.
func (r *HouseRepository) ListQuizQuestions(ctx context.Context) ([]*house.QuizQuestion, error) {
	query := `
		SELECT id, question, options, order_index
		FROM quiz_questions
		ORDER BY order_index ASC, id ASC
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz questions: %w", err)
	}
	defer rows.Close()

	var questions []*house.QuizQuestion
	for rows.Next() {
		var (
			q       house.QuizQuestion
			rawOpts []byte
		)
		if err := rows.Scan(&q.ID, &q.Question, &rawOpts, &q.OrderIndex); err != nil {
			return nil, fmt.Errorf("failed to scan quiz question: %w", err)
		}
		if err := json.Unmarshal(rawOpts, &q.Options); err != nil {
			return nil, fmt.Errorf("failed to decode quiz options for question %d: %w", q.ID, err)
		}
		questions = append(questions, &q)
	}

	return questions, rows.Err()
}

func (r *HouseRepository) queryStandings(ctx context.Context, query string, args ...any) ([]*house.Standing, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query house standings: %w", err)
	}
	defer rows.Close()

	var standings []*house.Standing
	for rows.Next() {
		var (
			s    house.Standing
			arch string
		)
		if err := rows.Scan(&s.HouseID, &s.Name, &arch, &s.ColorPrimary, &s.ColorSecondary, &s.Icon,
			&s.Members, &s.Points); err != nil {
			return nil, fmt.Errorf("failed to scan standing row: %w", err)
		}
		s.Archetype = house.Archetype(arch)
		s.Rank = len(standings) + 1
		standings = append(standings, &s)
	}

	return standings, rows.Err()
}
