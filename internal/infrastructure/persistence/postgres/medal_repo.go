// Package postgres implements the PostgreSQL persistence layer for the
// Houses Steam Planner.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/medal"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MEDAL CATALOG REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// MedalCatalogRepository implements medal.CatalogRepository for PostgreSQL.
// Conditions are parsed at load; rows with malformed condition JSON come back
// quarantined (nil Condition) and are logged once per load.
type MedalCatalogRepository struct {
	conn *Connection
	log  *logger.Logger
}

// NewMedalCatalogRepository creates a new MedalCatalogRepository.
func NewMedalCatalogRepository(conn *Connection, log *logger.Logger) *MedalCatalogRepository {
	return &MedalCatalogRepository{
		conn: conn,
		log:  log.With(logger.Component("medal_catalog")),
	}
}

const medalColumns = `id, medal_key, name, COALESCE(description, ''), COALESCE(icon, ''),
	   tier, points, COALESCE(house_bonus, ''), conditions,
	   is_seasonal, COALESCE(season_id, 0), created_at`

// ListCandidates returns the candidate set for one evaluation batch, ordered
// by id so grants happen in a stable order.
func (r *MedalCatalogRepository) ListCandidates(ctx context.Context, activeSeasonID int64, hasActiveSeason bool) ([]*medal.Definition, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM medal_definitions
		WHERE NOT is_seasonal OR ($2 AND season_id = $1)
		ORDER BY id ASC
	`, medalColumns)

	rows, err := r.conn.Query(ctx, query, activeSeasonID, hasActiveSeason)
	if err != nil {
		return nil, fmt.Errorf("failed to query medal candidates: %w", err)
	}
	defer rows.Close()

	return r.scanDefinitions(rows)
}

// ListAll returns every definition for catalog display.
func (r *MedalCatalogRepository) ListAll(ctx context.Context) ([]*medal.Definition, error) {
	query := fmt.Sprintf(`SELECT %s FROM medal_definitions ORDER BY id ASC`, medalColumns)

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query medal definitions: %w", err)
	}
	defer rows.Close()

	return r.scanDefinitions(rows)
}

// GetByKey returns a definition by its stable key.
func (r *MedalCatalogRepository) GetByKey(ctx context.Context, key medal.Key) (*medal.Definition, error) {
	query := fmt.Sprintf(`SELECT %s FROM medal_definitions WHERE medal_key = $1`, medalColumns)

	def, err := r.scanDefinition(r.conn.QueryRow(ctx, query, key.String()))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrMedalNotFound
		}
		return nil, fmt.Errorf("failed to get medal %q: %w", key, err)
	}
	return def, nil
}

// Create inserts a new definition. The raw condition JSON must already have
// passed medal.ParseCondition; storing unvalidated trees would just grow the
// quarantine.
func (r *MedalCatalogRepository) Create(ctx context.Context, def *medal.Definition, rawCondition []byte) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, err := medal.ParseCondition(rawCondition); err != nil {
		return err
	}

	query := `
		INSERT INTO medal_definitions
			(medal_key, name, description, icon, tier, points, house_bonus, conditions, is_seasonal, season_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, NULLIF($10, 0))
		RETURNING id, created_at
	`

	err := r.conn.QueryRow(ctx, query,
		def.Key.String(),
		def.Name,
		def.Description,
		def.Icon,
		string(def.Tier),
		def.Points,
		def.HouseBonus,
		rawCondition,
		def.Seasonal,
		def.SeasonID,
	).Scan(&def.ID, &def.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("medal", "Create", shared.ErrAlreadyExists, "medal key already exists", err)
		}
		return fmt.Errorf("failed to create medal definition: %w", err)
	}

	return nil
}

func (r *MedalCatalogRepository) scanDefinitions(rows pgx.Rows) ([]*medal.Definition, error) {
	var defs []*medal.Definition
	for rows.Next() {
		def, err := r.scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// scanDefinition maps one row, quarantining malformed condition JSON instead
// of failing the whole load.
func (r *MedalCatalogRepository) scanDefinition(row pgx.Row) (*medal.Definition, error) {
	var (
		def     medal.Definition
		key     string
		tier    string
		rawCond []byte
	)

	err := row.Scan(
		&def.ID,
		&key,
		&def.Name,
		&def.Description,
		&def.Icon,
		&tier,
		&def.Points,
		&def.HouseBonus,
		&rawCond,
		&def.Seasonal,
		&def.SeasonID,
		&def.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	def.Key = medal.Key(key)
	def.Tier = medal.Tier(tier)

	if len(rawCond) > 0 {
		node, parseErr := medal.ParseCondition(rawCond)
		if parseErr != nil {
			r.log.Warn("quarantined medal with malformed condition",
				logger.MedalKey(key),
				logger.Err(parseErr))
		} else {
			def.Condition = node
		}
	}

	return &def, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// AWARD LEDGER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// AwardLedgerRepository implements medal.LedgerRepository for PostgreSQL.
type AwardLedgerRepository struct {
	conn *Connection
}

// NewAwardLedgerRepository creates a new AwardLedgerRepository.
func NewAwardLedgerRepository(conn *Connection) *AwardLedgerRepository {
	return &AwardLedgerRepository{conn: conn}
}

// Grant records the award and fans its points out in ONE transaction. The
// conditional insert carries the idempotency: when the (user, medal, app) row
// already exists nothing is written and false is returned. Concurrent grants
// for the same triple serialize on the unique constraint, so exactly one of
// them observes an inserted row and applies the increments.
func (r *AwardLedgerRepository) Grant(ctx context.Context, award *medal.Award, scope medal.GrantScope) (bool, error) {
	inserted := false

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO user_medals (id, user_id, medal_id, app_id, game_name, points_earned, earned_at)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
			ON CONFLICT (user_id, medal_id, app_id) DO NOTHING
		`,
			award.ID,
			award.UserID,
			award.MedalID,
			award.AppID,
			award.GameName,
			award.PointsEarned,
			award.EarnedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert award: %w", err)
		}

		if tag.RowsAffected() == 0 {
			// Already earned; leave every ledger untouched.
			return nil
		}
		inserted = true

		if _, err := tx.Exec(ctx, `
			UPDATE users SET general_points = general_points + $1 WHERE id = $2
		`, scope.Points, award.UserID); err != nil {
			return fmt.Errorf("failed to increment lifetime points: %w", err)
		}

		if !scope.Seasonal {
			return nil
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO season_points (user_id, season_id, points)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, season_id)
			DO UPDATE SET points = season_points.points + EXCLUDED.points, updated_at = NOW()
		`, award.UserID, scope.SeasonID, scope.Points); err != nil {
			return fmt.Errorf("failed to increment season points: %w", err)
		}

		// House membership is read inside the transaction so the standing
		// increment matches the membership at grant time.
		var houseID *int64
		if err := tx.QueryRow(ctx,
			`SELECT house_id FROM users WHERE id = $1`, award.UserID,
		).Scan(&houseID); err != nil {
			return fmt.Errorf("failed to read house membership: %w", err)
		}
		if houseID == nil {
			return nil
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO house_season_standings (house_id, season_id, total_points)
			VALUES ($1, $2, $3)
			ON CONFLICT (house_id, season_id)
			DO UPDATE SET total_points = house_season_standings.total_points + EXCLUDED.total_points, updated_at = NOW()
		`, *houseID, scope.SeasonID, scope.Points); err != nil {
			return fmt.Errorf("failed to increment house standing: %w", err)
		}

		return nil
	})
	if err != nil {
		return false, shared.WrapError("medal", "Grant", shared.ErrStorage, "award fan-out failed", err)
	}

	return inserted, nil
}

// ListByUser returns the user's award history, most recent first.
func (r *AwardLedgerRepository) ListByUser(ctx context.Context, userID string) ([]*medal.HistoryEntry, error) {
	query := `
		SELECT md.medal_key, md.name, COALESCE(md.description, ''), COALESCE(md.icon, ''), md.tier,
			   um.app_id, COALESCE(um.game_name, ''), um.points_earned, um.earned_at
		FROM user_medals um
		JOIN medal_definitions md ON md.id = um.medal_id
		WHERE um.user_id = $1
		ORDER BY um.earned_at DESC, um.id DESC
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query award history: %w", err)
	}
	defer rows.Close()

	var entries []*medal.HistoryEntry
	for rows.Next() {
		var (
			e    medal.HistoryEntry
			key  string
			tier string
		)
		if err := rows.Scan(&key, &e.Name, &e.Description, &e.Icon, &tier,
			&e.AppID, &e.GameName, &e.PointsEarned, &e.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan award row: %w", err)
		}
		e.Key = medal.Key(key)
		e.Tier = medal.Tier(tier)
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// SummaryByUser returns the user's rolled-up totals.
func (r *AwardLedgerRepository) SummaryByUser(ctx context.Context, userID string) (*medal.Summary, error) {
	query := `
		SELECT COUNT(*),
			   COALESCE(SUM(points_earned), 0),
			   COUNT(DISTINCT app_id)
		FROM user_medals
		WHERE user_id = $1
	`

	var s medal.Summary
	err := r.conn.QueryRow(ctx, query, userID).Scan(&s.TotalMedals, &s.TotalPoints, &s.GamesWithMedals)
	if err != nil {
		return nil, fmt.Errorf("failed to query award summary: %w", err)
	}

	return &s, nil
}
