// Package medal contains the medal catalog, the condition language and the
// derived-metric resolver. Награды начисляются один раз на (user, medal,
// game); вся логика условий здесь чистая, без побочных эффектов.
package medal

import (
	"time"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Key is the stable, human-readable identifier of a medal (e.g. "graduation").
type Key string

// IsValid checks if the medal key is valid.
func (k Key) IsValid() bool {
	return k != ""
}

// String returns the string representation of Key.
func (k Key) String() string {
	return string(k)
}

// Tier is the ordered rank label of a medal.
type Tier string

const (
	TierBase   Tier = "base"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// IsValid checks if the tier is one of the known labels.
func (t Tier) IsValid() bool {
	switch t {
	case TierBase, TierSilver, TierGold:
		return true
	}
	return false
}

// Order returns the tier's rank for sorting (base < silver < gold).
func (t Tier) Order() int {
	switch t {
	case TierSilver:
		return 1
	case TierGold:
		return 2
	default:
		return 0
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MEDAL DEFINITION
// ══════════════════════════════════════════════════════════════════════════════

// Definition is a medal definition from the catalog. Definitions are created
// by administrative flows and are immutable as far as the engine is concerned.
type Definition struct {
	ID          int64
	Key         Key
	Name        string
	Description string
	Icon        string
	Tier        Tier
	Points      int
	HouseBonus  string

	// Condition is the parsed condition tree. Nil means the definition was
	// quarantined at load time (malformed condition) and never qualifies.
	Condition *ConditionNode

	// Seasonal medals only exist within their owning season.
	Seasonal bool
	SeasonID int64

	CreatedAt time.Time
}

// Validate checks definition invariants.
func (d *Definition) Validate() error {
	if !d.Key.IsValid() {
		return shared.ErrEmptyMedalKey
	}
	if d.Points < 0 {
		return shared.ErrInvalidMedalPoints
	}
	if d.Condition != nil {
		if err := d.Condition.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Qualifies evaluates the definition's condition against the resolver.
// Quarantined definitions (nil condition) never qualify.
func (d *Definition) Qualifies(resolver FieldResolver) (bool, error) {
	if d.Condition == nil {
		return false, nil
	}
	return d.Condition.Evaluate(resolver)
}

// ══════════════════════════════════════════════════════════════════════════════
// MEDAL AWARD
// ══════════════════════════════════════════════════════════════════════════════

// Award is an immutable ledger entry: one medal earned by one user for one
// game. At most one Award exists per (UserID, MedalID, AppID); the storage
// layer enforces this atomically at insert time.
type Award struct {
	ID           string
	UserID       string
	MedalID      int64
	AppID        int64
	GameName     string
	PointsEarned int
	EarnedAt     time.Time
}

// GrantScope describes how an award's points fan out into the ledgers.
type GrantScope struct {
	// Points is the medal's point value, applied to the lifetime total.
	Points int

	// Seasonal indicates that the points also accrue to the user's season
	// total and their house's season standing.
	Seasonal bool

	// SeasonID is the active season the points accrue to (seasonal only).
	SeasonID int64
}

// NewAward builds an award for a qualifying definition. The game name is
// snapshotted at award time so history survives later renames.
func NewAward(id, userID string, def *Definition, appID int64, gameName string, at time.Time) *Award {
	return &Award{
		ID:           id,
		UserID:       userID,
		MedalID:      def.ID,
		AppID:        appID,
		GameName:     gameName,
		PointsEarned: def.Points,
		EarnedAt:     at.UTC(),
	}
}

// Granted pairs a fresh award with its definition metadata for callers that
// display newly earned medals.
type Granted struct {
	Key         Key    `json:"medalKey"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Tier        Tier   `json:"tier"`
	Points      int    `json:"points"`
	GameName    string `json:"gameName"`
	IsNew       bool   `json:"isNew"`
}

// HistoryEntry is one ledger row joined with its definition metadata, as
// returned by award-history reads.
type HistoryEntry struct {
	Key          Key       `json:"medalKey"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Icon         string    `json:"icon"`
	Tier         Tier      `json:"tier"`
	AppID        int64     `json:"appId"`
	GameName     string    `json:"gameName"`
	PointsEarned int       `json:"pointsEarned"`
	EarnedAt     time.Time `json:"earnedAt"`
}

// Summary is the rolled-up view of a user's medal history.
type Summary struct {
	TotalMedals     int `json:"totalMedals"`
	TotalPoints     int `json:"totalPoints"`
	GamesWithMedals int `json:"gamesWithMedals"`
}
