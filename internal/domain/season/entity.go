// Package season contains the season aggregate and the per-season point
// ledgers awards fan out into.
package season

import (
	"time"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
)

// Season is a bounded competition window. At most one season is active at a
// time; seasonal medals and season points only exist within their owning
// season.
type Season struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"-"`
}

// Validate checks season invariants.
func (s *Season) Validate() error {
	if s.Name == "" {
		return shared.NewDomainError("season", "Validate", shared.ErrEmptyValue, "season name is required")
	}
	if !s.EndDate.After(s.StartDate) {
		return shared.ErrSeasonDates
	}
	return nil
}

// Contains reports whether the instant falls inside the season window.
func (s *Season) Contains(t time.Time) bool {
	return !t.Before(s.StartDate) && t.Before(s.EndDate)
}

// HasEnded reports whether the season window is over.
func (s *Season) HasEnded(now time.Time) bool {
	return !now.Before(s.EndDate)
}

// UserPoints is one user's running point total within a season.
type UserPoints struct {
	UserID    string    `json:"userId"`
	SeasonID  int64     `json:"seasonId"`
	Points    int       `json:"points"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LeaderboardEntry is one row of a season's user leaderboard.
type LeaderboardEntry struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
	HouseID   int64  `json:"houseId"`
	Points    int    `json:"points"`
	Rank      int    `json:"rank"`
}

// Context is the consolidated season context an evaluation batch runs under.
// It is resolved ONCE per batch so every medal in the batch sees the same
// season, even if the active season flips mid-run.
type Context struct {
	SeasonID int64
	Active   bool
}

// NoSeason is the context used when no season is currently active.
var NoSeason = Context{}

// ContextOf builds the evaluation context from the active season lookup
// result: the season when one is active, NoSeason otherwise.
func ContextOf(s *Season) Context {
	if s == nil {
		return NoSeason
	}
	return Context{SeasonID: s.ID, Active: true}
}
