// Package progress contains per-game achievement progress: the persisted
// unlock history synced from Steam and the transient per-evaluation snapshot.
// This is a pure domain layer with zero external dependencies.
package progress

import (
	"strconv"
	"time"
)

// GameProgress is the persisted per-(user, game) progress row. It is written
// by the Steam sync flow and read by the medal engine for derived metrics.
type GameProgress struct {
	UserID               string
	AppID                int64
	PlaytimeForever      int // minutes, as reported by Steam
	AchievementsUnlocked int
	AchievementsTotal    int

	// CompletionPercentage is stored two-decimal rounded so equality rules
	// in medal conditions behave deterministically.
	CompletionPercentage float64

	FirstAchievementAt *time.Time
	LastAchievementAt  *time.Time
	CompletedAt        *time.Time
	SyncedAt           time.Time
}

// IsCompleted reports whether the game is fully completed.
func (p *GameProgress) IsCompleted() bool {
	return p.CompletionPercentage == 100
}

// AchievementUnlock is one persisted row per (user, game, achievement).
type AchievementUnlock struct {
	UserID     string
	AppID      int64
	APIName    string
	Unlocked   bool
	UnlockTime *time.Time
	SyncedAt   time.Time
}

// AchievementState is one achievement inside a snapshot: unlock status plus
// the global rarity percentage (share of all players who unlocked it; lower
// means rarer).
type AchievementState struct {
	APIName    string     `json:"apiName"`
	Name       string     `json:"name"`
	Unlocked   bool       `json:"unlocked"`
	UnlockTime *time.Time `json:"unlockTime,omitempty"`
	Rarity     float64    `json:"rarity"`
}

// Snapshot is a point-in-time view of a game's achievement data, supplied
// fresh on every evaluation call. The engine never caches it.
type Snapshot struct {
	AppID        int64              `json:"appId"`
	GameName     string             `json:"gameName"`
	Achievements []AchievementState `json:"achievements"`

	// Aggregates, two-decimal rounded upstream.
	CompletionPercentage float64 `json:"completionPercentage"`
	AverageRarity        float64 `json:"averageRarity"`
	TotalAchievements    int     `json:"totalAchievements"`
	UnlockedCount        int     `json:"unlockedCount"`
}

// DisplayName returns the snapshot's game name, falling back to the app id.
func (s *Snapshot) DisplayName() string {
	if s.GameName != "" {
		return s.GameName
	}
	return "Game " + strconv.FormatInt(s.AppID, 10)
}
