package steam

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(s string) json.Number {
	return json.Number(s)
}

func TestBuildSnapshot_MergesSchemaPlayerAndRarity(t *testing.T) {
	m := NewMapper()
	syncedAt := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	schema := []schemaAchievementDTO{
		{Name: "ACH_WIN", DisplayName: "Winner"},
		{Name: "ACH_LOSE", DisplayName: "Loser"},
	}
	player := []playerAchievementDTO{
		{APIName: "ACH_WIN", Achieved: 1, UnlockTime: 1700000000},
		{APIName: "ACH_LOSE", Achieved: 0},
	}
	global := []globalAchievementDTO{
		{Name: "ach_win", Percent: pct("62.5")},
		{Name: "ACH_LOSE", Percent: pct("12.345")},
	}

	snapshot, unlocks := m.BuildSnapshot(440, "Team Fortress 2", schema, player, global, syncedAt)
	require.NotNil(t, snapshot)

	assert.Equal(t, int64(440), snapshot.AppID)
	assert.Equal(t, "Team Fortress 2", snapshot.GameName)
	assert.Equal(t, 2, snapshot.TotalAchievements)
	assert.Equal(t, 1, snapshot.UnlockedCount)
	assert.Equal(t, 50.0, snapshot.CompletionPercentage)

	require.Len(t, snapshot.Achievements, 2)
	win := snapshot.Achievements[0]
	assert.Equal(t, "ACH_WIN", win.APIName)
	assert.Equal(t, "Winner", win.Name)
	assert.True(t, win.Unlocked)
	require.NotNil(t, win.UnlockTime)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), *win.UnlockTime)
	assert.Equal(t, 62.5, win.Rarity, "rarity must attach case-insensitively")

	lose := snapshot.Achievements[1]
	assert.False(t, lose.Unlocked)
	assert.Nil(t, lose.UnlockTime)
	assert.Equal(t, 12.35, lose.Rarity, "rarity is two-decimal rounded")

	require.Len(t, unlocks, 2)
	assert.Equal(t, "ACH_WIN", unlocks[0].APIName)
	assert.True(t, unlocks[0].Unlocked)
	assert.Equal(t, syncedAt, unlocks[0].SyncedAt)
	assert.Empty(t, unlocks[0].UserID, "owning user is stamped by the caller")
}

func TestBuildSnapshot_FullUnlockIsExactlyHundred(t *testing.T) {
	m := NewMapper()

	schema := []schemaAchievementDTO{
		{Name: "A"}, {Name: "B"}, {Name: "C"},
	}
	player := []playerAchievementDTO{
		{APIName: "A", Achieved: 1, UnlockTime: 1700000000},
		{APIName: "B", Achieved: 1, UnlockTime: 1700000100},
		{APIName: "C", Achieved: 1, UnlockTime: 1700000200},
	}

	snapshot, _ := m.BuildSnapshot(10, "Counter-Strike", schema, player, nil, time.Now().UTC())
	require.NotNil(t, snapshot)

	assert.Equal(t, 100.0, snapshot.CompletionPercentage)
	assert.True(t, snapshot.CompletionPercentage == 100)
}

func TestBuildSnapshot_PartialCompletionRounds(t *testing.T) {
	m := NewMapper()

	// 2 of 3 unlocked: 66.666... must round to 66.67.
	schema := []schemaAchievementDTO{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	player := []playerAchievementDTO{
		{APIName: "A", Achieved: 1},
		{APIName: "B", Achieved: 1},
	}

	snapshot, _ := m.BuildSnapshot(10, "Game", schema, player, nil, time.Now().UTC())
	require.NotNil(t, snapshot)

	assert.Equal(t, 66.67, snapshot.CompletionPercentage)
}

func TestBuildSnapshot_MissingRarityDefaultsToZero(t *testing.T) {
	m := NewMapper()

	schema := []schemaAchievementDTO{{Name: "A"}, {Name: "B"}}
	global := []globalAchievementDTO{{Name: "A", Percent: pct("40")}}

	snapshot, _ := m.BuildSnapshot(10, "Game", schema, nil, global, time.Now().UTC())
	require.NotNil(t, snapshot)

	assert.Equal(t, 0.0, snapshot.Achievements[1].Rarity)
	assert.Equal(t, 20.0, snapshot.AverageRarity, "zero rarities stay in the average")
}

func TestBuildSnapshot_NoAchievementsYieldsNil(t *testing.T) {
	m := NewMapper()

	snapshot, unlocks := m.BuildSnapshot(10, "Game", nil, nil, nil, time.Now().UTC())
	assert.Nil(t, snapshot)
	assert.Nil(t, unlocks)
}

func TestBuildSnapshot_ZeroUnlockTimeStaysNil(t *testing.T) {
	m := NewMapper()

	schema := []schemaAchievementDTO{{Name: "A"}}
	// Some games report achieved=1 with unlocktime=0 for pre-tracking unlocks.
	player := []playerAchievementDTO{{APIName: "A", Achieved: 1, UnlockTime: 0}}

	snapshot, unlocks := m.BuildSnapshot(10, "Game", schema, player, nil, time.Now().UTC())
	require.NotNil(t, snapshot)

	assert.True(t, snapshot.Achievements[0].Unlocked)
	assert.Nil(t, snapshot.Achievements[0].UnlockTime)
	assert.Nil(t, unlocks[0].UnlockTime)
}

func TestOwnedGamesFromDTO(t *testing.T) {
	m := NewMapper()

	games := m.OwnedGamesFromDTO([]ownedGameDTO{
		{AppID: 440, Name: "Team Fortress 2", PlaytimeForever: 1200, ImgIconURL: "abc123"},
		{AppID: 570, Name: "Dota 2", PlaytimeForever: 0},
	})

	require.Len(t, games, 2)
	assert.Equal(t, int64(440), games[0].AppID)
	assert.Equal(t, 1200, games[0].PlaytimeForever)
	assert.Contains(t, games[0].IconURL, "440/abc123.jpg")
	assert.Empty(t, games[1].IconURL)
}
