// Package steam implements the Steam Web API client.
package steam

import (
	"strconv"
	"strings"
	"time"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/application/command"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/progress"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER
// Merges the three per-game Steam responses (schema, player state, global
// rarity) into one snapshot. The schema is the source of truth for which
// achievements exist; player state and rarity attach to it by api name.
// ══════════════════════════════════════════════════════════════════════════════

// Mapper converts Steam Web API DTOs into domain types.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// ProfileFromDTO maps a player summary.
func (m *Mapper) ProfileFromDTO(dto *playerSummaryDTO) *command.ProfileSummary {
	return &command.ProfileSummary{
		Username:   dto.PersonaName,
		AvatarURL:  dto.AvatarFull,
		ProfileURL: dto.ProfileURL,
	}
}

// OwnedGamesFromDTO maps a library listing.
func (m *Mapper) OwnedGamesFromDTO(dtos []ownedGameDTO) []command.OwnedGame {
	games := make([]command.OwnedGame, 0, len(dtos))
	for _, dto := range dtos {
		games = append(games, command.OwnedGame{
			AppID:           dto.AppID,
			Name:            dto.Name,
			PlaytimeForever: dto.PlaytimeForever,
			IconURL:         gameIconURL(dto.AppID, dto.ImgIconURL),
		})
	}
	return games
}

// BuildSnapshot merges schema, player state and global rarity into a snapshot
// plus the unlock rows to persist. The caller stamps the owning user onto the
// unlock rows before persisting them.
//
// Percentages are two-decimal rounded here, at the edge, so the engine's
// equality rules (completion == 100) see stable values.
func (m *Mapper) BuildSnapshot(
	appID int64,
	gameName string,
	schema []schemaAchievementDTO,
	player []playerAchievementDTO,
	global []globalAchievementDTO,
	syncedAt time.Time,
) (*progress.Snapshot, []progress.AchievementUnlock) {
	if len(schema) == 0 {
		return nil, nil
	}

	playerByName := make(map[string]playerAchievementDTO, len(player))
	for _, p := range player {
		playerByName[p.APIName] = p
	}

	// Global percentages use inconsistent casing across games.
	rarityByName := make(map[string]float64, len(global))
	for _, g := range global {
		rarityByName[strings.ToLower(g.Name)] = g.PercentValue()
	}

	snapshot := &progress.Snapshot{
		AppID:        appID,
		GameName:     gameName,
		Achievements: make([]progress.AchievementState, 0, len(schema)),
	}
	unlocks := make([]progress.AchievementUnlock, 0, len(schema))

	var raritySum float64
	for _, def := range schema {
		state := progress.AchievementState{
			APIName: def.Name,
			Name:    def.DisplayName,
			Rarity:  timeutil.Round2(rarityByName[strings.ToLower(def.Name)]),
		}

		if p, ok := playerByName[def.Name]; ok && p.Achieved == 1 {
			state.Unlocked = true
			if p.UnlockTime > 0 {
				t := time.Unix(p.UnlockTime, 0).UTC()
				state.UnlockTime = &t
			}
			snapshot.UnlockedCount++
		}

		raritySum += state.Rarity
		snapshot.Achievements = append(snapshot.Achievements, state)

		unlocks = append(unlocks, progress.AchievementUnlock{
			AppID:      appID,
			APIName:    state.APIName,
			Unlocked:   state.Unlocked,
			UnlockTime: state.UnlockTime,
			SyncedAt:   syncedAt,
		})
	}

	snapshot.TotalAchievements = len(snapshot.Achievements)
	snapshot.CompletionPercentage = timeutil.Round2(
		float64(snapshot.UnlockedCount) / float64(snapshot.TotalAchievements) * 100)
	snapshot.AverageRarity = timeutil.Round2(raritySum / float64(snapshot.TotalAchievements))

	return snapshot, unlocks
}

// gameIconURL builds the community CDN URL for a game icon hash.
func gameIconURL(appID int64, hash string) string {
	if hash == "" {
		return ""
	}
	return "https://media.steampowered.com/steamcommunity/public/images/apps/" +
		strconv.FormatInt(appID, 10) + "/" + hash + ".jpg"
}
