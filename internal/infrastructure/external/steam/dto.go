// Package steam implements the Steam Web API client.
package steam

import "encoding/json"

// ══════════════════════════════════════════════════════════════════════════════
// WIRE DTOs
// Shapes follow the Steam Web API responses exactly; mapping to domain types
// happens in mapper.go.
// ══════════════════════════════════════════════════════════════════════════════

// playerSummariesResponse wraps ISteamUser/GetPlayerSummaries/v2.
type playerSummariesResponse struct {
	Response struct {
		Players []playerSummaryDTO `json:"players"`
	} `json:"response"`
}

// playerSummaryDTO is one player of a summaries response.
type playerSummaryDTO struct {
	SteamID      string `json:"steamid"`
	PersonaName  string `json:"personaname"`
	ProfileURL   string `json:"profileurl"`
	Avatar       string `json:"avatar"`
	AvatarMedium string `json:"avatarmedium"`
	AvatarFull   string `json:"avatarfull"`

	// CommunityVisibilityState 3 means public.
	CommunityVisibilityState int `json:"communityvisibilitystate"`
}

// ownedGamesResponse wraps IPlayerService/GetOwnedGames/v1.
type ownedGamesResponse struct {
	Response struct {
		GameCount int            `json:"game_count"`
		Games     []ownedGameDTO `json:"games"`
	} `json:"response"`
}

// ownedGameDTO is one game of a library listing.
type ownedGameDTO struct {
	AppID           int64  `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int    `json:"playtime_forever"`
	ImgIconURL      string `json:"img_icon_url"`
}

// playerAchievementsResponse wraps ISteamUserStats/GetPlayerAchievements/v1.
// On failure the API sets success=false with an error string instead of an
// HTTP error for some cases (private profiles among them).
type playerAchievementsResponse struct {
	PlayerStats struct {
		SteamID      string                 `json:"steamID"`
		GameName     string                 `json:"gameName"`
		Achievements []playerAchievementDTO `json:"achievements"`
		Success      bool                   `json:"success"`
		Error        string                 `json:"error"`
	} `json:"playerstats"`
}

// playerAchievementDTO is one achievement of a player's per-game state.
type playerAchievementDTO struct {
	APIName    string `json:"apiname"`
	Achieved   int    `json:"achieved"`
	UnlockTime int64  `json:"unlocktime"` // unix seconds, 0 when locked
}

// schemaResponse wraps ISteamUserStats/GetSchemaForGame/v2.
type schemaResponse struct {
	Game struct {
		GameName           string `json:"gameName"`
		AvailableGameStats struct {
			Achievements []schemaAchievementDTO `json:"achievements"`
		} `json:"availableGameStats"`
	} `json:"game"`
}

// schemaAchievementDTO is one achievement definition from the game schema.
type schemaAchievementDTO struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Hidden      int    `json:"hidden"`
	Icon        string `json:"icon"`
	IconGray    string `json:"icongray"`
}

// globalPercentagesResponse wraps GetGlobalAchievementPercentagesForApp/v2.
type globalPercentagesResponse struct {
	AchievementPercentages struct {
		Achievements []globalAchievementDTO `json:"achievements"`
	} `json:"achievementpercentages"`
}

// globalAchievementDTO is one global rarity entry. The percent field arrives
// as a number or a quoted string depending on the endpoint version.
type globalAchievementDTO struct {
	Name    string      `json:"name"`
	Percent json.Number `json:"percent"`
}

// PercentValue returns the rarity percentage as a float, 0 when unparsable.
func (g globalAchievementDTO) PercentValue() float64 {
	v, err := g.Percent.Float64()
	if err != nil {
		return 0
	}
	return v
}
