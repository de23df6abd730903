// Package steam implements the Steam Web API client: player summaries, owned
// games, per-game achievement state, game schemas and global rarity data.
// The client carries its own rate limiting, retries and circuit breaking so
// application handlers can treat a call as a single attempt.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/application/command"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/progress"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/user"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/logger"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/retry"
)

// DefaultBaseURL is the Steam Web API host.
const DefaultBaseURL = "https://api.steampowered.com"

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Steam API client.
type ClientConfig struct {
	// BaseURL is the API base URL. Tests point it at a local server.
	BaseURL string

	// APIKey is the Steam Web API key.
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// MaxAttempts is the retry budget per call.
	MaxAttempts int

	// RateLimiterConfig for API rate limiting.
	RateLimiterConfig RateLimiterConfig

	// CircuitBreakerConfig for fault tolerance.
	CircuitBreakerConfig CircuitBreakerConfig
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(apiKey string) ClientConfig {
	return ClientConfig{
		BaseURL:              DefaultBaseURL,
		APIKey:               apiKey,
		Timeout:              15 * time.Second,
		MaxAttempts:          3,
		RateLimiterConfig:    DefaultRateLimiterConfig(),
		CircuitBreakerConfig: DefaultCircuitBreakerConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Steam Web API client. It implements command.SteamGateway.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	log            *logger.Logger
	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreaker
	retrier        *retry.Retrier
	mapper         *Mapper
}

// NewClient creates a new Steam API client.
func NewClient(config ClientConfig, log *logger.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		log:            log.With(logger.Component("steam_client")),
		rateLimiter:    NewRateLimiter(config.RateLimiterConfig),
		circuitBreaker: NewCircuitBreaker(config.CircuitBreakerConfig),
		retrier:        retry.New(retry.WithMaxAttempts(config.MaxAttempts)),
		mapper:         NewMapper(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// GATEWAY OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// PlayerSummary fetches current profile metadata.
func (c *Client) PlayerSummary(ctx context.Context, steamID user.SteamID) (*command.ProfileSummary, error) {
	params := url.Values{}
	params.Set("steamids", steamID.String())

	var response playerSummariesResponse
	if err := c.doRequest(ctx, "/ISteamUser/GetPlayerSummaries/v2/", params, &response); err != nil {
		return nil, fmt.Errorf("get player summary: %w", err)
	}

	if len(response.Response.Players) == 0 {
		return nil, shared.ErrSteamUserNotFound
	}

	return c.mapper.ProfileFromDTO(&response.Response.Players[0]), nil
}

// OwnedGames fetches the library listing. Private libraries come back as an
// empty response body rather than an HTTP error.
func (c *Client) OwnedGames(ctx context.Context, steamID user.SteamID) ([]command.OwnedGame, error) {
	params := url.Values{}
	params.Set("steamid", steamID.String())
	params.Set("include_appinfo", "1")
	params.Set("include_played_free_games", "1")

	var response ownedGamesResponse
	if err := c.doRequest(ctx, "/IPlayerService/GetOwnedGames/v1/", params, &response); err != nil {
		return nil, fmt.Errorf("get owned games: %w", err)
	}

	if response.Response.GameCount == 0 && response.Response.Games == nil {
		return nil, shared.ErrSteamProfilePrivate
	}

	return c.mapper.OwnedGamesFromDTO(response.Response.Games), nil
}

// GameSnapshot fetches per-game achievement state merged with the schema and
// global rarity data. Returns a nil snapshot for games without achievements.
func (c *Client) GameSnapshot(ctx context.Context, steamID user.SteamID, appID int64, gameName string) (*progress.Snapshot, []progress.AchievementUnlock, error) {
	schema, schemaName, err := c.gameSchema(ctx, appID)
	if err != nil {
		return nil, nil, err
	}
	if len(schema) == 0 {
		return nil, nil, nil
	}

	player, playerName, err := c.playerAchievements(ctx, steamID, appID)
	if err != nil {
		return nil, nil, err
	}

	// Rarity fetch failures degrade to zero rarity, they never block a sync.
	global, err := c.globalPercentages(ctx, appID)
	if err != nil {
		c.log.Warn("global rarity fetch failed", logger.AppID(appID), logger.Err(err))
		global = nil
	}

	name := gameName
	if name == "" {
		if playerName != "" {
			name = playerName
		} else {
			name = schemaName
		}
	}

	snapshot, unlocks := c.mapper.BuildSnapshot(appID, name, schema, player, global, time.Now().UTC())
	return snapshot, unlocks, nil
}

// gameSchema fetches the achievement definitions for a game. Games without
// achievements yield an empty schema, not an error.
func (c *Client) gameSchema(ctx context.Context, appID int64) ([]schemaAchievementDTO, string, error) {
	params := url.Values{}
	params.Set("appid", strconv.FormatInt(appID, 10))
	params.Set("l", "english")

	var response schemaResponse
	if err := c.doRequest(ctx, "/ISteamUserStats/GetSchemaForGame/v2/", params, &response); err != nil {
		if isNoStatsError(err) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("get game schema: %w", err)
	}

	return response.Game.AvailableGameStats.Achievements, response.Game.GameName, nil
}

// playerAchievements fetches the player's per-game unlock state.
func (c *Client) playerAchievements(ctx context.Context, steamID user.SteamID, appID int64) ([]playerAchievementDTO, string, error) {
	params := url.Values{}
	params.Set("steamid", steamID.String())
	params.Set("appid", strconv.FormatInt(appID, 10))
	params.Set("l", "english")

	var response playerAchievementsResponse
	if err := c.doRequest(ctx, "/ISteamUserStats/GetPlayerAchievements/v1/", params, &response); err != nil {
		if isNoStatsError(err) {
			return nil, "", nil
		}
		if isPrivateProfileError(err) {
			return nil, "", shared.ErrSteamProfilePrivate
		}
		return nil, "", fmt.Errorf("get player achievements: %w", err)
	}

	stats := response.PlayerStats
	if !stats.Success && stats.Error != "" {
		if strings.Contains(strings.ToLower(stats.Error), "profile is not public") {
			return nil, "", shared.ErrSteamProfilePrivate
		}
		return nil, "", fmt.Errorf("get player achievements: %s", stats.Error)
	}

	return stats.Achievements, stats.GameName, nil
}

// globalPercentages fetches global unlock rates for a game.
func (c *Client) globalPercentages(ctx context.Context, appID int64) ([]globalAchievementDTO, error) {
	params := url.Values{}
	params.Set("gameid", strconv.FormatInt(appID, 10))

	var response globalPercentagesResponse
	if err := c.doRequest(ctx, "/ISteamUserStats/GetGlobalAchievementPercentagesForApp/v2/", params, &response); err != nil {
		return nil, err
	}

	return response.AchievementPercentages.Achievements, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// apiError is an HTTP-level Steam API failure.
type apiError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *apiError) Error() string {
	return fmt.Sprintf("steam api: status %d", e.StatusCode)
}

// doRequest performs a GET with rate limiting, circuit breaking and retries.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values, result any) error {
	if err := c.circuitBreaker.Allow(); err != nil {
		return err
	}

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		if err := c.rateLimiter.Allow(ctx); err != nil {
			return retry.Permanent(err)
		}
		return c.doSingleRequest(ctx, path, params, result)
	})
	if err != nil {
		c.circuitBreaker.RecordFailure()
		return err
	}

	c.circuitBreaker.RecordSuccess()
	return nil
}

// doSingleRequest performs a single HTTP request and classifies the outcome
// for the retrier: 429 and 5xx are retryable, everything else is final.
func (c *Client) doSingleRequest(ctx context.Context, path string, params url.Values, result any) error {
	if c.config.APIKey != "" {
		params.Set("key", c.config.APIKey)
	}
	params.Set("format", "json")

	fullURL := c.config.BaseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Permanent(ctx.Err())
		}
		return retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.rateLimiter.RecordRateLimitHit()
		return retry.Retryable(&apiError{StatusCode: resp.StatusCode, Body: string(body)})
	case resp.StatusCode >= 500:
		return retry.Retryable(&apiError{StatusCode: resp.StatusCode, Body: string(body)})
	case resp.StatusCode >= 400:
		return retry.Permanent(&apiError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
	}

	return nil
}

// isNoStatsError reports whether the failure means the game simply has no
// achievement stats. Steam answers 400 for those.
func isNoStatsError(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusBadRequest
}

// isPrivateProfileError reports whether the failure means the profile hides
// game details. Steam answers 403 for those.
func isPrivateProfileError(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusForbidden
}
