package steam

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/logger"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/retry"
)

const testSteamID = "76561198000000001"

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultClientConfig("test-key")
	cfg.BaseURL = server.URL
	cfg.Timeout = 2 * time.Second
	cfg.MaxAttempts = 1
	cfg.RateLimiterConfig.MinInterval = 0
	cfg.RateLimiterConfig.BurstSize = 1000
	cfg.RateLimiterConfig.RequestsPerSecond = 1000

	log := logger.New(logger.Options{Output: io.Discard, Level: logger.LevelFatal})
	return NewClient(cfg, log)
}

// newFastRetrier keeps retry tests quick.
func newFastRetrier() *retry.Retrier {
	return retry.New(retry.WithMaxAttempts(3), retry.WithInitialDelay(time.Millisecond))
}

func TestPlayerSummary(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ISteamUser/GetPlayerSummaries/v2/", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, testSteamID, r.URL.Query().Get("steamids"))

		_, _ = w.Write([]byte(`{"response":{"players":[{
			"steamid":"76561198000000001",
			"personaname":"gaben",
			"profileurl":"https://steamcommunity.com/id/gaben/",
			"avatarfull":"https://avatars.example/full.jpg"
		}]}}`))
	}))

	summary, err := client.PlayerSummary(context.Background(), testSteamID)
	require.NoError(t, err)
	assert.Equal(t, "gaben", summary.Username)
	assert.Equal(t, "https://avatars.example/full.jpg", summary.AvatarURL)
	assert.Equal(t, "https://steamcommunity.com/id/gaben/", summary.ProfileURL)
}

func TestPlayerSummary_UnknownUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"players":[]}}`))
	}))

	_, err := client.PlayerSummary(context.Background(), testSteamID)
	assert.ErrorIs(t, err, shared.ErrSteamUserNotFound)
}

func TestOwnedGames_PrivateLibrary(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Steam answers private libraries with an empty response object.
		_, _ = w.Write([]byte(`{"response":{}}`))
	}))

	_, err := client.OwnedGames(context.Background(), testSteamID)
	assert.ErrorIs(t, err, shared.ErrSteamProfilePrivate)
}

func TestGameSnapshot_MergesAllThreeCalls(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ISteamUserStats/GetSchemaForGame/v2/":
			_, _ = w.Write([]byte(`{"game":{"gameName":"Portal 2","availableGameStats":{"achievements":[
				{"name":"ACH_A","displayName":"First"},
				{"name":"ACH_B","displayName":"Second"}
			]}}}`))
		case "/ISteamUserStats/GetPlayerAchievements/v1/":
			_, _ = w.Write([]byte(`{"playerstats":{"success":true,"gameName":"Portal 2","achievements":[
				{"apiname":"ACH_A","achieved":1,"unlocktime":1700000000},
				{"apiname":"ACH_B","achieved":1,"unlocktime":1700000500}
			]}}`))
		case "/ISteamUserStats/GetGlobalAchievementPercentagesForApp/v2/":
			_, _ = w.Write([]byte(`{"achievementpercentages":{"achievements":[
				{"name":"ACH_A","percent":"55.5"},
				{"name":"ACH_B","percent":"3.2"}
			]}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	snapshot, unlocks, err := client.GameSnapshot(context.Background(), testSteamID, 620, "")
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.Equal(t, "Portal 2", snapshot.GameName)
	assert.Equal(t, 100.0, snapshot.CompletionPercentage)
	assert.Equal(t, 29.35, snapshot.AverageRarity)
	require.Len(t, unlocks, 2)
}

func TestGameSnapshot_GameWithoutAchievements(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// GetSchemaForGame answers 400 for apps without stats.
		http.Error(w, "Requested app has no stats", http.StatusBadRequest)
	}))

	snapshot, unlocks, err := client.GameSnapshot(context.Background(), testSteamID, 10, "Counter-Strike")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
	assert.Nil(t, unlocks)
}

func TestGameSnapshot_PrivateGameDetails(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ISteamUserStats/GetSchemaForGame/v2/":
			_, _ = w.Write([]byte(`{"game":{"gameName":"Portal 2","availableGameStats":{"achievements":[
				{"name":"ACH_A","displayName":"First"}
			]}}}`))
		case "/ISteamUserStats/GetPlayerAchievements/v1/":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"playerstats":{"success":false,"error":"Profile is not public"}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	_, _, err := client.GameSnapshot(context.Background(), testSteamID, 620, "Portal 2")
	assert.ErrorIs(t, err, shared.ErrSteamProfilePrivate)
}

func TestGameSnapshot_RarityFailureDegrades(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ISteamUserStats/GetSchemaForGame/v2/":
			_, _ = w.Write([]byte(`{"game":{"availableGameStats":{"achievements":[{"name":"ACH_A"}]}}}`))
		case "/ISteamUserStats/GetPlayerAchievements/v1/":
			_, _ = w.Write([]byte(`{"playerstats":{"success":true,"achievements":[{"apiname":"ACH_A","achieved":1,"unlocktime":1700000000}]}}`))
		case "/ISteamUserStats/GetGlobalAchievementPercentagesForApp/v2/":
			http.Error(w, "oops", http.StatusInternalServerError)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	snapshot, _, err := client.GameSnapshot(context.Background(), testSteamID, 620, "Portal 2")
	require.NoError(t, err, "rarity failures must not block the sync")
	require.NotNil(t, snapshot)
	assert.Equal(t, 0.0, snapshot.AverageRarity)
}

func TestDoRequest_RetriesServerErrors(t *testing.T) {
	attempts := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"response":{"players":[{"personaname":"gaben"}]}}`))
	}))
	client.retrier = newFastRetrier()

	summary, err := client.PlayerSummary(context.Background(), testSteamID)
	require.NoError(t, err)
	assert.Equal(t, "gaben", summary.Username)
	assert.Equal(t, 3, attempts)
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	client.retrier = newFastRetrier()

	for i := 0; i < DefaultCircuitBreakerConfig().FailureThreshold; i++ {
		_, err := client.PlayerSummary(context.Background(), testSteamID)
		require.Error(t, err)
	}

	assert.Equal(t, CircuitOpen, client.circuitBreaker.State())

	_, err := client.PlayerSummary(context.Background(), testSteamID)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}
