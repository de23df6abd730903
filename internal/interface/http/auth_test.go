package http

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/user"
)

const testSteamID = user.SteamID("76561198000000001")

func newTestAuth(t *testing.T, adminHash string) *AuthManager {
	t.Helper()

	cfg := DefaultAuthConfig()
	cfg.JWTSecret = "test-secret"
	cfg.AdminPasswordHash = adminHash
	return NewAuthManager(cfg)
}

func TestIssueAndVerifyToken(t *testing.T) {
	auth := newTestAuth(t, "")

	token, err := auth.IssueToken("user-1", testSteamID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := auth.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	auth := newTestAuth(t, "")

	token, err := auth.IssueToken("user-1", testSteamID)
	require.NoError(t, err)

	other := NewAuthManager(AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour})
	_, err = other.VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyToken_Expired(t *testing.T) {
	auth := NewAuthManager(AuthConfig{JWTSecret: "test-secret", TokenTTL: -time.Minute})

	token, err := auth.IssueToken("user-1", testSteamID)
	require.NoError(t, err)

	_, err = auth.VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyToken_Garbage(t *testing.T) {
	auth := newTestAuth(t, "")

	_, err := auth.VerifyToken("not-a-token")
	assert.Error(t, err)
}

func TestCheckAdminPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	auth := newTestAuth(t, string(hash))
	assert.True(t, auth.AdminEnabled())
	assert.True(t, auth.CheckAdminPassword("hunter2"))
	assert.False(t, auth.CheckAdminPassword("wrong"))
	assert.False(t, auth.CheckAdminPassword(""))
}

func TestCheckAdminPassword_DisabledWithoutHash(t *testing.T) {
	auth := newTestAuth(t, "")

	assert.False(t, auth.AdminEnabled())
	assert.False(t, auth.CheckAdminPassword("anything"))
}

func TestSteamOpenID_RedirectURL(t *testing.T) {
	o := NewSteamOpenID("https://planner.example", "https://planner.example/api/v1/auth/steam/return")

	u, err := url.Parse(o.RedirectURL())
	require.NoError(t, err)

	assert.Equal(t, "steamcommunity.com", u.Host)
	q := u.Query()
	assert.Equal(t, "checkid_setup", q.Get("openid.mode"))
	assert.Equal(t, "https://planner.example", q.Get("openid.realm"))
	assert.Equal(t, "https://planner.example/api/v1/auth/steam/return", q.Get("openid.return_to"))
	assert.Equal(t, "http://specs.openid.net/auth/2.0/identifier_select", q.Get("openid.identity"))
}

func TestSteamOpenID_VerifyRejectsBadResponses(t *testing.T) {
	o := NewSteamOpenID("https://planner.example", "https://planner.example/return")

	// Wrong mode never reaches the network.
	_, err := o.Verify(context.Background(), url.Values{"openid.mode": {"cancel"}})
	assert.Error(t, err)

	// Claimed ID outside the Steam namespace.
	_, err = o.Verify(context.Background(), url.Values{
		"openid.mode":       {"id_res"},
		"openid.claimed_id": {"https://evil.example/openid/id/76561198000000001"},
	})
	assert.Error(t, err)

	// Malformed SteamID64 behind a valid prefix.
	_, err = o.Verify(context.Background(), url.Values{
		"openid.mode":       {"id_res"},
		"openid.claimed_id": {"https://steamcommunity.com/openid/id/banana"},
	})
	assert.Error(t, err)
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))

	// Другой клиент не затронут.
	assert.True(t, rl.Allow("5.6.7.8"))
}
