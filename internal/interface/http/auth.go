package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION TOKENS
// ══════════════════════════════════════════════════════════════════════════════

// AuthConfig contains session and admin authentication settings.
type AuthConfig struct {
	// JWTSecret signs session tokens.
	JWTSecret string

	// TokenTTL is the session token lifetime.
	TokenTTL time.Duration

	// AdminPasswordHash is the bcrypt hash guarding admin endpoints.
	// Empty disables the admin surface entirely.
	AdminPasswordHash string
}

// DefaultAuthConfig returns defaults; the secret must be supplied.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		TokenTTL: 7 * 24 * time.Hour,
	}
}

// sessionClaims is the JWT payload of a session token.
type sessionClaims struct {
	SteamID string `json:"steamId"`
	jwt.RegisteredClaims
}

// AuthManager issues and verifies session tokens and checks admin access.
type AuthManager struct {
	config AuthConfig
}

// NewAuthManager creates a new AuthManager.
func NewAuthManager(config AuthConfig) *AuthManager {
	return &AuthManager{config: config}
}

// IssueToken creates a signed session token for a logged-in user.
func (a *AuthManager) IssueToken(userID string, steamID user.SteamID) (string, error) {
	now := time.Now().UTC()
	claims := sessionClaims{
		SteamID: steamID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.config.JWTSecret))
}

// VerifyToken parses a session token and returns the user ID.
func (a *AuthManager) VerifyToken(tokenString string) (string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.config.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid session token")
	}

	return claims.Subject, nil
}

// CheckAdminPassword compares a submitted password with the configured hash.
func (a *AuthManager) CheckAdminPassword(password string) bool {
	if a.config.AdminPasswordHash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.config.AdminPasswordHash), []byte(password)) == nil
}

// AdminEnabled reports whether the admin surface is configured.
func (a *AuthManager) AdminEnabled() bool {
	return a.config.AdminPasswordHash != ""
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

const contextKeyUserID contextKey = "user_id"

// requireAuth rejects requests without a valid Bearer session token and puts
// the user ID on the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing session token")
			return
		}

		userID, err := s.deps.Auth.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired session token")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID, userID)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin rejects requests without the admin password header.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.deps.Auth.AdminEnabled() {
			writeJSONError(w, http.StatusNotFound, "not_found", "Not found")
			return
		}
		if !s.deps.Auth.CheckAdminPassword(r.Header.Get("X-Admin-Password")) {
			writeJSONError(w, http.StatusForbidden, "forbidden", "Invalid admin credentials")
			return
		}
		next(w, r)
	}
}

// authedUserID extracts the user ID set by requireAuth.
func authedUserID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyUserID).(string); ok {
		return id
	}
	return ""
}

// ══════════════════════════════════════════════════════════════════════════════
// STEAM OPENID
// Steam login uses OpenID 2.0: redirect the browser to the Steam login page,
// then verify the signed return parameters server-side with a
// check_authentication round trip.
// ══════════════════════════════════════════════════════════════════════════════

const steamOpenIDEndpoint = "https://steamcommunity.com/openid/login"

// steamClaimedIDPrefix is the OpenID identity prefix; the SteamID64 follows it.
const steamClaimedIDPrefix = "https://steamcommunity.com/openid/id/"

// SteamOpenID handles the browser side of Steam login.
type SteamOpenID struct {
	// Realm is the trust root shown to the user (the planner's public URL).
	Realm string

	// ReturnURL receives the signed OpenID response.
	ReturnURL string

	httpClient *http.Client
}

// NewSteamOpenID creates a new SteamOpenID helper.
func NewSteamOpenID(realm, returnURL string) *SteamOpenID {
	return &SteamOpenID{
		Realm:      realm,
		ReturnURL:  returnURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// RedirectURL builds the Steam login URL to send the browser to.
func (o *SteamOpenID) RedirectURL() string {
	params := url.Values{}
	params.Set("openid.ns", "http://specs.openid.net/auth/2.0")
	params.Set("openid.mode", "checkid_setup")
	params.Set("openid.return_to", o.ReturnURL)
	params.Set("openid.realm", o.Realm)
	params.Set("openid.identity", "http://specs.openid.net/auth/2.0/identifier_select")
	params.Set("openid.claimed_id", "http://specs.openid.net/auth/2.0/identifier_select")

	return steamOpenIDEndpoint + "?" + params.Encode()
}

// Verify validates the OpenID return parameters with Steam and extracts the
// SteamID. The signature check happens on Steam's side; trusting the claimed
// ID without it would let anyone forge a login.
func (o *SteamOpenID) Verify(ctx context.Context, query url.Values) (user.SteamID, error) {
	if query.Get("openid.mode") != "id_res" {
		return "", fmt.Errorf("steam openid: unexpected mode %q", query.Get("openid.mode"))
	}

	claimed := query.Get("openid.claimed_id")
	if !strings.HasPrefix(claimed, steamClaimedIDPrefix) {
		return "", fmt.Errorf("steam openid: unexpected claimed id")
	}
	steamID := user.SteamID(strings.TrimPrefix(claimed, steamClaimedIDPrefix))
	if !steamID.IsValid() {
		return "", fmt.Errorf("steam openid: malformed steam id")
	}

	check := url.Values{}
	for key, values := range query {
		if strings.HasPrefix(key, "openid.") && len(values) > 0 {
			check.Set(key, values[0])
		}
	}
	check.Set("openid.mode", "check_authentication")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, steamOpenIDEndpoint,
		strings.NewReader(check.Encode()))
	if err != nil {
		return "", fmt.Errorf("steam openid: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("steam openid: verification request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("steam openid: read verification: %w", err)
	}
	if !strings.Contains(string(body), "is_valid:true") {
		return "", fmt.Errorf("steam openid: signature rejected")
	}

	return steamID, nil
}
