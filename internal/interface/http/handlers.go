package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/application/command"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/application/query"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/house"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/user"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot returns basic service information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Endpoint not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"service": "houses-steam-planner",
		"status":  "running",
	})
}

// handleHealth returns the health status of the service and its backends.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	if s.deps.HealthChecker != nil {
		checks = s.deps.HealthChecker.Health(r.Context())
	}

	status := http.StatusOK
	healthy := true
	for _, state := range checks {
		if state != "ok" {
			healthy = false
			status = http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, status, map[string]any{
		"healthy": healthy,
		"checks":  checks,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// handleSteamLogin sends the browser to the Steam OpenID login page.
func (s *Server) handleSteamLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.deps.OpenID.RedirectURL(), http.StatusFound)
}

// handleSteamReturn verifies the OpenID response, resolves the local account
// and issues a session token.
func (s *Server) handleSteamReturn(w http.ResponseWriter, r *http.Request) {
	steamID, err := s.deps.OpenID.Verify(r.Context(), r.URL.Query())
	if err != nil {
		s.logger.Warn("steam login verification failed",
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())))
		writeJSONError(w, http.StatusUnauthorized, "steam_login_failed", "Steam login could not be verified")
		return
	}

	result, err := s.deps.LoginSteamHandler.Handle(r.Context(), command.LoginSteamCommand{SteamID: steamID})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	token, err := s.deps.Auth.IssueToken(result.User.ID, result.User.SteamID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	// Browser flow lands back on the frontend; API clients get JSON.
	if s.config.FrontendURL != "" {
		http.Redirect(w, r, fmt.Sprintf("%s/auth/callback?token=%s", s.config.FrontendURL, token), http.StatusFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userDTO(result.User),
		"isNew": result.IsNew,
	})
}

// handleMe returns the authenticated user's account.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Users.GetByID(r.Context(), authedUserID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userDTO(u))
}

// userDTO shapes a user for API responses.
func userDTO(u *user.User) map[string]any {
	return map[string]any{
		"id":            u.ID,
		"steamId":       u.SteamID.String(),
		"username":      u.Username,
		"avatarUrl":     u.AvatarURL,
		"profileUrl":    u.ProfileURL,
		"houseId":       u.HouseID,
		"generalPoints": u.GeneralPoints,
		"startDate":     u.StartDate.UTC().Format(time.RFC3339),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LIBRARY SYNC AND MEDALS
// ══════════════════════════════════════════════════════════════════════════════

// handleSyncLibrary runs a full library sync for the authenticated user. Syncs
// are windowed per user so a refresh-happy client cannot hammer the Steam API.
func (s *Server) handleSyncLibrary(w http.ResponseWriter, r *http.Request) {
	userID := authedUserID(r.Context())

	if s.deps.SyncLimiter != nil {
		allowed, retryAfter, err := s.deps.SyncLimiter.Acquire(r.Context(), userID)
		if err != nil {
			s.logger.Warn("sync limiter unavailable, allowing sync",
				logger.UserID(userID), logger.Err(err))
		}
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			writeJSONError(w, http.StatusTooManyRequests, "sync_cooldown",
				"Library was synced recently, please wait before syncing again")
			return
		}
	}

	result, err := s.deps.SyncLibraryHandler.Handle(r.Context(), command.SyncLibraryCommand{
		UserID:      userID,
		MinPlaytime: s.config.SyncMinPlaytime,
	})
	if err != nil {
		// A sync that never reached Steam should not burn the window.
		if s.deps.SyncLimiter != nil {
			_ = s.deps.SyncLimiter.Release(r.Context(), userID)
		}
		s.respondError(w, r, err)
		return
	}

	failures := make([]map[string]any, 0, len(result.GameFailures))
	for _, f := range result.GameFailures {
		failures = append(failures, map[string]any{
			"appId": f.AppID,
			"error": f.Err.Error(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"gamesListed":    result.GamesListed,
		"gamesSynced":    result.GamesSynced,
		"gamesSkipped":   result.GamesSkipped,
		"completedGames": result.CompletedGames,
		"medalsGranted":  result.Granted,
		"gameFailures":   failures,
		"durationMs":     result.Duration().Milliseconds(),
	})
}

// handleEvaluateAll re-runs medal evaluation over the user's completed games.
// Normally the sync flow does this; the endpoint exists to pick up medals
// added to the catalog after the last sync.
func (s *Server) handleEvaluateAll(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.EvaluateMedalsHandler.HandleAll(r.Context(), command.EvaluateAllCommand{
		UserID: authedUserID(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"gamesEvaluated": result.GamesEvaluated,
		"granted":        result.Granted,
		"seasonActive":   result.Season.Active,
	})
}

// handleEvaluateGame re-runs evaluation for one game from the persisted
// progress row.
func (s *Server) handleEvaluateGame(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appId")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid app id")
		return
	}

	result, err := s.deps.EvaluateMedalsHandler.Handle(r.Context(), command.EvaluateGameCommand{
		UserID: authedUserID(r.Context()),
		AppID:  appID,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"evaluated":     result.Evaluated,
		"granted":       result.Granted,
		"pointsGranted": result.PointsGranted(),
	})
}

// handleMedalCatalog returns every medal definition.
func (s *Server) handleMedalCatalog(w http.ResponseWriter, r *http.Request) {
	defs, err := s.deps.GetMedalCatalogHandler.Handle(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, defs)
}

// handleMyMedals returns the authenticated user's award history.
func (s *Server) handleMyMedals(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetUserMedalsHandler.Handle(r.Context(), query.GetUserMedalsQuery{
		UserID: authedUserID(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// HOUSES
// ══════════════════════════════════════════════════════════════════════════════

// handleListHouses returns all houses with member counts and totals.
func (s *Server) handleListHouses(w http.ResponseWriter, r *http.Request) {
	houses, err := s.deps.GetHousesHandler.Handle(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, houses)
}

// handleHouseCup returns the general and season cup standings.
func (s *Server) handleHouseCup(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetHouseCupHandler.Handle(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleQuiz returns the sorting quiz questions.
func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	questions, err := s.deps.GetQuizHandler.Handle(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, questions)
}

// handleSubmitQuiz scores a quiz submission and sorts the user into a house.
func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answers []house.QuizAnswer `json:"answers"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid quiz submission")
		return
	}

	result, err := s.deps.AssignHouseHandler.HandleQuiz(r.Context(), command.SubmitQuizCommand{
		UserID:  authedUserID(r.Context()),
		Answers: body.Answers,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleJoinHouse joins a house directly, skipping the quiz.
func (s *Server) handleJoinHouse(w http.ResponseWriter, r *http.Request) {
	houseID, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid house id")
		return
	}

	result, err := s.deps.AssignHouseHandler.HandleJoin(r.Context(), command.JoinHouseCommand{
		UserID:  authedUserID(r.Context()),
		HouseID: houseID,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleHouseMembers returns a house's member leaderboard.
func (s *Server) handleHouseMembers(w http.ResponseWriter, r *http.Request) {
	houseID, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid house id")
		return
	}

	members, err := s.deps.GetHouseMembersHandler.Handle(r.Context(), query.GetHouseMembersQuery{
		HouseID: houseID,
		Limit:   getQueryParamInt(r, "limit", 0),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, members)
}

// ══════════════════════════════════════════════════════════════════════════════
// SEASONS
// ══════════════════════════════════════════════════════════════════════════════

// handleListSeasons returns all seasons, most recent first.
func (s *Server) handleListSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := s.deps.GetSeasonsHandler.Handle(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, seasons)
}

// handleSeasonLeaderboard returns the user leaderboard for a season. Without
// a season parameter the active season is used.
func (s *Server) handleSeasonLeaderboard(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetSeasonLeaderboardHandler.Handle(r.Context(), query.GetSeasonLeaderboardQuery{
		SeasonID: int64(getQueryParamInt(r, "season", 0)),
		Limit:    getQueryParamInt(r, "limit", 0),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleMySeasonPoints returns the authenticated user's points and rank in
// the active season.
func (s *Server) handleMySeasonPoints(w http.ResponseWriter, r *http.Request) {
	points, err := s.deps.GetMySeasonPointsHandler.Handle(r.Context(), query.GetMySeasonPointsQuery{
		UserID: authedUserID(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, points)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMINISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// handleCreateMedal creates a new medal definition.
func (s *Server) handleCreateMedal(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateMedalCommand
	if err := decodeJSON(r, &cmd); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid medal definition")
		return
	}

	def, err := s.deps.CreateMedalHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, def)
}

// handleCreateSeason creates a new, inactive season.
func (s *Server) handleCreateSeason(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateSeasonCommand
	if err := decodeJSON(r, &cmd); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid season")
		return
	}

	created, err := s.deps.ManageSeasonHandler.HandleCreate(r.Context(), cmd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleActivateSeason makes a season the single active one.
func (s *Server) handleActivateSeason(w http.ResponseWriter, r *http.Request) {
	seasonID, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid season id")
		return
	}

	if err := s.deps.ManageSeasonHandler.HandleActivate(r.Context(), command.ActivateSeasonCommand{SeasonID: seasonID}); err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"activated": seasonID})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST AND ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

const maxRequestBody = 1 << 20 // 1 MB

// decodeJSON decodes a request body, rejecting unknown fields and oversized
// payloads.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// pathID parses a numeric path segment.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// respondError maps a domain error to an HTTP status. Unexpected errors are
// logged with their request ID and surfaced as an opaque 500.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *shared.DomainError
	message := "An unexpected error occurred"
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}

	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", message)
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", message)
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "conflict", message)
	case errors.Is(err, shared.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "forbidden", message)
	case errors.Is(err, shared.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", message)
	case errors.Is(err, shared.ErrRateLimited):
		writeJSONError(w, http.StatusTooManyRequests, "rate_limited", message)
	case errors.Is(err, shared.ErrServiceUnavailable), errors.Is(err, shared.ErrTimeout):
		writeJSONError(w, http.StatusBadGateway, "upstream_unavailable", message)
	default:
		s.logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}
