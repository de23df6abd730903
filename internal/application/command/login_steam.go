package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/user"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOGIN STEAM COMMAND
// Finds or creates the local account for a Steam identity that the HTTP layer
// has already verified via OpenID.
// ══════════════════════════════════════════════════════════════════════════════

// LoginSteamCommand registers or refreshes a user after a verified login.
type LoginSteamCommand struct {
	SteamID user.SteamID
}

// Validate validates the command.
func (c LoginSteamCommand) Validate() error {
	if !c.SteamID.IsValid() {
		return shared.ErrInvalidSteamID
	}
	return nil
}

// LoginSteamResult contains the resolved account.
type LoginSteamResult struct {
	User  *user.User
	IsNew bool
}

// LoginSteamHandler handles the LoginSteamCommand.
type LoginSteamHandler struct {
	users user.Repository
	steam SteamGateway
	log   *logger.Logger
}

// NewLoginSteamHandler creates a new LoginSteamHandler.
func NewLoginSteamHandler(users user.Repository, steam SteamGateway, log *logger.Logger) *LoginSteamHandler {
	return &LoginSteamHandler{
		users: users,
		steam: steam,
		log:   log.With(logger.Component("steam_login")),
	}
}

// Handle resolves the Steam identity to a local account, creating it on
// first login. Profile metadata is refreshed on every login; a failed
// summary fetch only degrades the metadata, never the login.
func (h *LoginSteamHandler) Handle(ctx context.Context, cmd LoginSteamCommand) (*LoginSteamResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	summary, err := h.steam.PlayerSummary(ctx, cmd.SteamID)
	if err != nil {
		h.log.Warn("player summary fetch failed on login",
			logger.SteamID(cmd.SteamID.String()),
			logger.Err(err))
		summary = &ProfileSummary{}
	}

	existing, err := h.users.GetBySteamID(ctx, cmd.SteamID)
	if err == nil {
		existing.RefreshProfile(summary.Username, summary.AvatarURL, summary.ProfileURL)
		if err := h.users.UpdateProfile(ctx, existing); err != nil {
			h.log.Warn("profile refresh persist failed", logger.UserID(existing.ID), logger.Err(err))
		}
		return &LoginSteamResult{User: existing}, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	created, err := user.NewUser(uuid.NewString(), cmd.SteamID, summary.Username, summary.AvatarURL, summary.ProfileURL)
	if err != nil {
		return nil, err
	}
	if err := h.users.Create(ctx, created); err != nil {
		// Lost a race against a concurrent first login; the row is there now.
		if shared.IsAlreadyExists(err) {
			existing, getErr := h.users.GetBySteamID(ctx, cmd.SteamID)
			if getErr != nil {
				return nil, getErr
			}
			return &LoginSteamResult{User: existing}, nil
		}
		return nil, err
	}

	h.log.Info("new user registered",
		logger.UserID(created.ID),
		logger.SteamID(cmd.SteamID.String()))

	return &LoginSteamResult{User: created, IsNew: true}, nil
}
