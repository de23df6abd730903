package command

import (
	"context"
	"time"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/medal"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/progress"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/user"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC LIBRARY COMMAND
// Pulls the user's owned games and achievement data from Steam, refreshes the
// persisted progress rows, and runs medal evaluation for every game that
// reached 100% completion.
// ══════════════════════════════════════════════════════════════════════════════

// OwnedGame is one entry of a Steam library listing.
type OwnedGame struct {
	AppID           int64
	Name            string
	PlaytimeForever int // minutes
	IconURL         string
}

// ProfileSummary is the subset of a Steam player summary the planner keeps.
type ProfileSummary struct {
	Username   string
	AvatarURL  string
	ProfileURL string
}

// SteamGateway is the outbound port to the Steam Web API. The infrastructure
// implementation handles rate limiting and retries; handlers treat a call as
// a single attempt.
type SteamGateway interface {
	// PlayerSummary fetches current profile metadata.
	PlayerSummary(ctx context.Context, steamID user.SteamID) (*ProfileSummary, error)

	// OwnedGames fetches the library listing.
	OwnedGames(ctx context.Context, steamID user.SteamID) ([]OwnedGame, error)

	// GameSnapshot fetches per-game achievement state merged with global
	// rarity data, plus the unlock rows to persist. Returns
	// shared.ErrSteamProfilePrivate for games with hidden details and a nil
	// snapshot for games without achievements.
	GameSnapshot(ctx context.Context, steamID user.SteamID, appID int64, gameName string) (*progress.Snapshot, []progress.AchievementUnlock, error)
}

// SyncLibraryCommand syncs one user's Steam library.
type SyncLibraryCommand struct {
	UserID string

	// MinPlaytime skips games below this many minutes. Zero keeps every
	// game that has been launched at all.
	MinPlaytime int
}

// Validate validates the command.
func (c SyncLibraryCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("command", "SyncLibrary", shared.ErrInvalidID, "user id is required")
	}
	return nil
}

// GameSyncFailure is one game whose sync failed. Failures are collected, not
// fatal, so one private or flaky game cannot block the rest of the library.
type GameSyncFailure struct {
	AppID int64
	Err   error
}

// SyncLibraryResult contains the outcome of one library sync.
type SyncLibraryResult struct {
	GamesListed    int
	GamesSynced    int
	GamesSkipped   int
	CompletedGames int

	// Granted lists medals newly earned during this sync.
	Granted []medal.Granted

	// GameFailures lists games that could not be synced.
	GameFailures []GameSyncFailure

	// MedalFailures lists medals that failed evaluation or grant.
	MedalFailures []MedalFailure

	StartedAt   time.Time
	CompletedAt time.Time
}

// Duration returns how long the sync took.
func (r *SyncLibraryResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// SyncLibraryHandler handles the SyncLibraryCommand.
type SyncLibraryHandler struct {
	users    user.Repository
	progress progress.Repository
	steam    SteamGateway
	engine   *EvaluateMedalsHandler
	log      *logger.Logger
}

// NewSyncLibraryHandler creates a new SyncLibraryHandler.
func NewSyncLibraryHandler(
	users user.Repository,
	progressRepo progress.Repository,
	steam SteamGateway,
	engine *EvaluateMedalsHandler,
	log *logger.Logger,
) *SyncLibraryHandler {
	return &SyncLibraryHandler{
		users:    users,
		progress: progressRepo,
		steam:    steam,
		engine:   engine,
		log:      log.With(logger.Component("library_sync")),
	}
}

// Handle executes the library sync.
func (h *SyncLibraryHandler) Handle(ctx context.Context, cmd SyncLibraryCommand) (*SyncLibraryResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	u, err := h.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	result := &SyncLibraryResult{StartedAt: time.Now().UTC()}
	log := h.log.With(logger.UserID(u.ID), logger.SteamID(u.SteamID.String()))

	h.refreshProfile(ctx, u, log)

	games, err := h.steam.OwnedGames(ctx, u.SteamID)
	if err != nil {
		return nil, shared.WrapError("command", "SyncLibrary", shared.ErrExternalService, "failed to list owned games", err)
	}
	result.GamesListed = len(games)

	// The season context is resolved once for the whole sync; every medal
	// granted during it lands in the same season.
	sctx, err := h.engine.resolveSeason(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := h.engine.catalog.ListCandidates(ctx, sctx.SeasonID, sctx.Active)
	if err != nil {
		return nil, shared.WrapError("command", "SyncLibrary", shared.ErrStorage, "failed to load medal candidates", err)
	}

	for _, game := range games {
		if game.PlaytimeForever < cmd.MinPlaytime || game.PlaytimeForever == 0 {
			result.GamesSkipped++
			continue
		}

		snapshot, err := h.syncGame(ctx, u, game, result.StartedAt)
		if err != nil {
			result.GameFailures = append(result.GameFailures, GameSyncFailure{AppID: game.AppID, Err: err})
			log.Warn("game sync failed", logger.AppID(game.AppID), logger.Err(err))
			continue
		}
		result.GamesSynced++

		if snapshot == nil || snapshot.CompletionPercentage < 100 {
			continue
		}
		result.CompletedGames++

		gameResult := h.engine.evaluate(ctx, EvaluateGameCommand{
			UserID:   u.ID,
			AppID:    game.AppID,
			Snapshot: snapshot,
		}, sctx, candidates)
		result.Granted = append(result.Granted, gameResult.Granted...)
		result.MedalFailures = append(result.MedalFailures, gameResult.Failures...)
	}

	result.CompletedAt = time.Now().UTC()
	log.Info("library sync finished",
		logger.Int("listed", result.GamesListed),
		logger.Int("synced", result.GamesSynced),
		logger.Int("completed", result.CompletedGames),
		logger.Int("medals_granted", len(result.Granted)),
		logger.Int("game_failures", len(result.GameFailures)),
		logger.Latency(result.Duration()))

	return result, nil
}

// refreshProfile updates display metadata; a failed summary fetch is logged
// and skipped, the sync itself proceeds.
func (h *SyncLibraryHandler) refreshProfile(ctx context.Context, u *user.User, log *logger.Logger) {
	summary, err := h.steam.PlayerSummary(ctx, u.SteamID)
	if err != nil {
		log.Warn("profile refresh failed", logger.Err(err))
		return
	}

	u.RefreshProfile(summary.Username, summary.AvatarURL, summary.ProfileURL)
	if err := h.users.UpdateProfile(ctx, u); err != nil {
		log.Warn("profile persist failed", logger.Err(err))
	}
}

// syncGame fetches one game's achievement state and persists the progress
// row plus the unlock history. Games without achievements yield a nil
// snapshot and no rows.
func (h *SyncLibraryHandler) syncGame(ctx context.Context, u *user.User, game OwnedGame, syncedAt time.Time) (*progress.Snapshot, error) {
	snapshot, unlocks, err := h.steam.GameSnapshot(ctx, u.SteamID, game.AppID, game.Name)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, nil
	}

	row := buildProgressRow(u.ID, game, snapshot, syncedAt)
	if err := h.progress.UpsertGameProgress(ctx, row); err != nil {
		return nil, err
	}
	if len(unlocks) > 0 {
		// The gateway only knows the Steam identity.
		for i := range unlocks {
			unlocks[i].UserID = u.ID
		}
		if err := h.progress.UpsertUnlocks(ctx, unlocks); err != nil {
			return nil, err
		}
	}

	return snapshot, nil
}

// buildProgressRow maps a snapshot onto the persisted progress schema.
func buildProgressRow(userID string, game OwnedGame, s *progress.Snapshot, syncedAt time.Time) *progress.GameProgress {
	row := &progress.GameProgress{
		UserID:               userID,
		AppID:                game.AppID,
		PlaytimeForever:      game.PlaytimeForever,
		AchievementsUnlocked: s.UnlockedCount,
		AchievementsTotal:    s.TotalAchievements,
		CompletionPercentage: s.CompletionPercentage,
		SyncedAt:             syncedAt,
	}

	var first, last *time.Time
	for i := range s.Achievements {
		a := &s.Achievements[i]
		if !a.Unlocked || a.UnlockTime == nil {
			continue
		}
		if first == nil || a.UnlockTime.Before(*first) {
			first = a.UnlockTime
		}
		if last == nil || a.UnlockTime.After(*last) {
			last = a.UnlockTime
		}
	}
	row.FirstAchievementAt = first
	row.LastAchievementAt = last

	if s.CompletionPercentage == 100 && last != nil {
		row.CompletedAt = last
	}
	return row
}
