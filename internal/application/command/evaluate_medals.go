// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system.
package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/medal"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/progress"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/season"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATE MEDALS COMMAND
// Runs the full candidate catalog against one (user, game) pair and grants
// every qualifying medal that has not been earned yet. Один батч работает в
// одном сезонном контексте: активный сезон читается ровно один раз.
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateGameCommand evaluates the medal catalog for one user and one game.
type EvaluateGameCommand struct {
	// UserID is the internal user ID.
	UserID string

	// AppID is the game under evaluation.
	AppID int64

	// Snapshot is the fresh point-in-time achievement view, usually produced
	// by the sync flow. May be nil; the persisted progress row is then used,
	// and rarity-based metrics resolve to their defaults.
	Snapshot *progress.Snapshot

	// Now is the evaluation instant. Zero means time.Now().
	Now time.Time
}

// Validate validates the command.
func (c EvaluateGameCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("command", "EvaluateGame", shared.ErrInvalidID, "user id is required")
	}
	if c.AppID <= 0 {
		return shared.ErrInvalidAppID
	}
	return nil
}

// MedalFailure is one medal whose evaluation or grant failed. Failures never
// abort the batch; they are collected and reported together.
type MedalFailure struct {
	Key medal.Key
	Err error
}

// EvaluateGameResult contains the outcome of one evaluation batch.
type EvaluateGameResult struct {
	// Granted lists the medals newly earned in this batch, in catalog order.
	Granted []medal.Granted

	// Evaluated is how many candidate definitions were checked.
	Evaluated int

	// Failures lists per-medal errors. A non-empty list with some grants is
	// a partial success, not a failure.
	Failures []MedalFailure

	// Season is the consolidated season context the batch ran under.
	Season season.Context
}

// PointsGranted sums the points of all newly granted medals.
func (r *EvaluateGameResult) PointsGranted() int {
	total := 0
	for _, g := range r.Granted {
		total += g.Points
	}
	return total
}

// EvaluateMedalsHandler handles medal evaluation for single games and for a
// user's whole completed backlog.
type EvaluateMedalsHandler struct {
	catalog  medal.CatalogRepository
	ledger   medal.LedgerRepository
	seasons  season.Repository
	progress progress.Repository
	history  progress.HistoryReader
	log      *logger.Logger
}

// NewEvaluateMedalsHandler creates a new EvaluateMedalsHandler.
func NewEvaluateMedalsHandler(
	catalog medal.CatalogRepository,
	ledger medal.LedgerRepository,
	seasons season.Repository,
	progressRepo progress.Repository,
	history progress.HistoryReader,
	log *logger.Logger,
) *EvaluateMedalsHandler {
	return &EvaluateMedalsHandler{
		catalog:  catalog,
		ledger:   ledger,
		seasons:  seasons,
		progress: progressRepo,
		history:  history,
		log:      log.With(logger.Component("medal_engine")),
	}
}

// Handle evaluates the candidate catalog for one (user, game) pair.
func (h *EvaluateMedalsHandler) Handle(ctx context.Context, cmd EvaluateGameCommand) (*EvaluateGameResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if cmd.Snapshot == nil {
		cmd.Snapshot = h.snapshotFromProgress(ctx, cmd.UserID, cmd.AppID)
	}

	sctx, err := h.resolveSeason(ctx)
	if err != nil {
		return nil, err
	}

	candidates, err := h.catalog.ListCandidates(ctx, sctx.SeasonID, sctx.Active)
	if err != nil {
		return nil, shared.WrapError("command", "EvaluateGame", shared.ErrStorage, "failed to load medal candidates", err)
	}

	return h.evaluate(ctx, cmd, sctx, candidates), nil
}

// evaluate runs one (user, game) pair against an already-loaded candidate
// set under an already-resolved season context.
func (h *EvaluateMedalsHandler) evaluate(
	ctx context.Context,
	cmd EvaluateGameCommand,
	sctx season.Context,
	candidates []*medal.Definition,
) *EvaluateGameResult {
	now := cmd.Now
	if now.IsZero() {
		now = time.Now()
	}

	result := &EvaluateGameResult{Season: sctx}
	resolver := medal.NewResolver(ctx, cmd.UserID, cmd.AppID, cmd.Snapshot, h.history, now)

	gameName := ""
	if cmd.Snapshot != nil {
		gameName = cmd.Snapshot.DisplayName()
	}

	for _, def := range candidates {
		result.Evaluated++

		qualifies, err := def.Qualifies(resolver)
		if err != nil {
			result.Failures = append(result.Failures, MedalFailure{Key: def.Key, Err: err})
			h.log.Error("medal evaluation failed",
				logger.UserID(cmd.UserID),
				logger.AppID(cmd.AppID),
				logger.MedalKey(def.Key.String()),
				logger.Err(err))
			continue
		}
		if !qualifies {
			continue
		}

		award := medal.NewAward(uuid.NewString(), cmd.UserID, def, cmd.AppID, gameName, now)
		// Only the definition's own flag opens the season and house ledgers.
		// Seasonal candidates are only listed while a season is active, so the
		// season id is always valid when the flag is set.
		scope := medal.GrantScope{
			Points:   def.Points,
			Seasonal: def.Seasonal,
			SeasonID: sctx.SeasonID,
		}

		inserted, err := h.ledger.Grant(ctx, award, scope)
		if err != nil {
			result.Failures = append(result.Failures, MedalFailure{Key: def.Key, Err: err})
			h.log.Error("medal grant failed",
				logger.UserID(cmd.UserID),
				logger.AppID(cmd.AppID),
				logger.MedalKey(def.Key.String()),
				logger.Err(err))
			continue
		}
		if !inserted {
			// Already earned for this game; the conditional insert is the
			// single source of truth for idempotency.
			continue
		}

		result.Granted = append(result.Granted, medal.Granted{
			Key:         def.Key,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			Tier:        def.Tier,
			Points:      def.Points,
			GameName:    gameName,
			IsNew:       true,
		})

		h.log.Info("medal granted",
			logger.UserID(cmd.UserID),
			logger.AppID(cmd.AppID),
			logger.MedalKey(def.Key.String()),
			logger.Points(def.Points),
			logger.Bool("seasonal", scope.Seasonal))
	}

	return result
}

// resolveSeason reads the active season once per batch. No active season is
// a normal state; storage failures are not.
func (h *EvaluateMedalsHandler) resolveSeason(ctx context.Context) (season.Context, error) {
	active, err := h.seasons.GetActive(ctx)
	if err != nil {
		if shared.IsNotFound(err) {
			return season.NoSeason, nil
		}
		return season.NoSeason, shared.WrapError("command", "EvaluateGame", shared.ErrStorage, "failed to resolve active season", err)
	}
	return season.ContextOf(active), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATE ALL COMMAND
// Re-runs the catalog over every completed game of a user, from persisted
// progress. Used by the nightly re-evaluation job and the manual endpoint.
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateAllCommand re-evaluates all completed games of one user.
type EvaluateAllCommand struct {
	UserID string

	// Now is the evaluation instant. Zero means time.Now().
	Now time.Time
}

// Validate validates the command.
func (c EvaluateAllCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("command", "EvaluateAll", shared.ErrInvalidID, "user id is required")
	}
	return nil
}

// EvaluateAllResult aggregates the per-game batches.
type EvaluateAllResult struct {
	GamesEvaluated int
	Granted        []medal.Granted
	Failures       []MedalFailure
	Season         season.Context
}

// HandleAll evaluates every completed game of the user. The season context
// and the candidate set are resolved once and shared across all games, so a
// backlog run cannot straddle a season flip.
func (h *EvaluateMedalsHandler) HandleAll(ctx context.Context, cmd EvaluateAllCommand) (*EvaluateAllResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	sctx, err := h.resolveSeason(ctx)
	if err != nil {
		return nil, err
	}

	candidates, err := h.catalog.ListCandidates(ctx, sctx.SeasonID, sctx.Active)
	if err != nil {
		return nil, shared.WrapError("command", "EvaluateAll", shared.ErrStorage, "failed to load medal candidates", err)
	}

	appIDs, err := h.progress.ListCompletedGames(ctx, cmd.UserID)
	if err != nil {
		return nil, shared.WrapError("command", "EvaluateAll", shared.ErrStorage, "failed to list completed games", err)
	}

	result := &EvaluateAllResult{Season: sctx}
	for _, appID := range appIDs {
		snapshot := h.snapshotFromProgress(ctx, cmd.UserID, appID)

		gameResult := h.evaluate(ctx, EvaluateGameCommand{
			UserID:   cmd.UserID,
			AppID:    appID,
			Snapshot: snapshot,
			Now:      cmd.Now,
		}, sctx, candidates)

		result.GamesEvaluated++
		result.Granted = append(result.Granted, gameResult.Granted...)
		result.Failures = append(result.Failures, gameResult.Failures...)
	}

	h.log.Info("backlog re-evaluation finished",
		logger.UserID(cmd.UserID),
		logger.Int("games", result.GamesEvaluated),
		logger.Int("granted", len(result.Granted)),
		logger.Int("failures", len(result.Failures)))

	return result, nil
}

// snapshotFromProgress rebuilds a minimal snapshot from the persisted row.
// Rarity is not persisted, so rarity-based metrics resolve to their default.
func (h *EvaluateMedalsHandler) snapshotFromProgress(ctx context.Context, userID string, appID int64) *progress.Snapshot {
	p, err := h.progress.GetGameProgress(ctx, userID, appID)
	if err != nil {
		h.log.Warn("no persisted progress for completed game",
			logger.UserID(userID),
			logger.AppID(appID),
			logger.Err(err))
		return nil
	}
	return &progress.Snapshot{
		AppID:                p.AppID,
		CompletionPercentage: p.CompletionPercentage,
		TotalAchievements:    p.AchievementsTotal,
		UnlockedCount:        p.AchievementsUnlocked,
	}
}
