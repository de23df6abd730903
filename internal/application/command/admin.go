package command

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/medal"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/season"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMINISTRATIVE COMMANDS
// Medal definitions and seasons are normally seeded by migrations; these
// commands exist for the admin surface.
// ══════════════════════════════════════════════════════════════════════════════

// CreateMedalCommand creates a new medal definition.
type CreateMedalCommand struct {
	Key         string          `json:"medalKey"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	Tier        string          `json:"tier"`
	Points      int             `json:"points"`
	HouseBonus  string          `json:"houseBonus"`
	Condition   json.RawMessage `json:"conditions"`
	Seasonal    bool            `json:"isSeasonal"`
	SeasonID    int64           `json:"seasonId"`
}

// CreateMedalHandler handles the CreateMedalCommand.
type CreateMedalHandler struct {
	catalog medal.CatalogRepository
	log     *logger.Logger
}

// NewCreateMedalHandler creates a new CreateMedalHandler.
func NewCreateMedalHandler(catalog medal.CatalogRepository, log *logger.Logger) *CreateMedalHandler {
	return &CreateMedalHandler{
		catalog: catalog,
		log:     log.With(logger.Component("medal_admin")),
	}
}

// Handle validates the condition tree up front and stores the definition.
// A definition that fails ParseCondition is rejected here rather than being
// stored and quarantined on every later load.
func (h *CreateMedalHandler) Handle(ctx context.Context, cmd CreateMedalCommand) (*medal.Definition, error) {
	node, err := medal.ParseCondition(cmd.Condition)
	if err != nil {
		return nil, err
	}

	def := &medal.Definition{
		Key:         medal.Key(cmd.Key),
		Name:        cmd.Name,
		Description: cmd.Description,
		Icon:        cmd.Icon,
		Tier:        medal.Tier(cmd.Tier),
		Points:      cmd.Points,
		HouseBonus:  cmd.HouseBonus,
		Condition:   node,
		Seasonal:    cmd.Seasonal,
		SeasonID:    cmd.SeasonID,
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	if err := h.catalog.Create(ctx, def, cmd.Condition); err != nil {
		return nil, err
	}

	h.log.Info("medal definition created",
		logger.MedalKey(cmd.Key),
		logger.Points(cmd.Points))
	return def, nil
}

// CreateSeasonCommand creates a new, inactive season.
type CreateSeasonCommand struct {
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// ActivateSeasonCommand makes a season the single active one.
type ActivateSeasonCommand struct {
	SeasonID int64 `json:"seasonId"`
}

// ManageSeasonHandler handles season administration.
type ManageSeasonHandler struct {
	seasons season.Repository
	log     *logger.Logger
}

// NewManageSeasonHandler creates a new ManageSeasonHandler.
func NewManageSeasonHandler(seasons season.Repository, log *logger.Logger) *ManageSeasonHandler {
	return &ManageSeasonHandler{
		seasons: seasons,
		log:     log.With(logger.Component("season_admin")),
	}
}

// HandleCreate creates a new season. Activation is a separate step.
func (h *ManageSeasonHandler) HandleCreate(ctx context.Context, cmd CreateSeasonCommand) (*season.Season, error) {
	s := &season.Season{
		Name:      cmd.Name,
		StartDate: cmd.StartDate,
		EndDate:   cmd.EndDate,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if err := h.seasons.Create(ctx, s); err != nil {
		return nil, shared.WrapError("season", "Create", shared.ErrStorage, "failed to create season", err)
	}

	h.log.Info("season created", logger.SeasonID(s.ID), logger.String("name", s.Name))
	return s, nil
}

// HandleActivate switches the active season.
func (h *ManageSeasonHandler) HandleActivate(ctx context.Context, cmd ActivateSeasonCommand) error {
	if cmd.SeasonID <= 0 {
		return shared.ErrSeasonNotFound
	}

	if err := h.seasons.Activate(ctx, cmd.SeasonID); err != nil {
		return err
	}

	h.log.Info("season activated", logger.SeasonID(cmd.SeasonID))
	return nil
}
