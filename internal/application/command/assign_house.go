package command

import (
	"context"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/house"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/user"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGN HOUSE COMMAND
// Sorts a user into a house, either by scoring the quiz or by explicit choice.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitQuizCommand scores a quiz submission and joins the winning house.
type SubmitQuizCommand struct {
	UserID  string
	Answers []house.QuizAnswer
}

// Validate validates the command.
func (c SubmitQuizCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("command", "SubmitQuiz", shared.ErrInvalidID, "user id is required")
	}
	if len(c.Answers) == 0 {
		return shared.ErrEmptyQuiz
	}
	return nil
}

// AssignHouseResult contains the house the user ended up in.
type AssignHouseResult struct {
	House     *house.House            `json:"house"`
	Breakdown map[house.Archetype]int `json:"breakdown,omitempty"`
}

// AssignHouseHandler handles quiz submissions and manual house joins.
type AssignHouseHandler struct {
	users  user.Repository
	houses house.Repository
	log    *logger.Logger
}

// NewAssignHouseHandler creates a new AssignHouseHandler.
func NewAssignHouseHandler(users user.Repository, houses house.Repository, log *logger.Logger) *AssignHouseHandler {
	return &AssignHouseHandler{
		users:  users,
		houses: houses,
		log:    log.With(logger.Component("house_sorting")),
	}
}

// HandleQuiz scores the submission and persists the membership.
func (h *AssignHouseHandler) HandleQuiz(ctx context.Context, cmd SubmitQuizCommand) (*AssignHouseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	quizResult, err := house.ScoreQuiz(cmd.Answers)
	if err != nil {
		return nil, err
	}

	result, err := h.join(ctx, cmd.UserID, quizResult.HouseID)
	if err != nil {
		return nil, err
	}
	result.Breakdown = quizResult.Breakdown

	h.log.Info("user sorted by quiz",
		logger.UserID(cmd.UserID),
		logger.HouseID(quizResult.HouseID),
		logger.String("archetype", quizResult.Winner.String()))

	return result, nil
}

// JoinHouseCommand joins a house directly, skipping the quiz.
type JoinHouseCommand struct {
	UserID  string
	HouseID int64
}

// Validate validates the command.
func (c JoinHouseCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("command", "JoinHouse", shared.ErrInvalidID, "user id is required")
	}
	if c.HouseID <= 0 {
		return shared.ErrHouseNotFound
	}
	return nil
}

// HandleJoin joins the given house directly.
func (h *AssignHouseHandler) HandleJoin(ctx context.Context, cmd JoinHouseCommand) (*AssignHouseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result, err := h.join(ctx, cmd.UserID, cmd.HouseID)
	if err != nil {
		return nil, err
	}

	h.log.Info("user joined house directly",
		logger.UserID(cmd.UserID),
		logger.HouseID(cmd.HouseID))

	return result, nil
}

// join verifies the house exists and persists the membership.
func (h *AssignHouseHandler) join(ctx context.Context, userID string, houseID int64) (*AssignHouseResult, error) {
	target, err := h.houses.GetByID(ctx, houseID)
	if err != nil {
		return nil, err
	}

	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := u.JoinHouse(houseID); err != nil {
		return nil, err
	}
	if err := h.users.SetHouse(ctx, userID, houseID); err != nil {
		return nil, shared.WrapError("command", "JoinHouse", shared.ErrStorage, "failed to persist house membership", err)
	}

	return &AssignHouseResult{House: target}, nil
}
