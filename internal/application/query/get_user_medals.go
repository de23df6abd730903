// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
package query

import (
	"context"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/medal"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER MEDALS QUERY
// История наград пользователя вместе со сводкой: сколько медалей, сколько
// очков, в скольких играх.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserMedalsQuery requests one user's award history.
type GetUserMedalsQuery struct {
	UserID string
}

// Validate validates the query.
func (q GetUserMedalsQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetUserMedals", shared.ErrInvalidID, "user id is required")
	}
	return nil
}

// GetUserMedalsResult is the award history plus its rolled-up summary.
type GetUserMedalsResult struct {
	Medals  []*medal.HistoryEntry `json:"medals"`
	Summary *medal.Summary        `json:"summary"`
}

// GetUserMedalsHandler handles the GetUserMedalsQuery.
type GetUserMedalsHandler struct {
	ledger medal.LedgerRepository
}

// NewGetUserMedalsHandler creates a new GetUserMedalsHandler.
func NewGetUserMedalsHandler(ledger medal.LedgerRepository) *GetUserMedalsHandler {
	return &GetUserMedalsHandler{ledger: ledger}
}

// Handle returns the user's medals, most recent first, with the summary.
func (h *GetUserMedalsHandler) Handle(ctx context.Context, q GetUserMedalsQuery) (*GetUserMedalsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	entries, err := h.ledger.ListByUser(ctx, q.UserID)
	if err != nil {
		return nil, shared.WrapError("query", "GetUserMedals", shared.ErrStorage, "failed to load award history", err)
	}

	summary, err := h.ledger.SummaryByUser(ctx, q.UserID)
	if err != nil {
		return nil, shared.WrapError("query", "GetUserMedals", shared.ErrStorage, "failed to load award summary", err)
	}

	if entries == nil {
		entries = []*medal.HistoryEntry{}
	}
	return &GetUserMedalsResult{Medals: entries, Summary: summary}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET MEDAL CATALOG QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetMedalCatalogHandler returns the full medal catalog for display.
type GetMedalCatalogHandler struct {
	catalog medal.CatalogRepository
}

// NewGetMedalCatalogHandler creates a new GetMedalCatalogHandler.
func NewGetMedalCatalogHandler(catalog medal.CatalogRepository) *GetMedalCatalogHandler {
	return &GetMedalCatalogHandler{catalog: catalog}
}

// MedalDefinitionDTO is the display shape of one catalog entry. The parsed
// condition tree stays internal; clients get the wire-format JSON back.
type MedalDefinitionDTO struct {
	Key         string `json:"medalKey"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Tier        string `json:"tier"`
	Points      int    `json:"points"`
	Seasonal    bool   `json:"isSeasonal"`
	SeasonID    int64  `json:"seasonId,omitempty"`
}

// Handle returns every medal definition, quarantined ones included; a broken
// condition hides a medal from granting, not from the catalog page.
func (h *GetMedalCatalogHandler) Handle(ctx context.Context) ([]MedalDefinitionDTO, error) {
	defs, err := h.catalog.ListAll(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetMedalCatalog", shared.ErrStorage, "failed to load medal catalog", err)
	}

	dtos := make([]MedalDefinitionDTO, 0, len(defs))
	for _, d := range defs {
		dtos = append(dtos, MedalDefinitionDTO{
			Key:         d.Key.String(),
			Name:        d.Name,
			Description: d.Description,
			Icon:        d.Icon,
			Tier:        string(d.Tier),
			Points:      d.Points,
			Seasonal:    d.Seasonal,
			SeasonID:    d.SeasonID,
		})
	}
	return dtos, nil
}
