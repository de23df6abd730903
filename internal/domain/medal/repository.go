package medal

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Контракты хранилища для каталога медалей и журнала наград.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository reads medal definitions. Conditions are parsed and
// validated at load; definitions with malformed conditions are returned with
// a nil Condition (quarantined) and logged by the implementation.
type CatalogRepository interface {
	// ListCandidates returns the candidate set for one evaluation batch:
	// every non-seasonal definition, plus seasonal definitions owned by
	// activeSeasonID when hasActiveSeason is true. Ordered by id ascending
	// so repeated evaluations grant in a deterministic order.
	ListCandidates(ctx context.Context, activeSeasonID int64, hasActiveSeason bool) ([]*Definition, error)

	// ListAll returns every definition for catalog display.
	ListAll(ctx context.Context) ([]*Definition, error)

	// GetByKey returns a definition by its stable key.
	// Returns shared.ErrMedalNotFound when absent.
	GetByKey(ctx context.Context, key Key) (*Definition, error)

	// Create inserts a new definition (administrative flows only).
	Create(ctx context.Context, def *Definition, rawCondition []byte) error
}

// LedgerRepository owns the award ledger and its point fan-out.
type LedgerRepository interface {
	// Grant atomically records the award and applies its point fan-out as
	// ONE unit: insert-if-absent on (user, medal, app), and - only when the
	// row was newly inserted - the lifetime points increment plus, for
	// seasonal scopes, the season-points and house-standing upserts (house
	// membership read at grant time). Returns false when the award already
	// existed; in that case nothing is incremented.
	//
	// Uniqueness MUST be enforced by the storage layer's own conditional
	// insert, never by a prior existence check: concurrent grants for the
	// same triple must yield exactly one true result.
	Grant(ctx context.Context, award *Award, scope GrantScope) (bool, error)

	// ListByUser returns the user's award history, most recent first, each
	// joined with its definition metadata.
	ListByUser(ctx context.Context, userID string) ([]*HistoryEntry, error)

	// SummaryByUser returns the user's rolled-up totals.
	SummaryByUser(ctx context.Context, userID string) (*Summary, error)
}
