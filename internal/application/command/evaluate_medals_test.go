package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/medal"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/progress"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/season"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakeCatalog struct {
	defs    []*medal.Definition
	listErr error

	gotSeasonID  int64
	gotHasActive bool
	listCalls    int
}

func (f *fakeCatalog) ListCandidates(ctx context.Context, activeSeasonID int64, hasActiveSeason bool) ([]*medal.Definition, error) {
	f.listCalls++
	f.gotSeasonID = activeSeasonID
	f.gotHasActive = hasActiveSeason
	return f.defs, f.listErr
}

func (f *fakeCatalog) ListAll(ctx context.Context) ([]*medal.Definition, error) {
	return f.defs, nil
}

func (f *fakeCatalog) GetByKey(ctx context.Context, key medal.Key) (*medal.Definition, error) {
	for _, d := range f.defs {
		if d.Key == key {
			return d, nil
		}
	}
	return nil, shared.ErrMedalNotFound
}

func (f *fakeCatalog) Create(ctx context.Context, def *medal.Definition, rawCondition []byte) error {
	f.defs = append(f.defs, def)
	return nil
}

type grantCall struct {
	award *medal.Award
	scope medal.GrantScope
}

type fakeLedger struct {
	granted  map[string]bool // "<user>/<medal>/<app>" triples already present
	calls    []grantCall
	failKeys map[int64]error // medal ID -> forced error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{granted: make(map[string]bool)}
}

func tripleKey(userID string, medalID, appID int64) string {
	return fmt.Sprintf("%s/%d/%d", userID, medalID, appID)
}

func (f *fakeLedger) Grant(ctx context.Context, award *medal.Award, scope medal.GrantScope) (bool, error) {
	if err, ok := f.failKeys[award.MedalID]; ok {
		return false, err
	}
	f.calls = append(f.calls, grantCall{award: award, scope: scope})
	k := tripleKey(award.UserID, award.MedalID, award.AppID)
	if f.granted[k] {
		return false, nil
	}
	f.granted[k] = true
	return true, nil
}

func (f *fakeLedger) ListByUser(ctx context.Context, userID string) ([]*medal.HistoryEntry, error) {
	return nil, nil
}

func (f *fakeLedger) SummaryByUser(ctx context.Context, userID string) (*medal.Summary, error) {
	return &medal.Summary{}, nil
}

type fakeSeasons struct {
	active    *season.Season
	activeErr error
	calls     int
}

func (f *fakeSeasons) GetActive(ctx context.Context) (*season.Season, error) {
	f.calls++
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	if f.active == nil {
		return nil, shared.ErrNoActiveSeason
	}
	return f.active, nil
}

func (f *fakeSeasons) GetByID(ctx context.Context, id int64) (*season.Season, error) {
	return f.active, nil
}
func (f *fakeSeasons) List(ctx context.Context) ([]*season.Season, error) { return nil, nil }
func (f *fakeSeasons) Create(ctx context.Context, s *season.Season) error { return nil }
func (f *fakeSeasons) Activate(ctx context.Context, id int64) error       { return nil }
func (f *fakeSeasons) UserLeaderboard(ctx context.Context, seasonID int64, limit int) ([]*season.LeaderboardEntry, error) {
	return nil, nil
}
func (f *fakeSeasons) PointsFor(ctx context.Context, userID string, seasonID int64) (*season.UserPoints, error) {
	return &season.UserPoints{UserID: userID, SeasonID: seasonID}, nil
}

type fakeProgress struct {
	rows      map[int64]*progress.GameProgress
	completed []int64
}

func (f *fakeProgress) UpsertGameProgress(ctx context.Context, p *progress.GameProgress) error {
	if f.rows == nil {
		f.rows = make(map[int64]*progress.GameProgress)
	}
	f.rows[p.AppID] = p
	return nil
}

func (f *fakeProgress) GetGameProgress(ctx context.Context, userID string, appID int64) (*progress.GameProgress, error) {
	if p, ok := f.rows[appID]; ok {
		return p, nil
	}
	return nil, shared.ErrProgressNotFound
}

func (f *fakeProgress) ListCompletedGames(ctx context.Context, userID string) ([]int64, error) {
	return f.completed, nil
}

func (f *fakeProgress) UpsertUnlocks(ctx context.Context, unlocks []progress.AchievementUnlock) error {
	return nil
}

type noHistory struct{}

func (noHistory) UnlockBounds(ctx context.Context, userID string, appID int64) (time.Time, time.Time, bool, error) {
	return time.Time{}, time.Time{}, false, nil
}
func (noHistory) DistinctUnlockDayCount(ctx context.Context, userID string, appID int64) (int, error) {
	return 0, nil
}
func (noHistory) RecentUnlockDays(ctx context.Context, userID string, limit int) ([]time.Time, error) {
	return nil, nil
}
func (noHistory) CompletedGameCount(ctx context.Context, userID string) (int, error) { return 0, nil }
func (noHistory) DormancyAnchor(ctx context.Context, userID string, appID int64) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelFatal})
}

func mustCondition(t *testing.T, raw string) *medal.ConditionNode {
	t.Helper()
	node, err := medal.ParseCondition([]byte(raw))
	require.NoError(t, err)
	return node
}

func completionMedal(t *testing.T, id int64, key string, points int) *medal.Definition {
	t.Helper()
	return &medal.Definition{
		ID:        id,
		Key:       medal.Key(key),
		Name:      key,
		Tier:      medal.TierBase,
		Points:    points,
		Condition: mustCondition(t, `{"type":"AND","rules":[{"field":"completion_percentage","operator":"==","value":100}]}`),
	}
}

func seasonalMedal(t *testing.T, id int64, key string, points int) *medal.Definition {
	t.Helper()
	def := completionMedal(t, id, key, points)
	def.Seasonal = true
	return def
}

func completedSnapshot(appID int64) *progress.Snapshot {
	return &progress.Snapshot{
		AppID:                appID,
		GameName:             "Portal 2",
		CompletionPercentage: 100,
	}
}

func newHandler(catalog *fakeCatalog, ledger *fakeLedger, seasons *fakeSeasons, prog *fakeProgress) *EvaluateMedalsHandler {
	return NewEvaluateMedalsHandler(catalog, ledger, seasons, prog, noHistory{}, quietLogger())
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestEvaluateGame_GrantsQualifyingMedal(t *testing.T) {
	catalog := &fakeCatalog{defs: []*medal.Definition{completionMedal(t, 1, "graduation", 100)}}
	ledger := newFakeLedger()
	handler := newHandler(catalog, ledger, &fakeSeasons{}, &fakeProgress{})

	result, err := handler.Handle(context.Background(), EvaluateGameCommand{
		UserID:   "user-1",
		AppID:    620,
		Snapshot: completedSnapshot(620),
	})
	require.NoError(t, err)

	require.Len(t, result.Granted, 1)
	assert.Equal(t, medal.Key("graduation"), result.Granted[0].Key)
	assert.True(t, result.Granted[0].IsNew)
	assert.Equal(t, 100, result.PointsGranted())
	assert.Empty(t, result.Failures)
	assert.Equal(t, 1, result.Evaluated)

	require.Len(t, ledger.calls, 1)
	assert.Equal(t, "Portal 2", ledger.calls[0].award.GameName)
}

func TestEvaluateGame_IsIdempotent(t *testing.T) {
	catalog := &fakeCatalog{defs: []*medal.Definition{completionMedal(t, 1, "graduation", 100)}}
	ledger := newFakeLedger()
	handler := newHandler(catalog, ledger, &fakeSeasons{}, &fakeProgress{})

	cmd := EvaluateGameCommand{UserID: "user-1", AppID: 620, Snapshot: completedSnapshot(620)}

	first, err := handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.Len(t, first.Granted, 1)

	second, err := handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Empty(t, second.Granted, "repeat evaluation must not re-grant")
	assert.Empty(t, second.Failures)
}

func TestEvaluateGame_NonQualifyingMedalSkipped(t *testing.T) {
	catalog := &fakeCatalog{defs: []*medal.Definition{completionMedal(t, 1, "graduation", 100)}}
	ledger := newFakeLedger()
	handler := newHandler(catalog, ledger, &fakeSeasons{}, &fakeProgress{})

	result, err := handler.Handle(context.Background(), EvaluateGameCommand{
		UserID:   "user-1",
		AppID:    620,
		Snapshot: &progress.Snapshot{AppID: 620, CompletionPercentage: 87.5},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Granted)
	assert.Empty(t, ledger.calls)
	assert.Equal(t, 1, result.Evaluated)
}

func TestEvaluateGame_QuarantinedDefinitionNeverQualifies(t *testing.T) {
	quarantined := &medal.Definition{
		ID:     7,
		Key:    "broken",
		Tier:   medal.TierBase,
		Points: 500,
		// nil Condition: malformed at load, never grants.
	}
	catalog := &fakeCatalog{defs: []*medal.Definition{quarantined}}
	ledger := newFakeLedger()
	handler := newHandler(catalog, ledger, &fakeSeasons{}, &fakeProgress{})

	result, err := handler.Handle(context.Background(), EvaluateGameCommand{
		UserID:   "user-1",
		AppID:    620,
		Snapshot: completedSnapshot(620),
	})
	require.NoError(t, err)

	assert.Empty(t, result.Granted)
	assert.Empty(t, result.Failures)
	assert.Empty(t, ledger.calls)
}

func TestEvaluateGame_FailureDoesNotAbortBatch(t *testing.T) {
	catalog := &fakeCatalog{defs: []*medal.Definition{
		completionMedal(t, 1, "graduation", 100),
		completionMedal(t, 2, "second", 200),
	}}
	ledger := newFakeLedger()
	ledger.failKeys = map[int64]error{1: errors.New("deadlock detected")}
	handler := newHandler(catalog, ledger, &fakeSeasons{}, &fakeProgress{})

	result, err := handler.Handle(context.Background(), EvaluateGameCommand{
		UserID:   "user-1",
		AppID:    620,
		Snapshot: completedSnapshot(620),
	})
	require.NoError(t, err, "per-medal failures must not fail the batch")

	require.Len(t, result.Failures, 1)
	assert.Equal(t, medal.Key("graduation"), result.Failures[0].Key)

	require.Len(t, result.Granted, 1)
	assert.Equal(t, medal.Key("second"), result.Granted[0].Key)
}

func TestEvaluateGame_GrantsInCatalogOrder(t *testing.T) {
	catalog := &fakeCatalog{defs: []*medal.Definition{
		completionMedal(t, 1, "first", 100),
		completionMedal(t, 2, "second", 200),
		completionMedal(t, 3, "third", 300),
	}}
	ledger := newFakeLedger()
	handler := newHandler(catalog, ledger, &fakeSeasons{}, &fakeProgress{})

	result, err := handler.Handle(context.Background(), EvaluateGameCommand{
		UserID:   "user-1",
		AppID:    620,
		Snapshot: completedSnapshot(620),
	})
	require.NoError(t, err)

	require.Len(t, result.Granted, 3)
	assert.Equal(t, medal.Key("first"), result.Granted[0].Key)
	assert.Equal(t, medal.Key("second"), result.Granted[1].Key)
	assert.Equal(t, medal.Key("third"), result.Granted[2].Key)
}

func TestEvaluateGame_SeasonContextFlowsIntoGrantScope(t *testing.T) {
	catalog := &fakeCatalog{defs: []*medal.Definition{seasonalMedal(t, 1, "season-sweep", 100)}}
	ledger := newFakeLedger()
	seasons := &fakeSeasons{active: &season.Season{
		ID:        3,
		Name:      "Season 3",
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(time.Hour),
		IsActive:  true,
	}}
	handler := newHandler(catalog, ledger, seasons, &fakeProgress{})

	result, err := handler.Handle(context.Background(), EvaluateGameCommand{
		UserID:   "user-1",
		AppID:    620,
		Snapshot: completedSnapshot(620),
	})
	require.NoError(t, err)

	assert.True(t, result.Season.Active)
	assert.Equal(t, int64(3), result.Season.SeasonID)
	assert.Equal(t, int64(3), catalog.gotSeasonID)
	assert.True(t, catalog.gotHasActive)

	require.Len(t, ledger.calls, 1)
	assert.True(t, ledger.calls[0].scope.Seasonal)
	assert.Equal(t, int64(3), ledger.calls[0].scope.SeasonID)
}

func TestEvaluateGame_NonSeasonalMedalStaysOutOfSeasonLedgers(t *testing.T) {
	catalog := &fakeCatalog{defs: []*medal.Definition{completionMedal(t, 1, "graduation", 100)}}
	ledger := newFakeLedger()
	seasons := &fakeSeasons{active: &season.Season{
		ID:        3,
		Name:      "Season 3",
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(time.Hour),
		IsActive:  true,
	}}
	handler := newHandler(catalog, ledger, seasons, &fakeProgress{})

	result, err := handler.Handle(context.Background(), EvaluateGameCommand{
		UserID:   "user-1",
		AppID:    620,
		Snapshot: completedSnapshot(620),
	})
	require.NoError(t, err)
	require.Len(t, result.Granted, 1)

	require.Len(t, ledger.calls, 1)
	assert.False(t, ledger.calls[0].scope.Seasonal,
		"a non-seasonal medal must not accrue season or house points even while a season is active")
}

func TestEvaluateGame_NoActiveSeasonMeansLifetimeOnly(t *testing.T) {
	catalog := &fakeCatalog{defs: []*medal.Definition{completionMedal(t, 1, "graduation", 100)}}
	ledger := newFakeLedger()
	handler := newHandler(catalog, ledger, &fakeSeasons{}, &fakeProgress{})

	_, err := handler.Handle(context.Background(), EvaluateGameCommand{
		UserID:   "user-1",
		AppID:    620,
		Snapshot: completedSnapshot(620),
	})
	require.NoError(t, err)

	require.Len(t, ledger.calls, 1)
	assert.False(t, ledger.calls[0].scope.Seasonal)
	assert.False(t, catalog.gotHasActive)
}

func TestEvaluateGame_ValidatesCommand(t *testing.T) {
	handler := newHandler(&fakeCatalog{}, newFakeLedger(), &fakeSeasons{}, &fakeProgress{})

	_, err := handler.Handle(context.Background(), EvaluateGameCommand{UserID: "", AppID: 620})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))

	_, err = handler.Handle(context.Background(), EvaluateGameCommand{UserID: "user-1", AppID: 0})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestEvaluateAll_SharesSeasonAndCandidatesAcrossGames(t *testing.T) {
	catalog := &fakeCatalog{defs: []*medal.Definition{completionMedal(t, 1, "graduation", 100)}}
	ledger := newFakeLedger()
	seasons := &fakeSeasons{}
	prog := &fakeProgress{
		completed: []int64{620, 440},
		rows: map[int64]*progress.GameProgress{
			620: {UserID: "user-1", AppID: 620, CompletionPercentage: 100},
			440: {UserID: "user-1", AppID: 440, CompletionPercentage: 100},
		},
	}
	handler := newHandler(catalog, ledger, seasons, prog)

	result, err := handler.HandleAll(context.Background(), EvaluateAllCommand{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.GamesEvaluated)
	assert.Len(t, result.Granted, 2, "one grant per completed game")
	assert.Equal(t, 1, seasons.calls, "season resolved once per batch")
	assert.Equal(t, 1, catalog.listCalls, "candidates loaded once per batch")
}

func TestEvaluateAll_MissingProgressRowIsSkippedNotFatal(t *testing.T) {
	catalog := &fakeCatalog{defs: []*medal.Definition{completionMedal(t, 1, "graduation", 100)}}
	ledger := newFakeLedger()
	prog := &fakeProgress{completed: []int64{620}} // no row behind the ID
	handler := newHandler(catalog, ledger, &fakeSeasons{}, prog)

	result, err := handler.HandleAll(context.Background(), EvaluateAllCommand{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.GamesEvaluated)
	assert.Empty(t, result.Granted, "nil snapshot cannot satisfy completion rules")
}
