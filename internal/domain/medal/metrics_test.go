package medal

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/progress"
)

// fakeHistory implements progress.HistoryReader for resolver tests and counts
// calls so memoization can be asserted.
type fakeHistory struct {
	first, last     time.Time
	hasBounds       bool
	distinctDays    int
	recentDays      []time.Time
	completedGames  int
	dormancyAnchor  time.Time
	hasAnchor       bool
	err             error
	recentDaysCalls int
}

func (f *fakeHistory) UnlockBounds(ctx context.Context, userID string, appID int64) (time.Time, time.Time, bool, error) {
	return f.first, f.last, f.hasBounds, f.err
}

func (f *fakeHistory) DistinctUnlockDayCount(ctx context.Context, userID string, appID int64) (int, error) {
	return f.distinctDays, f.err
}

func (f *fakeHistory) RecentUnlockDays(ctx context.Context, userID string, limit int) ([]time.Time, error) {
	f.recentDaysCalls++
	if len(f.recentDays) > limit {
		return f.recentDays[:limit], f.err
	}
	return f.recentDays, f.err
}

func (f *fakeHistory) CompletedGameCount(ctx context.Context, userID string) (int, error) {
	return f.completedGames, f.err
}

func (f *fakeHistory) DormancyAnchor(ctx context.Context, userID string, appID int64) (time.Time, bool, error) {
	return f.dormancyAnchor, f.hasAnchor, f.err
}

var evalNow = time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC)

func day(daysAgo int) time.Time {
	return evalNow.AddDate(0, 0, -daysAgo).Truncate(24 * time.Hour)
}

func newTestResolver(history *fakeHistory, snapshot *progress.Snapshot) *Resolver {
	return NewResolver(context.Background(), "user-1", 440, snapshot, history, evalNow)
}

func TestResolver_SnapshotMetrics(t *testing.T) {
	snapshot := &progress.Snapshot{
		AppID:                440,
		GameName:             "Team Fortress 2",
		CompletionPercentage: 100,
		AverageRarity:        8.42,
	}
	r := newTestResolver(&fakeHistory{}, snapshot)

	v, err := r.Resolve(MetricCompletionPercentage)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	v, err = r.Resolve(MetricAverageRarity)
	require.NoError(t, err)
	assert.Equal(t, 8.42, v)
}

func TestResolver_AverageRarityDefaultsToCommon(t *testing.T) {
	// Zero rarity means "not computed": resolve to 100 so "rarity < N"
	// rules never spuriously pass.
	r := newTestResolver(&fakeHistory{}, &progress.Snapshot{AppID: 440})

	v, err := r.Resolve(MetricAverageRarity)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)
}

func TestResolver_CompletionHours(t *testing.T) {
	history := &fakeHistory{
		first:     evalNow.Add(-26 * time.Hour),
		last:      evalNow.Add(-2 * time.Hour),
		hasBounds: true,
	}
	r := newTestResolver(history, nil)

	v, err := r.Resolve(MetricCompletionHours)
	require.NoError(t, err)
	assert.Equal(t, 24.0, v)
}

func TestResolver_CompletionHoursWithoutBounds(t *testing.T) {
	r := newTestResolver(&fakeHistory{hasBounds: false}, nil)

	v, err := r.Resolve(MetricCompletionHours)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1), "expected +Inf so <= rules cannot pass, got %v", v)
}

func TestResolver_StreakDays(t *testing.T) {
	cases := []struct {
		name string
		days []time.Time
		want float64
	}{
		{"three consecutive days ending today", []time.Time{day(0), day(1), day(2)}, 3},
		{"gap breaks the chain", []time.Time{day(0), day(3)}, 1},
		{"streak ending yesterday is current", []time.Time{day(1), day(2)}, 2},
		{"no unlocks in the last two days", []time.Time{day(2), day(3), day(4)}, 0},
		{"no unlocks at all", nil, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestResolver(&fakeHistory{recentDays: tc.days}, nil)
			v, err := r.Resolve(MetricStreakDays)
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestResolver_StreakIsCrossGame(t *testing.T) {
	// The streak metric reads the user's whole history, not the app under
	// evaluation; the fake ignores appID the same way the query does.
	history := &fakeHistory{recentDays: []time.Time{day(0), day(1)}}
	r := NewResolver(context.Background(), "user-1", 999999, nil, history, evalNow)

	v, err := r.Resolve(MetricStreakDays)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestResolver_DaysPlayed(t *testing.T) {
	r := newTestResolver(&fakeHistory{distinctDays: 31}, nil)

	v, err := r.Resolve(MetricDaysPlayed)
	require.NoError(t, err)
	assert.Equal(t, 31.0, v)
}

func TestResolver_GenresCompletedProxy(t *testing.T) {
	r := newTestResolver(&fakeHistory{completedGames: 7}, nil)

	v, err := r.Resolve(MetricGenresCompleted)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v, "floor(7/3) games per genre")
}

func TestResolver_MonthsDormant(t *testing.T) {
	history := &fakeHistory{
		dormancyAnchor: evalNow.AddDate(0, 0, -180), // 180 days = 6 x 30-day months
		hasAnchor:      true,
	}
	r := newTestResolver(history, nil)

	v, err := r.Resolve(MetricMonthsDormant)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, v, 0.01)
}

func TestResolver_MonthsDormantWithoutAnchor(t *testing.T) {
	r := newTestResolver(&fakeHistory{hasAnchor: false}, nil)

	v, err := r.Resolve(MetricMonthsDormant)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestResolver_UnknownFieldResolvesToZero(t *testing.T) {
	r := newTestResolver(&fakeHistory{}, nil)

	v, err := r.Resolve("metric_from_the_future")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestResolver_MemoizesPerField(t *testing.T) {
	history := &fakeHistory{recentDays: []time.Time{day(0)}}
	r := newTestResolver(history, nil)

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(MetricStreakDays)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, history.recentDaysCalls, "history must be queried once per field")
}

func TestResolver_PropagatesStorageErrors(t *testing.T) {
	history := &fakeHistory{err: errors.New("connection refused")}
	r := newTestResolver(history, nil)

	_, err := r.Resolve(MetricDaysPlayed)
	require.Error(t, err)
}
