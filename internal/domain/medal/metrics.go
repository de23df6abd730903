package medal

import (
	"context"
	"math"
	"time"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/progress"
	"github.com/yomigarei-dotcom/houses-steam-planner/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRIC RESOLVER
// Computes the named scalar metrics condition leaves compare against. Values
// come from the transient game snapshot plus the persisted unlock history;
// each metric is computed at most once per evaluation (lazy, memoized).
// ══════════════════════════════════════════════════════════════════════════════

// Recognized metric names.
const (
	MetricCompletionPercentage = "completion_percentage"
	MetricAverageRarity        = "average_rarity"
	MetricCompletionHours      = "completion_hours"
	MetricDaysPlayed           = "days_played"
	MetricStreakDays           = "streak_days"
	MetricGenresCompleted      = "genres_completed"
	MetricMonthsDormant        = "months_dormant"
)

// streakWindow caps how many distinct unlock days the streak scan loads.
const streakWindow = 30

// gamesPerGenre is the coarse proxy divisor for genres_completed. Genre
// metadata is not owned by this system, so three completed games are counted
// as one genre. Callers must treat the metric as an approximation.
const gamesPerGenre = 3

// Resolver resolves metric names for one (user, game, snapshot) evaluation.
// It implements FieldResolver. Not safe for concurrent use; build one per
// evaluation.
type Resolver struct {
	ctx      context.Context
	userID   string
	appID    int64
	snapshot *progress.Snapshot
	history  progress.HistoryReader
	now      time.Time

	cache map[string]float64
}

// NewResolver binds a resolver to one evaluation context. now is the
// evaluation instant; pass the current time in production and a fixed time in
// tests.
func NewResolver(ctx context.Context, userID string, appID int64, snapshot *progress.Snapshot, history progress.HistoryReader, now time.Time) *Resolver {
	return &Resolver{
		ctx:      ctx,
		userID:   userID,
		appID:    appID,
		snapshot: snapshot,
		history:  history,
		now:      now.UTC(),
		cache:    make(map[string]float64, 4),
	}
}

// Resolve returns the value of a named metric.
//
// Unknown names resolve to 0 and never error: malformed or forward-declared
// condition fields degrade silently instead of aborting evaluation of
// unrelated medals. Storage errors DO propagate - they abort the current
// medal, not the metric.
func (r *Resolver) Resolve(field string) (float64, error) {
	if v, ok := r.cache[field]; ok {
		return v, nil
	}

	v, err := r.compute(field)
	if err != nil {
		return 0, err
	}
	r.cache[field] = v
	return v, nil
}

func (r *Resolver) compute(field string) (float64, error) {
	switch field {
	case MetricCompletionPercentage:
		if r.snapshot == nil {
			return 0, nil
		}
		return r.snapshot.CompletionPercentage, nil

	case MetricAverageRarity:
		// Zero means "not computed"; resolve to 100 (most common) so
		// rarity rules never spuriously pass.
		if r.snapshot == nil || r.snapshot.AverageRarity == 0 {
			return 100, nil
		}
		return r.snapshot.AverageRarity, nil

	case MetricCompletionHours:
		return r.completionHours()

	case MetricDaysPlayed:
		n, err := r.history.DistinctUnlockDayCount(r.ctx, r.userID, r.appID)
		if err != nil {
			return 0, err
		}
		return float64(n), nil

	case MetricStreakDays:
		return r.streakDays()

	case MetricGenresCompleted:
		n, err := r.history.CompletedGameCount(r.ctx, r.userID)
		if err != nil {
			return 0, err
		}
		return float64(n / gamesPerGenre), nil

	case MetricMonthsDormant:
		return r.monthsDormant()

	default:
		return 0, nil
	}
}

// completionHours is the elapsed hours between the user's first and most
// recent unlock for this game, from persisted history (not the snapshot).
// With fewer than two unlock timestamps it returns +Inf so "completed within
// N hours" rules never spuriously pass.
func (r *Resolver) completionHours() (float64, error) {
	first, last, ok, err := r.history.UnlockBounds(r.ctx, r.userID, r.appID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return math.Inf(1), nil
	}
	return last.Sub(first).Hours(), nil
}

// streakDays is the length of the user's current consecutive-day unlock
// streak across ALL games (deliberately not scoped to the game under
// evaluation). A streak is "current" only if its latest day is today or
// yesterday relative to the evaluation instant.
func (r *Resolver) streakDays() (float64, error) {
	days, err := r.history.RecentUnlockDays(r.ctx, r.userID, streakWindow)
	if err != nil {
		return 0, err
	}
	if len(days) == 0 {
		return 0, nil
	}

	latest := days[0]
	if !timeutil.IsToday(latest, r.now) && !timeutil.IsYesterday(latest, r.now) {
		return 0, nil
	}

	streak := 1
	for i := 0; i < len(days)-1; i++ {
		if timeutil.DaysBetween(days[i+1], days[i]) == 1 {
			streak++
		} else {
			break
		}
	}
	return float64(streak), nil
}

// monthsDormant is the number of 30-day months between the game's last
// unlock strictly before its final sync window and now; 0 when the game has
// no such prior unlock.
func (r *Resolver) monthsDormant() (float64, error) {
	prev, ok, err := r.history.DormancyAnchor(r.ctx, r.userID, r.appID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return timeutil.MonthsSince(prev, r.now), nil
}
