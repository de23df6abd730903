package redis

import (
	"context"
	"errors"
	"time"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/house"
	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/season"
)

// ══════════════════════════════════════════════════════════════════════════════
// STANDINGS CACHE
// Implements query.StandingsCache. The cache is read-through and never
// load-bearing: any Redis failure reads as a miss and the caller falls back
// to PostgreSQL.
// ══════════════════════════════════════════════════════════════════════════════

// StandingsCache caches house cup standings per season under a short TTL.
type StandingsCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewStandingsCache creates a new StandingsCache.
func NewStandingsCache(cache *Cache) *StandingsCache {
	return &StandingsCache{cache: cache, ttl: TTLStandings}
}

// GetSeasonStandings returns cached standings, ok=false on miss.
func (s *StandingsCache) GetSeasonStandings(ctx context.Context, seasonID int64) ([]*house.Standing, bool, error) {
	var standings []*house.Standing
	err := s.cache.Get(ctx, StandingsKey(seasonID), &standings)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return standings, true, nil
}

// SetSeasonStandings stores the standings for a short TTL.
func (s *StandingsCache) SetSeasonStandings(ctx context.Context, seasonID int64, standings []*house.Standing) error {
	return s.cache.Set(ctx, StandingsKey(seasonID), standings, s.ttl)
}

// Invalidate drops a season's cached standings, used by the worker after a
// bulk re-evaluation run.
func (s *StandingsCache) Invalidate(ctx context.Context, seasonID int64) error {
	return s.cache.Delete(ctx, StandingsKey(seasonID))
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache caches season user leaderboards per (season, limit).
type LeaderboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache, ttl: TTLLeaderboard}
}

// GetLeaderboard returns cached entries, ok=false on miss.
func (l *LeaderboardCache) GetLeaderboard(ctx context.Context, seasonID int64, limit int) ([]*season.LeaderboardEntry, bool, error) {
	var entries []*season.LeaderboardEntry
	err := l.cache.Get(ctx, LeaderboardKey(seasonID, limit), &entries)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entries, true, nil
}

// SetLeaderboard stores the entries for a short TTL.
func (l *LeaderboardCache) SetLeaderboard(ctx context.Context, seasonID int64, limit int, entries []*season.LeaderboardEntry) error {
	return l.cache.Set(ctx, LeaderboardKey(seasonID, limit), entries, l.ttl)
}

// ══════════════════════════════════════════════════════════════════════════════
// SYNC RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

// SyncLimiter enforces the per-user cooldown between full library syncs.
// Steam's Web API is rate limited per key, so back-to-back syncs from one
// user would starve everyone else.
type SyncLimiter struct {
	cache  *Cache
	window time.Duration
}

// NewSyncLimiter creates a new SyncLimiter.
func NewSyncLimiter(cache *Cache) *SyncLimiter {
	return &SyncLimiter{cache: cache, window: TTLSyncWindow}
}

// Acquire claims the user's sync window. Returns false with the remaining
// cooldown when a sync ran too recently.
func (l *SyncLimiter) Acquire(ctx context.Context, userID string) (bool, time.Duration, error) {
	key := SyncWindowKey(userID)

	ok, err := l.cache.SetNX(ctx, key, time.Now().UTC(), l.window)
	if err != nil {
		// A broken limiter should not block syncs.
		return true, 0, err
	}
	if ok {
		return true, 0, nil
	}

	remaining, err := l.cache.TTL(ctx, key)
	if err != nil || remaining < 0 {
		remaining = l.window
	}
	return false, remaining, nil
}

// Release drops the window early, used when a sync fails before touching
// the Steam API.
func (l *SyncLimiter) Release(ctx context.Context, userID string) error {
	return l.cache.Delete(ctx, SyncWindowKey(userID))
}
