package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/house"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCacheWithClient(client), mr
}

func sampleStandings() []*house.Standing {
	return []*house.Standing{
		{HouseID: 2, Name: "Explorer", Archetype: house.ArchetypeExplorer, Points: 900, Members: 12, Rank: 1},
		{HouseID: 1, Name: "Achiever", Archetype: house.ArchetypeAchiever, Points: 700, Members: 15, Rank: 2},
	}
}

func TestStandingsCache_MissThenHit(t *testing.T) {
	cache, _ := newTestCache(t)
	sc := NewStandingsCache(cache)
	ctx := context.Background()

	_, ok, err := sc.GetSeasonStandings(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, sc.SetSeasonStandings(ctx, 1, sampleStandings()))

	got, ok, err := sc.GetSeasonStandings(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].HouseID)
	assert.Equal(t, 900, got[0].Points)
	assert.Equal(t, house.ArchetypeExplorer, got[0].Archetype)
	assert.Equal(t, 1, got[0].Rank)
}

func TestStandingsCache_KeysAreSeasonScoped(t *testing.T) {
	cache, _ := newTestCache(t)
	sc := NewStandingsCache(cache)
	ctx := context.Background()

	require.NoError(t, sc.SetSeasonStandings(ctx, 1, sampleStandings()))

	_, ok, err := sc.GetSeasonStandings(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok, "season 2 must not see season 1 standings")
}

func TestStandingsCache_EntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	sc := NewStandingsCache(cache)
	ctx := context.Background()

	require.NoError(t, sc.SetSeasonStandings(ctx, 1, sampleStandings()))
	mr.FastForward(TTLStandings + time.Second)

	_, ok, err := sc.GetSeasonStandings(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStandingsCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	sc := NewStandingsCache(cache)
	ctx := context.Background()

	require.NoError(t, sc.SetSeasonStandings(ctx, 1, sampleStandings()))
	require.NoError(t, sc.Invalidate(ctx, 1))

	_, ok, err := sc.GetSeasonStandings(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSyncLimiter_WindowBlocksSecondSync(t *testing.T) {
	cache, mr := newTestCache(t)
	limiter := NewSyncLimiter(cache)
	ctx := context.Background()

	ok, _, err := limiter.Acquire(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, remaining, err := limiter.Acquire(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, remaining, time.Duration(0))

	// Another user is unaffected.
	ok, _, err = limiter.Acquire(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(TTLSyncWindow + time.Second)

	ok, _, err = limiter.Acquire(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok, "window must reopen after the cooldown")
}

func TestSyncLimiter_ReleaseReopensWindow(t *testing.T) {
	cache, _ := newTestCache(t)
	limiter := NewSyncLimiter(cache)
	ctx := context.Background()

	ok, _, err := limiter.Acquire(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, limiter.Release(ctx, "user-1"))

	ok, _, err = limiter.Acquire(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
