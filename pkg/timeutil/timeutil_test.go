package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2025, 3, 15, 0, 30, 0, 0, time.UTC)
	night := time.Date(2025, 3, 15, 23, 59, 59, 0, time.UTC)
	nextDay := time.Date(2025, 3, 16, 0, 0, 1, 0, time.UTC)

	assert.True(t, SameDay(morning, night))
	assert.False(t, SameDay(night, nextDay))
}

func TestSameDay_ComparesInUTC(t *testing.T) {
	// 23:00 UTC on the 15th is already the 16th in UTC+2, but days are
	// always UTC days.
	almaty := time.FixedZone("UTC+5", 5*3600)
	late := time.Date(2025, 3, 16, 3, 0, 0, 0, almaty) // 22:00 UTC on the 15th

	assert.True(t, SameDay(late, day(2025, 3, 15)))
}

func TestIsConsecutiveDay(t *testing.T) {
	assert.True(t, IsConsecutiveDay(day(2025, 3, 15), day(2025, 3, 16)))
	assert.False(t, IsConsecutiveDay(day(2025, 3, 15), day(2025, 3, 17)))
	assert.False(t, IsConsecutiveDay(day(2025, 3, 16), day(2025, 3, 15)))

	// Month and year boundaries.
	assert.True(t, IsConsecutiveDay(day(2025, 2, 28), day(2025, 3, 1)))
	assert.True(t, IsConsecutiveDay(day(2025, 12, 31), day(2026, 1, 1)))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(
		time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 15, 23, 0, 0, 0, time.UTC)))

	// Midnight to midnight, not 24-hour windows: 23:00 to 01:00 is one day.
	assert.Equal(t, 1, DaysBetween(
		time.Date(2025, 3, 15, 23, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 16, 1, 0, 0, 0, time.UTC)))

	// Order does not matter.
	assert.Equal(t, 31, DaysBetween(day(2025, 4, 15), day(2025, 3, 15)))
}

func TestDistinctDays(t *testing.T) {
	times := []time.Time{
		time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 15, 22, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 16, 1, 0, 0, 0, time.UTC),
	}

	days := DistinctDays(times)
	require.Len(t, days, 3)

	// Most recent first, normalized to midnight.
	assert.Equal(t, day(2025, 3, 16), days[0])
	assert.Equal(t, day(2025, 3, 15), days[1])
	assert.Equal(t, day(2025, 3, 14), days[2])
}

func TestDistinctDays_Empty(t *testing.T) {
	assert.Empty(t, DistinctDays(nil))
}

func TestMonthsSince(t *testing.T) {
	start := day(2025, 1, 1)

	assert.InDelta(t, 1.0, MonthsSince(start, start.AddDate(0, 0, 30)), 1e-9)
	assert.InDelta(t, 1.5, MonthsSince(start, start.AddDate(0, 0, 45)), 1e-9)
	assert.InDelta(t, 0.5, MonthsSince(start, start.AddDate(0, 0, 15)), 1e-9)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 66.67, Round2(200.0/3.0))
	assert.Equal(t, 12.35, Round2(12.345))
	assert.Equal(t, 100.0, Round2(100.0))
	assert.Equal(t, 0.0, Round2(0.0))
	assert.Equal(t, -12.35, Round2(-12.345))
}

func TestRound2_HalfUpBoundary(t *testing.T) {
	// 99.995 is not representable exactly; the epsilon keeps the half-up
	// rule honest at the boundary.
	assert.Equal(t, 100.0, Round2(99.995))
	assert.Equal(t, 99.99, Round2(99.994))
}

func TestStartOfDayAndDayKey(t *testing.T) {
	ts := time.Date(2025, 3, 15, 17, 45, 12, 0, time.UTC)

	assert.Equal(t, day(2025, 3, 15), StartOfDay(ts))
	assert.Equal(t, "2025-03-15", DayKey(ts))
}
