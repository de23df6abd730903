// Package timeutil provides calendar-day utilities for achievement timestamps.
// Steam reports unlock times as Unix epochs; the whole planner treats them in
// UTC, so a "day" is a UTC calendar day everywhere (streaks, days played,
// dormancy). No external dependencies - uses only standard library.
package timeutil

import (
	"math"
	"time"
)

// DayFormat is the canonical date format (YYYY-MM-DD) used for day keys.
const DayFormat = "2006-01-02"

// HoursPerDay is used for day arithmetic on durations.
const HoursPerDay = 24

// DormancyMonth is the fixed month length used for dormancy math.
// Matches the ledger convention of 30-day months rather than calendar months.
const DormancyMonth = 30 * HoursPerDay * time.Hour

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// StartOfDay returns midnight UTC of the given time's day.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey returns the YYYY-MM-DD key for a time in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// SameDay checks if two times fall on the same UTC calendar day.
func SameDay(t1, t2 time.Time) bool {
	u1, u2 := t1.UTC(), t2.UTC()
	return u1.Year() == u2.Year() && u1.YearDay() == u2.YearDay()
}

// IsToday checks if the given time is today relative to now.
func IsToday(t, now time.Time) bool {
	return SameDay(t, now)
}

// IsYesterday checks if the given time is the day before now.
func IsYesterday(t, now time.Time) bool {
	return SameDay(t, now.AddDate(0, 0, -1))
}

// IsConsecutiveDay checks if t2 is exactly the day after t1.
func IsConsecutiveDay(t1, t2 time.Time) bool {
	return SameDay(t1.AddDate(0, 0, 1), t2)
}

// DaysBetween returns the absolute number of whole days between two times,
// measured from midnight to midnight.
func DaysBetween(t1, t2 time.Time) int {
	d1 := StartOfDay(t1)
	d2 := StartOfDay(t2)
	days := int(d2.Sub(d1).Hours() / HoursPerDay)
	if days < 0 {
		days = -days
	}
	return days
}

// DistinctDays collapses a list of timestamps into their distinct UTC days,
// sorted most recent first. Input order does not matter.
func DistinctDays(times []time.Time) []time.Time {
	seen := make(map[string]struct{}, len(times))
	var days []time.Time
	for _, t := range times {
		key := DayKey(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		days = append(days, StartOfDay(t))
	}

	// Insertion sort; unlock histories are small and mostly ordered already.
	for i := 1; i < len(days); i++ {
		for j := i; j > 0 && days[j].After(days[j-1]); j-- {
			days[j], days[j-1] = days[j-1], days[j]
		}
	}
	return days
}

// MonthsSince returns the number of 30-day months elapsed between t and now
// as a fraction (e.g. 45 days -> 1.5).
func MonthsSince(t, now time.Time) float64 {
	return now.Sub(t).Hours() / DormancyMonth.Hours()
}

// Round2 rounds a percentage-style value to two decimals, half away from
// zero. Medal conditions compare percentages with exact equality (== 100), so
// every stored or compared percentage must pass through the same rounding.
// The epsilon absorbs binary representation error: 99.995 is stored as
// 99.994999..., and without it the half-up rule would miss the boundary.
func Round2(v float64) float64 {
	const eps = 1e-9
	if v < 0 {
		return -Round2(-v)
	}
	return math.Round(v*100+eps) / 100
}
