package common

import "time"

// TruncateToDateUTC truncates the given time to midnight (00:00:00) in UTC.
// This matches PostgreSQL's DATE() function behavior for consistency.
//
// Example:
//   - Input: 2025-10-17 14:23:45 UTC
//   - Output: 2025-10-17 00:00:00 UTC
func TruncateToDateUTC(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// DateKey formats a calendar date as YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// EndOfDateUTC returns the last instant of the UTC calendar day containing t.
func EndOfDateUTC(t time.Time) time.Time {
	return TruncateToDateUTC(t).Add(24*time.Hour - time.Nanosecond)
}

// AddDays returns t shifted by n whole 24h days.
func AddDays(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * 24 * time.Hour)
}
