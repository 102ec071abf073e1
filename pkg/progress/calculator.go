// Package progress computes challenge progress from the habit tracker's activity data.
//
// Every calculator recomputes progress in full from the source data on each call.
// Calculators never accumulate, so repeating a call on unchanged data returns the
// same value and a retried update can never count an activity twice.
package progress

import (
	"context"
	"time"

	"github.com/streakforge/challenge-engine/pkg/domain"
	"github.com/streakforge/challenge-engine/pkg/repository"
)

// Calculator computes one challenge type's progress for a user enrolled at since.
type Calculator interface {
	Compute(ctx context.Context, userID string, since time.Time) (int, error)
}

// CalculatorFunc adapts a function to the Calculator interface.
type CalculatorFunc func(ctx context.Context, userID string, since time.Time) (int, error)

// Compute calls f.
func (f CalculatorFunc) Compute(ctx context.Context, userID string, since time.Time) (int, error) {
	return f(ctx, userID, since)
}

// StreakCalculator reports the user's current consecutive-success-day count.
// The streak is a snapshot of the user's stats and is not bounded by since.
type StreakCalculator struct {
	source repository.UserRepository
}

// NewStreakCalculator creates a StreakCalculator.
func NewStreakCalculator(source repository.UserRepository) *StreakCalculator {
	return &StreakCalculator{source: source}
}

// Compute returns the current streak, or 0 for a user without stats.
func (c *StreakCalculator) Compute(ctx context.Context, userID string, _ time.Time) (int, error) {
	stats, err := c.source.GetUserStats(ctx, userID)
	if err != nil {
		return 0, err
	}
	if stats == nil {
		return 0, nil
	}
	return stats.CurrentStreak, nil
}

// PointsSprintCalculator sums the points earned since enrollment.
type PointsSprintCalculator struct {
	source repository.ActivityLogRepository
}

// NewPointsSprintCalculator creates a PointsSprintCalculator.
func NewPointsSprintCalculator(source repository.ActivityLogRepository) *PointsSprintCalculator {
	return &PointsSprintCalculator{source: source}
}

// Compute sums PointsEarned over entries logged at or after since.
func (c *PointsSprintCalculator) Compute(ctx context.Context, userID string, since time.Time) (int, error) {
	entries, err := c.source.ListActivity(ctx, userID, since)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, e := range entries {
		if e.LoggedAt.Before(since) {
			continue
		}
		total += e.PointsEarned
	}
	return total, nil
}

// NewHabitsCalculator counts habits created since enrollment.
type NewHabitsCalculator struct {
	source repository.ActivityLogRepository
}

// NewNewHabitsCalculator creates a NewHabitsCalculator.
func NewNewHabitsCalculator(source repository.ActivityLogRepository) *NewHabitsCalculator {
	return &NewHabitsCalculator{source: source}
}

// Compute counts habits with CreatedAt at or after since.
func (c *NewHabitsCalculator) Compute(ctx context.Context, userID string, since time.Time) (int, error) {
	habits, err := c.source.ListHabits(ctx, userID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, h := range habits {
		if !h.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// HabitConsistencyCalculator counts successful completions since enrollment.
type HabitConsistencyCalculator struct {
	source repository.ActivityLogRepository
}

// NewHabitConsistencyCalculator creates a HabitConsistencyCalculator.
func NewHabitConsistencyCalculator(source repository.ActivityLogRepository) *HabitConsistencyCalculator {
	return &HabitConsistencyCalculator{source: source}
}

// Compute counts successful entries logged at or after since.
func (c *HabitConsistencyCalculator) Compute(ctx context.Context, userID string, since time.Time) (int, error) {
	entries, err := c.source.ListActivity(ctx, userID, since)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, e := range entries {
		if e.Success && !e.LoggedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// compile-time checks
var (
	_ Calculator = (*StreakCalculator)(nil)
	_ Calculator = (*PointsSprintCalculator)(nil)
	_ Calculator = (*NewHabitsCalculator)(nil)
	_ Calculator = (*HabitConsistencyCalculator)(nil)
	_ Calculator = (*PerfectMonthCalculator)(nil)
	_ Calculator = CalculatorFunc(nil)
)

// dateOf returns the entry's calendar date, falling back to the log timestamp.
func dateOf(e domain.ActivityEntry) time.Time {
	if e.Date.IsZero() {
		return e.LoggedAt
	}
	return e.Date
}
