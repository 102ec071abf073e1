package progress

import (
	"context"
	"time"

	"github.com/streakforge/challenge-engine/pkg/common"
	"github.com/streakforge/challenge-engine/pkg/domain"
	"github.com/streakforge/challenge-engine/pkg/repository"
)

// PerfectMonthCalculator counts perfect days since enrollment.
//
// A day D on or after the enrollment date is perfect when the user had at least
// one habit registered by the end of D and every such habit has a successful
// entry on D. Successes on habits outside that set do not count.
type PerfectMonthCalculator struct {
	source repository.ActivityLogRepository
}

// NewPerfectMonthCalculator creates a PerfectMonthCalculator.
func NewPerfectMonthCalculator(source repository.ActivityLogRepository) *PerfectMonthCalculator {
	return &PerfectMonthCalculator{source: source}
}

// Compute returns the number of perfect days on or after since's calendar date.
func (c *PerfectMonthCalculator) Compute(ctx context.Context, userID string, since time.Time) (int, error) {
	entries, err := c.source.ListActivity(ctx, userID, since)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	habits, err := c.source.ListHabits(ctx, userID)
	if err != nil {
		return 0, err
	}

	firstDay := common.TruncateToDateUTC(since)

	// day -> habit IDs with a successful entry that day
	completedByDay := make(map[time.Time]map[string]struct{})
	for _, e := range entries {
		day := common.TruncateToDateUTC(dateOf(e))
		if day.Before(firstDay) {
			continue
		}
		done, ok := completedByDay[day]
		if !ok {
			done = make(map[string]struct{})
			completedByDay[day] = done
		}
		if e.Success {
			done[e.HabitID] = struct{}{}
		}
	}

	perfect := 0
	for day, done := range completedByDay {
		if isPerfectDay(habits, done, common.EndOfDateUTC(day)) {
			perfect++
		}
	}
	return perfect, nil
}

// isPerfectDay reports whether every habit created by endOfDay is in done.
func isPerfectDay(habits []domain.HabitEntry, done map[string]struct{}, endOfDay time.Time) bool {
	existing := 0
	for _, h := range habits {
		if h.CreatedAt.After(endOfDay) {
			continue
		}
		existing++
		if _, ok := done[h.ID]; !ok {
			return false
		}
	}
	return existing > 0
}
