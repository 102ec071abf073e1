package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/streakforge/challenge-engine/pkg/domain"
	"github.com/streakforge/challenge-engine/pkg/repository"
)

var joinedAt = time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)

func entry(habitID string, success bool, points int, loggedAt time.Time) domain.ActivityEntry {
	return domain.ActivityEntry{
		UserID:       "user-1",
		HabitID:      habitID,
		Success:      success,
		PointsEarned: points,
		LoggedAt:     loggedAt,
		Date:         loggedAt.UTC().Truncate(24 * time.Hour),
	}
}

func habit(id string, createdAt time.Time) domain.HabitEntry {
	return domain.HabitEntry{ID: id, UserID: "user-1", CreatedAt: createdAt}
}

func TestStreakCalculator(t *testing.T) {
	ctx := context.Background()

	t.Run("returns current streak", func(t *testing.T) {
		source := repository.NewMockActivitySource()
		source.On("GetUserStats", ctx, "user-1").Return(&domain.UserStats{UserID: "user-1", CurrentStreak: 5}, nil)

		got, err := NewStreakCalculator(source).Compute(ctx, "user-1", joinedAt)

		require.NoError(t, err)
		assert.Equal(t, 5, got)
		source.AssertExpectations(t)
	})

	t.Run("user without stats has zero streak", func(t *testing.T) {
		source := repository.NewMockActivitySource()
		source.On("GetUserStats", ctx, "user-1").Return(nil, nil)

		got, err := NewStreakCalculator(source).Compute(ctx, "user-1", joinedAt)

		require.NoError(t, err)
		assert.Equal(t, 0, got)
	})

	t.Run("source failure is returned", func(t *testing.T) {
		source := repository.NewMockActivitySource()
		source.On("GetUserStats", ctx, "user-1").Return(nil, errors.New("stats down"))

		_, err := NewStreakCalculator(source).Compute(ctx, "user-1", joinedAt)

		assert.Error(t, err)
	})
}

func TestPointsSprintCalculator(t *testing.T) {
	ctx := context.Background()
	source := repository.NewMockActivitySource()
	source.On("ListActivity", ctx, "user-1", joinedAt).Return([]domain.ActivityEntry{
		// same calendar day, before joining
		entry("h1", true, 50, joinedAt.Add(-2*time.Hour)),
		entry("h1", true, 10, joinedAt),
		entry("h2", false, 0, joinedAt.Add(time.Hour)),
		entry("h2", true, 25, joinedAt.Add(26*time.Hour)),
	}, nil)

	calc := NewPointsSprintCalculator(source)

	got, err := calc.Compute(ctx, "user-1", joinedAt)
	require.NoError(t, err)
	assert.Equal(t, 35, got)

	again, err := calc.Compute(ctx, "user-1", joinedAt)
	require.NoError(t, err)
	assert.Equal(t, got, again, "recomputation on unchanged data must be stable")
}

func TestNewHabitsCalculator(t *testing.T) {
	ctx := context.Background()
	source := repository.NewMockActivitySource()
	source.On("ListHabits", ctx, "user-1").Return([]domain.HabitEntry{
		habit("old", joinedAt.Add(-24*time.Hour)),
		habit("same-instant", joinedAt),
		habit("later", joinedAt.Add(72*time.Hour)),
	}, nil)

	got, err := NewNewHabitsCalculator(source).Compute(ctx, "user-1", joinedAt)

	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestHabitConsistencyCalculator(t *testing.T) {
	ctx := context.Background()
	source := repository.NewMockActivitySource()
	source.On("ListActivity", ctx, "user-1", joinedAt).Return([]domain.ActivityEntry{
		entry("h1", true, 10, joinedAt.Add(-time.Minute)),
		entry("h1", true, 10, joinedAt.Add(time.Minute)),
		entry("h2", false, 0, joinedAt.Add(2*time.Minute)),
		entry("h2", true, 10, joinedAt.Add(48*time.Hour)),
	}, nil)

	got, err := NewHabitConsistencyCalculator(source).Compute(ctx, "user-1", joinedAt)

	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestPerfectMonthCalculator(t *testing.T) {
	ctx := context.Background()
	day := func(n int) time.Time { return joinedAt.Add(time.Duration(n) * 24 * time.Hour) }

	t.Run("three perfect days", func(t *testing.T) {
		source := repository.NewMockActivitySource()
		source.On("ListActivity", ctx, "user-1", joinedAt).Return([]domain.ActivityEntry{
			entry("h1", true, 10, day(0)),
			entry("h2", true, 10, day(0).Add(time.Hour)),
			entry("h1", true, 10, day(1)),
			entry("h2", true, 10, day(1)),
			entry("h1", true, 10, day(2)),
			entry("h2", true, 10, day(2)),
		}, nil)
		source.On("ListHabits", ctx, "user-1").Return([]domain.HabitEntry{
			habit("h1", joinedAt.Add(-240*time.Hour)),
			habit("h2", joinedAt.Add(-240*time.Hour)),
		}, nil)

		got, err := NewPerfectMonthCalculator(source).Compute(ctx, "user-1", joinedAt)

		require.NoError(t, err)
		assert.Equal(t, 3, got)
	})

	t.Run("missed habit or failed entry breaks the day", func(t *testing.T) {
		source := repository.NewMockActivitySource()
		source.On("ListActivity", ctx, "user-1", joinedAt).Return([]domain.ActivityEntry{
			entry("h1", true, 10, day(0)),
			entry("h1", true, 10, day(1)),
			entry("h2", false, 0, day(1)),
			entry("h1", true, 10, day(2)),
			entry("h2", true, 10, day(2)),
			// duplicate success of the same habit does not make up for a missing one
			entry("h1", true, 10, day(3)),
			entry("h1", true, 10, day(3).Add(time.Hour)),
		}, nil)
		source.On("ListHabits", ctx, "user-1").Return([]domain.HabitEntry{
			habit("h1", joinedAt.Add(-240*time.Hour)),
			habit("h2", joinedAt.Add(-240*time.Hour)),
		}, nil)

		got, err := NewPerfectMonthCalculator(source).Compute(ctx, "user-1", joinedAt)

		require.NoError(t, err)
		assert.Equal(t, 1, got)
	})

	t.Run("habit created later only counts from its creation day", func(t *testing.T) {
		source := repository.NewMockActivitySource()
		source.On("ListActivity", ctx, "user-1", joinedAt).Return([]domain.ActivityEntry{
			entry("h1", true, 10, day(0)),
			entry("h1", true, 10, day(1)),
		}, nil)
		source.On("ListHabits", ctx, "user-1").Return([]domain.HabitEntry{
			habit("h1", joinedAt.Add(-240*time.Hour)),
			habit("h2", day(1)),
		}, nil)

		got, err := NewPerfectMonthCalculator(source).Compute(ctx, "user-1", joinedAt)

		require.NoError(t, err)
		assert.Equal(t, 1, got)
	})

	t.Run("success on an unregistered habit does not cover a missed one", func(t *testing.T) {
		source := repository.NewMockActivitySource()
		source.On("ListActivity", ctx, "user-1", joinedAt).Return([]domain.ActivityEntry{
			entry("h1", true, 10, day(0)),
			entry("zzz", true, 10, day(0)),
		}, nil)
		source.On("ListHabits", ctx, "user-1").Return([]domain.HabitEntry{
			habit("h1", joinedAt.Add(-240*time.Hour)),
			habit("h2", joinedAt.Add(-240*time.Hour)),
		}, nil)

		got, err := NewPerfectMonthCalculator(source).Compute(ctx, "user-1", joinedAt)

		require.NoError(t, err)
		assert.Equal(t, 0, got)
	})

	t.Run("success on a habit created after the day does not count for it", func(t *testing.T) {
		source := repository.NewMockActivitySource()
		source.On("ListActivity", ctx, "user-1", joinedAt).Return([]domain.ActivityEntry{
			entry("h1", false, 0, day(0)),
			entry("h3", true, 10, day(0)),
		}, nil)
		source.On("ListHabits", ctx, "user-1").Return([]domain.HabitEntry{
			habit("h1", joinedAt.Add(-240*time.Hour)),
			habit("h3", day(2)),
		}, nil)

		got, err := NewPerfectMonthCalculator(source).Compute(ctx, "user-1", joinedAt)

		require.NoError(t, err)
		assert.Equal(t, 0, got)
	})

	t.Run("no habits means no perfect day", func(t *testing.T) {
		source := repository.NewMockActivitySource()
		source.On("ListActivity", ctx, "user-1", joinedAt).Return([]domain.ActivityEntry{
			entry("h1", true, 10, day(0)),
		}, nil)
		source.On("ListHabits", ctx, "user-1").Return([]domain.HabitEntry{}, nil)

		got, err := NewPerfectMonthCalculator(source).Compute(ctx, "user-1", joinedAt)

		require.NoError(t, err)
		assert.Equal(t, 0, got)
	})

	t.Run("no activity skips the habit registry", func(t *testing.T) {
		source := repository.NewMockActivitySource()
		source.On("ListActivity", ctx, "user-1", joinedAt).Return(nil, nil)

		got, err := NewPerfectMonthCalculator(source).Compute(ctx, "user-1", joinedAt)

		require.NoError(t, err)
		assert.Equal(t, 0, got)
		source.AssertNotCalled(t, "ListHabits", mock.Anything, mock.Anything)
	})
}
