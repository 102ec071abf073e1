package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakforge/challenge-engine/pkg/domain"
	chErrors "github.com/streakforge/challenge-engine/pkg/errors"
	"github.com/streakforge/challenge-engine/pkg/repository"
)

func TestChallengeService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := repository.NewMemoryStore(clock)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(store, nil, logger, clock)

	require.NoError(t, svc.Warm(ctx))

	created, err := svc.CreateChallenge(ctx, &domain.ChallengeDefinition{
		ID:            "consistency",
		Name:          "Ten Check-ins",
		DurationDays:  14,
		RewardPoints:  75,
		ChallengeType: domain.ChallengeTypeHabitConsistency,
		TargetValue:   2,
		IsActive:      true,
	})
	require.NoError(t, err)

	active, err := svc.ListActiveChallenges(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	got, err := svc.GetChallenge(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ten Check-ins", got.Name)

	for _, user := range []string{"ann", "ben"} {
		_, err := svc.JoinChallenge(ctx, user, created.ID)
		require.NoError(t, err)
	}
	_, err = svc.JoinChallenge(ctx, "ann", created.ID)
	assert.True(t, chErrors.IsAlreadyEnrolled(err))

	store.AddActivity(domain.ActivityEntry{UserID: "ann", HabitID: "run", Success: true, LoggedAt: now})
	store.AddActivity(domain.ActivityEntry{UserID: "ann", HabitID: "read", Success: true, LoggedAt: now})
	store.AddActivity(domain.ActivityEntry{UserID: "ben", HabitID: "run", Success: true, LoggedAt: now})

	result, err := svc.UpdateProgress(ctx, "ann", created.ID)
	require.NoError(t, err)
	assert.Equal(t, &domain.ProgressResult{Progress: 2, Target: 2, Completed: true, PointsAwarded: 75}, result)

	result, err = svc.UpdateProgress(ctx, "ben", created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Progress)

	board, err := svc.GetLeaderboard(ctx, created.ID, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "ann", board[0].UserID)

	rank, err := svc.GetUserRank(ctx, "ben", created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rank.Rank)

	stats, err := svc.GetChallengeStats(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Participants)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1.5, stats.AverageProgress)

	trending, err := svc.GetTrendingChallenges(ctx, 5)
	require.NoError(t, err)
	require.Len(t, trending, 1)
	assert.Equal(t, 2, trending[0].Participants)

	mine, err := svc.ListUserChallenges(ctx, "ann")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, domain.ChallengeStatusCompleted, mine[0].Status)

	require.NoError(t, svc.LeaveChallenge(ctx, "ben", created.ID))
	require.NoError(t, svc.SetChallengeActive(ctx, created.ID, false))

	_, err = svc.GetChallenge(ctx, created.ID)
	assert.True(t, chErrors.IsNotFound(err))

	stats, err = svc.GetChallengeStats(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Participants)
}
