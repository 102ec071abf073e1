package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakforge/challenge-engine/pkg/domain"
	customerrors "github.com/streakforge/challenge-engine/pkg/errors"
)

var fixedNow = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

func newTestMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()

	s := NewMemoryStore(func() time.Time { return fixedNow })
	require.NoError(t, s.CreateChallenge(context.Background(), &domain.ChallengeDefinition{
		ID:            "c-1",
		Name:          "Seven day streak",
		DurationDays:  7,
		RewardPoints:  100,
		ChallengeType: domain.ChallengeTypeStreak,
		TargetValue:   7,
		IsActive:      true,
	}))
	return s
}

func TestMemoryStore_Challenges(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	t.Run("created_at is stamped", func(t *testing.T) {
		c, err := s.GetChallenge(ctx, "c-1")
		require.NoError(t, err)
		assert.True(t, c.CreatedAt.Equal(fixedNow))
	})

	t.Run("returned definitions are copies", func(t *testing.T) {
		c, _ := s.GetChallenge(ctx, "c-1")
		c.Name = "mutated"
		again, _ := s.GetChallenge(ctx, "c-1")
		assert.Equal(t, "Seven day streak", again.Name)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := s.CreateChallenge(ctx, &domain.ChallengeDefinition{ID: "c-1", Name: "x", DurationDays: 1})
		assert.True(t, customerrors.IsValidation(err))
	})

	t.Run("inactive filtered from active list", func(t *testing.T) {
		require.NoError(t, s.SetChallengeActive(ctx, "c-1", false))
		active, err := s.ListChallenges(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, active)

		all, err := s.ListChallenges(ctx, false)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("toggle missing challenge", func(t *testing.T) {
		assert.True(t, customerrors.IsNotFound(s.SetChallengeActive(ctx, "nope", true)))
	})
}

func TestMemoryStore_Enrollments(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	e := &domain.Enrollment{UserID: "u1", ChallengeID: "c-1", StartedAt: fixedNow}
	require.NoError(t, s.CreateEnrollment(ctx, e))

	err := s.CreateEnrollment(ctx, &domain.Enrollment{UserID: "u1", ChallengeID: "c-1", StartedAt: fixedNow.Add(time.Hour)})
	assert.True(t, customerrors.IsAlreadyEnrolled(err))

	err = s.CreateEnrollment(ctx, &domain.Enrollment{UserID: "u1", ChallengeID: "missing", StartedAt: fixedNow})
	assert.True(t, customerrors.IsNotFound(err))

	got, err := s.GetEnrollment(ctx, "u1", "c-1")
	require.NoError(t, err)
	assert.True(t, got.StartedAt.Equal(fixedNow), "duplicate join must not overwrite")

	list, err := s.ListChallengeEnrollments(ctx, "c-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteEnrollment(ctx, "u1", "c-1"))
	assert.True(t, customerrors.IsNotFound(s.DeleteEnrollment(ctx, "u1", "c-1")))
}

func TestMemoryStore_TxStagesUntilCommit(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateEnrollment(ctx, &domain.Enrollment{UserID: "u1", ChallengeID: "c-1", StartedAt: fixedNow}))

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)

	e, err := tx.GetEnrollmentForUpdate(ctx, "u1", "c-1")
	require.NoError(t, err)
	e.CurrentProgress = 7
	e.MarkCompleted(fixedNow)
	require.NoError(t, tx.SaveProgress(ctx, e))
	require.NoError(t, tx.CreditPoints(ctx, "u1", 100))

	before, _ := s.GetEnrollment(ctx, "u1", "c-1")
	assert.False(t, before.IsCompleted, "staged write must not be visible before commit")

	require.NoError(t, tx.Commit())
	assert.Error(t, tx.Commit(), "double commit")
	assert.NoError(t, tx.Rollback(), "rollback after commit is a no-op")

	after, _ := s.GetEnrollment(ctx, "u1", "c-1")
	assert.True(t, after.IsCompleted)
	assert.Equal(t, 7, after.CurrentProgress)

	stats, _ := s.GetUserStats(ctx, "u1")
	assert.Equal(t, 100, stats.TotalPoints)
}

func TestMemoryStore_TxRollbackDiscards(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateEnrollment(ctx, &domain.Enrollment{UserID: "u1", ChallengeID: "c-1", StartedAt: fixedNow}))

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	e, _ := tx.GetEnrollmentForUpdate(ctx, "u1", "c-1")
	e.CurrentProgress = 3
	require.NoError(t, tx.SaveProgress(ctx, e))
	require.NoError(t, tx.CreditPoints(ctx, "u1", 5))
	require.NoError(t, tx.Rollback())

	got, _ := s.GetEnrollment(ctx, "u1", "c-1")
	assert.Equal(t, 0, got.CurrentProgress)
	stats, _ := s.GetUserStats(ctx, "u1")
	assert.Nil(t, stats)
}

func TestMemoryStore_TxSerializesCompletion(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateEnrollment(ctx, &domain.Enrollment{UserID: "u1", ChallengeID: "c-1", StartedAt: fixedNow}))

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	completions := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := s.BeginTx(ctx)
			if err != nil {
				return
			}
			defer func() { _ = tx.Rollback() }()

			e, _ := tx.GetEnrollmentForUpdate(ctx, "u1", "c-1")
			if e.IsCompleted {
				return
			}
			e.CurrentProgress = 7
			e.MarkCompleted(fixedNow)
			if tx.SaveProgress(ctx, e) != nil || tx.CreditPoints(ctx, "u1", 100) != nil {
				return
			}
			if tx.Commit() == nil {
				mu.Lock()
				completions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, completions)
	stats, _ := s.GetUserStats(ctx, "u1")
	assert.Equal(t, 100, stats.TotalPoints)
}

func TestMemoryStore_DeleteWaitsForOpenTx(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateEnrollment(ctx, &domain.Enrollment{UserID: "u1", ChallengeID: "c-1", StartedAt: fixedNow}))

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	e, _ := tx.GetEnrollmentForUpdate(ctx, "u1", "c-1")
	e.CurrentProgress = 7
	e.MarkCompleted(fixedNow)
	require.NoError(t, tx.SaveProgress(ctx, e))
	require.NoError(t, tx.CreditPoints(ctx, "u1", 100))

	deleted := make(chan error, 1)
	go func() { deleted <- s.DeleteEnrollment(ctx, "u1", "c-1") }()

	select {
	case <-deleted:
		t.Fatal("DeleteEnrollment returned while a progress transaction was open")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, tx.Commit())
	require.NoError(t, <-deleted)

	got, err := s.GetEnrollment(ctx, "u1", "c-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	stats, _ := s.GetUserStats(ctx, "u1")
	require.NotNil(t, stats)
	assert.Equal(t, 100, stats.TotalPoints, "credit belongs to a completion that was applied before the delete")
}

func TestMemoryStore_BeginTxCanceledContext(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.BeginTx(ctx)
	assert.Error(t, err)

	// The lock must not have been taken.
	tx, err := s.BeginTx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
}

func TestMemoryStore_Activity(t *testing.T) {
	s := newTestMemoryStore(t)
	ctx := context.Background()

	s.AddActivity(domain.ActivityEntry{UserID: "u1", HabitID: "h1", Success: true, LoggedAt: fixedNow.Add(-48 * time.Hour)})
	s.AddActivity(domain.ActivityEntry{UserID: "u1", HabitID: "h1", Success: true, LoggedAt: fixedNow.Add(-time.Hour)})
	s.AddHabit(domain.HabitEntry{ID: "h1", UserID: "u1", CreatedAt: fixedNow.Add(-72 * time.Hour)})
	s.SetStreak("u1", 4)

	entries, err := s.ListActivity(ctx, "u1", fixedNow.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	habits, err := s.ListHabits(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, habits, 1)

	stats, err := s.GetUserStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.CurrentStreak)

	outage := errors.New("activity db down")
	s.SetActivityError(outage)
	_, err = s.ListActivity(ctx, "u1", fixedNow)
	assert.ErrorIs(t, err, outage)
	s.SetActivityError(nil)
}
