// Package ranking aggregates enrollments into leaderboards, ranks and statistics.
//
// All reads are lock-free snapshots of the enrollment store and may be slightly
// stale under concurrent updates.
package ranking

import (
	"context"
	"slices"
	"time"

	"github.com/streakforge/challenge-engine/pkg/catalog"
	"github.com/streakforge/challenge-engine/pkg/domain"
	"github.com/streakforge/challenge-engine/pkg/errors"
	"github.com/streakforge/challenge-engine/pkg/expiry"
	"github.com/streakforge/challenge-engine/pkg/repository"
)

// Definitions resolves challenge definitions. It is implemented by *catalog.Catalog.
type Definitions interface {
	Lookup(ctx context.Context, challengeID string) (*domain.ChallengeDefinition, error)
	GetActive(ctx context.Context) ([]*domain.ChallengeDefinition, error)
}

// Engine computes rankings over a challenge's enrollments.
type Engine struct {
	challenges  Definitions
	enrollments repository.EnrollmentRepository
	now         func() time.Time
}

// NewEngine creates an Engine. now supplies the clock used for derived statuses;
// nil means time.Now.
func NewEngine(challenges Definitions, enrollments repository.EnrollmentRepository, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		challenges:  challenges,
		enrollments: enrollments,
		now:         now,
	}
}

// GetLeaderboard returns the challenge's enrollments ordered completed first,
// then by progress descending, then by earlier completion. Full ties are ordered
// by user ID and share a rank. A limit <= 0 returns every entry.
func (e *Engine) GetLeaderboard(ctx context.Context, challengeID string, limit int) ([]*domain.LeaderboardEntry, error) {
	challenge, err := e.challenges.Lookup(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	enrollments, err := e.enrollments.ListChallengeEnrollments(ctx, challengeID)
	if err != nil {
		return nil, errors.Unavailable("enrollment store", err)
	}

	slices.SortFunc(enrollments, domain.CompareEnrollments)

	if limit > 0 && len(enrollments) > limit {
		enrollments = enrollments[:limit]
	}

	now := e.now().UTC()
	entries := make([]*domain.LeaderboardEntry, 0, len(enrollments))
	rank := 0
	for i, en := range enrollments {
		// competition ranking: a new rank starts only when the previous entry is strictly ahead
		if i == 0 || domain.IsAhead(enrollments[i-1], en) {
			rank = i + 1
		}
		entries = append(entries, &domain.LeaderboardEntry{
			Rank:            rank,
			UserID:          en.UserID,
			CurrentProgress: en.CurrentProgress,
			IsCompleted:     en.IsCompleted,
			CompletedAt:     en.CompletedAt,
			StartedAt:       en.StartedAt,
			Status:          expiry.Classify(en, challenge.DurationDays, now),
		})
	}
	return entries, nil
}

// GetUserRank returns 1 plus the number of enrollments strictly ahead of the
// user's. Tied users share a rank.
//
// Returns ENROLLMENT_NOT_FOUND if the user is not enrolled.
func (e *Engine) GetUserRank(ctx context.Context, userID, challengeID string) (*domain.UserRank, error) {
	if _, err := e.challenges.Lookup(ctx, challengeID); err != nil {
		return nil, err
	}

	enrollments, err := e.enrollments.ListChallengeEnrollments(ctx, challengeID)
	if err != nil {
		return nil, errors.Unavailable("enrollment store", err)
	}

	var mine *domain.Enrollment
	for _, en := range enrollments {
		if en.UserID == userID {
			mine = en
			break
		}
	}
	if mine == nil {
		return nil, errors.ErrEnrollmentNotFound(userID, challengeID)
	}

	ahead := 0
	for _, other := range enrollments {
		if other.UserID != userID && domain.IsAhead(other, mine) {
			ahead++
		}
	}

	return &domain.UserRank{
		UserID:       userID,
		ChallengeID:  challengeID,
		Rank:         ahead + 1,
		Participants: len(enrollments),
	}, nil
}

// GetChallengeStats aggregates the challenge's enrollments. Active and expired
// counts are derived from the enrollments' windows at the current time.
func (e *Engine) GetChallengeStats(ctx context.Context, challengeID string) (*domain.ChallengeStats, error) {
	challenge, err := e.challenges.Lookup(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	enrollments, err := e.enrollments.ListChallengeEnrollments(ctx, challengeID)
	if err != nil {
		return nil, errors.Unavailable("enrollment store", err)
	}

	stats := &domain.ChallengeStats{
		ChallengeID:  challengeID,
		Participants: len(enrollments),
	}
	if len(enrollments) == 0 {
		return stats, nil
	}

	now := e.now().UTC()
	total := 0
	for i, en := range enrollments {
		switch expiry.Classify(en, challenge.DurationDays, now) {
		case domain.ChallengeStatusCompleted:
			stats.Completed++
		case domain.ChallengeStatusExpired:
			stats.Expired++
		default:
			stats.Active++
		}
		total += en.CurrentProgress
		if i == 0 || en.CurrentProgress > stats.MaxProgress {
			stats.MaxProgress = en.CurrentProgress
		}
	}
	stats.AverageProgress = float64(total) / float64(len(enrollments))

	return stats, nil
}

// GetTrendingChallenges returns active challenges ordered by participants
// descending, then completions descending, then display order.
// A limit <= 0 returns every active challenge.
func (e *Engine) GetTrendingChallenges(ctx context.Context, limit int) ([]*domain.TrendingChallenge, error) {
	challenges, err := e.challenges.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := e.enrollments.CountEnrollments(ctx)
	if err != nil {
		return nil, errors.Unavailable("enrollment store", err)
	}

	catalog.SortForDisplay(challenges)

	trending := make([]*domain.TrendingChallenge, 0, len(challenges))
	for _, c := range challenges {
		count := counts[c.ID]
		trending = append(trending, &domain.TrendingChallenge{
			Challenge:    c,
			Participants: count.Participants,
			Completed:    count.Completed,
		})
	}

	slices.SortStableFunc(trending, func(a, b *domain.TrendingChallenge) int {
		if a.Participants != b.Participants {
			return b.Participants - a.Participants
		}
		if a.Completed != b.Completed {
			return b.Completed - a.Completed
		}
		return 0
	})

	if limit > 0 && len(trending) > limit {
		trending = trending[:limit]
	}
	return trending, nil
}
