package repository

import (
	"context"
	"time"

	"github.com/streakforge/challenge-engine/pkg/domain"
)

// ChallengeRepository stores challenge definitions.
type ChallengeRepository interface {
	// CreateChallenge inserts a new definition. CreatedAt is set by the store.
	CreateChallenge(ctx context.Context, challenge *domain.ChallengeDefinition) error

	// GetChallenge retrieves a definition by ID regardless of IsActive.
	// Returns nil if the definition does not exist.
	GetChallenge(ctx context.Context, challengeID string) (*domain.ChallengeDefinition, error)

	// GetChallengesByIDs retrieves the definitions for the given IDs regardless of IsActive.
	// Missing IDs are skipped.
	GetChallengesByIDs(ctx context.Context, challengeIDs []string) ([]*domain.ChallengeDefinition, error)

	// ListChallenges retrieves definitions, optionally only active ones.
	// No ordering is guaranteed; callers sort.
	ListChallenges(ctx context.Context, activeOnly bool) ([]*domain.ChallengeDefinition, error)

	// SetChallengeActive toggles IsActive, the only mutable field of a definition.
	// Returns CHALLENGE_NOT_FOUND if the definition does not exist.
	SetChallengeActive(ctx context.Context, challengeID string, active bool) error
}

// EnrollmentRepository stores user enrollments.
type EnrollmentRepository interface {
	// CreateEnrollment inserts a new enrollment.
	// Returns ALREADY_ENROLLED if a row for (user_id, challenge_id) exists; nothing is written then.
	CreateEnrollment(ctx context.Context, enrollment *domain.Enrollment) error

	// GetEnrollment retrieves one enrollment. Returns nil if none exists.
	GetEnrollment(ctx context.Context, userID, challengeID string) (*domain.Enrollment, error)

	// ListUserEnrollments retrieves all enrollments of a user, newest first.
	ListUserEnrollments(ctx context.Context, userID string) ([]*domain.Enrollment, error)

	// ListChallengeEnrollments retrieves all enrollments of a challenge.
	// No ordering is guaranteed; ranking applies domain.CompareEnrollments.
	ListChallengeEnrollments(ctx context.Context, challengeID string) ([]*domain.Enrollment, error)

	// CountEnrollments returns participant and completion counts keyed by challenge ID.
	CountEnrollments(ctx context.Context) (map[string]domain.EnrollmentCounts, error)

	// DeleteEnrollment removes an enrollment.
	// Returns ENROLLMENT_NOT_FOUND if no row exists.
	DeleteEnrollment(ctx context.Context, userID, challengeID string) error

	// BeginTx starts a transaction for the progress update flow.
	BeginTx(ctx context.Context) (TxRepository, error)
}

// TxRepository is the transactional unit of a progress update.
// Reading the enrollment, writing the new progress and crediting the reward
// all commit together or not at all.
type TxRepository interface {
	// GetEnrollmentForUpdate retrieves an enrollment and locks it until Commit or Rollback.
	// Concurrent updates of the same (user_id, challenge_id) serialize on this lock.
	// Returns nil if no enrollment exists.
	GetEnrollmentForUpdate(ctx context.Context, userID, challengeID string) (*domain.Enrollment, error)

	// SaveProgress writes current_progress, is_completed and completed_at.
	// It refuses to touch an enrollment that is already completed in the store.
	SaveProgress(ctx context.Context, enrollment *domain.Enrollment) error

	// CreditPoints adds points to the user's point balance.
	CreditPoints(ctx context.Context, userID string, points int) error

	// Commit commits the transaction.
	Commit() error

	// Rollback rolls back the transaction. Calling it after Commit is a no-op.
	Rollback() error
}

// ActivityLogRepository is the read-only view of the habit activity data.
type ActivityLogRepository interface {
	// ListActivity returns the user's activity entries whose calendar date is on or
	// after the calendar date of since. Callers needing an exact timestamp bound
	// filter on LoggedAt themselves.
	ListActivity(ctx context.Context, userID string, since time.Time) ([]domain.ActivityEntry, error)

	// ListHabits returns every habit registered by the user.
	ListHabits(ctx context.Context, userID string) ([]domain.HabitEntry, error)
}

// UserRepository is the read-only view of user aggregate stats.
type UserRepository interface {
	// GetUserStats returns the user's aggregate stats. Returns nil if the user has none.
	GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error)
}

// ActivitySource combines the external data progress calculators read from.
type ActivitySource interface {
	ActivityLogRepository
	UserRepository
}
