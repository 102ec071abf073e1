// Package enrollment manages users' participation in challenges.
package enrollment

import (
	"context"
	"log/slog"
	"time"

	"github.com/streakforge/challenge-engine/pkg/completion"
	"github.com/streakforge/challenge-engine/pkg/domain"
	"github.com/streakforge/challenge-engine/pkg/errors"
	"github.com/streakforge/challenge-engine/pkg/expiry"
	"github.com/streakforge/challenge-engine/pkg/metrics"
	"github.com/streakforge/challenge-engine/pkg/repository"
)

// Definitions resolves challenge definitions. It is implemented by *catalog.Catalog.
type Definitions interface {
	// GetByID returns an active definition or CHALLENGE_NOT_FOUND.
	GetByID(ctx context.Context, challengeID string) (*domain.ChallengeDefinition, error)

	// Lookup returns a definition regardless of IsActive or CHALLENGE_NOT_FOUND.
	Lookup(ctx context.Context, challengeID string) (*domain.ChallengeDefinition, error)

	// LookupMany returns the known definitions for the IDs keyed by ID.
	LookupMany(ctx context.Context, challengeIDs []string) (map[string]*domain.ChallengeDefinition, error)
}

// ProgressComputer recomputes an enrollment's progress. It is implemented by *progress.Registry.
type ProgressComputer interface {
	Compute(ctx context.Context, challenge *domain.ChallengeDefinition, enrollment *domain.Enrollment) (int, error)
}

// Manager implements join, progress update, leave and listing of enrollments.
type Manager struct {
	challenges  Definitions
	enrollments repository.EnrollmentRepository
	progress    ProgressComputer
	evaluator   *completion.Evaluator
	metrics     *metrics.Collector
	logger      *slog.Logger
	now         func() time.Time
}

// NewManager creates a Manager. collector may be nil. now supplies the clock;
// nil means time.Now.
func NewManager(
	challenges Definitions,
	enrollments repository.EnrollmentRepository,
	progress ProgressComputer,
	collector *metrics.Collector,
	logger *slog.Logger,
	now func() time.Time,
) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		challenges:  challenges,
		enrollments: enrollments,
		progress:    progress,
		evaluator:   completion.NewEvaluator(),
		metrics:     collector,
		logger:      logger,
		now:         now,
	}
}

// Join enrolls the user in an active challenge starting now.
//
// Returns:
//   - CHALLENGE_NOT_FOUND if the challenge is missing or inactive
//   - ALREADY_ENROLLED if the user is enrolled already; nothing is written then
func (m *Manager) Join(ctx context.Context, userID, challengeID string) (*domain.Enrollment, error) {
	if _, err := m.challenges.GetByID(ctx, challengeID); err != nil {
		return nil, err
	}

	enrollment := &domain.Enrollment{
		UserID:      userID,
		ChallengeID: challengeID,
		StartedAt:   m.now().UTC(),
	}
	if err := m.enrollments.CreateEnrollment(ctx, enrollment); err != nil {
		return nil, errors.Unavailable("enrollment store", err)
	}

	m.metrics.Joined()
	m.logger.Info("User joined challenge",
		"user_id", userID,
		"challenge_id", challengeID,
		"started_at", enrollment.StartedAt,
	)
	return enrollment, nil
}

// UpdateProgress recomputes the user's progress from the activity data and
// completes the challenge once the target is reached.
//
// The enrollment row stays locked from the read until commit. The progress
// write and the reward credit commit together, so concurrent calls for the
// same pair credit the reward exactly once.
//
// Returns:
//   - ENROLLMENT_NOT_FOUND if the user is not enrolled or already completed
//   - CHALLENGE_EXPIRED if the window elapsed; progress is left unchanged
//   - UNAVAILABLE if the activity data or the store fails
func (m *Manager) UpdateProgress(ctx context.Context, userID, challengeID string) (*domain.ProgressResult, error) {
	result, err := m.updateProgress(ctx, userID, challengeID)
	switch {
	case err == nil && result.Completed:
		m.metrics.ProgressUpdated(metrics.ResultCompleted)
	case err == nil:
		m.metrics.ProgressUpdated(metrics.ResultUpdated)
	case errors.IsNotFound(err):
		m.metrics.ProgressUpdated(metrics.ResultNotFound)
	case errors.IsExpired(err):
		m.metrics.ProgressUpdated(metrics.ResultExpired)
	default:
		m.metrics.ProgressUpdated(metrics.ResultError)
	}
	return result, err
}

func (m *Manager) updateProgress(ctx context.Context, userID, challengeID string) (*domain.ProgressResult, error) {
	challenge, err := m.challenges.Lookup(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	tx, err := m.enrollments.BeginTx(ctx)
	if err != nil {
		return nil, errors.Unavailable("enrollment store", err)
	}
	defer func() { _ = tx.Rollback() }()

	enrollment, err := tx.GetEnrollmentForUpdate(ctx, userID, challengeID)
	if err != nil {
		return nil, errors.Unavailable("enrollment store", err)
	}
	if enrollment == nil {
		return nil, errors.ErrEnrollmentNotFound(userID, challengeID)
	}
	if enrollment.IsCompleted {
		return nil, errors.ErrEnrollmentCompleted(userID, challengeID)
	}

	now := m.now().UTC()
	if expiry.IsExpired(enrollment, challenge.DurationDays, now) {
		m.logger.Debug("Progress update rejected, challenge window elapsed",
			"user_id", userID,
			"challenge_id", challengeID,
			"window_end", expiry.WindowEnd(enrollment.StartedAt, challenge.DurationDays),
		)
		return nil, errors.ErrChallengeExpired(challengeID)
	}

	progress, err := m.progress.Compute(ctx, challenge, enrollment)
	if err != nil {
		return nil, errors.Unavailable("activity data", err)
	}

	result := m.evaluator.Evaluate(enrollment, challenge, progress, now)

	if err := tx.SaveProgress(ctx, enrollment); err != nil {
		return nil, errors.Unavailable("enrollment store", err)
	}
	if result.PointsAwarded > 0 {
		if err := tx.CreditPoints(ctx, userID, result.PointsAwarded); err != nil {
			return nil, errors.Unavailable("point balance", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Unavailable("enrollment store", err)
	}

	if result.Completed {
		m.metrics.Completed(result.PointsAwarded)
		m.logger.Info("Challenge completed",
			"user_id", userID,
			"challenge_id", challengeID,
			"progress", result.Progress,
			"target", result.Target,
			"points_awarded", result.PointsAwarded,
		)
	}

	return &result, nil
}

// Leave removes the user's enrollment.
// Returns ENROLLMENT_NOT_FOUND if the user is not enrolled.
func (m *Manager) Leave(ctx context.Context, userID, challengeID string) error {
	if err := m.enrollments.DeleteEnrollment(ctx, userID, challengeID); err != nil {
		return errors.Unavailable("enrollment store", err)
	}

	m.logger.Info("User left challenge",
		"user_id", userID,
		"challenge_id", challengeID,
	)
	return nil
}

// ListUserChallenges returns the user's enrollments, newest first, each with its
// definition and derived status.
func (m *Manager) ListUserChallenges(ctx context.Context, userID string) ([]*domain.UserChallenge, error) {
	enrollments, err := m.enrollments.ListUserEnrollments(ctx, userID)
	if err != nil {
		return nil, errors.Unavailable("enrollment store", err)
	}
	if len(enrollments) == 0 {
		return []*domain.UserChallenge{}, nil
	}

	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.ChallengeID)
	}
	definitions, err := m.challenges.LookupMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	results := make([]*domain.UserChallenge, 0, len(enrollments))
	for _, e := range enrollments {
		challenge, ok := definitions[e.ChallengeID]
		if !ok {
			m.logger.Warn("Enrollment references unknown challenge",
				"user_id", userID,
				"challenge_id", e.ChallengeID,
			)
			continue
		}
		results = append(results, &domain.UserChallenge{
			Enrollment: e,
			Challenge:  challenge,
			Status:     expiry.Classify(e, challenge.DurationDays, now),
		})
	}
	return results, nil
}
