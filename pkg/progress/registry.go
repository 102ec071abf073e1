package progress

import (
	"context"
	"log/slog"

	"github.com/streakforge/challenge-engine/pkg/domain"
	"github.com/streakforge/challenge-engine/pkg/repository"
)

// Registry dispatches progress computation by challenge type.
// A type without a registered calculator keeps the enrollment's stored progress,
// so definitions of future types never break existing enrollments.
type Registry struct {
	calculators map[domain.ChallengeType]Calculator
	logger      *slog.Logger
}

// NewRegistry creates a Registry with the built-in calculators over source.
func NewRegistry(source repository.ActivitySource, logger *slog.Logger) *Registry {
	r := &Registry{
		calculators: make(map[domain.ChallengeType]Calculator),
		logger:      logger,
	}
	r.Register(domain.ChallengeTypeStreak, NewStreakCalculator(source))
	r.Register(domain.ChallengeTypePointsSprint, NewPointsSprintCalculator(source))
	r.Register(domain.ChallengeTypeNewHabits, NewNewHabitsCalculator(source))
	r.Register(domain.ChallengeTypePerfectMonth, NewPerfectMonthCalculator(source))
	r.Register(domain.ChallengeTypeHabitConsistency, NewHabitConsistencyCalculator(source))
	return r
}

// Register sets the calculator for a challenge type, replacing any previous one.
func (r *Registry) Register(t domain.ChallengeType, c Calculator) {
	r.calculators[t] = c
}

// Has reports whether a calculator is registered for t.
func (r *Registry) Has(t domain.ChallengeType) bool {
	_, ok := r.calculators[t]
	return ok
}

// Compute recomputes the enrollment's progress for the challenge.
// For an unregistered type it returns the enrollment's current progress unchanged.
func (r *Registry) Compute(ctx context.Context, challenge *domain.ChallengeDefinition, enrollment *domain.Enrollment) (int, error) {
	calc, ok := r.calculators[challenge.ChallengeType]
	if !ok {
		r.logger.Warn("No progress rule for challenge type, keeping stored progress",
			"challenge_id", challenge.ID,
			"challenge_type", challenge.ChallengeType,
			"user_id", enrollment.UserID,
			"progress", enrollment.CurrentProgress,
		)
		return enrollment.CurrentProgress, nil
	}

	return calc.Compute(ctx, enrollment.UserID, enrollment.StartedAt)
}
