// Package completion decides whether recomputed progress completes a challenge.
package completion

import (
	"time"

	"github.com/streakforge/challenge-engine/pkg/domain"
)

// Evaluator applies recomputed progress to a non-completed enrollment.
type Evaluator struct{}

// NewEvaluator creates a new Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate sets the enrollment's progress and, when progress reaches the target,
// marks it completed at now. The enrollment is modified in place; persisting it
// and crediting PointsAwarded is the caller's job and must happen atomically.
//
// PointsAwarded is the challenge reward only when this call flipped the
// enrollment to completed. An already completed enrollment is left untouched.
func (e *Evaluator) Evaluate(enrollment *domain.Enrollment, challenge *domain.ChallengeDefinition, progress int, now time.Time) domain.ProgressResult {
	result := domain.ProgressResult{
		Progress: progress,
		Target:   challenge.TargetValue,
	}

	if enrollment.IsCompleted {
		result.Progress = enrollment.CurrentProgress
		result.Completed = true
		return result
	}

	enrollment.CurrentProgress = progress
	if progress >= challenge.TargetValue && enrollment.MarkCompleted(now) {
		result.Completed = true
		result.PointsAwarded = challenge.RewardPoints
	}

	return result
}
