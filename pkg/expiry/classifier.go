// Package expiry derives the display status of an enrollment from its timestamps.
//
// The status is never stored. Progress updates consult Classify before any
// recomputation, so an enrollment classified as expired can no longer change.
package expiry

import (
	"time"

	"github.com/streakforge/challenge-engine/pkg/common"
	"github.com/streakforge/challenge-engine/pkg/domain"
)

// WindowEnd returns the instant the enrollment's challenge window closes.
func WindowEnd(startedAt time.Time, durationDays int) time.Time {
	return common.AddDays(startedAt, durationDays)
}

// Classify returns the status of an enrollment at now.
//
//   - completed enrollments are completed regardless of time
//   - otherwise now >= started_at + duration_days is expired
//   - otherwise active
func Classify(e *domain.Enrollment, durationDays int, now time.Time) domain.ChallengeStatus {
	if e.IsCompleted {
		return domain.ChallengeStatusCompleted
	}
	if !now.Before(WindowEnd(e.StartedAt, durationDays)) {
		return domain.ChallengeStatusExpired
	}
	return domain.ChallengeStatusActive
}

// IsExpired is shorthand for Classify(...) == expired.
func IsExpired(e *domain.Enrollment, durationDays int, now time.Time) bool {
	return Classify(e, durationDays, now) == domain.ChallengeStatusExpired
}
