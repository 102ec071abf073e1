package domain

import "strings"

// IsAhead reports whether enrollment a ranks strictly ahead of enrollment b.
//
// a is ahead of b when:
//   - a is completed and b is not, or
//   - both share the completed state and a has more progress, or
//   - both share the completed state and progress, and a completed earlier.
//
// Exact ties are never ahead of each other, which yields competition ranking.
// CompletionEvaluator and RankingEngine must both order by this relation.
func IsAhead(a, b *Enrollment) bool {
	if a.IsCompleted != b.IsCompleted {
		return a.IsCompleted
	}
	if a.CurrentProgress != b.CurrentProgress {
		return a.CurrentProgress > b.CurrentProgress
	}
	if a.CompletedAt != nil && b.CompletedAt != nil {
		return a.CompletedAt.Before(*b.CompletedAt)
	}
	return false
}

// CompareEnrollments orders enrollments for a leaderboard. It returns a negative
// number when a sorts before b. Ties under IsAhead fall back to UserID so the
// leaderboard is a total order.
func CompareEnrollments(a, b *Enrollment) int {
	switch {
	case IsAhead(a, b):
		return -1
	case IsAhead(b, a):
		return 1
	default:
		return strings.Compare(a.UserID, b.UserID)
	}
}
