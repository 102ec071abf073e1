package domain

import "time"

// ChallengeType selects the progress rule used for a challenge.
//
// Usage in progress recomputation:
//   - streak: progress = user's current consecutive-success-day count
//   - points_sprint: progress = sum of points earned since enrollment
//   - new_habits: progress = habits created since enrollment
//   - perfect_month: progress = perfect days since enrollment
//   - habit_consistency: progress = successful activity entries since enrollment
//
// Any other value is kept as-is and treated as a future type (progress is left unchanged).
type ChallengeType string

const (
	// ChallengeTypeStreak tracks the user's current daily success streak.
	ChallengeTypeStreak ChallengeType = "streak"

	// ChallengeTypePointsSprint tracks points earned since the user joined.
	ChallengeTypePointsSprint ChallengeType = "points_sprint"

	// ChallengeTypeNewHabits tracks how many habits the user created since joining.
	ChallengeTypeNewHabits ChallengeType = "new_habits"

	// ChallengeTypePerfectMonth tracks days on which every habit of the user was completed.
	ChallengeTypePerfectMonth ChallengeType = "perfect_month"

	// ChallengeTypeHabitConsistency tracks successful habit completions since joining.
	ChallengeTypeHabitConsistency ChallengeType = "habit_consistency"
)

// IsKnown returns true if the type has a progress rule in this version.
func (t ChallengeType) IsKnown() bool {
	switch t {
	case ChallengeTypeStreak, ChallengeTypePointsSprint, ChallengeTypeNewHabits,
		ChallengeTypePerfectMonth, ChallengeTypeHabitConsistency:
		return true
	default:
		return false
	}
}

// ChallengeDefinition is a time-boxed goal users can join.
// Definitions are immutable after creation except for IsActive.
type ChallengeDefinition struct {
	ID            string        `json:"id" yaml:"id"`
	Name          string        `json:"name" yaml:"name"`
	Description   string        `json:"description" yaml:"description"`
	DurationDays  int           `json:"duration_days" yaml:"duration_days"`
	RewardPoints  int           `json:"reward_points" yaml:"reward_points"`
	ChallengeType ChallengeType `json:"challenge_type" yaml:"challenge_type"`
	TargetValue   int           `json:"target_value" yaml:"target_value"`
	IsActive      bool          `json:"is_active" yaml:"is_active"`
	CreatedAt     time.Time     `json:"created_at" yaml:"-"`
}

// Duration returns the length of the challenge window.
func (c *ChallengeDefinition) Duration() time.Duration {
	return time.Duration(c.DurationDays) * 24 * time.Hour
}

// Enrollment is a user's participation record in one challenge.
// At most one enrollment exists per (UserID, ChallengeID).
type Enrollment struct {
	UserID          string     `json:"user_id" db:"user_id"`
	ChallengeID     string     `json:"challenge_id" db:"challenge_id"`
	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	CurrentProgress int        `json:"current_progress" db:"current_progress"`
	IsCompleted     bool       `json:"is_completed" db:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// MarkCompleted flips the enrollment to completed. It is a no-op on an
// already completed enrollment so CompletedAt is only ever set once.
func (e *Enrollment) MarkCompleted(at time.Time) bool {
	if e.IsCompleted {
		return false
	}
	e.IsCompleted = true
	completedAt := at
	e.CompletedAt = &completedAt
	return true
}

// ChallengeStatus is the display status derived from an enrollment's timestamps.
type ChallengeStatus string

const (
	// ChallengeStatusActive means the window is open and the target is not reached yet.
	ChallengeStatusActive ChallengeStatus = "active"

	// ChallengeStatusCompleted means the target was reached inside the window.
	ChallengeStatusCompleted ChallengeStatus = "completed"

	// ChallengeStatusExpired means the window elapsed without completion.
	ChallengeStatusExpired ChallengeStatus = "expired"
)

// ActivityEntry is one habit-completion event from the activity log.
type ActivityEntry struct {
	UserID       string    `json:"user_id"`
	HabitID      string    `json:"habit_id"`
	Success      bool      `json:"success"`
	PointsEarned int       `json:"points_earned"`
	LoggedAt     time.Time `json:"logged_at"`
	Date         time.Time `json:"date"` // calendar date, midnight UTC
}

// HabitEntry is a habit registry record.
type HabitEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStats is the user's aggregate stats row.
type UserStats struct {
	UserID        string `json:"user_id"`
	CurrentStreak int    `json:"current_streak"`
	TotalPoints   int    `json:"total_points"`
}

// ProgressResult is returned by a progress update.
type ProgressResult struct {
	Progress      int  `json:"progress"`
	Target        int  `json:"target"`
	Completed     bool `json:"completed"`
	PointsAwarded int  `json:"points_awarded"`
}

// UserChallenge pairs an enrollment with its definition and derived status.
type UserChallenge struct {
	Enrollment *Enrollment          `json:"enrollment"`
	Challenge  *ChallengeDefinition `json:"challenge"`
	Status     ChallengeStatus      `json:"status"`
}

// LeaderboardEntry is one row of a challenge leaderboard.
type LeaderboardEntry struct {
	Rank            int             `json:"rank"`
	UserID          string          `json:"user_id"`
	CurrentProgress int             `json:"current_progress"`
	IsCompleted     bool            `json:"is_completed"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	Status          ChallengeStatus `json:"status"`
}

// UserRank is a user's competition rank within a challenge.
type UserRank struct {
	UserID       string `json:"user_id"`
	ChallengeID  string `json:"challenge_id"`
	Rank         int    `json:"rank"`
	Participants int    `json:"participants"`
}

// ChallengeStats aggregates all enrollments of a challenge.
type ChallengeStats struct {
	ChallengeID     string  `json:"challenge_id"`
	Participants    int     `json:"participants"`
	Completed       int     `json:"completed"`
	Active          int     `json:"active"`
	Expired         int     `json:"expired"`
	AverageProgress float64 `json:"average_progress"`
	MaxProgress     int     `json:"max_progress"`
}

// EnrollmentCounts holds per-challenge participation counts.
type EnrollmentCounts struct {
	Participants int `json:"participants"`
	Completed    int `json:"completed"`
}

// TrendingChallenge is an active challenge with its participation counts.
type TrendingChallenge struct {
	Challenge    *ChallengeDefinition `json:"challenge"`
	Participants int                  `json:"participants"`
	Completed    int                  `json:"completed"`
}
