package repository

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"
	"time"

	"github.com/streakforge/challenge-engine/pkg/common"
	"github.com/streakforge/challenge-engine/pkg/domain"
	"github.com/streakforge/challenge-engine/pkg/errors"
)

type enrollmentKey struct {
	userID      string
	challengeID string
}

// MemoryStore is an in-process implementation of every repository interface.
// It backs the "memory" store mode and the engine's unit tests.
//
// Progress transactions serialize on txMu for their whole lifetime, which gives
// the same exactly-once guarantee as the row lock of the PostgreSQL store.
// Writes made inside a transaction are staged and applied on Commit.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	now  func() time.Time

	challenges  map[string]*domain.ChallengeDefinition
	enrollments map[enrollmentKey]*domain.Enrollment
	activity    map[string][]domain.ActivityEntry
	habits      map[string][]domain.HabitEntry
	stats       map[string]*domain.UserStats

	activityErr error
}

// NewMemoryStore creates an empty store. now stamps CreatedAt on new challenges;
// nil means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:         now,
		challenges:  make(map[string]*domain.ChallengeDefinition),
		enrollments: make(map[enrollmentKey]*domain.Enrollment),
		activity:    make(map[string][]domain.ActivityEntry),
		habits:      make(map[string][]domain.HabitEntry),
		stats:       make(map[string]*domain.UserStats),
	}
}

// CreateChallenge inserts a challenge definition.
func (s *MemoryStore) CreateChallenge(_ context.Context, challenge *domain.ChallengeDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.challenges[challenge.ID]; exists {
		return errors.ErrValidationFailed("id", "challenge "+challenge.ID+" already exists")
	}

	challenge.CreatedAt = s.now().UTC()
	c := *challenge
	s.challenges[challenge.ID] = &c
	return nil
}

// GetChallenge retrieves a challenge definition regardless of IsActive.
func (s *MemoryStore) GetChallenge(_ context.Context, challengeID string) (*domain.ChallengeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.challenges[challengeID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// GetChallengesByIDs retrieves challenge definitions for the given IDs.
func (s *MemoryStore) GetChallengesByIDs(_ context.Context, challengeIDs []string) ([]*domain.ChallengeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*domain.ChallengeDefinition, 0, len(challengeIDs))
	for _, id := range challengeIDs {
		if c, ok := s.challenges[id]; ok {
			cp := *c
			results = append(results, &cp)
		}
	}
	return results, nil
}

// ListChallenges retrieves challenge definitions.
func (s *MemoryStore) ListChallenges(_ context.Context, activeOnly bool) ([]*domain.ChallengeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*domain.ChallengeDefinition, 0, len(s.challenges))
	for _, c := range s.challenges {
		if activeOnly && !c.IsActive {
			continue
		}
		cp := *c
		results = append(results, &cp)
	}
	return results, nil
}

// SetChallengeActive toggles a challenge's IsActive flag.
func (s *MemoryStore) SetChallengeActive(_ context.Context, challengeID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[challengeID]
	if !ok {
		return errors.ErrChallengeNotFound(challengeID)
	}
	c.IsActive = active
	return nil
}

// CreateEnrollment inserts an enrollment unless one exists for the pair.
func (s *MemoryStore) CreateEnrollment(_ context.Context, enrollment *domain.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.challenges[enrollment.ChallengeID]; !ok {
		return errors.ErrChallengeNotFound(enrollment.ChallengeID)
	}

	key := enrollmentKey{enrollment.UserID, enrollment.ChallengeID}
	if _, exists := s.enrollments[key]; exists {
		return errors.ErrAlreadyEnrolled(enrollment.UserID, enrollment.ChallengeID)
	}

	s.enrollments[key] = copyEnrollment(enrollment)
	return nil
}

// GetEnrollment retrieves one enrollment.
func (s *MemoryStore) GetEnrollment(_ context.Context, userID, challengeID string) (*domain.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.enrollments[enrollmentKey{userID, challengeID}]
	if !ok {
		return nil, nil
	}
	return copyEnrollment(e), nil
}

// ListUserEnrollments retrieves all enrollments of a user, newest first.
func (s *MemoryStore) ListUserEnrollments(_ context.Context, userID string) ([]*domain.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*domain.Enrollment
	for key, e := range s.enrollments {
		if key.userID == userID {
			results = append(results, copyEnrollment(e))
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].StartedAt.Equal(results[j].StartedAt) {
			return results[i].StartedAt.After(results[j].StartedAt)
		}
		return results[i].ChallengeID < results[j].ChallengeID
	})
	return results, nil
}

// ListChallengeEnrollments retrieves all enrollments of a challenge.
func (s *MemoryStore) ListChallengeEnrollments(_ context.Context, challengeID string) ([]*domain.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*domain.Enrollment
	for key, e := range s.enrollments {
		if key.challengeID == challengeID {
			results = append(results, copyEnrollment(e))
		}
	}
	return results, nil
}

// CountEnrollments returns participant and completion counts per challenge.
func (s *MemoryStore) CountEnrollments(_ context.Context) (map[string]domain.EnrollmentCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]domain.EnrollmentCounts)
	for key, e := range s.enrollments {
		c := counts[key.challengeID]
		c.Participants++
		if e.IsCompleted {
			c.Completed++
		}
		counts[key.challengeID] = c
	}
	return counts, nil
}

// DeleteEnrollment removes an enrollment. It waits for an open progress
// transaction so a staged completion and its credit commit or vanish together.
func (s *MemoryStore) DeleteEnrollment(_ context.Context, userID, challengeID string) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	key := enrollmentKey{userID, challengeID}
	if _, ok := s.enrollments[key]; !ok {
		return errors.ErrEnrollmentNotFound(userID, challengeID)
	}
	delete(s.enrollments, key)
	return nil
}

// BeginTx starts a progress transaction. It blocks while another one is open.
func (s *MemoryStore) BeginTx(ctx context.Context) (TxRepository, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrDatabaseError("begin transaction", err)
	}

	s.txMu.Lock()
	return &memoryTx{
		store:   s,
		writes:  make(map[enrollmentKey]*domain.Enrollment),
		credits: make(map[string]int),
	}, nil
}

// ListActivity returns activity entries dated on or after since's calendar date.
func (s *MemoryStore) ListActivity(_ context.Context, userID string, since time.Time) ([]domain.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activityErr != nil {
		return nil, s.activityErr
	}

	day := common.TruncateToDateUTC(since)
	var results []domain.ActivityEntry
	for _, e := range s.activity[userID] {
		if !e.Date.Before(day) {
			results = append(results, e)
		}
	}
	return results, nil
}

// ListHabits returns the user's habits.
func (s *MemoryStore) ListHabits(_ context.Context, userID string) ([]domain.HabitEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activityErr != nil {
		return nil, s.activityErr
	}
	return append([]domain.HabitEntry(nil), s.habits[userID]...), nil
}

// GetUserStats returns the user's aggregate stats.
func (s *MemoryStore) GetUserStats(_ context.Context, userID string) (*domain.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activityErr != nil {
		return nil, s.activityErr
	}

	st, ok := s.stats[userID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

// AddActivity appends an activity log entry. Date defaults to LoggedAt's UTC date.
func (s *MemoryStore) AddActivity(entry domain.ActivityEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Date.IsZero() {
		entry.Date = entry.LoggedAt
	}
	entry.Date = common.TruncateToDateUTC(entry.Date)
	s.activity[entry.UserID] = append(s.activity[entry.UserID], entry)
}

// AddHabit registers a habit for a user.
func (s *MemoryStore) AddHabit(habit domain.HabitEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.habits[habit.UserID] = append(s.habits[habit.UserID], habit)
}

// SetStreak sets the user's current streak, keeping the point balance.
func (s *MemoryStore) SetStreak(userID string, streak int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.userStatsLocked(userID)
	st.CurrentStreak = streak
}

// SetActivityError makes every activity read fail with err until reset with nil.
func (s *MemoryStore) SetActivityError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activityErr = err
}

func (s *MemoryStore) userStatsLocked(userID string) *domain.UserStats {
	st, ok := s.stats[userID]
	if !ok {
		st = &domain.UserStats{UserID: userID}
		s.stats[userID] = st
	}
	return st
}

type memoryTx struct {
	store   *MemoryStore
	writes  map[enrollmentKey]*domain.Enrollment
	credits map[string]int
	done    bool
}

func (t *memoryTx) GetEnrollmentForUpdate(ctx context.Context, userID, challengeID string) (*domain.Enrollment, error) {
	if staged, ok := t.writes[enrollmentKey{userID, challengeID}]; ok {
		return copyEnrollment(staged), nil
	}
	return t.store.GetEnrollment(ctx, userID, challengeID)
}

func (t *memoryTx) SaveProgress(ctx context.Context, enrollment *domain.Enrollment) error {
	current, err := t.GetEnrollmentForUpdate(ctx, enrollment.UserID, enrollment.ChallengeID)
	if err != nil {
		return err
	}
	if current == nil || current.IsCompleted {
		return errors.ErrEnrollmentCompleted(enrollment.UserID, enrollment.ChallengeID)
	}

	t.writes[enrollmentKey{enrollment.UserID, enrollment.ChallengeID}] = copyEnrollment(enrollment)
	return nil
}

func (t *memoryTx) CreditPoints(_ context.Context, userID string, points int) error {
	t.credits[userID] += points
	return nil
}

func (t *memoryTx) Commit() error {
	if t.done {
		return errors.ErrDatabaseError("commit transaction", errTxDone)
	}

	s := t.store
	s.mu.Lock()
	for key, e := range t.writes {
		current, ok := s.enrollments[key]
		if !ok || current.IsCompleted {
			continue
		}
		current.CurrentProgress = e.CurrentProgress
		current.IsCompleted = e.IsCompleted
		current.CompletedAt = e.CompletedAt
	}
	for userID, points := range t.credits {
		s.userStatsLocked(userID).TotalPoints += points
	}
	s.mu.Unlock()

	t.finish()
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *memoryTx) finish() {
	t.done = true
	t.store.txMu.Unlock()
}

var errTxDone = stderrors.New("transaction has already been committed or rolled back")

func copyEnrollment(e *domain.Enrollment) *domain.Enrollment {
	cp := *e
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
