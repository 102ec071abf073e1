package repository

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/streakforge/challenge-engine/pkg/domain"
)

// MockActivitySource is a mock implementation of ActivitySource for testing.
// It uses testify/mock to allow test assertions on method calls.
type MockActivitySource struct {
	mock.Mock
}

// ListActivity mocks reading the activity log.
func (m *MockActivitySource) ListActivity(ctx context.Context, userID string, since time.Time) ([]domain.ActivityEntry, error) {
	args := m.Called(ctx, userID, since)
	entries, _ := args.Get(0).([]domain.ActivityEntry)
	return entries, args.Error(1)
}

// ListHabits mocks reading the habit registry.
func (m *MockActivitySource) ListHabits(ctx context.Context, userID string) ([]domain.HabitEntry, error) {
	args := m.Called(ctx, userID)
	habits, _ := args.Get(0).([]domain.HabitEntry)
	return habits, args.Error(1)
}

// GetUserStats mocks reading user aggregate stats.
func (m *MockActivitySource) GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	args := m.Called(ctx, userID)
	stats, _ := args.Get(0).(*domain.UserStats)
	return stats, args.Error(1)
}

// NewMockActivitySource creates a new mock activity source.
func NewMockActivitySource() *MockActivitySource {
	return &MockActivitySource{}
}
