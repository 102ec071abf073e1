package cache

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/streakforge/challenge-engine/pkg/domain"
)

func createTestChallenges() []*domain.ChallengeDefinition {
	return []*domain.ChallengeDefinition{
		{
			ID:            "week-streak",
			Name:          "Week Streak",
			DurationDays:  7,
			RewardPoints:  100,
			ChallengeType: domain.ChallengeTypeStreak,
			TargetValue:   7,
			IsActive:      true,
		},
		{
			ID:            "points-sprint",
			Name:          "Points Sprint",
			DurationDays:  14,
			RewardPoints:  250,
			ChallengeType: domain.ChallengeTypePointsSprint,
			TargetValue:   500,
			IsActive:      true,
		},
		{
			ID:            "retired",
			Name:          "Retired Challenge",
			DurationDays:  30,
			RewardPoints:  50,
			ChallengeType: domain.ChallengeTypeNewHabits,
			TargetValue:   3,
			IsActive:      false,
		},
	}
}

func newTestCache() *InMemoryChallengeCache {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	c := NewInMemoryChallengeCache(logger)
	c.Load(createTestChallenges())
	return c
}

func TestInMemoryChallengeCache_Load(t *testing.T) {
	c := newTestCache()

	if c.Len() != 3 {
		t.Errorf("expected 3 challenges in cache, got %d", c.Len())
	}

	c.Load(createTestChallenges()[:1])
	if c.Len() != 1 {
		t.Errorf("expected Load to replace content, got %d challenges", c.Len())
	}
}

func TestInMemoryChallengeCache_Get(t *testing.T) {
	c := newTestCache()

	t.Run("existing challenge", func(t *testing.T) {
		challenge := c.Get("week-streak")
		if challenge == nil {
			t.Fatal("Get() returned nil for existing challenge")
		}
		if challenge.Name != "Week Streak" {
			t.Errorf("expected name 'Week Streak', got %q", challenge.Name)
		}
	})

	t.Run("inactive challenge is still returned", func(t *testing.T) {
		if c.Get("retired") == nil {
			t.Error("Get() returned nil for inactive challenge")
		}
	})

	t.Run("non-existing challenge", func(t *testing.T) {
		if challenge := c.Get("nonexistent"); challenge != nil {
			t.Errorf("Get() expected nil, got %v", challenge)
		}
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		challenge := c.Get("week-streak")
		challenge.Name = "mutated"

		if got := c.Get("week-streak").Name; got != "Week Streak" {
			t.Errorf("cache entry was modified through returned pointer: %q", got)
		}
	})
}

func TestInMemoryChallengeCache_PutAndSetActive(t *testing.T) {
	c := newTestCache()

	c.Put(&domain.ChallengeDefinition{ID: "perfect-month", Name: "Perfect Month", IsActive: true})
	if c.Get("perfect-month") == nil {
		t.Fatal("Put() did not add challenge")
	}

	if !c.SetActive("perfect-month", false) {
		t.Fatal("SetActive() returned false for cached challenge")
	}
	if c.Get("perfect-month").IsActive {
		t.Error("SetActive(false) did not deactivate challenge")
	}
	if c.SetActive("nonexistent", true) {
		t.Error("SetActive() returned true for unknown challenge")
	}

	c.Put(nil)
	if c.Len() != 4 {
		t.Errorf("expected 4 challenges after Put, got %d", c.Len())
	}
}

func TestInMemoryChallengeCache_ConcurrentAccess(t *testing.T) {
	c := newTestCache()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Put(&domain.ChallengeDefinition{ID: fmt.Sprintf("c-%d", i), IsActive: true})
			c.SetActive("week-streak", i%2 == 0)
		}(i)
		go func() {
			defer wg.Done()
			_ = c.Get("week-streak")
		}()
	}
	wg.Wait()

	if c.Len() != 53 {
		t.Errorf("expected 53 challenges, got %d", c.Len())
	}
}
