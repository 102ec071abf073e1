package cache

import (
	"log/slog"
	"sync"

	"github.com/streakforge/challenge-engine/pkg/domain"
)

// InMemoryChallengeCache is a map-backed ChallengeCache guarded by an RWMutex.
type InMemoryChallengeCache struct {
	challengesByID map[string]*domain.ChallengeDefinition // "challenge-id" -> definition
	mu             sync.RWMutex                           // Protects challengesByID
	logger         *slog.Logger
}

// NewInMemoryChallengeCache creates an empty cache.
func NewInMemoryChallengeCache(logger *slog.Logger) *InMemoryChallengeCache {
	return &InMemoryChallengeCache{
		challengesByID: make(map[string]*domain.ChallengeDefinition),
		logger:         logger,
	}
}

// Get retrieves a definition by ID.
func (c *InMemoryChallengeCache) Get(challengeID string) *domain.ChallengeDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	challenge, ok := c.challengesByID[challengeID]
	if !ok {
		return nil
	}
	cp := *challenge
	return &cp
}

// Put adds or replaces one definition.
func (c *InMemoryChallengeCache) Put(challenge *domain.ChallengeDefinition) {
	if challenge == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *challenge
	c.challengesByID[challenge.ID] = &cp
}

// SetActive updates the IsActive flag of a cached definition.
func (c *InMemoryChallengeCache) SetActive(challengeID string, active bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	challenge, ok := c.challengesByID[challengeID]
	if !ok {
		return false
	}
	challenge.IsActive = active
	return true
}

// Load replaces the cache content with the given definitions.
func (c *InMemoryChallengeCache) Load(challenges []*domain.ChallengeDefinition) {
	byID := make(map[string]*domain.ChallengeDefinition, len(challenges))
	active := 0
	for _, challenge := range challenges {
		cp := *challenge
		byID[challenge.ID] = &cp
		if challenge.IsActive {
			active++
		}
	}

	c.mu.Lock()
	c.challengesByID = byID
	c.mu.Unlock()

	c.logger.Debug("Challenge cache loaded",
		"challenges", len(byID),
		"active", active,
	)
}

// Len returns the number of cached definitions.
func (c *InMemoryChallengeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.challengesByID)
}

var _ ChallengeCache = (*InMemoryChallengeCache)(nil)
