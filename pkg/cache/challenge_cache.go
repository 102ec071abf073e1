package cache

import "github.com/streakforge/challenge-engine/pkg/domain"

// ChallengeCache provides O(1) in-memory lookups for challenge definitions.
// The catalog fills it from the challenge store and keeps it current on writes.
// All methods are thread-safe and hand out copies, so callers may modify results.
type ChallengeCache interface {
	// Get retrieves a definition by ID regardless of IsActive.
	// Returns nil if the definition is not cached.
	// Time complexity: O(1)
	Get(challengeID string) *domain.ChallengeDefinition

	// Put adds or replaces one definition.
	Put(challenge *domain.ChallengeDefinition)

	// SetActive updates the IsActive flag of a cached definition.
	// Returns false if the definition is not cached.
	SetActive(challengeID string, active bool) bool

	// Load replaces the whole cache content.
	Load(challenges []*domain.ChallengeDefinition)

	// Len returns the number of cached definitions.
	Len() int
}
