// Package catalog serves challenge definitions.
//
// Reads go through an in-memory cache backed by the challenge store. Definitions
// are immutable after creation except for IsActive, and SetActive keeps the cache
// in step with the store.
package catalog

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/streakforge/challenge-engine/pkg/cache"
	"github.com/streakforge/challenge-engine/pkg/config"
	"github.com/streakforge/challenge-engine/pkg/domain"
	"github.com/streakforge/challenge-engine/pkg/errors"
	"github.com/streakforge/challenge-engine/pkg/repository"
)

// Catalog is the challenge definition service.
type Catalog struct {
	repo      repository.ChallengeRepository
	cache     cache.ChallengeCache
	validator *config.Validator
	logger    *slog.Logger
	newID     func() string
}

// NewCatalog creates a Catalog.
func NewCatalog(repo repository.ChallengeRepository, c cache.ChallengeCache, logger *slog.Logger) *Catalog {
	return &Catalog{
		repo:      repo,
		cache:     c,
		validator: config.NewValidator(),
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// Warm loads every stored definition into the cache.
func (c *Catalog) Warm(ctx context.Context) error {
	challenges, err := c.repo.ListChallenges(ctx, false)
	if err != nil {
		return errors.Unavailable("challenge store", err)
	}
	c.cache.Load(challenges)

	c.logger.Info("Challenge catalog warmed", "challenges", c.cache.Len())
	return nil
}

// GetActive returns the active definitions ordered by shortest duration,
// then highest reward, then ID.
func (c *Catalog) GetActive(ctx context.Context) ([]*domain.ChallengeDefinition, error) {
	challenges, err := c.repo.ListChallenges(ctx, true)
	if err != nil {
		return nil, errors.Unavailable("challenge store", err)
	}
	for _, challenge := range challenges {
		c.cache.Put(challenge)
	}

	SortForDisplay(challenges)
	return challenges, nil
}

// GetByID returns an active definition. Missing and inactive definitions are
// both CHALLENGE_NOT_FOUND.
func (c *Catalog) GetByID(ctx context.Context, challengeID string) (*domain.ChallengeDefinition, error) {
	challenge, err := c.Lookup(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !challenge.IsActive {
		return nil, errors.ErrChallengeNotFound(challengeID)
	}
	return challenge, nil
}

// Lookup returns a definition regardless of IsActive. Enrolled users keep
// working against a challenge after it is deactivated.
func (c *Catalog) Lookup(ctx context.Context, challengeID string) (*domain.ChallengeDefinition, error) {
	if challenge := c.cache.Get(challengeID); challenge != nil {
		return challenge, nil
	}

	challenge, err := c.repo.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, errors.Unavailable("challenge store", err)
	}
	if challenge == nil {
		return nil, errors.ErrChallengeNotFound(challengeID)
	}

	c.cache.Put(challenge)
	return challenge, nil
}

// LookupMany returns the definitions for the given IDs keyed by ID, regardless
// of IsActive. Unknown IDs are absent from the result.
func (c *Catalog) LookupMany(ctx context.Context, challengeIDs []string) (map[string]*domain.ChallengeDefinition, error) {
	found := make(map[string]*domain.ChallengeDefinition, len(challengeIDs))
	var missing []string
	for _, id := range challengeIDs {
		if _, seen := found[id]; seen {
			continue
		}
		if challenge := c.cache.Get(id); challenge != nil {
			found[id] = challenge
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return found, nil
	}

	challenges, err := c.repo.GetChallengesByIDs(ctx, missing)
	if err != nil {
		return nil, errors.Unavailable("challenge store", err)
	}
	for _, challenge := range challenges {
		c.cache.Put(challenge)
		found[challenge.ID] = challenge
	}
	return found, nil
}

// Create stores a new definition. A missing ID is replaced by a random UUID.
// Only required fields are validated; unknown challenge types are accepted.
func (c *Catalog) Create(ctx context.Context, challenge *domain.ChallengeDefinition) (*domain.ChallengeDefinition, error) {
	if err := c.validator.ValidateChallenge(challenge); err != nil {
		return nil, err
	}

	created := *challenge
	created.ID = strings.TrimSpace(created.ID)
	if created.ID == "" {
		created.ID = c.newID()
	}

	if err := c.repo.CreateChallenge(ctx, &created); err != nil {
		return nil, errors.Unavailable("challenge store", err)
	}
	c.cache.Put(&created)

	if !created.ChallengeType.IsKnown() {
		c.logger.Warn("Created challenge with a type that has no progress rule",
			"challenge_id", created.ID,
			"challenge_type", created.ChallengeType,
		)
	}
	c.logger.Info("Challenge created",
		"challenge_id", created.ID,
		"challenge_type", created.ChallengeType,
		"duration_days", created.DurationDays,
		"is_active", created.IsActive,
	)

	return &created, nil
}

// SetActive toggles whether users can discover and join a challenge.
func (c *Catalog) SetActive(ctx context.Context, challengeID string, active bool) error {
	if err := c.repo.SetChallengeActive(ctx, challengeID, active); err != nil {
		return errors.Unavailable("challenge store", err)
	}
	c.cache.SetActive(challengeID, active)

	c.logger.Info("Challenge activity changed",
		"challenge_id", challengeID,
		"is_active", active,
	)
	return nil
}

// Import creates every definition whose ID is not stored yet. Existing
// definitions are left untouched, so importing the same file twice is harmless.
func (c *Catalog) Import(ctx context.Context, challenges []*domain.ChallengeDefinition) (created, skipped int, err error) {
	for _, challenge := range challenges {
		existing, err := c.repo.GetChallenge(ctx, challenge.ID)
		if err != nil {
			return created, skipped, errors.Unavailable("challenge store", err)
		}
		if existing != nil {
			skipped++
			continue
		}
		if _, err := c.Create(ctx, challenge); err != nil {
			return created, skipped, err
		}
		created++
	}

	c.logger.Info("Challenge catalog imported",
		"created", created,
		"skipped", skipped,
	)
	return created, skipped, nil
}

// SortForDisplay orders definitions by shortest duration, then highest reward, then ID.
func SortForDisplay(challenges []*domain.ChallengeDefinition) {
	slices.SortFunc(challenges, func(a, b *domain.ChallengeDefinition) int {
		if a.DurationDays != b.DurationDays {
			return a.DurationDays - b.DurationDays
		}
		if a.RewardPoints != b.RewardPoints {
			return b.RewardPoints - a.RewardPoints
		}
		return strings.Compare(a.ID, b.ID)
	})
}
