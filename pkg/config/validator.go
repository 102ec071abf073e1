package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/streakforge/challenge-engine/pkg/domain"
	chErrors "github.com/streakforge/challenge-engine/pkg/errors"
)

// Validator checks challenge definitions for required fields.
// Challenge types are not restricted: an unknown type is a future type and is accepted.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks a whole catalog file. It requires at least one challenge,
// a non-empty unique ID on every challenge and valid definitions.
//
// Returns an error describing the first validation failure encountered.
func (v *Validator) Validate(config *Config) error {
	if len(config.Challenges) == 0 {
		return errors.New("config must have at least one challenge")
	}

	challengeIDs := make(map[string]bool)
	for i, challenge := range config.Challenges {
		if challenge.ID == "" {
			return fmt.Errorf("challenge #%d: challenge ID cannot be empty", i+1)
		}
		if err := v.ValidateChallenge(challenge); err != nil {
			return fmt.Errorf("invalid challenge '%s': %w", challenge.ID, err)
		}
		if challengeIDs[challenge.ID] {
			return fmt.Errorf("duplicate challenge ID: %s", challenge.ID)
		}
		challengeIDs[challenge.ID] = true
	}

	return nil
}

// ValidateChallenge checks the required fields of one definition. The ID is not
// required here because the catalog assigns one when it is missing.
// Failures are VALIDATION_FAILED errors.
func (v *Validator) ValidateChallenge(challenge *domain.ChallengeDefinition) error {
	if challenge == nil {
		return chErrors.ErrValidationFailed("challenge", "cannot be nil")
	}
	if strings.TrimSpace(challenge.Name) == "" {
		return chErrors.ErrValidationFailed("name", "cannot be empty")
	}
	if challenge.DurationDays < 1 {
		return chErrors.ErrValidationFailed("duration_days", "must be at least 1")
	}
	if challenge.RewardPoints < 0 {
		return chErrors.ErrValidationFailed("reward_points", "cannot be negative")
	}
	if challenge.TargetValue < 0 {
		return chErrors.ErrValidationFailed("target_value", "cannot be negative")
	}
	if strings.TrimSpace(string(challenge.ChallengeType)) == "" {
		return chErrors.ErrValidationFailed("challenge_type", "cannot be empty")
	}
	return nil
}
