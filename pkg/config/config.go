package config

import "github.com/streakforge/challenge-engine/pkg/domain"

// Config is a challenge catalog file, loaded from challenges.json or challenges.yaml.
// import-catalog writes its definitions into the challenge store.
type Config struct {
	Challenges []*domain.ChallengeDefinition `json:"challenges" yaml:"challenges"`
}
