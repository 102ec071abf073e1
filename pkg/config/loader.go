package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/streakforge/challenge-engine/pkg/domain"
)

// ConfigLoader loads and validates a challenge catalog file.
// Files ending in .yaml or .yml are parsed as YAML, everything else as JSON.
type ConfigLoader struct {
	configPath string
	validator  *Validator
	logger     *slog.Logger
}

// NewConfigLoader creates a new ConfigLoader instance.
//
// Parameters:
//   - configPath: Path to the catalog file
//   - logger: Structured logger for operational logging
func NewConfigLoader(configPath string, logger *slog.Logger) *ConfigLoader {
	return &ConfigLoader{
		configPath: configPath,
		validator:  NewValidator(),
		logger:     logger,
	}
}

// LoadConfig reads, parses and validates the catalog file.
// Definitions without an explicit is_active default to active.
//
// Returns:
//   - *Config: Valid configuration ready for import
//   - error: Descriptive error if loading or validation fails
func (l *ConfigLoader) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := l.parse(data)
	if err != nil {
		return nil, err
	}

	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	for _, challenge := range config.Challenges {
		if !challenge.ChallengeType.IsKnown() {
			l.logger.Warn("Challenge has no progress rule yet, progress will stay unchanged",
				"challenge_id", challenge.ID,
				"challenge_type", challenge.ChallengeType,
			)
		}
	}

	l.logger.Info("Config loaded successfully",
		"challenges", len(config.Challenges),
		"active", l.countActive(config),
		"config_path", l.configPath,
	)

	return config, nil
}

// catalogEntry mirrors domain.ChallengeDefinition with an optional is_active.
type catalogEntry struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Description   string `json:"description" yaml:"description"`
	DurationDays  int    `json:"duration_days" yaml:"duration_days"`
	RewardPoints  int    `json:"reward_points" yaml:"reward_points"`
	ChallengeType string `json:"challenge_type" yaml:"challenge_type"`
	TargetValue   int    `json:"target_value" yaml:"target_value"`
	IsActive      *bool  `json:"is_active" yaml:"is_active"`
}

type catalogFile struct {
	Challenges []catalogEntry `json:"challenges" yaml:"challenges"`
}

func (l *ConfigLoader) parse(data []byte) (*Config, error) {
	var file catalogFile

	switch strings.ToLower(filepath.Ext(l.configPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	config := &Config{Challenges: make([]*domain.ChallengeDefinition, 0, len(file.Challenges))}
	for _, entry := range file.Challenges {
		active := true
		if entry.IsActive != nil {
			active = *entry.IsActive
		}
		config.Challenges = append(config.Challenges, &domain.ChallengeDefinition{
			ID:            strings.TrimSpace(entry.ID),
			Name:          entry.Name,
			Description:   entry.Description,
			DurationDays:  entry.DurationDays,
			RewardPoints:  entry.RewardPoints,
			ChallengeType: domain.ChallengeType(entry.ChallengeType),
			TargetValue:   entry.TargetValue,
			IsActive:      active,
		})
	}
	return config, nil
}

// countActive counts the active definitions in the catalog.
func (l *ConfigLoader) countActive(config *Config) int {
	count := 0
	for _, challenge := range config.Challenges {
		if challenge.IsActive {
			count++
		}
	}
	return count
}
