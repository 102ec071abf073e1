package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/streakforge/challenge-engine/pkg/domain"
)

func TestConfigLoader_LoadConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	t.Run("successful JSON load", func(t *testing.T) {
		tmpFile := createTempConfigFile(t, "challenges.json", `{
			"challenges": [
				{
					"id": "week-streak",
					"name": "Week Streak",
					"description": "Keep a 7 day streak",
					"duration_days": 7,
					"reward_points": 100,
					"challenge_type": "streak",
					"target_value": 7
				},
				{
					"id": "retired",
					"name": "Retired",
					"duration_days": 30,
					"reward_points": 10,
					"challenge_type": "new_habits",
					"target_value": 3,
					"is_active": false
				}
			]
		}`)

		config, err := NewConfigLoader(tmpFile, logger).LoadConfig()

		if err != nil {
			t.Fatalf("LoadConfig() unexpected error = %v", err)
		}
		if len(config.Challenges) != 2 {
			t.Fatalf("expected 2 challenges, got %d", len(config.Challenges))
		}

		first := config.Challenges[0]
		if first.ChallengeType != domain.ChallengeTypeStreak {
			t.Errorf("expected type streak, got %q", first.ChallengeType)
		}
		if !first.IsActive {
			t.Error("expected is_active to default to true")
		}
		if config.Challenges[1].IsActive {
			t.Error("expected explicit is_active false to be kept")
		}
	})

	t.Run("successful YAML load", func(t *testing.T) {
		tmpFile := createTempConfigFile(t, "challenges.yaml", `
challenges:
  - id: perfect-month
    name: Perfect Month
    duration_days: 30
    reward_points: 500
    challenge_type: perfect_month
    target_value: 20
  - id: social
    name: Social Butterfly
    duration_days: 14
    reward_points: 50
    challenge_type: social_butterfly
    target_value: 5
`)

		config, err := NewConfigLoader(tmpFile, logger).LoadConfig()

		if err != nil {
			t.Fatalf("LoadConfig() unexpected error = %v", err)
		}
		if len(config.Challenges) != 2 {
			t.Fatalf("expected 2 challenges, got %d", len(config.Challenges))
		}
		if config.Challenges[0].TargetValue != 20 {
			t.Errorf("expected target 20, got %d", config.Challenges[0].TargetValue)
		}
		if config.Challenges[1].ChallengeType != "social_butterfly" {
			t.Errorf("unknown types must be kept, got %q", config.Challenges[1].ChallengeType)
		}
	})

	t.Run("file not found", func(t *testing.T) {
		_, err := NewConfigLoader("/nonexistent/challenges.json", logger).LoadConfig()

		if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
			t.Errorf("expected read error, got %v", err)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		tmpFile := createTempConfigFile(t, "challenges.json", `{"challenges": [`)

		_, err := NewConfigLoader(tmpFile, logger).LoadConfig()

		if err == nil || !strings.Contains(err.Error(), "failed to parse config JSON") {
			t.Errorf("expected JSON parse error, got %v", err)
		}
	})

	t.Run("invalid YAML", func(t *testing.T) {
		tmpFile := createTempConfigFile(t, "challenges.yml", "challenges: [\n  - id: x\n    name: [")

		_, err := NewConfigLoader(tmpFile, logger).LoadConfig()

		if err == nil || !strings.Contains(err.Error(), "failed to parse config YAML") {
			t.Errorf("expected YAML parse error, got %v", err)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		tmpFile := createTempConfigFile(t, "challenges.json", `{
			"challenges": [
				{"id": "bad", "name": "Bad", "duration_days": 0, "challenge_type": "streak"}
			]
		}`)

		_, err := NewConfigLoader(tmpFile, logger).LoadConfig()

		if err == nil || !strings.Contains(err.Error(), "config validation failed") {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestConfigLoader_countActive(t *testing.T) {
	loader := &ConfigLoader{}
	config := &Config{Challenges: []*domain.ChallengeDefinition{
		{ID: "a", IsActive: true},
		{ID: "b", IsActive: false},
		{ID: "c", IsActive: true},
	}}

	if got := loader.countActive(config); got != 2 {
		t.Errorf("countActive() = %d, want 2", got)
	}
}

// Helper function to create a temporary config file for testing
func createTempConfigFile(t *testing.T, name, content string) string {
	t.Helper()

	tmpFile := filepath.Join(t.TempDir(), name)

	if err := os.WriteFile(tmpFile, []byte(content), 0600); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	return tmpFile
}
