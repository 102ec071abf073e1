package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds the tables owned by the challenge engine. The habit tracker's
// habits, habit_logs and user_stats tables are owned by the habit subsystem.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS challenges (
		id VARCHAR(100) PRIMARY KEY,
		name VARCHAR(200) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		duration_days INT NOT NULL,
		reward_points INT NOT NULL DEFAULT 0,
		challenge_type VARCHAR(50) NOT NULL,
		target_value INT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT check_duration_positive CHECK (duration_days >= 1),
		CONSTRAINT check_reward_non_negative CHECK (reward_points >= 0),
		CONSTRAINT check_target_non_negative CHECK (target_value >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS user_challenges (
		user_id VARCHAR(100) NOT NULL,
		challenge_id VARCHAR(100) NOT NULL REFERENCES challenges(id),
		started_at TIMESTAMPTZ NOT NULL,
		current_progress INT NOT NULL DEFAULT 0,
		is_completed BOOLEAN NOT NULL DEFAULT false,
		completed_at TIMESTAMPTZ NULL,
		PRIMARY KEY (user_id, challenge_id),
		CONSTRAINT check_progress_non_negative CHECK (current_progress >= 0),
		CONSTRAINT check_completed_at_matches CHECK (is_completed = (completed_at IS NOT NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_challenges_challenge
		ON user_challenges(challenge_id)`,
}

// Migrate creates the engine's tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}
