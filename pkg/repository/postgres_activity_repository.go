package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/streakforge/challenge-engine/pkg/common"
	"github.com/streakforge/challenge-engine/pkg/domain"
	"github.com/streakforge/challenge-engine/pkg/errors"
)

// PostgresActivityRepository reads the habit tracker's activity tables.
// The tables are owned by the habit subsystem; this repository never writes them.
type PostgresActivityRepository struct {
	db *sql.DB
}

// NewPostgresActivityRepository creates a new PostgreSQL-backed activity source.
func NewPostgresActivityRepository(db *sql.DB) *PostgresActivityRepository {
	return &PostgresActivityRepository{
		db: db,
	}
}

// ListActivity returns activity entries dated on or after since's calendar date.
func (r *PostgresActivityRepository) ListActivity(ctx context.Context, userID string, since time.Time) ([]domain.ActivityEntry, error) {
	query := `
		SELECT user_id, habit_id, success, points_earned, logged_at, log_date
		FROM habit_logs
		WHERE user_id = $1 AND log_date >= $2::date
		ORDER BY logged_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, common.DateKey(since))
	if err != nil {
		return nil, errors.ErrDatabaseError("list activity", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []domain.ActivityEntry
	for rows.Next() {
		var e domain.ActivityEntry
		if err := rows.Scan(&e.UserID, &e.HabitID, &e.Success, &e.PointsEarned, &e.LoggedAt, &e.Date); err != nil {
			return nil, errors.ErrDatabaseError("scan activity row", err)
		}
		e.LoggedAt = e.LoggedAt.UTC()
		e.Date = common.TruncateToDateUTC(e.Date)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.ErrDatabaseError("iterate activity rows", err)
	}

	return entries, nil
}

// ListHabits returns every habit registered by the user.
func (r *PostgresActivityRepository) ListHabits(ctx context.Context, userID string) ([]domain.HabitEntry, error) {
	query := `
		SELECT id, user_id, created_at
		FROM habits
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.ErrDatabaseError("list habits", err)
	}
	defer func() { _ = rows.Close() }()

	var habits []domain.HabitEntry
	for rows.Next() {
		var h domain.HabitEntry
		if err := rows.Scan(&h.ID, &h.UserID, &h.CreatedAt); err != nil {
			return nil, errors.ErrDatabaseError("scan habit row", err)
		}
		h.CreatedAt = h.CreatedAt.UTC()
		habits = append(habits, h)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.ErrDatabaseError("iterate habit rows", err)
	}

	return habits, nil
}

// GetUserStats returns the user's aggregate stats row.
func (r *PostgresActivityRepository) GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	query := `
		SELECT user_id, current_streak, total_points
		FROM user_stats
		WHERE user_id = $1
	`

	var stats domain.UserStats
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&stats.UserID, &stats.CurrentStreak, &stats.TotalPoints)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.ErrDatabaseError("get user stats", err)
	}

	return &stats, nil
}
