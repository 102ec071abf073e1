package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/lib/pq"

	"github.com/streakforge/challenge-engine/pkg/domain"
	"github.com/streakforge/challenge-engine/pkg/errors"
)

const challengeColumns = `id, name, description, duration_days, reward_points, challenge_type, target_value, is_active, created_at`

// PostgreSQL error codes checked by the repositories.
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

// PostgresChallengeRepository implements ChallengeRepository using PostgreSQL.
type PostgresChallengeRepository struct {
	db *sql.DB
}

// NewPostgresChallengeRepository creates a new PostgreSQL-backed challenge repository.
func NewPostgresChallengeRepository(db *sql.DB) *PostgresChallengeRepository {
	return &PostgresChallengeRepository{
		db: db,
	}
}

// CreateChallenge inserts a new challenge definition.
func (r *PostgresChallengeRepository) CreateChallenge(ctx context.Context, challenge *domain.ChallengeDefinition) error {
	query := `
		INSERT INTO challenges (
			id, name, description, duration_days, reward_points,
			challenge_type, target_value, is_active, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW()
		)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		challenge.ID,
		challenge.Name,
		challenge.Description,
		challenge.DurationDays,
		challenge.RewardPoints,
		challenge.ChallengeType,
		challenge.TargetValue,
		challenge.IsActive,
	).Scan(&challenge.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrValidationFailed("id", "challenge "+challenge.ID+" already exists")
		}
		return errors.ErrDatabaseError("create challenge", err)
	}

	challenge.CreatedAt = challenge.CreatedAt.UTC()
	return nil
}

// GetChallenge retrieves a challenge definition by ID.
func (r *PostgresChallengeRepository) GetChallenge(ctx context.Context, challengeID string) (*domain.ChallengeDefinition, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`

	challenge, err := scanChallenge(r.db.QueryRowContext(ctx, query, challengeID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.ErrDatabaseError("get challenge", err)
	}

	return challenge, nil
}

// GetChallengesByIDs retrieves challenge definitions for multiple IDs in one query.
func (r *PostgresChallengeRepository) GetChallengesByIDs(ctx context.Context, challengeIDs []string) ([]*domain.ChallengeDefinition, error) {
	if len(challengeIDs) == 0 {
		return []*domain.ChallengeDefinition{}, nil
	}

	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(challengeIDs))
	if err != nil {
		return nil, errors.ErrDatabaseError("get challenges by IDs", err)
	}
	defer func() { _ = rows.Close() }()

	return scanChallengeRows(rows)
}

// ListChallenges retrieves challenge definitions.
func (r *PostgresChallengeRepository) ListChallenges(ctx context.Context, activeOnly bool) ([]*domain.ChallengeDefinition, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges`

	if activeOnly {
		query += " WHERE is_active = true"
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.ErrDatabaseError("list challenges", err)
	}
	defer func() { _ = rows.Close() }()

	return scanChallengeRows(rows)
}

// SetChallengeActive toggles a challenge's is_active flag.
func (r *PostgresChallengeRepository) SetChallengeActive(ctx context.Context, challengeID string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE challenges SET is_active = $2 WHERE id = $1`,
		challengeID, active,
	)
	if err != nil {
		return errors.ErrDatabaseError("set challenge active", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.ErrDatabaseError("check rows affected", err)
	}

	if rowsAffected == 0 {
		return errors.ErrChallengeNotFound(challengeID)
	}

	return nil
}

func scanChallenge(row rowScanner) (*domain.ChallengeDefinition, error) {
	var c domain.ChallengeDefinition
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.DurationDays,
		&c.RewardPoints,
		&c.ChallengeType,
		&c.TargetValue,
		&c.IsActive,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func scanChallengeRows(rows *sql.Rows) ([]*domain.ChallengeDefinition, error) {
	var results []*domain.ChallengeDefinition

	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, errors.ErrDatabaseError("scan challenge row", err)
		}
		results = append(results, c)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.ErrDatabaseError("iterate challenge rows", err)
	}

	return results, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}
