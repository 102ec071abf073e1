package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/streakforge/challenge-engine/pkg/domain"
	"github.com/streakforge/challenge-engine/pkg/errors"
)

const enrollmentColumns = `user_id, challenge_id, started_at, current_progress, is_completed, completed_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresEnrollmentRepository implements EnrollmentRepository using PostgreSQL.
type PostgresEnrollmentRepository struct {
	db *sql.DB
}

// NewPostgresEnrollmentRepository creates a new PostgreSQL-backed enrollment repository.
func NewPostgresEnrollmentRepository(db *sql.DB) *PostgresEnrollmentRepository {
	return &PostgresEnrollmentRepository{
		db: db,
	}
}

// CreateEnrollment inserts a new enrollment row.
// ON CONFLICT DO NOTHING keeps a duplicate join from touching the existing row.
func (r *PostgresEnrollmentRepository) CreateEnrollment(ctx context.Context, enrollment *domain.Enrollment) error {
	query := `
		INSERT INTO user_challenges (
			user_id, challenge_id, started_at, current_progress, is_completed, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		ON CONFLICT (user_id, challenge_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		enrollment.UserID,
		enrollment.ChallengeID,
		enrollment.StartedAt,
		enrollment.CurrentProgress,
		enrollment.IsCompleted,
		enrollment.CompletedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errors.ErrChallengeNotFound(enrollment.ChallengeID)
		}
		return errors.ErrDatabaseError("create enrollment", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.ErrDatabaseError("check rows affected", err)
	}

	if rowsAffected == 0 {
		return errors.ErrAlreadyEnrolled(enrollment.UserID, enrollment.ChallengeID)
	}

	return nil
}

// GetEnrollment retrieves a single enrollment.
func (r *PostgresEnrollmentRepository) GetEnrollment(ctx context.Context, userID, challengeID string) (*domain.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM user_challenges
		WHERE user_id = $1 AND challenge_id = $2
	`

	enrollment, err := scanEnrollment(r.db.QueryRowContext(ctx, query, userID, challengeID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.ErrDatabaseError("get enrollment", err)
	}

	return enrollment, nil
}

// ListUserEnrollments retrieves all enrollments of a user, newest first.
func (r *PostgresEnrollmentRepository) ListUserEnrollments(ctx context.Context, userID string) ([]*domain.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM user_challenges
		WHERE user_id = $1
		ORDER BY started_at DESC, challenge_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.ErrDatabaseError("list user enrollments", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEnrollmentRows(rows)
}

// ListChallengeEnrollments retrieves all enrollments of a challenge.
func (r *PostgresEnrollmentRepository) ListChallengeEnrollments(ctx context.Context, challengeID string) ([]*domain.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM user_challenges
		WHERE challenge_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, challengeID)
	if err != nil {
		return nil, errors.ErrDatabaseError("list challenge enrollments", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEnrollmentRows(rows)
}

// CountEnrollments returns participant and completion counts per challenge.
func (r *PostgresEnrollmentRepository) CountEnrollments(ctx context.Context) (map[string]domain.EnrollmentCounts, error) {
	query := `
		SELECT challenge_id,
		       COUNT(*) AS participants,
		       COUNT(*) FILTER (WHERE is_completed) AS completed
		FROM user_challenges
		GROUP BY challenge_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.ErrDatabaseError("count enrollments", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]domain.EnrollmentCounts)
	for rows.Next() {
		var challengeID string
		var c domain.EnrollmentCounts
		if err := rows.Scan(&challengeID, &c.Participants, &c.Completed); err != nil {
			return nil, errors.ErrDatabaseError("scan enrollment counts", err)
		}
		counts[challengeID] = c
	}

	if err := rows.Err(); err != nil {
		return nil, errors.ErrDatabaseError("iterate enrollment counts", err)
	}

	return counts, nil
}

// DeleteEnrollment removes an enrollment row.
func (r *PostgresEnrollmentRepository) DeleteEnrollment(ctx context.Context, userID, challengeID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_challenges WHERE user_id = $1 AND challenge_id = $2`,
		userID, challengeID,
	)
	if err != nil {
		return errors.ErrDatabaseError("delete enrollment", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.ErrDatabaseError("check rows affected", err)
	}

	if rowsAffected == 0 {
		return errors.ErrEnrollmentNotFound(userID, challengeID)
	}

	return nil
}

// BeginTx starts a database transaction and returns a transactional repository.
func (r *PostgresEnrollmentRepository) BeginTx(ctx context.Context) (TxRepository, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, errors.ErrDatabaseError("begin transaction", err)
	}

	return &PostgresTxRepository{
		tx: tx,
	}, nil
}

// PostgresTxRepository implements TxRepository for the progress update flow.
type PostgresTxRepository struct {
	tx *sql.Tx
}

// GetEnrollmentForUpdate retrieves an enrollment with SELECT ... FOR UPDATE (row-level lock).
// A second transaction on the same row blocks here until the first commits,
// then observes the committed is_completed flag.
func (r *PostgresTxRepository) GetEnrollmentForUpdate(ctx context.Context, userID, challengeID string) (*domain.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM user_challenges
		WHERE user_id = $1 AND challenge_id = $2
		FOR UPDATE
	`

	enrollment, err := scanEnrollment(r.tx.QueryRowContext(ctx, query, userID, challengeID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.ErrDatabaseError("get enrollment for update", err)
	}

	return enrollment, nil
}

// SaveProgress writes the recomputed progress and completion state.
// The is_completed = false guard keeps a completed row from ever being rewritten.
func (r *PostgresTxRepository) SaveProgress(ctx context.Context, enrollment *domain.Enrollment) error {
	query := `
		UPDATE user_challenges
		SET current_progress = $3,
			is_completed = $4,
			completed_at = $5
		WHERE user_id = $1 AND challenge_id = $2
		AND is_completed = false
	`

	result, err := r.tx.ExecContext(ctx, query,
		enrollment.UserID,
		enrollment.ChallengeID,
		enrollment.CurrentProgress,
		enrollment.IsCompleted,
		enrollment.CompletedAt,
	)
	if err != nil {
		return errors.ErrDatabaseError("save progress", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.ErrDatabaseError("check rows affected", err)
	}

	if rowsAffected == 0 {
		return errors.ErrEnrollmentCompleted(enrollment.UserID, enrollment.ChallengeID)
	}

	return nil
}

// CreditPoints adds points to the user's balance, creating the stats row if needed.
func (r *PostgresTxRepository) CreditPoints(ctx context.Context, userID string, points int) error {
	query := `
		INSERT INTO user_stats (user_id, current_streak, total_points)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			total_points = user_stats.total_points + EXCLUDED.total_points
	`

	if _, err := r.tx.ExecContext(ctx, query, userID, points); err != nil {
		return errors.ErrDatabaseError("credit points", err)
	}

	return nil
}

// Commit commits the transaction.
func (r *PostgresTxRepository) Commit() error {
	if err := r.tx.Commit(); err != nil {
		return errors.ErrDatabaseError("commit transaction", err)
	}
	return nil
}

// Rollback rolls back the transaction.
func (r *PostgresTxRepository) Rollback() error {
	err := r.tx.Rollback()
	if err != nil && !stderrors.Is(err, sql.ErrTxDone) {
		return errors.ErrDatabaseError("rollback transaction", err)
	}
	return nil
}

// scanEnrollment scans a single enrollment row.
func scanEnrollment(row rowScanner) (*domain.Enrollment, error) {
	var e domain.Enrollment
	var completedAt sql.NullTime
	err := row.Scan(
		&e.UserID,
		&e.ChallengeID,
		&e.StartedAt,
		&e.CurrentProgress,
		&e.IsCompleted,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	e.StartedAt = e.StartedAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		e.CompletedAt = &t
	}

	return &e, nil
}

// scanEnrollmentRows is a helper to scan multiple enrollment rows.
func scanEnrollmentRows(rows *sql.Rows) ([]*domain.Enrollment, error) {
	var results []*domain.Enrollment

	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, errors.ErrDatabaseError("scan enrollment row", err)
		}
		results = append(results, e)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.ErrDatabaseError("iterate enrollment rows", err)
	}

	return results, nil
}
