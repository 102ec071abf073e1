package repository

import "database/sql"

// PostgresStore bundles the PostgreSQL repositories over one connection pool.
type PostgresStore struct {
	*PostgresChallengeRepository
	*PostgresEnrollmentRepository
	*PostgresActivityRepository
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		PostgresChallengeRepository:  NewPostgresChallengeRepository(db),
		PostgresEnrollmentRepository: NewPostgresEnrollmentRepository(db),
		PostgresActivityRepository:   NewPostgresActivityRepository(db),
	}
}

// compile-time checks
var (
	_ ChallengeRepository  = (*PostgresStore)(nil)
	_ EnrollmentRepository = (*PostgresStore)(nil)
	_ ActivitySource       = (*PostgresStore)(nil)

	_ ChallengeRepository  = (*MemoryStore)(nil)
	_ EnrollmentRepository = (*MemoryStore)(nil)
	_ ActivitySource       = (*MemoryStore)(nil)
)
