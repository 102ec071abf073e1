// Package service exposes the challenge engine's public operations.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/streakforge/challenge-engine/pkg/cache"
	"github.com/streakforge/challenge-engine/pkg/catalog"
	"github.com/streakforge/challenge-engine/pkg/domain"
	"github.com/streakforge/challenge-engine/pkg/enrollment"
	"github.com/streakforge/challenge-engine/pkg/metrics"
	"github.com/streakforge/challenge-engine/pkg/progress"
	"github.com/streakforge/challenge-engine/pkg/ranking"
	"github.com/streakforge/challenge-engine/pkg/repository"
)

// Store is everything the engine persists to or reads from.
// *repository.MemoryStore implements it, as does repository.PostgresStore.
type Store interface {
	repository.ChallengeRepository
	repository.EnrollmentRepository
	repository.ActivitySource
}

// ChallengeService composes the catalog, enrollment manager and ranking engine.
type ChallengeService struct {
	catalog     *catalog.Catalog
	enrollments *enrollment.Manager
	ranking     *ranking.Engine
}

// New wires a ChallengeService over store. collector may be nil; now may be nil
// for time.Now.
func New(store Store, collector *metrics.Collector, logger *slog.Logger, now func() time.Time) *ChallengeService {
	cat := catalog.NewCatalog(store, cache.NewInMemoryChallengeCache(logger), logger)
	registry := progress.NewRegistry(store, logger)

	return &ChallengeService{
		catalog:     cat,
		enrollments: enrollment.NewManager(cat, store, registry, collector, logger, now),
		ranking:     ranking.NewEngine(cat, store, now),
	}
}

// Warm preloads the challenge cache.
func (s *ChallengeService) Warm(ctx context.Context) error {
	return s.catalog.Warm(ctx)
}

// ImportChallenges stores the definitions that do not exist yet.
func (s *ChallengeService) ImportChallenges(ctx context.Context, challenges []*domain.ChallengeDefinition) (created, skipped int, err error) {
	return s.catalog.Import(ctx, challenges)
}

// ListActiveChallenges returns the active challenges in display order.
func (s *ChallengeService) ListActiveChallenges(ctx context.Context) ([]*domain.ChallengeDefinition, error) {
	return s.catalog.GetActive(ctx)
}

// GetChallenge returns an active challenge.
func (s *ChallengeService) GetChallenge(ctx context.Context, challengeID string) (*domain.ChallengeDefinition, error) {
	return s.catalog.GetByID(ctx, challengeID)
}

// CreateChallenge stores a new challenge definition.
func (s *ChallengeService) CreateChallenge(ctx context.Context, challenge *domain.ChallengeDefinition) (*domain.ChallengeDefinition, error) {
	return s.catalog.Create(ctx, challenge)
}

// SetChallengeActive toggles a challenge's visibility for joining.
func (s *ChallengeService) SetChallengeActive(ctx context.Context, challengeID string, active bool) error {
	return s.catalog.SetActive(ctx, challengeID, active)
}

// ListUserChallenges returns the user's enrollments with derived statuses.
func (s *ChallengeService) ListUserChallenges(ctx context.Context, userID string) ([]*domain.UserChallenge, error) {
	return s.enrollments.ListUserChallenges(ctx, userID)
}

// JoinChallenge enrolls the user.
func (s *ChallengeService) JoinChallenge(ctx context.Context, userID, challengeID string) (*domain.Enrollment, error) {
	return s.enrollments.Join(ctx, userID, challengeID)
}

// LeaveChallenge removes the user's enrollment.
func (s *ChallengeService) LeaveChallenge(ctx context.Context, userID, challengeID string) error {
	return s.enrollments.Leave(ctx, userID, challengeID)
}

// UpdateProgress recomputes the user's progress and completes the challenge when due.
func (s *ChallengeService) UpdateProgress(ctx context.Context, userID, challengeID string) (*domain.ProgressResult, error) {
	return s.enrollments.UpdateProgress(ctx, userID, challengeID)
}

// GetLeaderboard returns the challenge's ranked enrollments.
func (s *ChallengeService) GetLeaderboard(ctx context.Context, challengeID string, limit int) ([]*domain.LeaderboardEntry, error) {
	return s.ranking.GetLeaderboard(ctx, challengeID, limit)
}

// GetChallengeStats returns the challenge's aggregate statistics.
func (s *ChallengeService) GetChallengeStats(ctx context.Context, challengeID string) (*domain.ChallengeStats, error) {
	return s.ranking.GetChallengeStats(ctx, challengeID)
}

// GetUserRank returns the user's competition rank in the challenge.
func (s *ChallengeService) GetUserRank(ctx context.Context, userID, challengeID string) (*domain.UserRank, error) {
	return s.ranking.GetUserRank(ctx, userID, challengeID)
}

// GetTrendingChallenges returns the most joined active challenges.
func (s *ChallengeService) GetTrendingChallenges(ctx context.Context, limit int) ([]*domain.TrendingChallenge, error) {
	return s.ranking.GetTrendingChallenges(ctx, limit)
}
