// Package api is the HTTP adapter of the challenge engine.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/streakforge/challenge-engine/pkg/domain"
	"github.com/streakforge/challenge-engine/pkg/errors"
)

// UserIDHeader carries the authenticated user's ID, set by the gateway in front
// of the engine.
const UserIDHeader = "X-User-ID"

const (
	defaultLeaderboardLimit = 50
	defaultTrendingLimit    = 10
	maxLimit                = 500
)

// Service is the set of engine operations served over HTTP.
// It is implemented by *service.ChallengeService.
type Service interface {
	ListActiveChallenges(ctx context.Context) ([]*domain.ChallengeDefinition, error)
	GetChallenge(ctx context.Context, challengeID string) (*domain.ChallengeDefinition, error)
	CreateChallenge(ctx context.Context, challenge *domain.ChallengeDefinition) (*domain.ChallengeDefinition, error)
	SetChallengeActive(ctx context.Context, challengeID string, active bool) error
	ListUserChallenges(ctx context.Context, userID string) ([]*domain.UserChallenge, error)
	JoinChallenge(ctx context.Context, userID, challengeID string) (*domain.Enrollment, error)
	LeaveChallenge(ctx context.Context, userID, challengeID string) error
	UpdateProgress(ctx context.Context, userID, challengeID string) (*domain.ProgressResult, error)
	GetLeaderboard(ctx context.Context, challengeID string, limit int) ([]*domain.LeaderboardEntry, error)
	GetChallengeStats(ctx context.Context, challengeID string) (*domain.ChallengeStats, error)
	GetUserRank(ctx context.Context, userID, challengeID string) (*domain.UserRank, error)
	GetTrendingChallenges(ctx context.Context, limit int) ([]*domain.TrendingChallenge, error)
}

// Handler serves the engine's REST endpoints.
type Handler struct {
	svc    Service
	health func() error
	logger *slog.Logger
}

// NewHandler creates a Handler. health reports storage health for /health;
// nil means always healthy.
func NewHandler(svc Service, health func() error, logger *slog.Logger) *Handler {
	if health == nil {
		health = func() error { return nil }
	}
	return &Handler{svc: svc, health: health, logger: logger}
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/challenges", h.ListChallenges).Methods(http.MethodGet)
	api.HandleFunc("/challenges", h.CreateChallenge).Methods(http.MethodPost)
	// registered before /challenges/{id} so "trending" is not taken as an ID
	api.HandleFunc("/challenges/trending", h.GetTrending).Methods(http.MethodGet)
	api.HandleFunc("/challenges/{id}", h.GetChallenge).Methods(http.MethodGet)
	api.HandleFunc("/challenges/{id}/active", h.SetActive).Methods(http.MethodPut)
	api.HandleFunc("/challenges/{id}/join", h.Join).Methods(http.MethodPost)
	api.HandleFunc("/challenges/{id}/join", h.Leave).Methods(http.MethodDelete)
	api.HandleFunc("/challenges/{id}/progress", h.UpdateProgress).Methods(http.MethodPost)
	api.HandleFunc("/challenges/{id}/leaderboard", h.GetLeaderboard).Methods(http.MethodGet)
	api.HandleFunc("/challenges/{id}/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/challenges/{id}/rank", h.GetRank).Methods(http.MethodGet)
	api.HandleFunc("/me/challenges", h.ListMyChallenges).Methods(http.MethodGet)
}

// Health reports whether the store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.health(); err != nil {
		h.logger.Error("Health check failed", "error", err)
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "challenge-engine"})
}

// ListChallenges returns the active challenges.
func (h *Handler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.svc.ListActiveChallenges(r.Context())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, challenges)
}

type createChallengeRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	DurationDays  int    `json:"duration_days"`
	RewardPoints  int    `json:"reward_points"`
	ChallengeType string `json:"challenge_type"`
	TargetValue   int    `json:"target_value"`
	IsActive      *bool  `json:"is_active"`
}

// CreateChallenge stores a new challenge definition. is_active defaults to true.
func (h *Handler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req createChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	created, err := h.svc.CreateChallenge(r.Context(), &domain.ChallengeDefinition{
		ID:            req.ID,
		Name:          req.Name,
		Description:   req.Description,
		DurationDays:  req.DurationDays,
		RewardPoints:  req.RewardPoints,
		ChallengeType: domain.ChallengeType(req.ChallengeType),
		TargetValue:   req.TargetValue,
		IsActive:      active,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// GetTrending returns the most joined active challenges.
func (h *Handler) GetTrending(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, defaultTrendingLimit)
	if !ok {
		return
	}

	trending, err := h.svc.GetTrendingChallenges(r.Context(), limit)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, trending)
}

// GetChallenge returns one active challenge.
func (h *Handler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.svc.GetChallenge(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, challenge)
}

// SetActive toggles a challenge's is_active flag.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		respondWithError(w, http.StatusBadRequest, "is_active is required")
		return
	}

	challengeID := mux.Vars(r)["id"]
	if err := h.svc.SetChallengeActive(r.Context(), challengeID, *req.IsActive); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"challenge_id": challengeID, "is_active": *req.IsActive})
}

// Join enrolls the calling user.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	enrollment, err := h.svc.JoinChallenge(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, enrollment)
}

// Leave removes the calling user's enrollment.
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.LeaveChallenge(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateProgress recomputes the calling user's progress.
func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.svc.UpdateProgress(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// GetLeaderboard returns the ranked enrollments of a challenge.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, defaultLeaderboardLimit)
	if !ok {
		return
	}

	board, err := h.svc.GetLeaderboard(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, board)
}

// GetStats returns a challenge's aggregate statistics.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetChallengeStats(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// GetRank returns the calling user's rank in a challenge.
func (h *Handler) GetRank(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	rank, err := h.svc.GetUserRank(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rank)
}

// ListMyChallenges returns the calling user's enrollments.
func (h *Handler) ListMyChallenges(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	challenges, err := h.svc.ListUserChallenges(r.Context(), userID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, challenges)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(UserIDHeader)
	if userID == "" {
		respondWithError(w, http.StatusUnauthorized, "Missing "+UserIDHeader+" header")
		return "", false
	}
	return userID, true
}

func parseLimit(w http.ResponseWriter, r *http.Request, defaultLimit int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		respondWithError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxLimit))
		return 0, false
	}
	return limit, true
}

// statusFor maps an engine error to an HTTP status code.
func statusFor(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrCodeChallengeNotFound, errors.ErrCodeEnrollmentNotFound:
		return http.StatusNotFound
	case errors.ErrCodeAlreadyEnrolled:
		return http.StatusConflict
	case errors.ErrCodeChallengeExpired:
		return http.StatusGone
	case errors.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case errors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
		respondWithJSON(w, status, map[string]string{
			"error": http.StatusText(status),
			"code":  errors.CodeOf(err),
		})
		return
	}

	var ce *errors.ChallengeError
	if !stderrors.As(err, &ce) {
		respondWithError(w, status, err.Error())
		return
	}
	respondWithJSON(w, status, map[string]string{
		"error": ce.Message,
		"code":  ce.Code,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
