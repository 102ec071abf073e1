package errors

import (
	"errors"
	"fmt"
)

// Error codes for the challenge engine.
const (
	// Domain errors
	ErrCodeChallengeNotFound  = "CHALLENGE_NOT_FOUND"
	ErrCodeEnrollmentNotFound = "ENROLLMENT_NOT_FOUND"
	ErrCodeAlreadyEnrolled    = "ALREADY_ENROLLED"
	ErrCodeChallengeExpired   = "CHALLENGE_EXPIRED"

	// Collaborator errors
	ErrCodeUnavailable = "UNAVAILABLE"

	// Database errors
	ErrCodeDatabaseError = "DATABASE_ERROR"

	// Config errors
	ErrCodeConfigInvalid = "CONFIG_INVALID"

	// Validation errors
	ErrCodeValidationFailed = "VALIDATION_FAILED"
)

// ChallengeError represents an error in the challenge engine.
type ChallengeError struct {
	Code    string
	Message string
	Err     error
}

func (e *ChallengeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ChallengeError) Unwrap() error {
	return e.Err
}

// NewChallengeError creates a new ChallengeError.
func NewChallengeError(code, message string, err error) *ChallengeError {
	return &ChallengeError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrChallengeNotFound returns an error when a challenge is missing or inactive.
func ErrChallengeNotFound(challengeID string) *ChallengeError {
	return &ChallengeError{
		Code:    ErrCodeChallengeNotFound,
		Message: fmt.Sprintf("challenge not found: %s", challengeID),
	}
}

// ErrEnrollmentNotFound returns an error when a user is not enrolled in a challenge.
func ErrEnrollmentNotFound(userID, challengeID string) *ChallengeError {
	return &ChallengeError{
		Code:    ErrCodeEnrollmentNotFound,
		Message: fmt.Sprintf("enrollment not found: user %s, challenge %s", userID, challengeID),
	}
}

// ErrEnrollmentCompleted returns a not-found error for an enrollment that is
// already completed and therefore has no active participation to update.
func ErrEnrollmentCompleted(userID, challengeID string) *ChallengeError {
	return &ChallengeError{
		Code:    ErrCodeEnrollmentNotFound,
		Message: fmt.Sprintf("no active enrollment: user %s already completed challenge %s", userID, challengeID),
	}
}

// ErrAlreadyEnrolled returns an error on a duplicate join.
func ErrAlreadyEnrolled(userID, challengeID string) *ChallengeError {
	return &ChallengeError{
		Code:    ErrCodeAlreadyEnrolled,
		Message: fmt.Sprintf("user %s already enrolled in challenge %s", userID, challengeID),
	}
}

// ErrChallengeExpired returns an error when the challenge window has elapsed.
func ErrChallengeExpired(challengeID string) *ChallengeError {
	return &ChallengeError{
		Code:    ErrCodeChallengeExpired,
		Message: fmt.Sprintf("challenge expired: %s", challengeID),
	}
}

// ErrUnavailable wraps a failure of an external data source or the store.
func ErrUnavailable(source string, err error) *ChallengeError {
	return &ChallengeError{
		Code:    ErrCodeUnavailable,
		Message: fmt.Sprintf("%s unavailable", source),
		Err:     err,
	}
}

// ErrDatabaseError wraps database errors.
func ErrDatabaseError(operation string, err error) *ChallengeError {
	return &ChallengeError{
		Code:    ErrCodeDatabaseError,
		Message: fmt.Sprintf("database error during %s", operation),
		Err:     err,
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(reason string) *ChallengeError {
	return &ChallengeError{
		Code:    ErrCodeConfigInvalid,
		Message: fmt.Sprintf("invalid configuration: %s", reason),
	}
}

// ErrValidationFailed returns a validation error.
func ErrValidationFailed(field, reason string) *ChallengeError {
	return &ChallengeError{
		Code:    ErrCodeValidationFailed,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
	}
}

// CodeOf returns the code of the first ChallengeError in err's chain, or "".
func CodeOf(err error) string {
	var ce *ChallengeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsNotFound reports whether err is a missing challenge or a missing enrollment.
func IsNotFound(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeChallengeNotFound || code == ErrCodeEnrollmentNotFound
}

// IsAlreadyEnrolled reports whether err is a duplicate join.
func IsAlreadyEnrolled(err error) bool {
	return CodeOf(err) == ErrCodeAlreadyEnrolled
}

// IsExpired reports whether err is an expired-window rejection.
func IsExpired(err error) bool {
	return CodeOf(err) == ErrCodeChallengeExpired
}

// IsUnavailable reports whether err is a collaborator failure.
func IsUnavailable(err error) bool {
	return CodeOf(err) == ErrCodeUnavailable
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidationFailed
}

// Unavailable passes domain errors through and wraps anything else as
// UNAVAILABLE. Storage failures reach callers as collaborator failures.
func Unavailable(source string, err error) error {
	if err == nil {
		return nil
	}
	switch CodeOf(err) {
	case "", ErrCodeDatabaseError:
		return ErrUnavailable(source, err)
	default:
		return err
	}
}
