package heroes

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("heroes: not found")
	ErrAlreadyExists = errors.New("heroes: already exists")
	ErrInvalidInput  = errors.New("heroes: invalid input")

	// Hero errors
	ErrHeroNotFound       = errors.New("heroes: hero not found")
	ErrHeroInactive       = errors.New("heroes: hero is inactive")
	ErrInsufficientPoints = errors.New("heroes: insufficient points")

	// Trade-in errors
	ErrTradeInNotFound   = errors.New("heroes: trade-in not found")
	ErrInvalidTransition = errors.New("heroes: invalid trade-in status transition")
	ErrInvalidStatus     = errors.New("heroes: unknown trade-in status")

	// Referral errors
	ErrReferralNotFound = errors.New("heroes: referral not found")
	ErrSelfReferral     = errors.New("heroes: hero cannot refer themselves")
	ErrAlreadyReferred  = errors.New("heroes: hero has already been referred")

	// Stats errors
	ErrStatsNotFound = errors.New("heroes: program stats not initialized")

	// Store errors
	ErrStoreNotReady     = errors.New("heroes: store not ready")
	ErrStoreClosed       = errors.New("heroes: store is closed")
	ErrTransactionFailed = errors.New("heroes: transaction failed")
	ErrMigrationFailed   = errors.New("heroes: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("heroes: validation failed for %s: %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrInvalidInput.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "heroes: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("heroes: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// ErrOrNil returns the multi-error when it holds anything, nil otherwise.
func (e MultiError) ErrOrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrHeroNotFound) ||
		errors.Is(err, ErrTradeInNotFound) ||
		errors.Is(err, ErrReferralNotFound) ||
		errors.Is(err, ErrStatsNotFound)
}

// IsValidation returns true if the error rejects caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrSelfReferral) ||
		errors.Is(err, ErrAlreadyReferred) ||
		errors.Is(err, ErrInsufficientPoints)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
