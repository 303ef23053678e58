package shared

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed input naming the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// EligibilityError reports a project that does not qualify for settlement.
type EligibilityError struct {
	ProjectID int64
	Reason    string
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("project %d not eligible: %s", e.ProjectID, e.Reason)
}

// IsEligibility reports whether err is an EligibilityError.
func IsEligibility(err error) bool {
	var ee *EligibilityError
	return errors.As(err, &ee)
}

// StateError reports an illegal lifecycle transition. Failed transitions
// leave the document untouched.
type StateError struct {
	Current   string
	Requested string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("illegal transition from %s to %s", e.Current, e.Requested)
}

// IsState reports whether err is a StateError.
func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// ConcurrencyError reports an optimistic-lock conflict. Callers should
// re-read current state and retry the transition instead of overwriting.
type ConcurrencyError struct {
	Entity string
	ID     int64
}

func (e *ConcurrencyError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s modified concurrently", e.Entity)
	}
	return fmt.Sprintf("%s %d modified concurrently", e.Entity, e.ID)
}

// IsConcurrency reports whether err is a ConcurrencyError.
func IsConcurrency(err error) bool {
	var ce *ConcurrencyError
	return errors.As(err, &ce)
}
