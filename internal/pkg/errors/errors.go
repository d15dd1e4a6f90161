package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrStorage      = errors.New("storage unavailable")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")
)

// ValidationError reports the first input constraint that was violated.
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Constraint)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

func NewValidationError(field, constraint string) error {
	return &ValidationError{Field: field, Constraint: constraint}
}

// Storage wraps a backend failure so callers can match ErrStorage while the
// cause stays visible in logs.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// Internal marks err as a defect in this process rather than a backend
// outage. Retrying it cannot help.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInternal) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsExpired(err error) bool {
	return errors.Is(err, ErrExpired)
}

// IsDomain reports whether err is one of the sentinels above, i.e. an outcome
// that retrying cannot change.
func IsDomain(err error) bool {
	for _, target := range []error{ErrNotFound, ErrUnauthorized, ErrForbidden, ErrInvalid, ErrConflict, ErrExpired, ErrTooMany} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
