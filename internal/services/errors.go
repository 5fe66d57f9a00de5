package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Every error returned by the services wraps exactly one of them.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence failure")
)

// Specific service errors.
var (
	ErrReasonTooShort          = fmt.Errorf("%w: reason must be at least %d characters", ErrValidation, MinReasonLength)
	ErrMissingUser             = fmt.Errorf("%w: user id is required", ErrValidation)
	ErrInvalidDecision         = fmt.Errorf("%w: decision must be approve or reject", ErrValidation)
	ErrBuiltOnlyProposal       = fmt.Errorf("%w: covered surface and services only apply to built properties", ErrValidation)
	ErrPropertyTypeImmutable   = fmt.Errorf("%w: property type cannot be changed", ErrValidation)
	ErrPropertyNotFound        = fmt.Errorf("property %w", ErrNotFound)
	ErrOppositionNotFound      = fmt.Errorf("opposition %w", ErrNotFound)
	ErrOppositionNotPending    = fmt.Errorf("%w: opposition is not pending", ErrConflict)
	ErrPendingOppositionExists = fmt.Errorf("%w: a pending opposition already exists for this property", ErrConflict)
	ErrPropertyNotOpposable    = fmt.Errorf("%w: property does not accept oppositions in its current status", ErrConflict)
	ErrPropertyLocked          = fmt.Errorf("%w: property has a pending opposition", ErrConflict)
	ErrPropertyArchived        = fmt.Errorf("%w: property is archived", ErrConflict)
	ErrYearAlreadyPaid         = fmt.Errorf("%w: year already paid", ErrConflict)
)

// ValidationError carries per-field messages for input that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

func (e *ValidationError) add(field, msg string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// errOrNil returns e when at least one field failed.
func (e *ValidationError) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// persistenceError wraps a store failure as ErrPersistence while keeping the cause.
func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
