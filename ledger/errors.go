/*
errors.go - Error taxonomy for the billing core

ERROR CATEGORIES:
  1. Validation    - invoice invariant broken or enum value outside its set
  2. Invalid state - lifecycle transition not allowed from current status
  3. Not found     - a referenced entity does not exist
  4. Repository    - storage failed; always propagated, never swallowed

NOT FOUND VS. ERROR:
  Statement generation treats a missing root entity as a normal outcome and
  returns (nil, nil). ErrNotFound is used by CRUD paths where a missing row
  is a caller mistake.

USAGE:
  if errors.Is(err, ledger.ErrInvalidState) {
      // 409
  }
  var verr *ledger.ValidationError
  if errors.As(err, &verr) {
      // 400 with verr.Field
  }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("not found")
	ErrRepository   = errors.New("repository failure")

	// ErrInvalidPeriod is returned when a statement window ends before it starts.
	ErrInvalidPeriod = &ValidationError{Field: "date_to", Message: "date_to must not be before date_from"}
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports a broken invariant. The mutation that produced it
// was rejected in full.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidStateError reports a lifecycle transition that is not allowed.
type InvalidStateError struct {
	InvoiceID InvoiceID
	Status    InvoiceStatus
	Action    string
	Message   string
}

func (e *InvalidStateError) Error() string { return e.Message }

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// RepositoryError wraps a storage failure with the operation that hit it.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

func (e *RepositoryError) Is(target error) bool { return target == ErrRepository }

// WrapRepository tags err as a repository failure unless it already is one
// or is a domain error that should pass through untouched.
func WrapRepository(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRepository) || errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &RepositoryError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict returns true for business-rule conflicts such as paying a paid invoice.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
