/*
errors.go - Centralized error types for the ledger and the billing domain

PURPOSE:
  All error kinds the core can surface, in one place. The billing package
  returns these directly; the api package maps them to HTTP status codes.

ERROR CATEGORIES:
  1. NotFound          - a referenced customer/project/domain is missing
  2. InvalidRequest    - malformed input, e.g. an update with no fields
  3. InvalidAmount     - an amount that is zero or negative
  4. ReferenceNotFound - a payment points at a record that does not exist

  Anything else is an infrastructure failure (500).

USAGE:
    if ledger.IsNotFound(err) { ... }
    if errors.Is(err, ledger.ErrInvalidAmount) { ... }

SEE ALSO:
  - ledger.go: Post validates amounts
  - api/handlers.go: HTTP mapping
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRequest is returned for malformed input.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidAmount is returned when a monetary amount is not strictly positive.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrReferenceNotFound is returned when a payment references a missing record.
	ErrReferenceNotFound = errors.New("referenced record not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing entity, e.g. "Customer not found".
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return e.Kind + " not found" }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound is shorthand for &NotFoundError{Kind: kind, ID: id}.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string { return e.Reason }
func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }

type InvalidAmountError struct {
	Amount decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %s: must be greater than zero", e.Amount)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// ReferenceNotFoundError is returned when a payment's reference_id does not
// resolve to the record its type requires.
type ReferenceNotFoundError struct {
	Kind string
	ID   string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("referenced %s %q not found", e.Kind, e.ID)
}

func (e *ReferenceNotFoundError) Unwrap() error { return ErrReferenceNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrReferenceNotFound)
}
