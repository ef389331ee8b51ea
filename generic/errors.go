/*
errors.go - Centralized error types for the tax engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Calculator packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Input errors - Malformed numeric fields, bad codes, bad VINs
  2. Lookup errors - Unknown jurisdiction under a rejecting rate table
  3. Store errors - Missing rate tables or filings

USAGE:
  Callers branch on categories, never on message text:

    if errors.Is(err, generic.ErrInvalidInput) {
        // 400
    }

SEE ALSO:
  - ratetable.go: Produces UnknownJurisdictionError
  - ifta/input.go: Produces InputError
  - api/handlers.go: Maps categories to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned when a request field is missing, non-numeric,
	// negative or otherwise malformed. The whole request is rejected.
	ErrInvalidInput = errors.New("invalid input")

	// ErrValueOutOfRange is returned for numbers too large or too precise to
	// be a real quantity, rate or fee.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrUnknownJurisdiction is returned by a rate table configured to reject
	// codes it does not know.
	ErrUnknownJurisdiction = errors.New("unknown jurisdiction")

	// ErrRateTableNotFound is returned when a referenced rate table doesn't exist.
	ErrRateTableNotFound = errors.New("rate table not found")

	// ErrFilingNotFound is returned when a referenced filing doesn't exist.
	ErrFilingNotFound = errors.New("filing not found")

	// ErrFilingExists is returned when saving a filing whose id is taken.
	// Filings are append-only and never overwritten.
	ErrFilingExists = errors.New("filing already exists")

	// ErrScheduleNotFound is returned when no fee schedule exists for a year.
	ErrScheduleNotFound = errors.New("fee schedule not found")

	// ErrInvalidPeriod is returned when a reporting period is malformed.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidWeight is returned when a taxable gross weight is not positive.
	ErrInvalidWeight = errors.New("invalid taxable gross weight")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InputError pinpoints the first invalid field of a request.
// Index is the position in the enclosing list, or -1 for top-level fields.
type InputError struct {
	Field  string
	Index  int
	Reason string
}

func (e *InputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s at index %d: %s", e.Field, e.Index, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// UnknownJurisdictionError names the code a rejecting table could not rate.
type UnknownJurisdictionError struct {
	Code    JurisdictionCode
	TableID RateTableID
}

func (e *UnknownJurisdictionError) Error() string {
	return fmt.Sprintf("unknown jurisdiction %q in rate table %s", e.Code, e.TableID)
}

func (e *UnknownJurisdictionError) Unwrap() error {
	return ErrUnknownJurisdiction
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrUnknownJurisdiction) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidWeight)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRateTableNotFound) ||
		errors.Is(err, ErrFilingNotFound) ||
		errors.Is(err, ErrScheduleNotFound)
}
