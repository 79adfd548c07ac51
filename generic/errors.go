/*
errors.go - Centralized error types for the commission engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Other packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Boundary errors - Malformed dates, ranges or input records
  2. Source errors - A read-only fetch from an external store failed
  3. Computation errors - A run aborted; no partial result exists

NOT ERRORS:
  Unmatched category labels, missing commission profiles and empty results
  are normal outcomes of a run and never surface here.

USAGE:
  if errors.Is(err, generic.ErrComputationFailed) {
      var srcErr *generic.SourceError
      if errors.As(err, &srcErr) {
          log.Printf("fetch %s failed", srcErr.Source)
      }
  }

SEE ALSO:
  - store.go: Source interfaces whose failures become SourceError
  - commission/engine.go: Wraps source failures in ComputationError
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
	// ErrInvalidDate is returned when a date is not a valid YYYY-MM-DD value.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidDateRange is returned when a range is malformed (end before start).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidInput is returned when an ingested record breaks an invariant.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrSourceUnavailable is returned when an external fetch fails.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrComputationFailed is returned when a run aborts.
	ErrComputationFailed = errors.New("commission computation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SourceName identifies one of the four read-only fetches.
type SourceName string

const (
	SourceRateTable SourceName = "rate_table"
	SourceProfiles  SourceName = "commission_profiles"
	SourceLedger    SourceName = "billing_ledger"
	SourceDirectory SourceName = "customer_directory"
)

// SourceError records which fetch failed.
type SourceError struct {
	Source SourceName
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}

// ComputationError is the single error a failed run reports.
type ComputationError struct {
	RunID string
	Err   error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%v (run %s): %v", ErrComputationFailed, e.RunID, e.Err)
}

func (e *ComputationError) Unwrap() []error {
	return []error{ErrComputationFailed, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
