/*
errors.go - Shared error types for the pay engine

ERROR CATEGORIES:
  1. Data-integrity errors - a shift references an unknown employer.
     Fatal for that shift only; batches record it and continue.
  2. Parse errors - malformed dates, clock readings and weekdays in inputs.

  Configuration-lookup misses are not errors; see diagnostics.go.

USAGE:
  var missing *payroll.MissingEmployerError
  if errors.As(err, &missing) {
      // report missing.ShiftID and carry on
  }
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployerNotFound is returned when a shift's employer has no profile.
	ErrEmployerNotFound = errors.New("employer not found")

	ErrInvalidDate    = errors.New("invalid date (want YYYY-MM-DD)")
	ErrInvalidClock   = errors.New("invalid time of day (want HH:MM)")
	ErrInvalidWeekday = errors.New("invalid weekday")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// MissingEmployerError identifies the shift that could not be priced.
type MissingEmployerError struct {
	ShiftID    string
	Date       Date
	EmployerID EmployerID
}

func (e *MissingEmployerError) Error() string {
	return fmt.Sprintf("employer %q not found for shift on %s", e.EmployerID, e.Date)
}

func (e *MissingEmployerError) Unwrap() error {
	return ErrEmployerNotFound
}
