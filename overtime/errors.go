/*
errors.go - Error types for the overtime engine

ERROR CATEGORIES:
  1. Validation errors - malformed input, rejected before any computation
  2. Not found errors - unknown employee, aborts without writing
  3. Data inconsistency - stored balances disagree with the ledger (fatal)
  4. Holiday source errors - degraded to "no holidays" by the Calendar

USAGE:
  if overtime.IsNotFound(err) { ... }
  var inc *overtime.DataInconsistencyError
  if errors.As(err, &inc) { alert(inc) }

SEE ALSO:
  - validate.go: Produces ValidationError
  - balance.go: Produces DataInconsistencyError
  - api/handlers.go: Maps these to HTTP status codes
*/
package overtime

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed dates, months or years.
	ErrValidation = errors.New("validation failed")

	// ErrEmployeeNotFound is returned when the directory has no such employee.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrDataInconsistency is returned when a period's stored overtime and its
	// summed transaction hours disagree.
	ErrDataInconsistency = errors.New("ledger data inconsistency")

	// ErrHolidaySourceUnavailable is returned by holiday sources that cannot
	// reach their backing feed.
	ErrHolidaySourceUnavailable = errors.New("holiday source unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ValidationErrors collects several field failures from one request.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", e[0].Error(), len(e)-1)
}

func (e ValidationErrors) Unwrap() error { return ErrValidation }

// Details returns field -> message, suitable for an error response body.
func (e ValidationErrors) Details() map[string]string {
	details := make(map[string]string, len(e))
	for _, v := range e {
		details[v.Field] = v.Message
	}
	return details
}

type NotFoundError struct {
	EmployeeID EmployeeID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("employee %q not found", e.EmployeeID)
}

func (e *NotFoundError) Unwrap() error { return ErrEmployeeNotFound }

type DataInconsistencyError struct {
	EmployeeID     EmployeeID
	Period         YearMonth
	StoredOvertime decimal.Decimal
	LedgerSum      decimal.Decimal
}

func (e *DataInconsistencyError) Error() string {
	return fmt.Sprintf("ledger inconsistency for %s in %s: stored overtime %s, transactions sum to %s",
		e.EmployeeID, e.Period, e.StoredOvertime, e.LedgerSum)
}

func (e *DataInconsistencyError) Unwrap() error { return ErrDataInconsistency }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing employee.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound)
}

// IsFatal returns true for errors that must alert instead of being retried.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDataInconsistency)
}
