// internal/booking/errors.go
package booking

import "fmt"

// NotFoundError reports an unknown court, equipment, or user.
type NotFoundError struct {
	Kind string
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// ValidationError reports malformed or missing booking input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ConflictError reports a booking that cannot proceed because of existing
// state: an unavailable court, an occupied slot, or a duplicate booking.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string {
	return e.Reason
}

// InsufficientStockError reports an equipment request exceeding the stock
// remaining for its window.
type InsufficientStockError struct {
	Equipment string
	Date      string
	StartTime string
	Remaining int64
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s on %s at %s. Remaining: %d",
		e.Equipment, e.Date, e.StartTime, e.Remaining)
}
