package services

import (
	"errors"
	"fmt"
)

// ValidationError rejects input before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown resource id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ErrComputation marks a catalog entry the evaluator could not evaluate. It
// indicates a defect in the catalog, never in the user's data.
var ErrComputation = errors.New("badge computation error")
