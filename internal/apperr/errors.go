// Package apperr defines the error taxonomy shared by the storage and HTTP
// layers. The HTTP layer maps these onto response codes: validation 422,
// not found 404, forbidden 403, dependency conflict 424, everything else 500.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// ErrDependencyConflict is returned when a delete is blocked by live
	// references, e.g. a task status still used by active tasks.
	ErrDependencyConflict = errors.New("dependency conflict")

	// ErrLifecycleConflict is returned when a compare-and-swap lifecycle
	// update matched no row: the entity changed state concurrently.
	ErrLifecycleConflict = errors.New("lifecycle changed concurrently")
)

// ValidationError carries per-field messages for form re-rendering.
type ValidationError struct {
	Fields map[string]string
}

func NewValidation() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = message
}

// Merge copies the fields of other into e.
func (e *ValidationError) Merge(other *ValidationError) {
	for field, message := range other.Fields {
		e.Fields[field] = message
	}
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidation unwraps err into a ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
