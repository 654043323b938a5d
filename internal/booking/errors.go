package booking

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrConflict is returned when the requested interval overlaps an active booking.
	ErrConflict = errors.New("booking: slot no longer available")
	// ErrNotFound is returned when a booking, calendar or token does not resolve.
	ErrNotFound = errors.New("booking: not found")
	// ErrTransient marks store failures (serialization, lock timeout) that may succeed on retry.
	ErrTransient = errors.New("booking: transient store failure")
)

// ValidationError captures field level problems the caller can correct.
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for f := range v.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v.FieldErrors[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, ok := v.FieldErrors[field]; ok {
		return
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) orNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

// Invalid returns a ValidationError for a single field.
func Invalid(field, message string) error {
	v := &ValidationError{}
	v.add(field, message)
	return v
}

func invalid(field, message string) error { return Invalid(field, message) }
