package models

import (
	"errors"
	"fmt"
)

// Reasons wrapped by the typed errors below.
var (
	ErrMalformedJSON = errors.New("malformed JSON")
	ErrDuplicateID   = errors.New("duplicate record identifier")
	ErrMissingField  = errors.New("missing required field")
	ErrEmptyText     = errors.New("empty text")
)

// NetworkError reports a fetch that could not complete after the HTTP client's
// retry policy was exhausted.
type NetworkError struct {
	ID  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.ID, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError reports malformed input or an invalid speech record.
// Field is set when a single record field failed validation.
type ValidationError struct {
	ID    string
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in %s (field %s): %v", e.ID, e.Field, e.Err)
	}
	return fmt.Sprintf("validation error in %s: %v", e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotComparableError marks a matched pair whose texts cannot be aligned.
type NotComparableError struct {
	ID     string
	Reason string
}

func (e *NotComparableError) Error() string {
	return fmt.Sprintf("%s not comparable: %s", e.ID, e.Reason)
}

func (e *NotComparableError) Unwrap() error { return ErrEmptyText }
