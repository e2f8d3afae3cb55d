package alert

import (
	"errors"
	"fmt"
)

// ValidationError marks malformed input. It is rejected synchronously and
// never retried; Value carries the offending token for the caller.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageError marks a failed storage round-trip. The whole ingestion
// attempt is safe to retry: the upsert keyed on (ip, name) keeps a retried
// correlation from creating a second event.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func IsTransient(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
