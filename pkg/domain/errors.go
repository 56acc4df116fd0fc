package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a Definition or entity key does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrWrongType is returned when a key holds a value of another type.
	// It matches ErrNotFound.
	ErrWrongType = fmt.Errorf("%w: key holds the wrong kind of value", ErrNotFound)

	// ErrDecode is returned for malformed or invalid Definition payloads and
	// for corrupt stored bytes.
	ErrDecode = errors.New("decode failed")

	// ErrStore is returned when the underlying store fails a read or write.
	ErrStore = errors.New("store failed")

	// ErrPrefixTaken is returned when a prefix is already bound to another
	// Definition and the registry rejects rebinding.
	ErrPrefixTaken = errors.New("prefix already registered")
)

// ValidationError is a single invariant violation of a Definition.
type ValidationError struct {
	Field  string // Path of the offending attribute, e.g. "events[1].to"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// InvalidDefinitionError aggregates every violation found in a Definition.
// It matches ErrDecode.
type InvalidDefinitionError struct {
	Name   string
	Errors []error
}

func (e *InvalidDefinitionError) Error() string {
	label := "definition"
	if e.Name != "" {
		label = fmt.Sprintf("definition %q", e.Name)
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("invalid %s: %s", label, e.Errors[0])
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid %s: %d violations: %s", label, len(e.Errors), strings.Join(msgs, "; "))
}

func (e *InvalidDefinitionError) Is(target error) bool {
	return target == ErrDecode
}

func (e *InvalidDefinitionError) Unwrap() []error {
	return e.Errors
}

// ValidationErrors returns the individual violations carried by err, if any.
func ValidationErrors(err error) []error {
	var inv *InvalidDefinitionError
	if errors.As(err, &inv) {
		return inv.Errors
	}
	return nil
}
