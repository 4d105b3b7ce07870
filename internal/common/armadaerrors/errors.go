// Package armadaerrors contains the error types returned by the packager and the job graph.
// Callers are expected to look for them with errors.As rather than by comparing messages,
// since every error is usually wrapped with a stack trace and some context on its way up.
//
// If several problems are found at once, e.g., while validating a workflow definition, the
// function should return a multierror.Error from github.com/hashicorp/go-multierror that
// collects the individual errors.
package armadaerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrAlreadyExists is returned when adding something that is already present,
// e.g., a second section or job with the same name.
type ErrAlreadyExists struct {
	Type    string // Kind of object, e.g., "job" or "section"
	Value   string // Name of the object, e.g., "a000_20000101_fc0_1_sim"
	Message string // Optional
}

func (err *ErrAlreadyExists) Error() string {
	s := fmt.Sprintf("%q already exists", err.Value)
	if err.Type != "" {
		s = fmt.Sprintf("%s %q already exists", err.Type, err.Value)
	}
	return withMessage(s, err.Message)
}

// ErrNotFound is returned by lookups that found nothing.
// Type and Message are optional and are omitted from the error message if not provided.
type ErrNotFound struct {
	Type    string
	Value   string
	Message string
}

func (err *ErrNotFound) Error() string {
	s := fmt.Sprintf("%q not found", err.Value)
	if err.Type != "" {
		s = fmt.Sprintf("%s %q not found", err.Type, err.Value)
	}
	return withMessage(s, err.Message)
}

// ErrInvalidArgument is returned when a value passed in by the caller can't be used.
type ErrInvalidArgument struct {
	Name    string      // Name of the argument, e.g., "chunk"
	Value   interface{} // The value that was provided
	Message string      // Optional, e.g., explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	return withMessage(fmt.Sprintf("invalid value %v for %s", err.Value, err.Name), err.Message)
}

// ErrConfiguration is returned when the packager or a workflow definition is configured in a way
// that can't work, e.g., an unknown wrapper type or a mixed wrapper with no sections.
// It's raised when the configuration is loaded or a packager is constructed, never halfway through a pass.
type ErrConfiguration struct {
	Field   string
	Value   interface{}
	Message string
}

func (err *ErrConfiguration) Error() string {
	s := fmt.Sprintf("invalid configuration %s=%v", err.Field, err.Value)
	if err.Value == nil || err.Value == "" {
		s = fmt.Sprintf("invalid configuration %s", err.Field)
	}
	return withMessage(s, err.Message)
}

func withMessage(s, message string) string {
	if message == "" {
		return s
	}
	return s + "; " + message
}

// IsNotFound returns true if any error in the chain is an ErrNotFound.
func IsNotFound(err error) bool {
	var e *ErrNotFound
	return errors.As(err, &e)
}

// IsConfiguration returns true if any error in the chain is an ErrConfiguration.
func IsConfiguration(err error) bool {
	var e *ErrConfiguration
	return errors.As(err, &e)
}
