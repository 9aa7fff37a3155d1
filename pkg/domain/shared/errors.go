// Package shared provides shared domain types and utilities.
package shared

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")
	ErrValidation    = errors.New("validation error")

	// ErrConnection covers authentication and transport failures against the
	// scanning platform. It always terminates the current stage.
	ErrConnection = errors.New("connection error")

	// ErrRemote covers failed create, delete, launch and export calls.
	ErrRemote = errors.New("remote error")

	// ErrTimeout is returned when a settle poll gives up.
	ErrTimeout = errors.New("timed out")

	// ErrAmbiguous is returned when a name fragment matches more than one
	// resource and the strict ambiguity policy is active.
	ErrAmbiguous = errors.New("ambiguous reference")
)

// DomainError represents a domain-specific error.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError.
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// InputError reports a malformed or missing local input such as the
// inventory source file.
func InputError(message string, err error) error {
	return NewDomainError("INPUT_ERROR", message, errors.Join(ErrInvalidInput, err))
}

// ConnectionError reports a login or transport failure against server.
func ConnectionError(server string, err error) error {
	return NewDomainError("CONNECTION_ERROR",
		fmt.Sprintf("cannot connect to %s, check connectivity and credentials", server),
		errors.Join(ErrConnection, err))
}

// RemoteError reports a failed mutating or export call against the named resource.
func RemoteError(message string, err error) error {
	return NewDomainError("REMOTE_ERROR", message, errors.Join(ErrRemote, err))
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an already exists error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConnection checks if the error is a connection error.
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}
