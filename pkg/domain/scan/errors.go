package scan

import (
	"fmt"

	"github.com/openctemio/scanctl/pkg/domain/shared"
)

// Domain-specific errors for scans.
var (
	ErrScanNotFound     = fmt.Errorf("scan %w", shared.ErrNotFound)
	ErrDuplicateScan    = fmt.Errorf("scan %w", shared.ErrAlreadyExists)
	ErrAlreadyLaunched  = fmt.Errorf("scan results %w", shared.ErrAlreadyExists)
	ErrInstanceNotFound = fmt.Errorf("scan instance %w", shared.ErrNotFound)
	ErrScanNotComplete  = fmt.Errorf("scan not completed: %w", shared.ErrConflict)
)

// NotFoundError creates a scan definition not found error with the name.
func NotFoundError(name string) error {
	return fmt.Errorf("%w: [%s]", ErrScanNotFound, name)
}

// DuplicateError reports that a definition with the name already exists.
func DuplicateError(name string) error {
	return fmt.Errorf("%w: [%s]", ErrDuplicateScan, name)
}

// AlreadyLaunchedError reports that a result instance with the name exists.
func AlreadyLaunchedError(name string) error {
	return fmt.Errorf("%w: [%s]", ErrAlreadyLaunched, name)
}

// InstanceNotFoundError reports that no instance with the name exists.
func InstanceNotFoundError(name string) error {
	return fmt.Errorf("%w: [%s]", ErrInstanceNotFound, name)
}

// NotCompleteError reports the actual status of an instance that is not
// in the completed state.
type NotCompleteError struct {
	Name   string
	Status Status
}

// Error implements the error interface.
func (e *NotCompleteError) Error() string {
	return fmt.Sprintf("scan [%s] has not been completed, status: %s", e.Name, e.Status)
}

// Unwrap lets errors.Is match ErrScanNotComplete.
func (e *NotCompleteError) Unwrap() error {
	return ErrScanNotComplete
}
