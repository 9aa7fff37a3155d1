// Package policy defines the scan policies referenced by scan definitions.
// Policies are managed outside this tool and are only ever read.
package policy

import (
	"fmt"

	"github.com/openctemio/scanctl/pkg/domain/shared"
)

// Policy is a pre-existing scan configuration template.
type Policy struct {
	ID   string
	Name string
}

// Domain-specific errors for policies.
var (
	ErrPolicyNotFound = fmt.Errorf("policy %w", shared.ErrNotFound)
)

// NotFoundError creates a policy not found error with the name.
func NotFoundError(name string) error {
	return fmt.Errorf("%w: [%s]", ErrPolicyNotFound, name)
}
