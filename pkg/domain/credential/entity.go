// Package credential defines the platform credentials attached to
// authenticated scans. Credentials are referenced by name, never created.
package credential

import (
	"fmt"

	"github.com/openctemio/scanctl/pkg/domain/shared"
)

// Credential is a pre-existing scan credential.
type Credential struct {
	ID   string
	Name string
	Type string
}

// Domain-specific errors for credentials.
var (
	ErrCredentialNotFound = fmt.Errorf("credential %w", shared.ErrNotFound)
)

// NotFoundError creates a credential not found error naming the unmatched fragment.
func NotFoundError(fragment string) error {
	return fmt.Errorf("%w: [%s]", ErrCredentialNotFound, fragment)
}
