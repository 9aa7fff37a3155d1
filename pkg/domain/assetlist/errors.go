package assetlist

import (
	"fmt"

	"github.com/openctemio/scanctl/pkg/domain/shared"
)

// Domain-specific errors for asset lists.
var (
	ErrAssetListNotFound = fmt.Errorf("asset list %w", shared.ErrNotFound)
)

// NotFoundError creates an asset list not found error naming the unmatched fragment.
func NotFoundError(fragment string) error {
	return fmt.Errorf("%w: [%s]", ErrAssetListNotFound, fragment)
}
