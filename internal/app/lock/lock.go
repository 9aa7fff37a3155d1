// Package lock serializes the read-then-act sections of stages that touch
// the same platform resource names.
package lock

import (
	"context"
	"fmt"
	"strings"

	"github.com/openctemio/scanctl/pkg/domain/shared"
)

// ErrHeld is returned when a resource lock could not be acquired in time.
var ErrHeld = fmt.Errorf("resource lock %w", shared.ErrConflict)

// Locker acquires named leases.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Key builds the lock key for a resource kind and name.
func Key(kind, name string) string {
	return "scanctl:lock:" + kind + ":" + strings.ToLower(name)
}

// HeldError reports a lock that stayed held by another run.
func HeldError(key string) error {
	return fmt.Errorf("%w: [%s]", ErrHeld, key)
}

// Nop is a Locker that always succeeds immediately.
type Nop struct{}

// Acquire implements Locker.
func (Nop) Acquire(context.Context, string) (Lease, error) {
	return nopLease{}, nil
}

type nopLease struct{}

func (nopLease) Release(context.Context) error { return nil }
