package lock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanctl/pkg/domain/shared"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "scanctl:lock:scan:weekly dmz", Key("scan", "Weekly DMZ"))
}

func TestNop(t *testing.T) {
	var l Locker = Nop{}
	lease, err := l.Acquire(context.Background(), Key("asset", "web"))
	require.NoError(t, err)
	assert.NoError(t, lease.Release(context.Background()))
}

func TestHeldError(t *testing.T) {
	err := HeldError("scanctl:lock:scan:x")
	assert.ErrorIs(t, err, ErrHeld)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Contains(t, err.Error(), "scanctl:lock:scan:x")
}
