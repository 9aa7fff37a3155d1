package redis

import "errors"

// Redis-specific errors.
var (
	// ErrNotHeld is returned when releasing a lock whose token no longer matches.
	ErrNotHeld = errors.New("redis: lock not held")
)
