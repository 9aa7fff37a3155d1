package shared

import (
	"github.com/google/uuid"
)

// RunID correlates the log lines and metrics of one stage invocation.
type RunID struct {
	value uuid.UUID
}

// NewRunID creates a new random RunID.
func NewRunID() RunID {
	return RunID{value: uuid.New()}
}

// String returns the string representation of the RunID.
func (id RunID) String() string {
	return id.value.String()
}

// IsZero returns true if the RunID is empty.
func (id RunID) IsZero() bool {
	return id.value == uuid.Nil
}
