// Package scan defines scan definitions and their execution instances.
// A Definition pairs a policy with targets and optional credentials; an
// Instance is one run of a Definition with its own lifecycle status.
package scan

import "strings"

// Status represents the lifecycle status of a scan instance.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusCanceled  Status = "canceled"
	StatusError     Status = "error"
	StatusUnknown   Status = "unknown"
)

// ParseStatus normalizes a platform status string such as "Completed" or
// "Running". Unrecognized values are kept lowercased so they can still be
// reported verbatim.
func ParseStatus(s string) Status {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "":
		return StatusUnknown
	case "cancelled":
		return StatusCanceled
	case "pending":
		return StatusQueued
	}
	return Status(v)
}

// IsCompleted reports whether the instance finished successfully. Partial
// results do not count.
func (s Status) IsCompleted() bool {
	return s == StatusCompleted
}

// IsTerminal reports whether the instance will not change status anymore.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusCanceled, StatusError:
		return true
	default:
		return false
	}
}

// String returns the status string.
func (s Status) String() string {
	return string(s)
}
