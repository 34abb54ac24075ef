package history

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the outcome of one source file conversion.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusRejected marks inputs that will never convert (malformed containers).
	StatusRejected Status = "rejected"
	StatusSkipped  Status = "skipped"
)

var allStatuses = []Status{
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusRejected,
	StatusSkipped,
}

// ParseStatus validates a user-supplied status name.
func ParseStatus(value string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if candidate == status {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// Statuses returns every known status in display order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Record is one row of conversion history.
type Record struct {
	ID          int64
	RunID       string
	SourcePath  string
	Fingerprint string
	Status      Status

	Format       string
	RepairOffset int
	RepairRule   string
	OutputPath   string

	ErrorKind    string
	ErrorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Duration reports how long the record was in flight.
func (r *Record) Duration() time.Duration {
	if r == nil || r.CreatedAt.IsZero() || r.UpdatedAt.Before(r.CreatedAt) {
		return 0
	}
	return r.UpdatedAt.Sub(r.CreatedAt)
}

// ListOptions filters List results.
type ListOptions struct {
	Status Status
	// Limit caps the number of rows; zero means no limit.
	Limit int
}
