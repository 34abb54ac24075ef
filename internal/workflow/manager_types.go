package workflow

import (
	"time"

	"ncmdump/internal/history"
	"ncmdump/internal/repair"
)

// Result reports the outcome for one input file.
type Result struct {
	Source string
	Output string
	Cover  string
	Status history.Status

	Format     string
	Hint       string
	Transcoded bool

	Repaired     bool
	RepairRule   string
	RepairOffset int
	Confidence   repair.Confidence

	// Reason explains a skip.
	Reason   string
	Err      error
	Duration time.Duration
}

// Summary aggregates a batch.
type Summary struct {
	RunID   string
	Results []Result
	Elapsed time.Duration
}

// Count returns the number of results with status.
func (s *Summary) Count(status history.Status) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Failures returns the number of results that did not convert and were not
// skipped.
func (s *Summary) Failures() int {
	return s.Count(history.StatusFailed) + s.Count(history.StatusRejected)
}
