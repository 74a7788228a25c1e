// File: pkg/purge/result.go
package purge

import (
	"errors"
	"fmt"
	"opskit/pkg/storage"
)

var ErrBatchTooLarge = errors.New("batch exceeds the bulk delete limit")

type BatchStatus int

const (
	BatchSucceeded BatchStatus = iota
	// The call went through but the backend refused some objects
	BatchPartial
	// The call itself failed; nothing in the batch is known to be deleted
	BatchFailed
)

func (s BatchStatus) String() string {
	switch s {
	case BatchSucceeded:
		return "succeeded"
	case BatchPartial:
		return "partial"
	case BatchFailed:
		return "failed"
	default:
		return fmt.Sprintf("BatchStatus(%d)", int(s))
	}
}

// Outcome of one bulk delete call
type BatchResult struct {
	Status    BatchStatus
	Attempted int
	Deleted   int
	Errors    []storage.DeleteError
	Err       error
}

// Outcome of purging a single prefix
type PrefixReport struct {
	Prefix string
	// Whether the first listing returned any candidates
	Found          bool
	Rounds         int
	Batches        int
	FailedBatches  int
	PartialBatches int
	Deleted        int
	// Candidates still listed when the purger gave up
	Remaining int
	Complete  bool
}

// Returns the one-line console report for the prefix
func (r PrefixReport) Message() string {
	switch {
	case !r.Complete:
		return fmt.Sprintf("gave up on prefix: %s (%d candidates remain after %d rounds)", r.Prefix, r.Remaining, r.Rounds)
	case r.Found:
		return fmt.Sprintf("successfully deleted all objects for prefix: %s", r.Prefix)
	default:
		return fmt.Sprintf("no objects found for prefix: %s", r.Prefix)
	}
}

type RunReport struct {
	Prefixes []PrefixReport
}

func (r RunReport) Incomplete() []PrefixReport {
	var out []PrefixReport
	for _, p := range r.Prefixes {
		if !p.Complete {
			out = append(out, p)
		}
	}
	return out
}

func (r RunReport) TotalDeleted() int {
	total := 0
	for _, p := range r.Prefixes {
		total += p.Deleted
	}
	return total
}

// IncompleteError is returned when a prefix still lists candidates once its retry budget is spent
type IncompleteError struct {
	Prefix    string
	Rounds    int
	Remaining int
	Reason    string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("giving up on prefix %q after %d rounds, %d candidates remain: %s", e.Prefix, e.Rounds, e.Remaining, e.Reason)
}

// Dry-run counts for one prefix
type PlanEntry struct {
	Prefix   string
	Versions int
	Current  int
}

func (e PlanEntry) Total() int {
	return e.Versions + e.Current
}
