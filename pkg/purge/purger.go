// File: pkg/purge/purger.go
package purge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"opskit/pkg/storage"

	"github.com/cenkalti/backoff/v4"
)

// ObjectStore is the subset of a storage provider the purger needs
type ObjectStore interface {
	ListObjectVersions(ctx context.Context, bucketName, prefix string) ([]storage.Candidate, error)
	ListObjects(ctx context.Context, bucketName, prefix string) ([]storage.Candidate, error)
	DeleteObjects(ctx context.Context, bucketName string, batch []storage.Candidate) (storage.DeleteResult, error)
}

type Option func(*Purger)

// Registers a callback invoked after every prefix finishes, successfully or not
func WithProgress(fn func(PrefixReport)) Option {
	return func(p *Purger) {
		p.progress = fn
	}
}

// Purger deletes everything under a list of prefixes in one bucket, one prefix at a time
type Purger struct {
	store    ObjectStore
	bucket   string
	policy   Policy
	logger   *slog.Logger
	progress func(PrefixReport)

	sleep func(context.Context, time.Duration) error
	clock backoff.Clock
}

func New(store ObjectStore, bucketName string, policy Policy, logger *slog.Logger, opts ...Option) *Purger {
	p := &Purger{
		store:  store,
		bucket: bucketName,
		policy: policy.normalized(),
		logger: logger.With("bucket", bucketName),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Lists every version and delete marker under the prefix, followed by every current object
func (p *Purger) CollectCandidates(ctx context.Context, prefix string) ([]storage.Candidate, error) {
	versions, current, err := p.list(ctx, prefix)
	if err != nil {
		return nil, err
	}
	candidates := make([]storage.Candidate, 0, len(versions)+len(current))
	candidates = append(candidates, versions...)
	return append(candidates, current...), nil
}

func (p *Purger) list(ctx context.Context, prefix string) ([]storage.Candidate, []storage.Candidate, error) {
	versions, err := p.store.ListObjectVersions(ctx, p.bucket, prefix)
	if err != nil {
		return nil, nil, fmt.Errorf("listing object versions under %q: %w", prefix, err)
	}
	current, err := p.store.ListObjects(ctx, p.bucket, prefix)
	if err != nil {
		return nil, nil, fmt.Errorf("listing objects under %q: %w", prefix, err)
	}
	return versions, current, nil
}

// Issues one bulk delete. Failures are logged and returned in the result, never as an error
func (p *Purger) DeleteBatch(ctx context.Context, batch []storage.Candidate) BatchResult {
	result := BatchResult{Attempted: len(batch)}
	if len(batch) == 0 {
		return result
	}
	if len(batch) > MaxBatchSize {
		result.Status = BatchFailed
		result.Err = fmt.Errorf("%w: %d candidates", ErrBatchTooLarge, len(batch))
		p.logger.Error("Refusing oversized batch", "size", len(batch), "error", result.Err)
		return result
	}

	out, err := p.store.DeleteObjects(ctx, p.bucket, batch)
	if err != nil {
		result.Status = BatchFailed
		result.Err = err
		p.logger.Error("Error during batch delete", "size", len(batch), "error", err)
		return result
	}

	result.Deleted = out.Deleted
	result.Errors = out.Errors
	if len(out.Errors) > 0 {
		result.Status = BatchPartial
		p.logger.Warn("Batch delete reported object errors", "size", len(batch), "failed", len(out.Errors), "first_error", out.Errors[0].Error())
		for _, objErr := range out.Errors {
			p.logger.Debug("Object not deleted", "key", objErr.Key, "version", objErr.VersionID, "code", objErr.Code, "message", objErr.Message)
		}
	}
	return result
}

// Deletes everything under the prefix, re-listing after every round until a listing comes back empty
func (p *Purger) DeletePrefix(ctx context.Context, prefix string) (PrefixReport, error) {
	logger := p.logger.With("prefix", prefix)
	report := PrefixReport{Prefix: prefix}

	candidates, err := p.CollectCandidates(ctx, prefix)
	if err != nil {
		return report, err
	}
	if len(candidates) == 0 {
		report.Complete = true
		return report, nil
	}
	report.Found = true

	bo := p.policy.newBackOff(p.clock)
	for len(candidates) > 0 {
		if report.Rounds >= p.policy.MaxRounds {
			report.Remaining = len(candidates)
			return report, &IncompleteError{Prefix: prefix, Rounds: report.Rounds, Remaining: report.Remaining, Reason: "round limit reached"}
		}
		report.Rounds++
		logger.Debug("Starting deletion round", "round", report.Rounds, "candidates", len(candidates))

		for _, batch := range Partition(candidates, p.policy.BatchSize) {
			res := p.DeleteBatch(ctx, batch)
			report.Batches++
			report.Deleted += res.Deleted
			switch res.Status {
			case BatchFailed:
				report.FailedBatches++
			case BatchPartial:
				report.PartialBatches++
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}
		}

		wait := bo.NextBackOff()
		exhausted := wait == backoff.Stop
		if !exhausted {
			if err := p.sleep(ctx, wait); err != nil {
				return report, err
			}
		}

		candidates, err = p.CollectCandidates(ctx, prefix)
		if err != nil {
			return report, err
		}
		if exhausted && len(candidates) > 0 {
			report.Remaining = len(candidates)
			return report, &IncompleteError{Prefix: prefix, Rounds: report.Rounds, Remaining: report.Remaining, Reason: "time budget exhausted"}
		}
	}

	report.Complete = true
	logger.Debug("Prefix purged", "rounds", report.Rounds, "batches", report.Batches, "deleted", report.Deleted)
	return report, nil
}

// Purges each prefix in order. A prefix that cannot be finished is recorded and the run moves on;
// any other error (listing failure, cancellation) aborts the run
func (p *Purger) Run(ctx context.Context, prefixes []string) (RunReport, error) {
	var report RunReport
	var incomplete []error

	for _, prefix := range prefixes {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}

		pr, err := p.DeletePrefix(ctx, prefix)
		report.Prefixes = append(report.Prefixes, pr)

		var incompleteErr *IncompleteError
		switch {
		case errors.As(err, &incompleteErr):
			p.logger.Error("Giving up on prefix", "prefix", prefix, "rounds", incompleteErr.Rounds, "remaining", incompleteErr.Remaining, "reason", incompleteErr.Reason)
			incomplete = append(incomplete, err)
		case err != nil:
			return report, fmt.Errorf("purging prefix %q: %w", prefix, err)
		case pr.Found:
			p.logger.Info("Successfully deleted all objects for prefix", "prefix", prefix, "deleted", pr.Deleted, "rounds", pr.Rounds)
		default:
			p.logger.Info("No objects found for prefix", "prefix", prefix)
		}

		if p.progress != nil {
			p.progress(pr)
		}
	}

	return report, errors.Join(incomplete...)
}

// Counts what a run would delete without deleting anything
func (p *Purger) Plan(ctx context.Context, prefixes []string) ([]PlanEntry, error) {
	var entries []PlanEntry
	for _, prefix := range prefixes {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		versions, current, err := p.list(ctx, prefix)
		if err != nil {
			return entries, err
		}
		entries = append(entries, PlanEntry{Prefix: prefix, Versions: len(versions), Current: len(current)})
	}
	return entries, nil
}

// Splits candidates into consecutive batches of at most size elements, preserving order
func Partition(candidates []storage.Candidate, size int) [][]storage.Candidate {
	if size <= 0 || size > MaxBatchSize {
		size = MaxBatchSize
	}
	batches := make([][]storage.Candidate, 0, (len(candidates)+size-1)/size)
	for i := 0; i < len(candidates); i += size {
		end := min(i+size, len(candidates))
		batches = append(batches, candidates[i:end])
	}
	return batches
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
