// File: pkg/storage/storage.go
package storage

import (
	"context"
	"errors"

	"opskit/pkg/common"
)

// ErrMetricsNotFound indicates that the usage metrics could not be found within the queried time range
// This often happens for new buckets that haven't reported metrics yet
var ErrMetricsNotFound = errors.New("usage metrics not found in the monitoring window")

// Storage is implemented by every object storage provider that can be purged
type Storage interface {
	ProviderName() common.Provider

	// Lists every object version and delete marker under the prefix, one candidate per (key, version)
	ListObjectVersions(ctx context.Context, bucketName, prefix string) ([]Candidate, error)

	// Lists the current objects under the prefix, one candidate per key with no version
	ListObjects(ctx context.Context, bucketName, prefix string) ([]Candidate, error)

	// Issues one bulk delete for the batch. A non-nil error means the call itself failed;
	// per-object failures are reported in the result
	DeleteObjects(ctx context.Context, bucketName string, batch []Candidate) (DeleteResult, error)

	// Returns the bucket size in bytes, or -1 when it is unknown
	BucketUsage(ctx context.Context, bucketName string) (int64, error)

	Close() error
}
