// File: pkg/storage/gcp/objects.go
package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"opskit/pkg/storage"

	gcpstorage "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// Lists every generation (live and noncurrent) under the prefix. The generation number is the version id
func (g *GCPStorage) ListObjectVersions(ctx context.Context, bucketName, prefix string) ([]storage.Candidate, error) {
	g.logger.Debug("Starting GCP ListObjectVersions operation", "bucket", bucketName, "prefix", prefix)
	return g.list(ctx, bucketName, prefix, true)
}

// Lists the live objects under the prefix
func (g *GCPStorage) ListObjects(ctx context.Context, bucketName, prefix string) ([]storage.Candidate, error) {
	g.logger.Debug("Starting GCP ListObjects operation", "bucket", bucketName, "prefix", prefix)
	return g.list(ctx, bucketName, prefix, false)
}

func (g *GCPStorage) list(ctx context.Context, bucketName, prefix string, versions bool) ([]storage.Candidate, error) {
	query := &gcpstorage.Query{
		Prefix:   prefix,
		Versions: versions,
	}
	if err := query.SetAttrSelection([]string{"Name", "Generation"}); err != nil {
		return nil, fmt.Errorf("error building object query: %w", err)
	}

	it := g.client.Bucket(bucketName).Objects(ctx, query)

	var candidates []storage.Candidate
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating objects: %w", err)
		}

		c := storage.Candidate{Key: attrs.Name}
		if versions {
			c.VersionID = strconv.FormatInt(attrs.Generation, 10)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// Cloud Storage has no multi-object delete, so the batch is deleted object by object.
// An object that is already gone counts as deleted; other failures become per-object errors
func (g *GCPStorage) DeleteObjects(ctx context.Context, bucketName string, batch []storage.Candidate) (storage.DeleteResult, error) {
	var result storage.DeleteResult
	for _, c := range batch {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var generation int64
		if c.VersionID != "" {
			gen, err := strconv.ParseInt(c.VersionID, 10, 64)
			if err != nil {
				result.Errors = append(result.Errors, storage.DeleteError{Key: c.Key, VersionID: c.VersionID, Code: "InvalidGeneration", Message: err.Error()})
				continue
			}
			generation = gen
		}

		err := g.deleteObject(ctx, bucketName, c.Key, generation)
		switch {
		case err == nil, errors.Is(err, gcpstorage.ErrObjectNotExist):
			result.Deleted++
		default:
			result.Errors = append(result.Errors, storage.DeleteError{Key: c.Key, VersionID: c.VersionID, Code: errorCode(err), Message: err.Error()})
		}
	}
	return result, nil
}

func (g *GCPStorage) deleteWithClient(ctx context.Context, bucketName, key string, generation int64) error {
	obj := g.client.Bucket(bucketName).Object(key)
	if generation != 0 {
		obj = obj.Generation(generation)
	}
	return obj.Delete(ctx)
}

// Maps an API error to its HTTP status text, e.g. "Forbidden"
func errorCode(err error) string {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if text := http.StatusText(apiErr.Code); text != "" {
			return text
		}
		return strconv.Itoa(apiErr.Code)
	}
	return "Unknown"
}
