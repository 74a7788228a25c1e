// File: pkg/storage/aws/objects.go
package aws

import (
	"context"
	"fmt"

	"opskit/pkg/storage"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Lists every version and delete marker under the prefix, following KeyMarker/VersionIdMarker across pages
func (s *AWSStorage) ListObjectVersions(ctx context.Context, bucketName, prefix string) ([]storage.Candidate, error) {
	s.logger.Debug("Starting S3 ListObjectVersions operation", "bucket", bucketName, "prefix", prefix)

	input := &s3.ListObjectVersionsInput{
		Bucket: sdkaws.String(bucketName),
		Prefix: sdkaws.String(prefix),
	}

	var candidates []storage.Candidate
	pages := 0
	for {
		page, err := s.client.ListObjectVersions(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("error listing object versions: %w", err)
		}
		pages++

		for _, v := range page.Versions {
			candidates = append(candidates, storage.Candidate{Key: sdkaws.ToString(v.Key), VersionID: sdkaws.ToString(v.VersionId)})
		}
		for _, m := range page.DeleteMarkers {
			candidates = append(candidates, storage.Candidate{Key: sdkaws.ToString(m.Key), VersionID: sdkaws.ToString(m.VersionId)})
		}

		if !sdkaws.ToBool(page.IsTruncated) {
			break
		}
		if page.NextKeyMarker == nil {
			return nil, fmt.Errorf("error listing object versions: page %d is truncated but has no next key marker", pages)
		}
		if sdkaws.ToString(page.NextKeyMarker) == sdkaws.ToString(input.KeyMarker) &&
			sdkaws.ToString(page.NextVersionIdMarker) == sdkaws.ToString(input.VersionIdMarker) {
			return nil, fmt.Errorf("error listing object versions: page %d did not advance past key %q", pages, sdkaws.ToString(page.NextKeyMarker))
		}
		input.KeyMarker = page.NextKeyMarker
		input.VersionIdMarker = page.NextVersionIdMarker
	}

	s.logger.Debug("Listed object versions", "bucket", bucketName, "prefix", prefix, "count", len(candidates), "pages", pages)
	return candidates, nil
}

// Lists the current objects under the prefix
func (s *AWSStorage) ListObjects(ctx context.Context, bucketName, prefix string) ([]storage.Candidate, error) {
	s.logger.Debug("Starting S3 ListObjectsV2 operation", "bucket", bucketName, "prefix", prefix)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: sdkaws.String(bucketName),
		Prefix: sdkaws.String(prefix),
	})

	var candidates []storage.Candidate
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing objects: %w", err)
		}
		for _, obj := range page.Contents {
			candidates = append(candidates, storage.Candidate{Key: sdkaws.ToString(obj.Key)})
		}
	}
	return candidates, nil
}

// Issues a single DeleteObjects call. Per-object failures come back in the result, not as an error
func (s *AWSStorage) DeleteObjects(ctx context.Context, bucketName string, batch []storage.Candidate) (storage.DeleteResult, error) {
	if len(batch) == 0 {
		return storage.DeleteResult{}, nil
	}

	objects := make([]types.ObjectIdentifier, 0, len(batch))
	for _, c := range batch {
		id := types.ObjectIdentifier{Key: sdkaws.String(c.Key)}
		if c.VersionID != "" {
			id.VersionId = sdkaws.String(c.VersionID)
		}
		objects = append(objects, id)
	}

	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: sdkaws.String(bucketName),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   sdkaws.Bool(false),
		},
	})
	if err != nil {
		return storage.DeleteResult{}, fmt.Errorf("error deleting %d objects from bucket %s: %w", len(batch), bucketName, err)
	}

	result := storage.DeleteResult{Deleted: len(out.Deleted)}
	for _, e := range out.Errors {
		result.Errors = append(result.Errors, storage.DeleteError{
			Key:       sdkaws.ToString(e.Key),
			VersionID: sdkaws.ToString(e.VersionId),
			Code:      sdkaws.ToString(e.Code),
			Message:   sdkaws.ToString(e.Message),
		})
	}
	return result, nil
}
