// File: pkg/storage/aws/metrics.go
package aws

import (
	"context"
	"fmt"
	"math"
	"time"

	"opskit/pkg/storage"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// S3 publishes BucketSizeBytes once a day, so look back far enough to catch at least one datapoint
const metricTimeWindow = 72 * time.Hour

// Returns the most recent daily BucketSizeBytes average for Standard storage
func (s *AWSStorage) BucketUsage(ctx context.Context, bucketName string) (int64, error) {
	s.logger.Debug("Fetching S3 bucket usage metric via CloudWatch", "bucket", bucketName)
	if s.metrics == nil {
		return -1, storage.ErrMetricsNotFound
	}

	endTime := time.Now()
	startTime := endTime.Add(-metricTimeWindow)

	out, err := s.metrics.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  sdkaws.String("AWS/S3"),
		MetricName: sdkaws.String("BucketSizeBytes"),
		Dimensions: []cwtypes.Dimension{
			{Name: sdkaws.String("BucketName"), Value: sdkaws.String(bucketName)},
			{Name: sdkaws.String("StorageType"), Value: sdkaws.String("StandardStorage")},
		},
		StartTime:  sdkaws.Time(startTime),
		EndTime:    sdkaws.Time(endTime),
		Period:     sdkaws.Int32(86400),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
	})
	if err != nil {
		return -1, fmt.Errorf("error getting metric data for bucket %s: %w", bucketName, err)
	}

	var latest *cwtypes.Datapoint
	for i := range out.Datapoints {
		dp := &out.Datapoints[i]
		if dp.Average == nil || dp.Timestamp == nil {
			continue
		}
		if latest == nil || dp.Timestamp.After(*latest.Timestamp) {
			latest = dp
		}
	}
	if latest == nil {
		return -1, storage.ErrMetricsNotFound
	}
	return int64(math.Round(*latest.Average)), nil
}
