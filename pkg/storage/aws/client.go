// File: pkg/storage/aws/client.go
package aws

import (
	"context"
	"errors"
	"log/slog"

	"opskit/internal/config"
	"opskit/internal/provider/registry"
	"opskit/pkg/awsutil"
	"opskit/pkg/common"
	"opskit/pkg/storage"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func init() {
	registry.RegisterProvider(common.AWS.Key(), registry.ProviderRegistration{
		ConfigCheck: isConfigured,
		Initializer: initialize,
	})
}

// S3 calls are pinned to the bucket's region, so one must be configured
func isConfigured(cfg *config.Config) error {
	if cfg.AWS == nil || cfg.AWS.Region == "" {
		return errors.New("aws.region is not set")
	}
	return nil
}

// Initializes the S3 and CloudWatch clients from the configuration
func initialize(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if err := isConfigured(cfg); err != nil {
		return nil, err
	}

	loader, err := awsutil.NewLoader(ctx, awsutil.Options{
		Profile:     cfg.AWS.Profile,
		Region:      cfg.AWS.Region,
		Endpoint:    cfg.AWS.Endpoint,
		MaxAttempts: cfg.AWS.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	awsCfg := loader.Config()
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Local S3 emulators only understand path-style addressing
		o.UsePathStyle = cfg.AWS.Endpoint != ""
	})
	return NewAWSStorage(s3Client, cloudwatch.NewFromConfig(awsCfg), cfg.AWS.Region, logger), nil
}

// S3API is the subset of *s3.Client used by the provider
type S3API interface {
	ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// MetricsAPI is the subset of *cloudwatch.Client used for bucket usage
type MetricsAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

type AWSStorage struct {
	client  S3API
	metrics MetricsAPI
	region  string
	logger  *slog.Logger
}

var _ storage.Storage = (*AWSStorage)(nil)

func NewAWSStorage(client S3API, metrics MetricsAPI, region string, logger *slog.Logger) *AWSStorage {
	return &AWSStorage{
		client:  client,
		metrics: metrics,
		region:  region,
		logger:  logger,
	}
}

func (s *AWSStorage) ProviderName() common.Provider {
	return common.AWS
}

// The SDK clients hold no resources that need releasing
func (s *AWSStorage) Close() error {
	return nil
}
