// File: internal/service/purge_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"opskit/internal/provider/factory"
	"opskit/pkg/purge"
	"opskit/pkg/storage"
)

type PurgeService struct {
	providerFactory *factory.Factory
	logger          *slog.Logger
}

func NewPurgeService(providerFactory *factory.Factory, logger *slog.Logger) *PurgeService {
	return &PurgeService{
		providerFactory: providerFactory,
		logger:          logger.With("service", "PurgeService"),
	}
}

type PurgeRequest struct {
	Provider string
	Bucket   string
	Prefixes []string
	Policy   purge.Policy
	DryRun   bool
	// Called after each prefix of a real run
	Progress func(purge.PrefixReport)
	// Called with the bucket size in bytes (-1 when unknown) before anything is listed.
	// Returning false cancels the purge
	Confirm  func(usageBytes int64) (bool, error)
}

type PurgeOutcome struct {
	// Bucket size before the run in bytes, -1 when unknown
	UsageBytes int64
	Cancelled  bool
	Plan       []purge.PlanEntry
	Report     purge.RunReport
}

func (s *PurgeService) usage(ctx context.Context, client storage.Storage, bucketName string) int64 {
	usage, err := client.BucketUsage(ctx, bucketName)
	switch {
	case errors.Is(err, storage.ErrMetricsNotFound):
		s.logger.Debug("No usage metrics for bucket", "bucket", bucketName)
		return -1
	case err != nil:
		s.logger.Warn("Failed to fetch bucket usage", "bucket", bucketName, "error", err)
		return -1
	}
	return usage
}

// Runs (or, with DryRun, plans) a purge of every prefix in the request.
// The provider is initialized once and serves the usage lookup, the confirmation and the run
func (s *PurgeService) Purge(ctx context.Context, req PurgeRequest) (PurgeOutcome, error) {
	s.logger.Debug("Starting Purge operation", "provider", req.Provider, "bucket", req.Bucket, "prefixes", len(req.Prefixes), "dry_run", req.DryRun)
	outcome := PurgeOutcome{UsageBytes: -1}

	if req.Bucket == "" {
		return outcome, errors.New("bucket name is required")
	}

	client, err := s.getStorageClient(ctx, req.Provider)
	if err != nil {
		return outcome, err
	}
	defer client.Close()

	outcome.UsageBytes = s.usage(ctx, client, req.Bucket)

	if req.Confirm != nil {
		confirmed, err := req.Confirm(outcome.UsageBytes)
		if err != nil {
			return outcome, err
		}
		if !confirmed {
			s.logger.Info("Purge cancelled", "bucket", req.Bucket)
			outcome.Cancelled = true
			return outcome, nil
		}
	}

	var opts []purge.Option
	if req.Progress != nil {
		opts = append(opts, purge.WithProgress(req.Progress))
	}
	purger := purge.New(client, req.Bucket, req.Policy, s.logger.With("provider", req.Provider), opts...)

	if req.DryRun {
		outcome.Plan, err = purger.Plan(ctx, req.Prefixes)
		if err != nil {
			s.logger.Error("Failed to plan purge", "bucket", req.Bucket, "error", err)
		}
		return outcome, err
	}

	outcome.Report, err = purger.Run(ctx, req.Prefixes)
	if err != nil {
		s.logger.Debug("Purge finished with errors", "bucket", req.Bucket, "incomplete", len(outcome.Report.Incomplete()))
	}
	return outcome, err
}

// Helper to initialize the storage client and handle common error logging
func (s *PurgeService) getStorageClient(ctx context.Context, providerName string) (storage.Storage, error) {
	client, err := s.providerFactory.GetStorageProvider(ctx, providerName)
	if err != nil {
		s.logger.Error("Failed to initialize provider", "provider", providerName, "error", err)
		return nil, fmt.Errorf("error initializing provider: %w", err)
	}
	return client, nil
}
