// File: pkg/storage/gcp/client.go
package gcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"opskit/internal/config"
	"opskit/internal/provider/registry"
	"opskit/pkg/common"
	"opskit/pkg/storage"

	gcpstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

func init() {
	registry.RegisterProvider(common.GCP.Key(), registry.ProviderRegistration{
		ConfigCheck: isConfigured,
		Initializer: initialize,
	})
}

// Usage metrics are read from Cloud Monitoring in the project, so one must be configured
func isConfigured(cfg *config.Config) error {
	if cfg.GCP == nil || cfg.GCP.Project == "" {
		return errors.New("gcp.project is not set")
	}
	return nil
}

func initialize(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if err := isConfigured(cfg); err != nil {
		return nil, err
	}
	return NewGCPStorage(ctx, cfg.GCP.Project, logger, clientOptions(cfg.GCP)...)
}

// The same credentials serve the storage and monitoring clients
func clientOptions(cfg *config.GCPConfig) []option.ClientOption {
	if cfg.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
}

// Deletes one object, or one generation of it when generation is non-zero
type objectDeleter func(ctx context.Context, bucketName, key string, generation int64) error

type GCPStorage struct {
	client     *gcpstorage.Client
	projectID  string
	clientOpts []option.ClientOption
	logger     *slog.Logger

	deleteObject objectDeleter
}

var _ storage.Storage = (*GCPStorage)(nil)

func NewGCPStorage(ctx context.Context, projectID string, logger *slog.Logger, opts ...option.ClientOption) (*GCPStorage, error) {
	client, err := gcpstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP storage client: %w", err)
	}

	g := &GCPStorage{
		client:     client,
		projectID:  projectID,
		clientOpts: opts,
		logger:     logger,
	}
	g.deleteObject = g.deleteWithClient
	return g, nil
}

func (g *GCPStorage) ProviderName() common.Provider {
	return common.GCP
}

func (g *GCPStorage) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
