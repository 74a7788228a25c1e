// File: internal/provider/factory/factory.go
package factory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"opskit/internal/config"
	"opskit/internal/provider/registry"
	"opskit/pkg/storage"
)

// Factory hands out storage clients for registered providers whose configuration is complete
type Factory struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// Returns the sorted names of providers that can be initialized with the current config
func (f *Factory) GetConfiguredProviders() []string {
	var configured []string
	for _, entry := range registry.Entries() {
		if entry.ConfigCheck(f.cfg) == nil {
			configured = append(configured, entry.Name)
		}
	}
	return configured
}

// Explains why the provider cannot be used, or returns nil when it can
func (f *Factory) CheckProvider(providerName string) error {
	entry, exists := registry.GetRegistration(providerName)
	if !exists {
		return fmt.Errorf("unsupported provider: %s. Supported providers are: %s", strings.TrimSpace(providerName), strings.Join(registry.GetSupportedProviders(), ", "))
	}
	if err := entry.ConfigCheck(f.cfg); err != nil {
		configured := "none"
		if names := f.GetConfiguredProviders(); len(names) > 0 {
			configured = strings.Join(names, ", ")
		}
		return fmt.Errorf("provider '%s' is not configured: %w. Configured providers: %s. Use 'opskit config set <key> <value>'", entry.Name, err, configured)
	}
	return nil
}

// Initializes and returns the storage client for the specified provider
func (f *Factory) GetStorageProvider(ctx context.Context, providerName string) (storage.Storage, error) {
	if err := f.CheckProvider(providerName); err != nil {
		return nil, err
	}
	entry, _ := registry.GetRegistration(providerName)

	client, err := entry.Initializer(ctx, f.cfg, f.logger.With("provider", entry.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider %s: %w", entry.Name, err)
	}
	f.logger.Debug("Initialized storage provider", "provider", entry.Name)
	return client, nil
}
