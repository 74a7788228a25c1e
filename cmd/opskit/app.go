// File: cmd/opskit/app.go
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"opskit/internal/config"
	"opskit/internal/provider/factory"
	"opskit/internal/service"
	"opskit/internal/ui/prompt"
	"opskit/pkg/awsutil"
	"opskit/pkg/formatter"

	"github.com/spf13/afero"
)

// appContainer holds all the shared dependencies for the application
// This includes configuration, services, formatters, and the logger
type appContainer struct {
	Config          *config.Config
	ConfigManager   *config.ConfigManager
	ProviderFactory *factory.Factory
	PurgeService    *service.PurgeService
	PurgeFormatter  *formatter.PurgeFormatter
	OpsFormatter    *formatter.OpsFormatter
	Prompter        prompt.Prompter
	Fs              afero.Fs
	Out             io.Writer
	Logger          *slog.Logger

	aws *awsClients
}

// Creates and initializes a new application container. Without loadConfig only the
// config manager is set up, so that a broken config file can still be repaired
func newApp(logger *slog.Logger, configPath string, in io.Reader, out io.Writer, loadConfig bool) (*appContainer, error) {
	fs := afero.NewOsFs()

	var cfgManager *config.ConfigManager
	var err error
	if configPath != "" {
		cfgManager, err = config.NewConfigManagerWithFs(fs, configPath)
	} else {
		cfgManager, err = config.NewConfigManager()
	}
	if err != nil {
		return nil, err
	}

	app := &appContainer{
		ConfigManager:  cfgManager,
		PurgeFormatter: formatter.NewPurgeFormatter(),
		OpsFormatter:   formatter.NewOpsFormatter(),
		Prompter:       prompt.NewStandardPrompter(in, out),
		Fs:             fs,
		Out:            out,
		Logger:         logger,
	}
	if !loadConfig {
		return app, nil
	}

	cfg, err := cfgManager.LoadConfig()
	if err != nil {
		return nil, err
	}
	app.Config = cfg
	app.ProviderFactory = factory.NewFactory(cfg, logger)
	app.PurgeService = service.NewPurgeService(app.ProviderFactory, logger)
	return app, nil
}

// Returns the AWS client factories, resolving credentials on first use
func (a *appContainer) AWS(ctx context.Context) (awsClients, error) {
	if a.aws != nil {
		return *a.aws, nil
	}
	clients, err := connectAWS(ctx, awsutil.Options{
		Profile:     a.Config.AWS.Profile,
		Region:      a.Config.AWS.Region,
		Endpoint:    a.Config.AWS.Endpoint,
		MaxAttempts: a.Config.AWS.MaxAttempts,
	})
	if err != nil {
		return awsClients{}, err
	}
	a.aws = &clients
	return clients, nil
}

// Returns the regions to scan: the flag value, else the configured list, else every enabled region
func (a *appContainer) Regions(ctx context.Context, override []string) ([]string, error) {
	configured := override
	if len(configured) == 0 {
		configured = a.Config.AWS.Regions
	}
	clients, err := a.AWS(ctx)
	if err != nil {
		return nil, err
	}
	return awsutil.ResolveRegions(ctx, clients.Regions(a.homeRegion()), configured)
}

// Returns the override when given, else the account of the calling identity
func (a *appContainer) AccountID(ctx context.Context, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	clients, err := a.AWS(ctx)
	if err != nil {
		return "", err
	}
	return awsutil.AccountID(ctx, clients.Identity(a.homeRegion()))
}

func (a *appContainer) homeRegion() string {
	if a.Config.AWS.Region != "" {
		return a.Config.AWS.Region
	}
	return awsutil.FallbackRegion
}

type appKey struct{}

func withApp(ctx context.Context, app *appContainer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, appKey{}, app)
}

func appFromContext(ctx context.Context) (*appContainer, error) {
	if ctx != nil {
		if app, ok := ctx.Value(appKey{}).(*appContainer); ok {
			return app, nil
		}
	}
	return nil, errors.New("application not initialized")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
