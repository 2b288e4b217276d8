// Package starkey wires the configuration, logging, security, connector
// registry and data access packages into one handle for a host
// application.
//
//	app, err := starkey.Open(ctx, starkey.Options{User: &user})
//	if err != nil {
//		return err
//	}
//	defer app.Close()
//	res, err := app.DAO.Run(ctx, "list_users")
package starkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/starkey/pkg/config"
	"github.com/leapstack-labs/starkey/pkg/dao"
	"github.com/leapstack-labs/starkey/pkg/disk"
	"github.com/leapstack-labs/starkey/pkg/logging"
	"github.com/leapstack-labs/starkey/pkg/registry"
	"github.com/leapstack-labs/starkey/pkg/security"
)

// Options configures Open.
type Options struct {
	// Config selects the configuration layers. Its Disk, when set, is also
	// used for log files, plugins and named queries.
	Config config.LoadOptions

	// User is the caller. Connectors are read-only unless User is set and
	// authorized.
	User *security.SecureUser

	// Strategy overrides security.user.strategy.
	Strategy string

	// Logging is passed to logging.New after the disk option.
	Logging []logging.Option
}

// App is an opened host handle.
type App struct {
	Config   *config.Store
	Settings *config.Settings
	Logger   *logging.Logger
	Strategy security.Strategy
	Registry *registry.Registry
	DAO      *dao.DAO

	authorized bool
}

// Open loads the configuration, opens the log channels, selects the
// security strategy and opens the configured database connector.
func Open(ctx context.Context, opts Options) (*App, error) {
	store, err := config.Load(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	settings, err := store.Settings()
	if err != nil {
		return nil, err
	}

	var d disk.FS = disk.OS()
	if opts.Config.Disk != nil {
		d = opts.Config.Disk
	}

	logOpts := append([]logging.Option{logging.WithDisk(d)}, opts.Logging...)
	logger, err := logging.New(settings.Logs, logOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open logs: %w", err)
	}

	strategy, err := security.Select(opts.Strategy, settings.Security.User.Strategy)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	authorized := opts.User != nil && opts.User.Authorized()

	reg := registry.New(registry.Options{
		PluginPath: settings.PluginPath,
		Disk:       d,
		Database:   settings.Database.Config,
		Logger:     logger.Logger,
	})

	data, err := dao.Open(ctx, settings, reg, authorized, logger.Logger, dao.WithDisk(d))
	if err != nil {
		logger.Error("failed to open data access", "error", err)
		_ = logger.Close()
		return nil, err
	}

	logger.Info("starkey ready",
		"config", store.Sources(),
		"strategy", string(strategy),
		"authorized", authorized,
	)

	return &App{
		Config:     store,
		Settings:   settings,
		Logger:     logger,
		Strategy:   strategy,
		Registry:   reg,
		DAO:        data,
		authorized: authorized,
	}, nil
}

// Authorized reports whether the app was opened for an authorized user.
func (a *App) Authorized() bool {
	return a.authorized
}

// Close closes the database connector and the log channels.
func (a *App) Close() error {
	return errors.Join(a.DAO.Close(), a.Logger.Close())
}
