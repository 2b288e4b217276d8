// Package dao opens the configured database connector and serves the named
// queries that go with it.
package dao

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/starkey/pkg/config"
	"github.com/leapstack-labs/starkey/pkg/disk"
	"github.com/leapstack-labs/starkey/pkg/registry"
	"github.com/leapstack-labs/starkey/pkg/connector"
	"github.com/leapstack-labs/starkey/pkg/query"
)

// Migrator is implemented by connectors that can apply schema migrations.
type Migrator interface {
	Migrate(ctx context.Context, dir string) error
}

// DAO is a connected connector plus the named queries loaded for it.
type DAO struct {
	conn     connector.Connector
	queries  map[string]query.Query
	registry *registry.Registry
	logger   *slog.Logger
}

// Option configures Open.
type Option func(*options)

type options struct {
	disk disk.FS
}

// WithDisk sets the filesystem named queries are read from.
func WithDisk(d disk.FS) Option {
	return func(o *options) { o.disk = d }
}

// Open resolves database.type through reg, connects, applies
// database.migrationsPath when authorized, and loads the named queries in
// database.queryPaths. A nil reg is built from settings.
func Open(ctx context.Context, settings *config.Settings, reg *registry.Registry, authorized bool, logger *slog.Logger, opts ...Option) (*DAO, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	o := options{disk: disk.OS()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := settings.Database.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	if reg == nil {
		reg = registry.New(registry.Options{
			PluginPath: settings.PluginPath,
			Disk:       o.disk,
			Database:   settings.Database.Config,
			Logger:     logger,
		})
	}

	conn, err := reg.Resolve(ctx, settings.Database.Type, authorized)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", conn.Name(), err)
	}

	d := &DAO{
		conn:     conn,
		registry: reg,
		logger:   logger.With("connector", conn.Name()),
	}

	if dir := settings.Database.MigrationsPath; dir != "" && authorized {
		if err := d.migrate(ctx, dir); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	d.queries, err = loadQueries(o.disk, settings.Database.QueryPaths, d.logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	d.logger.Info("data access ready", "read_only", conn.ReadOnly(), "queries", len(d.queries))
	return d, nil
}

func (d *DAO) migrate(ctx context.Context, dir string) error {
	m, ok := d.conn.(Migrator)
	if !ok {
		d.logger.Warn("connector does not support migrations, skipping", "dir", dir)
		return nil
	}
	if err := m.Migrate(ctx, dir); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", d.conn.Name(), err)
	}
	return nil
}

func loadQueries(fsys disk.FS, dirs []string, logger *slog.Logger) (map[string]query.Query, error) {
	out := make(map[string]query.Query)
	for _, dir := range dirs {
		found, err := query.LoadDir(fsys.Sub(dir), ".")
		if err != nil {
			return nil, fmt.Errorf("failed to load queries from %s: %w", dir, err)
		}
		for name, q := range found {
			if _, dup := out[name]; dup {
				logger.Warn("named query redefined", "query", name, "dir", dir)
			}
			out[name] = q
		}
	}
	return out, nil
}

// Connector returns the connected connector.
func (d *DAO) Connector() connector.Connector {
	return d.conn
}

// Query returns the named query.
func (d *DAO) Query(name string) (query.Query, bool) {
	q, ok := d.queries[name]
	return q, ok
}

// Queries returns the names of the loaded queries, sorted.
func (d *DAO) Queries() []string {
	names := make([]string, 0, len(d.queries))
	for name := range d.queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named query with args through the operation matching
// its statement kind.
func (d *DAO) Run(ctx context.Context, name string, args ...any) (*connector.Result, error) {
	q, ok := d.queries[name]
	if !ok {
		return nil, fmt.Errorf("unknown query %q", name)
	}
	return query.Do(ctx, d.conn, q, args...)
}

// PluginConnectors lists the connector plugins available besides the
// built-ins.
func (d *DAO) PluginConnectors(ctx context.Context) ([]registry.Descriptor, error) {
	all, err := d.registry.Descriptors(ctx)
	if err != nil {
		return nil, err
	}
	var out []registry.Descriptor
	for _, desc := range all {
		if desc.Source == registry.SourcePlugin {
			out = append(out, desc)
		}
	}
	return out, nil
}

// Close closes the connector.
func (d *DAO) Close() error {
	return d.conn.Close()
}
