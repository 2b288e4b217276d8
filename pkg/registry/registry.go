// Package registry resolves a connector name to a verified, constructed
// connector. Built-in connectors registered with pkg/connector are consulted
// first; connector plugins from the plugin catalog fill in the rest. Every
// candidate is checked against the connector contract before it is built.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/starkey/pkg/disk"
	"github.com/leapstack-labs/starkey/pkg/plugin"
	"github.com/leapstack-labs/starkey/pkg/connector"
	"github.com/leapstack-labs/starkey/pkg/connectors/script"
	"golang.org/x/text/cases"

	// Built-in connectors register themselves.
	_ "github.com/leapstack-labs/starkey/pkg/connectors/duckdb"
	_ "github.com/leapstack-labs/starkey/pkg/connectors/mysql"
	_ "github.com/leapstack-labs/starkey/pkg/connectors/postgres"
	_ "github.com/leapstack-labs/starkey/pkg/connectors/sqlite"
)

// Source says where a connector implementation comes from.
type Source string

// Connector sources.
const (
	SourceBuiltin Source = "builtin"
	SourcePlugin  Source = "plugin"
)

// Descriptor describes a connector implementation known to the registry.
type Descriptor struct {
	Name         string
	Source       Source
	Path         string // plugin file, empty for built-ins
	Capabilities []string
}

// Options configures a Registry.
type Options struct {
	// PluginPath is the plugin root. Connector plugins are read from
	// <PluginPath>/connectors. Empty disables plugins.
	PluginPath string

	// Disk reads plugin files. Defaults to the OS filesystem.
	Disk disk.FS

	// Database holds the settings every connector is constructed with.
	// Its Type is the default name for Resolve.
	Database connector.Config

	Logger *slog.Logger
}

// Registry resolves connectors by name.
type Registry struct {
	catalog *plugin.Catalog
	db      connector.Config
	logger  *slog.Logger
}

// New creates a registry. The plugin catalog is created but not scanned.
func New(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Registry{
		db:     opts.Database,
		logger: logger,
	}
	if opts.PluginPath != "" {
		catalogOpts := []plugin.Option{
			plugin.WithType(plugin.TypeConnectors, script.Predeclared()),
			plugin.WithLogger(logger),
		}
		if opts.Disk != nil {
			catalogOpts = append(catalogOpts, plugin.WithDisk(opts.Disk))
		}
		r.catalog = plugin.NewCatalog(opts.PluginPath, catalogOpts...)
	}
	return r
}

// Catalog returns the plugin catalog, or nil when plugins are disabled.
func (r *Registry) Catalog() *plugin.Catalog {
	return r.catalog
}

// Resolve returns an unconnected connector for name, or for the configured
// database type when name is empty. Built-ins win over plugins with the same
// name. The connector is read-only unless authorized.
func (r *Registry) Resolve(ctx context.Context, name string, authorized bool) (connector.Connector, error) {
	if name == "" {
		name = r.db.Type
	}
	if name == "" {
		return nil, fmt.Errorf("connector type not specified")
	}

	if factory, ok := connector.Get(name); ok {
		cfg := r.db
		cfg.Type = name
		c := factory(cfg, authorized, r.logger)
		if err := connector.Verify(name, connector.CapabilitiesOf(c)); err != nil {
			return nil, err
		}
		r.logger.Debug("resolved connector", "name", name, "source", string(SourceBuiltin), "authorized", authorized)
		return c, nil
	}

	plugins, err := r.plugins(ctx)
	if err != nil {
		return nil, err
	}
	if d, ok := plugins[foldName(name)]; ok {
		if err := connector.Verify(d.Name, d.Capabilities); err != nil {
			return nil, err
		}
		c, err := script.New(d.Name, d.Globals, r.db, authorized, r.logger)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("resolved connector", "name", d.Name, "source", string(SourcePlugin), "path", d.Path, "authorized", authorized)
		return c, nil
	}

	descriptors, err := r.Descriptors(ctx)
	if err != nil {
		return nil, err
	}
	available := make([]string, len(descriptors))
	for i, d := range descriptors {
		available[i] = d.Name
	}
	return nil, &connector.UnknownConnectorError{Name: name, Available: available}
}

// Descriptors lists every connector implementation, sorted by name. Plugins
// shadowed by a built-in of the same name are left out.
func (r *Registry) Descriptors(ctx context.Context) ([]Descriptor, error) {
	var out []Descriptor
	for _, name := range connector.List() {
		factory, _ := connector.Get(name)
		c := factory(connector.Config{Type: name}, false, nil)
		out = append(out, Descriptor{
			Name:         name,
			Source:       SourceBuiltin,
			Capabilities: connector.CapabilitiesOf(c),
		})
	}

	plugins, err := r.plugins(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range plugins {
		out = append(out, Descriptor{
			Name:         d.Name,
			Source:       SourcePlugin,
			Path:         d.Path,
			Capabilities: d.Capabilities,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Reload rescans the connector plugins.
func (r *Registry) Reload(ctx context.Context) error {
	if r.catalog == nil {
		return nil
	}
	_, err := r.catalog.GetByType(ctx, plugin.TypeConnectors, true)
	return err
}

// plugins returns the connector plugins not shadowed by a built-in, keyed by
// folded name.
func (r *Registry) plugins(ctx context.Context) (map[string]*plugin.Descriptor, error) {
	out := make(map[string]*plugin.Descriptor)
	if r.catalog == nil {
		return out, nil
	}

	found, err := r.catalog.GetByType(ctx, plugin.TypeConnectors, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load connector plugins: %w", err)
	}
	for _, d := range found {
		if connector.IsRegistered(d.Name) {
			r.logger.Debug("plugin shadowed by built-in connector", "name", d.Name, "path", d.Path)
			continue
		}
		out[foldName(d.Name)] = d
	}
	return out, nil
}

func foldName(name string) string {
	return cases.Fold().String(name)
}
