// Package plugin discovers Starlark plugin files and catalogs them by type.
//
// Plugins live at <root>/<type>/<name>.star. Each file is executed once per
// scan; its exported globals (names not starting with _) become the plugin's
// globals, and its exported callables become its capabilities. Scans are
// cached per type until a forced reload, an explicit Invalidate, or a change
// seen by Watch.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/starkey/pkg/disk"
	"go.starlark.net/starlark"
	"golang.org/x/sync/singleflight"
)

// TypeConnectors is the type tag of connector plugins.
const TypeConnectors = "connectors"

// Descriptor describes a loaded plugin file.
type Descriptor struct {
	// Name is derived from the filename (e.g., "audit" from "audit.star").
	Name string

	// Type is the type tag the plugin was found under.
	Type string

	// Path is the plugin file path.
	Path string

	// Capabilities are the exported callable names, sorted.
	Capabilities []string

	// Globals holds the frozen exported values.
	Globals starlark.StringDict
}

// Callable returns the exported callable named name.
func (d *Descriptor) Callable(name string) (starlark.Callable, bool) {
	fn, ok := d.Globals[name].(starlark.Callable)
	return fn, ok
}

// Catalog loads and caches plugin descriptors by type.
type Catalog struct {
	root   string
	disk   disk.FS
	logger *slog.Logger

	// types maps each recognized type tag to the names predeclared when its
	// plugin files execute.
	types map[string]starlark.StringDict

	mu    sync.RWMutex
	cache map[string]map[string]*Descriptor
	group singleflight.Group

	// gen counts invalidations per type. A scan only fills the cache if no
	// invalidation happened while it ran.
	gen map[string]uint64
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithType recognizes an additional type tag, or replaces the predeclared
// names of an existing one.
func WithType(tag string, predeclared starlark.StringDict) Option {
	return func(c *Catalog) {
		c.types[tag] = predeclared
	}
}

// WithDisk sets the filesystem plugins are read from.
func WithDisk(d disk.FS) Option {
	return func(c *Catalog) {
		c.disk = d
	}
}

// WithLogger sets the catalog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCatalog creates a catalog rooted at root. The connectors type is always
// recognized.
func NewCatalog(root string, opts ...Option) *Catalog {
	c := &Catalog{
		root:   root,
		disk:   disk.OS(),
		logger: slog.New(slog.DiscardHandler),
		types:  map[string]starlark.StringDict{TypeConnectors: nil},
		cache:  make(map[string]map[string]*Descriptor),
		gen:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the plugin root directory.
func (c *Catalog) Root() string {
	return c.root
}

// Types returns the recognized type tags, sorted.
func (c *Catalog) Types() []string {
	tags := make([]string, 0, len(c.types))
	for tag := range c.types {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// GetByType returns the plugins of the given type keyed by name. The first
// call for a type, and every call with forceReload, scans the type
// directory; concurrent scans of the same type share one result, but a
// forced reload never joins a scan that started before it. A missing
// directory yields an empty map.
func (c *Catalog) GetByType(ctx context.Context, tag string, forceReload bool) (map[string]*Descriptor, error) {
	predeclared, ok := c.types[tag]
	if !ok {
		return nil, &UnknownPluginTypeError{Type: tag, Known: c.Types()}
	}

	if forceReload {
		c.Invalidate(tag)
	} else {
		c.mu.RLock()
		cached, hit := c.cache[tag]
		c.mu.RUnlock()
		if hit {
			return copyDescriptors(cached), nil
		}
	}

	v, err, _ := c.group.Do(tag, func() (interface{}, error) {
		c.mu.RLock()
		gen := c.gen[tag]
		c.mu.RUnlock()

		found, err := c.scan(ctx, tag, predeclared)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen[tag] == gen {
			c.cache[tag] = found
		}
		c.mu.Unlock()
		return found, nil
	})
	if err != nil {
		return nil, err
	}
	return copyDescriptors(v.(map[string]*Descriptor)), nil
}

// Invalidate drops cached descriptors for the given types, or for every
// type when none are given. Scans already running for those types are not
// joined by later calls and do not fill the cache.
func (c *Catalog) Invalidate(tags ...string) {
	if len(tags) == 0 {
		tags = c.Types()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		c.group.Forget(tag)
		c.gen[tag]++
		delete(c.cache, tag)
	}
}

func (c *Catalog) scan(ctx context.Context, tag string, predeclared starlark.StringDict) (map[string]*Descriptor, error) {
	dir := filepath.Join(c.root, tag)
	found := make(map[string]*Descriptor)

	exists, err := c.disk.Exists(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access plugin directory: %w", err)
	}
	if !exists {
		// No plugin directory is fine - return empty map
		return found, nil
	}

	entries, err := c.disk.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan plugin directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".star") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d, err := c.loadFile(filepath.Join(dir, entry.Name()), tag, predeclared)
		if err != nil {
			return nil, err
		}
		found[d.Name] = d
	}

	c.logger.Debug("plugins loaded", "type", tag, "count", len(found))
	return found, nil
}

// loadFile loads a single .star file and extracts its exports.
func (c *Catalog) loadFile(file, tag string, predeclared starlark.StringDict) (*Descriptor, error) {
	content, err := c.disk.ReadFile(file)
	if err != nil {
		return nil, &LoadError{
			File:    file,
			Message: fmt.Sprintf("failed to read file: %v", err),
		}
	}

	name := strings.TrimSuffix(filepath.Base(file), ".star")
	if err := validateName(name); err != nil {
		return nil, &LoadError{File: file, Message: err.Error()}
	}

	thread := &starlark.Thread{
		Name: fmt.Sprintf("load:%s/%s", tag, name),
		Print: func(_ *starlark.Thread, msg string) {
			c.logger.Debug("plugin output", "plugin", name, "msg", msg)
		},
	}

	globals, err := starlark.ExecFile(thread, file, content, predeclared) //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
	if err != nil {
		return nil, &LoadError{
			File:    file,
			Message: fmt.Sprintf("Starlark execution error: %v", err),
		}
	}

	exports := make(starlark.StringDict)
	var capabilities []string
	for key, value := range globals {
		if strings.HasPrefix(key, "_") {
			continue
		}
		exports[key] = value
		if _, ok := value.(starlark.Callable); ok {
			capabilities = append(capabilities, strings.ToLower(key))
		}
	}
	sort.Strings(capabilities)

	return &Descriptor{
		Name:         name,
		Type:         tag,
		Path:         file,
		Capabilities: capabilities,
		Globals:      exports,
	}, nil
}

func copyDescriptors(in map[string]*Descriptor) map[string]*Descriptor {
	out := make(map[string]*Descriptor, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// validateName checks that a plugin name is a valid identifier.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("plugin name cannot be empty")
	}

	for i, r := range name {
		if i == 0 {
			if !isLetter(r) && r != '_' {
				return fmt.Errorf("plugin name must start with letter or underscore: %s", name)
			}
		} else if !isLetter(r) && !isDigit(r) && r != '_' {
			return fmt.Errorf("plugin name contains invalid character: %s", name)
		}
	}

	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
