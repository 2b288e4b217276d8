package connector

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/text/cases"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]registration)
)

// registryKey folds name for case-insensitive lookup. A Caser is stateful,
// so each call gets its own.
func registryKey(name string) string {
	return cases.Fold().String(name)
}

type registration struct {
	name    string
	factory Factory
}

// Register adds a connector factory to the registry. Names are matched
// case-insensitively, so "SQLite" and "sqlite" refer to the same entry.
// Called by connector implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[registryKey(name)] = registration{name: name, factory: factory}
}

// Get retrieves a connector factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[registryKey(name)]
	return r.factory, ok
}

// New creates a connector for cfg.Type. It does not connect.
func New(cfg Config, authorized bool, logger *slog.Logger) (Connector, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("connector type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownConnectorError{Name: cfg.Type, Available: List()}
	}
	return factory(cfg, authorized, logger), nil
}

// List returns all registered connector names as registered (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for _, r := range registry {
		names = append(names, r.name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a connector name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[registryKey(name)]
	return ok
}
