// Package duckdb provides the DuckDB connector.
package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/starkey/pkg/connector"
	"github.com/leapstack-labs/starkey/pkg/connector/sqlconn"
	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Name is the registered backend name.
const Name = "duckdb"

func init() {
	connector.Register(Name, func(cfg connector.Config, authorized bool, logger *slog.Logger) connector.Connector {
		return New(cfg, authorized, logger)
	})
}

// New creates an unconnected DuckDB connector. DuckDB has no goose dialect,
// so Migrate is unsupported.
func New(cfg connector.Config, authorized bool, logger *slog.Logger) *sqlconn.Connector {
	if cfg.Type == "" {
		cfg.Type = Name
	}
	return sqlconn.New(cfg, authorized, logger, sqlconn.Options{
		Driver: "duckdb",
		DSN:    DSN,
	})
}

// DSN builds the go-duckdb data source name. An empty path or ":memory:"
// opens an in-memory database. Read-only connectors always ask for
// access_mode=READ_ONLY; DuckDB refuses that for in-memory databases, so an
// unauthorized in-memory connector fails to connect instead of opening
// writable.
func DSN(cfg connector.Config, readOnly bool) string {
	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}

	opts := make(map[string]string, len(cfg.Options)+1)
	for k, v := range cfg.Options {
		opts[k] = v
	}
	if readOnly {
		opts["access_mode"] = "READ_ONLY"
	}
	return sqlconn.AppendOptions(path, opts)
}
