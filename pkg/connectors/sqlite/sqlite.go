// Package sqlite provides the SQLite connector, backed by the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/starkey/pkg/connector"
	"github.com/leapstack-labs/starkey/pkg/connector/sqlconn"
	_ "modernc.org/sqlite" // sqlite driver
)

// Name is the registered backend name.
const Name = "sqlite"

func init() {
	connector.Register(Name, func(cfg connector.Config, authorized bool, logger *slog.Logger) connector.Connector {
		return New(cfg, authorized, logger)
	})
}

// Connector is the SQLite connector.
type Connector struct {
	*sqlconn.Connector
}

// New creates an unconnected SQLite connector. Unauthorized connectors open
// the engine read-only, in-memory databases included.
func New(cfg connector.Config, authorized bool, logger *slog.Logger) *Connector {
	if cfg.Type == "" {
		cfg.Type = Name
	}
	opts := sqlconn.Options{
		Driver:  "sqlite",
		DSN:     DSN,
		Dialect: "sqlite3",
	}
	if IsMemory(cfg.Path) {
		opts.MaxOpenConns = 1
	}
	return &Connector{Connector: sqlconn.New(cfg, authorized, logger, opts)}
}

// DSN builds the modernc.org/sqlite data source name. Read-only databases
// set query_only on every connection; files are also opened with mode=ro.
func DSN(cfg connector.Config, readOnly bool) string {
	path := cfg.Path
	if IsMemory(path) {
		dsn := sqlconn.AppendOptions(":memory:", cfg.Options)
		if readOnly {
			dsn = sqlconn.AppendOption(dsn, "_pragma", "query_only(1)")
		}
		return dsn
	}

	opts := make(map[string]string, len(cfg.Options)+1)
	for k, v := range cfg.Options {
		opts[k] = v
	}
	if readOnly {
		opts["mode"] = "ro"
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	dsn := sqlconn.AppendOptions(path, opts)
	if readOnly {
		dsn = sqlconn.AppendOption(dsn, "_pragma", "query_only(1)")
	}
	return dsn
}

// Insert is an alias for Create.
func (c *Connector) Insert(ctx context.Context, statement string, args ...any) (*connector.Result, error) {
	return c.Create(ctx, statement, args...)
}

// Select is an alias for Read.
func (c *Connector) Select(ctx context.Context, statement string, args ...any) (*connector.Result, error) {
	return c.Read(ctx, statement, args...)
}

// Get is an alias for Read.
func (c *Connector) Get(ctx context.Context, statement string, args ...any) (*connector.Result, error) {
	return c.Read(ctx, statement, args...)
}

// Run is an alias for Exec.
func (c *Connector) Run(ctx context.Context, statement string, args ...any) (*connector.Result, error) {
	return c.Exec(ctx, statement, args...)
}

// IsMemory reports whether path selects an in-memory database.
func IsMemory(path string) bool {
	return path == "" || path == ":memory:"
}
