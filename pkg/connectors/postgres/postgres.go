// Package postgres provides the PostgreSQL connector, backed by the pgx
// database/sql driver.
package postgres

import (
	"fmt"
	"log/slog"
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/leapstack-labs/starkey/pkg/connector"
	"github.com/leapstack-labs/starkey/pkg/connector/sqlconn"
)

// Name is the registered backend name.
const Name = "postgres"

// DefaultPort is used when database.port is unset.
const DefaultPort = 5432

func init() {
	connector.Register(Name, func(cfg connector.Config, authorized bool, logger *slog.Logger) connector.Connector {
		return New(cfg, authorized, logger)
	})
}

// New creates an unconnected PostgreSQL connector.
func New(cfg connector.Config, authorized bool, logger *slog.Logger) *sqlconn.Connector {
	if cfg.Type == "" {
		cfg.Type = Name
	}
	return sqlconn.New(cfg, authorized, logger, sqlconn.Options{
		Driver:  "pgx",
		DSN:     DSN,
		Dialect: "postgres",
	})
}

// DSN builds a postgres:// URL. Unauthorized connectors ask the server to
// start every transaction read-only.
func DSN(cfg connector.Config, readOnly bool) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/" + cfg.Name,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}

	q := url.Values{}
	for k, v := range cfg.Options {
		q.Set(k, v)
	}
	if readOnly {
		q.Set("default_transaction_read_only", "on")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
