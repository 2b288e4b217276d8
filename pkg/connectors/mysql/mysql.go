// Package mysql provides the MySQL connector.
package mysql

import (
	"fmt"
	"log/slog"

	driver "github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/starkey/pkg/connector"
	"github.com/leapstack-labs/starkey/pkg/connector/sqlconn"
)

// Name is the registered backend name.
const Name = "mysql"

// DefaultPort is used when database.port is unset.
const DefaultPort = 3306

func init() {
	connector.Register(Name, func(cfg connector.Config, authorized bool, logger *slog.Logger) connector.Connector {
		return New(cfg, authorized, logger)
	})
}

// New creates an unconnected MySQL connector.
func New(cfg connector.Config, authorized bool, logger *slog.Logger) *sqlconn.Connector {
	if cfg.Type == "" {
		cfg.Type = Name
	}
	return sqlconn.New(cfg, authorized, logger, sqlconn.Options{
		Driver:  "mysql",
		DSN:     DSN,
		Dialect: "mysql",
	})
}

// DSN builds a go-sql-driver/mysql data source name. Unauthorized
// connectors set transaction_read_only for the session.
func DSN(cfg connector.Config, readOnly bool) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	c := driver.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", host, port)
	c.DBName = cfg.Name
	c.Params = make(map[string]string, len(cfg.Options)+1)
	for k, v := range cfg.Options {
		c.Params[k] = v
	}
	if readOnly {
		c.Params["transaction_read_only"] = "1"
	}
	return c.FormatDSN()
}
