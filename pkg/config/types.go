package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/starkey/pkg/connector"
)

// Settings is the typed view of the configuration tree.
type Settings struct {
	AltConfigPaths []string       `koanf:"altConfigPaths"`
	PluginPath     string         `koanf:"pluginPath"`
	Logs           LogsConfig     `koanf:"logs"`
	Security       SecurityConfig `koanf:"security"`
	Database       DatabaseConfig `koanf:"database"`
}

// LogsConfig configures the log channels.
type LogsConfig struct {
	// Types maps a channel name (firehose, error, custom, or any other name
	// requested through Logger.Custom) to its sink.
	Types  map[string]LogType `koanf:"types"`
	Config LogOptions         `koanf:"config"`
}

// LogType is a single log channel sink.
type LogType struct {
	Path string `koanf:"path"`
}

// LogOptions controls console mirroring and firehose filtering.
type LogOptions struct {
	ToStdOut bool `koanf:"toStdOut"`
	ToStdErr bool `koanf:"toStdErr"`

	// FirehoseAll sends error records to the firehose channel as well as the
	// error channel.
	FirehoseAll bool `koanf:"firehoseAll"`
}

// SecurityConfig holds the security strategy selection.
type SecurityConfig struct {
	User struct {
		Strategy string `koanf:"strategy"`
	} `koanf:"user"`
}

// DatabaseConfig holds the connector settings plus the locations of named
// queries and migrations.
type DatabaseConfig struct {
	connector.Config `koanf:",squash"`

	QueryPaths     []string `koanf:"queryPaths"`
	MigrationsPath string   `koanf:"migrationsPath"`
}

// Validate checks that the database settings name a backend and carry the
// fields that backend needs.
func (d DatabaseConfig) Validate() error {
	if d.Type == "" {
		return fmt.Errorf("database type is required")
	}

	switch strings.ToLower(d.Type) {
	case "postgres", "mysql":
		if d.Host == "" {
			return fmt.Errorf("host is required for %s", d.Type)
		}
		if d.Name == "" {
			return fmt.Errorf("database name is required for %s", d.Type)
		}
	}
	return nil
}
