// Package connector defines the contract every data connector must satisfy,
// the guards shared by all implementations, and the registry of built-in
// connector factories.
//
// The contract is enforced twice. The Connector interface makes the Go
// compiler reject incomplete built-in implementations, and Verify performs the
// same check at runtime for implementations discovered from plugin files,
// whose capability set is only known once the file has been loaded.
package connector

import (
	"context"
	"log/slog"
)

// Config holds the database settings a connector is constructed from.
type Config struct {
	// Type is the backend name (e.g., "sqlite", "postgres").
	Type string `koanf:"type"`

	// Path is the file path for file-based databases. Use ":memory:" for an
	// in-memory database.
	Path string `koanf:"path"`

	// Host and Port address network databases.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// Name is the database name on network databases.
	Name string `koanf:"name"`

	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Options are appended to the backend DSN as query parameters.
	Options map[string]string `koanf:"options"`
}

// Result is the outcome of a statement executed through a connector.
type Result struct {
	// Rows holds the materialized rows of a query, keyed by column name.
	Rows []map[string]any

	// RowsAffected is reported for statements that do not return rows.
	RowsAffected int64

	// LastInsertID is reported when the backend supports it.
	LastInsertID int64
}

// Connector is the contract a backend implementation must satisfy to be used
// as a data connector.
type Connector interface {
	// Name returns the backend name the connector was constructed for.
	Name() string

	// ReadOnly reports whether mutating operations are rejected. It is fixed
	// at construction.
	ReadOnly() bool

	// Connect opens the underlying connection.
	Connect(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error

	// Create executes an INSERT statement.
	Create(ctx context.Context, statement string, args ...any) (*Result, error)

	// Read executes a SELECT statement.
	Read(ctx context.Context, statement string, args ...any) (*Result, error)

	// Update executes an UPDATE statement.
	Update(ctx context.Context, statement string, args ...any) (*Result, error)

	// Delete executes a DELETE statement.
	Delete(ctx context.Context, statement string, args ...any) (*Result, error)

	// Exec executes a raw statement without any statement-kind or
	// read-only checks. CRUD operations delegate to it after their guards pass.
	Exec(ctx context.Context, statement string, args ...any) (*Result, error)
}

// Factory constructs a connector. authorized grants write access; a nil
// logger means logs are discarded.
type Factory func(cfg Config, authorized bool, logger *slog.Logger) Connector

func discardIfNil(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
