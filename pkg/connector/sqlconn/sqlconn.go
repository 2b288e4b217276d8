// Package sqlconn implements the connector contract over database/sql.
// Concrete backends wrap it with their driver name and DSN construction.
package sqlconn

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/starkey/pkg/connector"
	"github.com/pressly/goose/v3"
)

// Options describe how a backend opens its database/sql handle.
type Options struct {
	// Driver is the database/sql driver name.
	Driver string

	// DSN builds the data source name from the connector config. readOnly is
	// set for unauthorized connectors so backends can open the engine
	// read-only where supported.
	DSN func(cfg connector.Config, readOnly bool) string

	// Dialect is the goose dialect used by Migrate. Empty disables migrations.
	Dialect string

	// MaxOpenConns caps the pool when positive. In-memory SQLite needs 1 so
	// every statement sees the same database.
	MaxOpenConns int
}

// Connector is a connector backed by a *sql.DB.
type Connector struct {
	connector.Base

	DB  *sql.DB
	Cfg connector.Config

	opts Options
}

var _ connector.Connector = (*Connector)(nil)

// New creates an unconnected SQL connector.
func New(cfg connector.Config, authorized bool, logger *slog.Logger, opts Options) *Connector {
	return &Connector{
		Base: connector.NewBase(cfg.Type, authorized, logger),
		Cfg:  cfg,
		opts: opts,
	}
}

// Connect opens the database handle and verifies it with a ping.
func (c *Connector) Connect(ctx context.Context) error {
	if c.opts.DSN == nil || c.opts.Driver == "" {
		return &connector.NotImplementedError{Backend: c.Name(), Operation: connector.OpConnect}
	}

	db, err := sql.Open(c.opts.Driver, c.opts.DSN(c.Cfg, c.ReadOnly()))
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", c.Name(), err)
	}
	if c.opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.opts.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", c.Name(), err)
	}

	c.DB = db
	c.Logger.Info("database connection established", "read_only", c.ReadOnly())
	return nil
}

// Close closes the database connection.
func (c *Connector) Close() error {
	if c.DB != nil {
		c.Logger.Debug("closing database connection")
		err := c.DB.Close()
		c.DB = nil
		return err
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (c *Connector) IsConnected() bool {
	return c.DB != nil
}

// Read executes a SELECT statement.
func (c *Connector) Read(ctx context.Context, statement string, args ...any) (*connector.Result, error) {
	if err := c.Guard(connector.OpRead, statement); err != nil {
		return nil, err
	}
	return c.Exec(ctx, statement, args...)
}

// Create executes an INSERT statement.
func (c *Connector) Create(ctx context.Context, statement string, args ...any) (*connector.Result, error) {
	if err := c.Guard(connector.OpCreate, statement); err != nil {
		return nil, err
	}
	return c.Exec(ctx, statement, args...)
}

// Update executes an UPDATE statement.
func (c *Connector) Update(ctx context.Context, statement string, args ...any) (*connector.Result, error) {
	if err := c.Guard(connector.OpUpdate, statement); err != nil {
		return nil, err
	}
	return c.Exec(ctx, statement, args...)
}

// Delete executes a DELETE statement.
func (c *Connector) Delete(ctx context.Context, statement string, args ...any) (*connector.Result, error) {
	if err := c.Guard(connector.OpDelete, statement); err != nil {
		return nil, err
	}
	return c.Exec(ctx, statement, args...)
}

// Exec executes a statement as a prepared statement. Statements that return
// rows are queried and their rows materialized; everything else is executed
// and reports rows affected. Read-only connectors only run single reading
// statements.
func (c *Connector) Exec(ctx context.Context, statement string, args ...any) (*connector.Result, error) {
	if c.ReadOnly() && !connector.IsReadStatement(statement) {
		c.Logger.Warn("rejected non-reading statement on read-only connector", "operation", string(connector.OpExec))
		return nil, &connector.ReadOnlyError{Backend: c.Name(), Operation: connector.OpExec}
	}
	if c.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	if ReturnsRows(statement) {
		return c.query(ctx, statement, args)
	}

	res, err := c.DB.ExecContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute SQL: %w", err)
	}

	out := &connector.Result{}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	// Not every driver reports insert ids (pgx does not).
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out, nil
}

func (c *Connector) query(ctx context.Context, statement string, args []any) (*connector.Result, error) {
	rows, err := c.DB.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	out := &connector.Result{Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out.Rows = append(out.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// ReturnsRows reports whether a statement produces a result set. Leading
// comments are skipped.
func ReturnsRows(statement string) bool {
	switch connector.LeadingKeyword(statement) {
	case "select", "with", "pragma", "show", "explain", "values", "describe":
		return true
	}
	return connector.HasKeyword(statement, "returning")
}

// goose keeps its dialect and filesystem in package state.
var migrateMu sync.Mutex

// Migrate applies the goose migrations found in dir. Read-only connectors
// cannot migrate.
func (c *Connector) Migrate(ctx context.Context, dir string) error {
	if c.ReadOnly() {
		return &connector.ReadOnlyError{Backend: c.Name(), Operation: "migrate"}
	}
	if c.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if c.opts.Dialect == "" {
		return fmt.Errorf("connector %q does not support migrations", c.Name())
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(c.opts.Dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, c.DB, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	c.Logger.Info("migrations applied", "dir", dir)
	return nil
}
