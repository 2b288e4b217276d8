// Package script provides connectors implemented as Starlark plugins.
//
// A plugin file exports connect, create, read, update and delete. Each
// operation function receives (statement, values) and may call the
// predeclared exec(statement, values), which runs the statement through the
// plugin's engine: the built-in connector named by the plugin's "engine"
// global, or database.type when the plugin does not set one. exec returns
// {"rows": [...], "rows_affected": n, "last_insert_id": n}.
//
// Guards run in Go before a plugin function is called, so a plugin cannot
// lift the read-only gate. On a read-only connector exec itself refuses
// anything but a single reading statement.
package script

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/starkey/pkg/connector"
	"go.starlark.net/starlark"
)

const (
	connectorKey = "starkey.connector"
	contextKey   = "starkey.context"
)

// Predeclared returns the names available to connector plugins while they
// load and run.
func Predeclared() starlark.StringDict {
	return starlark.StringDict{
		"exec": starlark.NewBuiltin("exec", execBuiltin),
	}
}

// Connector runs connector operations through a plugin's functions.
type Connector struct {
	connector.Base

	globals starlark.StringDict
	engine  connector.Connector
}

var _ connector.Connector = (*Connector)(nil)

// New creates an unconnected script connector for the named plugin. cfg
// supplies the engine settings; the plugin's engine global, when set,
// replaces cfg.Type.
func New(name string, globals starlark.StringDict, cfg connector.Config, authorized bool, logger *slog.Logger) (*Connector, error) {
	engineCfg := cfg
	if v, ok := globals["engine"]; ok {
		s, isString := starlark.AsString(v)
		if !isString {
			return nil, fmt.Errorf("plugin %q: engine must be a string, got %s", name, v.Type())
		}
		engineCfg.Type = s
	}
	if engineCfg.Type == name {
		return nil, fmt.Errorf("plugin %q cannot use itself as its engine", name)
	}

	engine, err := connector.New(engineCfg, authorized, logger)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: %w", name, err)
	}

	return NewWithEngine(name, globals, engine, authorized, logger), nil
}

// NewWithEngine creates a script connector that executes through engine.
func NewWithEngine(name string, globals starlark.StringDict, engine connector.Connector, authorized bool, logger *slog.Logger) *Connector {
	return &Connector{
		Base:    connector.NewBase(name, authorized, logger),
		globals: globals,
		engine:  engine,
	}
}

// Engine returns the connector statements are executed through.
func (c *Connector) Engine() connector.Connector {
	return c.engine
}

// Connect connects the engine, then calls the plugin's connect().
func (c *Connector) Connect(ctx context.Context) error {
	if err := c.engine.Connect(ctx); err != nil {
		return err
	}
	if _, err := c.call(ctx, connector.OpConnect); err != nil {
		_ = c.engine.Close()
		return err
	}
	c.Logger.Info("script connector connected", "engine", c.engine.Name())
	return nil
}

// Close closes the engine.
func (c *Connector) Close() error {
	return c.engine.Close()
}

// Create runs the plugin's create().
func (c *Connector) Create(ctx context.Context, statement string, args ...any) (*connector.Result, error) {
	return c.operation(ctx, connector.OpCreate, statement, args)
}

// Read runs the plugin's read().
func (c *Connector) Read(ctx context.Context, statement string, args ...any) (*connector.Result, error) {
	return c.operation(ctx, connector.OpRead, statement, args)
}

// Update runs the plugin's update().
func (c *Connector) Update(ctx context.Context, statement string, args ...any) (*connector.Result, error) {
	return c.operation(ctx, connector.OpUpdate, statement, args)
}

// Delete runs the plugin's delete().
func (c *Connector) Delete(ctx context.Context, statement string, args ...any) (*connector.Result, error) {
	return c.operation(ctx, connector.OpDelete, statement, args)
}

// Exec runs the statement through the engine. Read-only connectors only
// accept single reading statements.
func (c *Connector) Exec(ctx context.Context, statement string, args ...any) (*connector.Result, error) {
	if c.ReadOnly() && !connector.IsReadStatement(statement) {
		c.Logger.Warn("rejected non-reading statement on read-only connector", "operation", string(connector.OpExec))
		return nil, &connector.ReadOnlyError{Backend: c.Name(), Operation: connector.OpExec}
	}
	return c.engine.Exec(ctx, statement, args...)
}

func (c *Connector) operation(ctx context.Context, op connector.Operation, statement string, args []any) (*connector.Result, error) {
	if err := c.Guard(op, statement); err != nil {
		return nil, err
	}

	values, err := argsToStarlark(args)
	if err != nil {
		return nil, fmt.Errorf("plugin %q %s: %w", c.Name(), op, err)
	}

	out, err := c.call(ctx, op, starlark.String(statement), values)
	if err != nil {
		return nil, err
	}

	res, err := resultFromStarlark(out)
	if err != nil {
		return nil, fmt.Errorf("plugin %q %s: %w", c.Name(), op, err)
	}
	return res, nil
}

// call invokes the plugin function for op on a fresh thread that carries the
// connector and context for exec(). The thread is canceled when ctx is done.
func (c *Connector) call(ctx context.Context, op connector.Operation, args ...starlark.Value) (starlark.Value, error) {
	fn, ok := c.globals[string(op)].(starlark.Callable)
	if !ok {
		return nil, &connector.NotImplementedError{Backend: c.Name(), Operation: op}
	}

	thread := &starlark.Thread{
		Name: fmt.Sprintf("%s:%s", c.Name(), op),
		Print: func(_ *starlark.Thread, msg string) {
			c.Logger.Debug("plugin output", "operation", string(op), "msg", msg)
		},
	}
	thread.SetLocal(connectorKey, c)
	thread.SetLocal(contextKey, ctx)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	out, err := starlark.Call(thread, fn, args, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("plugin %q %s: %w", c.Name(), op, ctxErr)
		}
		return nil, fmt.Errorf("plugin %q %s: %w", c.Name(), op, err)
	}
	return out, nil
}

// execBuiltin implements exec(statement, values=None).
func execBuiltin(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var statement string
	var values starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "statement", &statement, "values?", &values); err != nil {
		return nil, err
	}

	c, ok := thread.Local(connectorKey).(*Connector)
	if !ok {
		return nil, fmt.Errorf("%s: called outside a connector operation", b.Name())
	}
	ctx, ok := thread.Local(contextKey).(context.Context)
	if !ok {
		ctx = context.Background()
	}

	stmtArgs, err := argsFromStarlark(values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}

	res, err := c.Exec(ctx, statement, stmtArgs...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return resultToStarlark(res)
}
