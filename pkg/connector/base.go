package connector

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Base carries the state shared by all connectors and the guards every CRUD
// operation runs before touching the engine. Embed it in concrete connectors
// and construct it with NewBase; a zero Base rejects every operation.
type Base struct {
	name        string
	id          string
	readOnly    bool
	constructed bool

	Logger *slog.Logger
}

// NewBase returns a Base for the named backend. The read-only flag is the
// inverse of authorized and cannot be changed afterwards.
func NewBase(name string, authorized bool, logger *slog.Logger) Base {
	id := uuid.New().String()
	return Base{
		name:        name,
		id:          id,
		readOnly:    !authorized,
		constructed: true,
		Logger:      discardIfNil(logger).With("connector", name, "connector_id", id),
	}
}

// Name returns the backend name.
func (b *Base) Name() string {
	return b.name
}

// ID returns the instance identifier used to correlate log records.
func (b *Base) ID() string {
	return b.id
}

// ReadOnly reports whether mutating operations are rejected. An
// unconstructed Base is always read-only.
func (b *Base) ReadOnly() bool {
	return b == nil || !b.constructed || b.readOnly
}

// Guard runs the checks that precede every CRUD operation, in order: the
// receiver must be a constructed connector, the statement must contain the
// keyword of the operation (case-insensitive), and mutating operations must
// not be attempted on a read-only connector.
func (b *Base) Guard(op Operation, statement string) error {
	if b == nil || !b.constructed {
		return &NotImplementedError{Operation: op}
	}

	if kw := op.keyword(); kw != "" && !strings.Contains(strings.ToLower(statement), kw) {
		return &DMLKindError{Backend: b.name, Operation: op, Keyword: kw}
	}

	if op.Mutating() && b.readOnly {
		b.Logger.Warn("rejected mutating operation on read-only connector", "operation", string(op))
		return &ReadOnlyError{Backend: b.name, Operation: op}
	}

	return nil
}

// Exec rejects execution. Concrete connectors shadow it with their own Exec;
// one that does not ends up here and fails instead of silently succeeding.
func (b *Base) Exec(_ context.Context, _ string, _ ...any) (*Result, error) {
	if b == nil {
		return nil, &NotImplementedError{Operation: OpExec}
	}
	return nil, &NotImplementedError{Backend: b.name, Operation: OpExec}
}
