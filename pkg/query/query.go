package query

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/starkey/pkg/connector"
)

// Kind classifies a statement as DQL or one of the DML kinds.
type Kind string

// Statement kinds.
const (
	KindUnknown Kind = ""
	KindSelect  Kind = "SELECT"
	KindInsert  Kind = "INSERT"
	KindUpdate  Kind = "UPDATE"
	KindDelete  Kind = "DELETE"
)

// Query is a statement with its arguments and classification.
type Query struct {
	Name      string
	Statement string

	// Args are positional arguments.
	Args []any

	// Named are named arguments, bound after Args.
	Named map[string]any

	// Kind routes the query to a connector operation. Zero means classify
	// the statement.
	Kind Kind
}

// Classify returns the kind of the first DML/DQL keyword in statement.
// A leading WITH clause is skipped over.
func Classify(statement string) Kind {
	for _, tok := range strings.Fields(strings.ToUpper(statement)) {
		tok = strings.TrimLeft(tok, "(")
		switch Kind(tok) {
		case KindSelect, KindInsert, KindUpdate, KindDelete:
			return Kind(tok)
		}
	}
	return KindUnknown
}

// Named converts a mapping of named values into sql.Named arguments, sorted by
// name.
func Named(values map[string]any) []any {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]any, 0, len(names))
	for _, name := range names {
		args = append(args, sql.Named(name, values[name]))
	}
	return args
}

// Bind returns the positional arguments followed by the named ones.
func (q Query) Bind(extra ...any) []any {
	args := make([]any, 0, len(q.Args)+len(q.Named)+len(extra))
	args = append(args, q.Args...)
	args = append(args, extra...)
	args = append(args, Named(q.Named)...)
	return args
}

// Do runs q through the connector operation matching its kind. Queries of
// unknown kind are rejected rather than passed to Exec, which would skip the
// read-only gate.
func Do(ctx context.Context, c connector.Connector, q Query, extra ...any) (*connector.Result, error) {
	kind := q.Kind
	if kind == KindUnknown {
		kind = Classify(q.Statement)
	}

	args := q.Bind(extra...)
	switch kind {
	case KindSelect:
		return c.Read(ctx, q.Statement, args...)
	case KindInsert:
		return c.Create(ctx, q.Statement, args...)
	case KindUpdate:
		return c.Update(ctx, q.Statement, args...)
	case KindDelete:
		return c.Delete(ctx, q.Statement, args...)
	default:
		name := q.Name
		if name == "" {
			name = "query"
		}
		return nil, fmt.Errorf("%s: cannot determine statement kind", name)
	}
}
