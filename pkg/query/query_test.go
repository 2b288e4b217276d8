package query

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/leapstack-labs/starkey/pkg/connector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		stmt string
		want Kind
	}{
		{"SELECT * FROM t", KindSelect},
		{"  select 1", KindSelect},
		{"WITH x AS (SELECT 1) SELECT * FROM x", KindSelect},
		{"insert into t values (1)", KindInsert},
		{"UPDATE t SET a = 1", KindUpdate},
		{"DELETE FROM t", KindDelete},
		{"CREATE TABLE t (id INT)", KindUnknown},
		{"", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.stmt))
		})
	}
}

func TestBind(t *testing.T) {
	q := Query{Args: []any{1}, Named: map[string]any{"b": 2, "a": 1}}
	assert.Equal(t, []any{1, "x", sql.Named("a", 1), sql.Named("b", 2)}, q.Bind("x"))
}

// recorder is a connector that records which operation ran.
type recorder struct {
	connector.Base
	ops  []connector.Operation
	args [][]any
}

func (r *recorder) Connect(context.Context) error { return nil }
func (r *recorder) Close() error                  { return nil }

func (r *recorder) record(op connector.Operation, stmt string, args []any) (*connector.Result, error) {
	if err := r.Guard(op, stmt); err != nil {
		return nil, err
	}
	r.ops = append(r.ops, op)
	r.args = append(r.args, args)
	return &connector.Result{}, nil
}

func (r *recorder) Create(_ context.Context, s string, a ...any) (*connector.Result, error) {
	return r.record(connector.OpCreate, s, a)
}

func (r *recorder) Read(_ context.Context, s string, a ...any) (*connector.Result, error) {
	return r.record(connector.OpRead, s, a)
}

func (r *recorder) Update(_ context.Context, s string, a ...any) (*connector.Result, error) {
	return r.record(connector.OpUpdate, s, a)
}

func (r *recorder) Delete(_ context.Context, s string, a ...any) (*connector.Result, error) {
	return r.record(connector.OpDelete, s, a)
}

func (r *recorder) Exec(_ context.Context, s string, a ...any) (*connector.Result, error) {
	r.ops = append(r.ops, connector.OpExec)
	return &connector.Result{}, nil
}

func TestDo(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{Base: connector.NewBase("rec", true, nil)}

	for _, stmt := range []string{
		"SELECT * FROM t WHERE id = ?",
		"INSERT INTO t VALUES (?)",
		"UPDATE t SET a = ?",
		"DELETE FROM t WHERE id = ?",
	} {
		_, err := Do(ctx, rec, Query{Statement: stmt, Args: []any{1}})
		require.NoError(t, err)
	}
	assert.Equal(t, []connector.Operation{connector.OpRead, connector.OpCreate, connector.OpUpdate, connector.OpDelete}, rec.ops)
	assert.Equal(t, []any{1}, rec.args[0])
}

func TestDo_ExplicitKind(t *testing.T) {
	rec := &recorder{Base: connector.NewBase("rec", true, nil)}

	_, err := Do(context.Background(), rec, Query{Statement: "DELETE FROM t RETURNING (SELECT 1)", Kind: KindDelete})
	require.NoError(t, err)
	assert.Equal(t, []connector.Operation{connector.OpDelete}, rec.ops)
}

func TestDo_UnknownKind(t *testing.T) {
	rec := &recorder{Base: connector.NewBase("rec", true, nil)}

	_, err := Do(context.Background(), rec, Query{Name: "ddl", Statement: "DROP TABLE t"})
	assert.ErrorContains(t, err, "ddl: cannot determine statement kind")
	assert.Empty(t, rec.ops)
}

func TestDo_ReadOnly(t *testing.T) {
	rec := &recorder{Base: connector.NewBase("rec", false, nil)}

	_, err := Do(context.Background(), rec, Query{Statement: "DELETE FROM t"})
	var roe *connector.ReadOnlyError
	require.ErrorAs(t, err, &roe)
	assert.Empty(t, rec.ops)
}

func TestLoadDir(t *testing.T) {
	fsys := fstest.MapFS{
		"queries/active_users.sql": {Data: []byte("SELECT * FROM users WHERE active = 1\n")},
		"queries/add_user.sql":     {Data: []byte("INSERT INTO users (name) VALUES (:name)")},
		"queries/README.md":        {Data: []byte("docs")},
		"queries/nested/x.sql":     {Data: []byte("SELECT 1")},
	}

	queries, err := LoadDir(fsys, "queries")
	require.NoError(t, err)
	require.Len(t, queries, 2)

	q := queries["active_users"]
	assert.Equal(t, "active_users", q.Name)
	assert.Equal(t, "SELECT * FROM users WHERE active = 1", q.Statement)
	assert.Equal(t, KindSelect, q.Kind)
	assert.Equal(t, KindInsert, queries["add_user"].Kind)
}

func TestLoadDir_Missing(t *testing.T) {
	queries, err := LoadDir(fstest.MapFS{}, "queries")
	require.NoError(t, err)
	assert.Empty(t, queries)
}
