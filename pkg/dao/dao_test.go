package dao

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/starkey/pkg/config"
	"github.com/leapstack-labs/starkey/pkg/disk"
	"github.com/leapstack-labs/starkey/internal/testutil"
	"github.com/leapstack-labs/starkey/pkg/connector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingsFor(t *testing.T, overrides map[string]any) *config.Settings {
	t.Helper()
	store := config.NewStore(config.Merge(config.Default(), overrides))
	settings, err := store.Settings()
	require.NoError(t, err)
	return settings
}

func TestOpen_MigratesAndRunsQueries(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"migrations/00001_users.sql": "-- +goose Up\nCREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);\n\n-- +goose Down\nDROP TABLE users;\n",
		"queries/add_user.sql":       "INSERT INTO users (name) VALUES (?)",
		"queries/list_users.sql":     "SELECT name FROM users ORDER BY id",
		"more/drop_users.sql":        "DELETE FROM users",
	})

	settings := settingsFor(t, map[string]any{
		"pluginPath": filepath.Join(root, "plugins"),
		"database": map[string]any{
			"type":           "sqlite",
			"path":           filepath.Join(root, "app.db"),
			"migrationsPath": filepath.Join(root, "migrations"),
			"queryPaths":     []any{filepath.Join(root, "queries"), filepath.Join(root, "more")},
		},
	})

	ctx := context.Background()
	d, err := Open(ctx, settings, nil, true, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, []string{"add_user", "drop_users", "list_users"}, d.Queries())

	_, err = d.Run(ctx, "add_user", "ada")
	require.NoError(t, err)
	res, err := d.Run(ctx, "list_users")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "ada"}}, res.Rows)

	q, ok := d.Query("list_users")
	require.True(t, ok)
	assert.Equal(t, "SELECT name FROM users ORDER BY id", q.Statement)

	_, err = d.Run(ctx, "nope")
	assert.ErrorContains(t, err, `unknown query "nope"`)
}

func TestOpen_UnauthorizedIsReadOnly(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(root, "app.db")

	writer := settingsFor(t, map[string]any{"database": map[string]any{"type": "sqlite", "path": dbPath}})
	w, err := Open(context.Background(), writer, nil, true, nil)
	require.NoError(t, err)
	_, err = w.Connector().Exec(context.Background(), "CREATE TABLE t (x INTEGER)")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	testutil.WriteFiles(t, root, map[string]string{"queries/add.sql": "INSERT INTO t VALUES (1)"})
	reader := settingsFor(t, map[string]any{
		"database": map[string]any{
			"type":           "sqlite",
			"path":           dbPath,
			"migrationsPath": filepath.Join(root, "does-not-matter"),
			"queryPaths":     []any{filepath.Join(root, "queries")},
		},
	})
	r, err := Open(context.Background(), reader, nil, false, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.Connector().ReadOnly())
	_, err = r.Run(context.Background(), "add")
	var roe *connector.ReadOnlyError
	require.ErrorAs(t, err, &roe)
}

func TestOpen_PluginConnectors(t *testing.T) {
	d := testutil.MemDisk(t, map[string]string{
		"plugins/connectors/audit.star": `
engine = "sqlite"

def connect():
    pass

def create(statement, values):
    return exec(statement, values)

def read(statement, values):
    return exec(statement, values)

def update(statement, values):
    return exec(statement, values)

def delete(statement, values):
    return exec(statement, values)
`,
		"queries/one.sql": "SELECT 1 AS n",
	})

	settings := settingsFor(t, map[string]any{
		"pluginPath": "plugins",
		"database": map[string]any{
			"type":       "audit",
			"path":       ":memory:",
			"queryPaths": []any{"queries"},
		},
	})

	ctx := context.Background()
	dao, err := Open(ctx, settings, nil, true, testutil.NewTestLogger(t), WithDisk(d))
	require.NoError(t, err)
	defer dao.Close()

	assert.Equal(t, "audit", dao.Connector().Name())

	res, err := dao.Run(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"n": int64(1)}}, res.Rows)

	plugins, err := dao.PluginConnectors(ctx)
	require.NoError(t, err)
	require.Len(t, plugins, 1)
	assert.Equal(t, "audit", plugins[0].Name)
}

func TestOpen_InvalidSettings(t *testing.T) {
	_, err := Open(context.Background(), nil, nil, true, nil)
	assert.ErrorContains(t, err, "settings are required")

	settings := settingsFor(t, map[string]any{"database": map[string]any{"type": "postgres"}})
	_, err = Open(context.Background(), settings, nil, true, nil)
	assert.ErrorContains(t, err, "host is required")

	settings = settingsFor(t, map[string]any{"database": map[string]any{"type": "oracle"}})
	_, err = Open(context.Background(), settings, nil, true, nil, WithDisk(disk.Memory()))
	var uce *connector.UnknownConnectorError
	require.ErrorAs(t, err, &uce)
}
