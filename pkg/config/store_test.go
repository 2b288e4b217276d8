package config

import (
	"testing"

	"github.com/leapstack-labs/starkey/pkg/disk"
	"github.com/leapstack-labs/starkey/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, tree map[string]any) (*Store, *disk.Disk) {
	t.Helper()
	d := disk.Memory()
	return NewStore(tree, WithDisk(d), WithLogger(testutil.NewTestLogger(t))), d
}

func TestStore_Get(t *testing.T) {
	s, _ := newTestStore(t, map[string]any{
		"database": map[string]any{"type": "sqlite", "port": 0},
		"flag":     true,
	})

	assert.Equal(t, "sqlite", s.Get("database.type"))
	assert.Equal(t, map[string]any{"type": "sqlite", "port": 0}, s.Get("database"))
	assert.Nil(t, s.Get("database.type.deeper"))
	assert.Nil(t, s.Get("nope.nope.nope"))
	assert.Nil(t, s.Get("flag.x"))

	whole, ok := s.Get("*").(map[string]any)
	require.True(t, ok)
	assert.Len(t, whole, 2)
}

func TestStore_GetReturnsCopies(t *testing.T) {
	s, _ := newTestStore(t, map[string]any{"database": map[string]any{"type": "sqlite"}})

	db := s.Get("database").(map[string]any)
	db["type"] = "postgres"

	assert.Equal(t, "sqlite", s.String("database.type"))
}

func TestStore_TypedHelpers(t *testing.T) {
	s, _ := newTestStore(t, map[string]any{
		"str":    "value",
		"num":    42,
		"numstr": "7",
		"yes":    true,
		"yesstr": "true",
		"list":   []any{"a", "b"},
		"single": "only",
	})

	assert.Equal(t, "value", s.String("str"))
	assert.Equal(t, "42", s.String("num"))
	assert.Equal(t, "", s.String("missing"))

	assert.Equal(t, 42, s.Int("num"))
	assert.Equal(t, 7, s.Int("numstr"))
	assert.Equal(t, 0, s.Int("missing"))

	v, ok := s.Bool("yes")
	assert.True(t, v)
	assert.True(t, ok)
	v, ok = s.Bool("yesstr")
	assert.True(t, v)
	assert.True(t, ok)
	_, ok = s.Bool("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b"}, s.Strings("list"))
	assert.Equal(t, []string{"only"}, s.Strings("single"))
	assert.Nil(t, s.Strings("missing"))
}

func TestStore_Settings(t *testing.T) {
	s, _ := newTestStore(t, Merge(Default(), map[string]any{
		"database": map[string]any{
			"type":       "postgres",
			"host":       "localhost",
			"port":       "5433",
			"name":       "app",
			"queryPaths": []any{"./queries"},
		},
	}))

	settings, err := s.Settings()
	require.NoError(t, err)

	assert.Equal(t, "postgres", settings.Database.Type)
	assert.Equal(t, 5433, settings.Database.Port)
	assert.Equal(t, []string{"./queries"}, settings.Database.QueryPaths)
	assert.Equal(t, "./plugins", settings.PluginPath)
	assert.Equal(t, "local", settings.Security.User.Strategy)
	assert.Equal(t, "./logs/error.log", settings.Logs.Types["error"].Path)
	assert.True(t, settings.Logs.Config.FirehoseAll)
	assert.NoError(t, settings.Database.Validate())
}

func TestDatabaseConfig_Validate(t *testing.T) {
	var db DatabaseConfig
	assert.Error(t, db.Validate())

	db.Type = "sqlite"
	assert.NoError(t, db.Validate())

	db.Type = "postgres"
	assert.ErrorContains(t, db.Validate(), "host is required")

	db.Host = "localhost"
	assert.ErrorContains(t, db.Validate(), "database name is required")
}

func TestStore_Write(t *testing.T) {
	s, d := newTestStore(t, nil)

	tree := map[string]any{"database": map[string]any{"type": "duckdb"}}
	require.NoError(t, s.Write(tree, "out/starkey.yaml"))

	data, err := d.ReadFile("out/starkey.yaml")
	require.NoError(t, err)
	assert.Equal(t, "database:\n  type: duckdb\n", string(data))
}

func TestStore_WriteRejectsNonMappings(t *testing.T) {
	s, d := newTestStore(t, nil)

	tests := []struct {
		name string
		tree any
	}{
		{"top-level sequence", []any{"a", "b"}},
		{"top-level scalar", "text"},
		{"unserializable value", map[string]any{"fn": func() {}}},
		{"nested channel", map[string]any{"a": map[string]any{"ch": make(chan int)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Write(tt.tree, "bad.yaml")
			var te *ConfigTypeError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, "bad.yaml", te.Dest)

			ok, _ := d.Exists("bad.yaml")
			assert.False(t, ok)
		})
	}
}

func TestStore_Generate(t *testing.T) {
	s, _ := newTestStore(t, map[string]any{"database": map[string]any{"type": "mysql", "host": "db"}})
	override := map[string]any{"database": map[string]any{"path": ":memory:"}}

	fromDefault := s.Generate(override, true)
	assert.Equal(t, "sqlite", fromDefault["database"].(map[string]any)["type"])
	assert.Equal(t, ":memory:", fromDefault["database"].(map[string]any)["path"])

	fromCurrent := s.Generate(override, false)
	assert.Equal(t, map[string]any{"database": map[string]any{
		"type": "mysql", "host": "db", "path": ":memory:",
	}}, fromCurrent)
}

func TestStore_WriteThenLoadRoundTrip(t *testing.T) {
	s, d := newTestStore(t, nil)
	t.Setenv(ConfigEnvVar, "")

	tree := map[string]any{
		"pluginPath": "./custom-plugins",
		"database": map[string]any{
			"type":       "sqlite",
			"path":       ":memory:",
			"queryPaths": []any{"./q"},
		},
	}
	require.NoError(t, s.Write(tree, "starkey.yaml"))

	loaded, err := Load(LoadOptions{File: "starkey.yaml", Disk: d})
	require.NoError(t, err)

	assert.Equal(t, Merge(Default(), tree), loaded.Tree())
	assert.Equal(t, loaded.Tree(), loaded.Generate(nil, false))
}

func TestStore_WriteDefault(t *testing.T) {
	s, d := newTestStore(t, nil)
	require.NoError(t, s.WriteDefault("starkey.yaml"))

	loaded, err := Load(LoadOptions{File: "starkey.yaml", Disk: d})
	require.NoError(t, err)
	assert.Equal(t, Default(), loaded.Tree())
}

func TestStore_GenerateYAML(t *testing.T) {
	s, _ := newTestStore(t, map[string]any{"b": 1, "a": map[string]any{"z": true, "y": "x"}})

	data, err := s.GenerateYAML(nil, false)
	require.NoError(t, err)
	assert.Equal(t, "a:\n  y: x\n  z: true\nb: 1\n", string(data))
}
