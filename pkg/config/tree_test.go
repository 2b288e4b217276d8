package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name   string
		layers []map[string]any
		want   map[string]any
	}{
		{
			name: "later scalar wins",
			layers: []map[string]any{
				{"a": 1, "b": 2},
				{"b": 3},
			},
			want: map[string]any{"a": 1, "b": 3},
		},
		{
			name: "nested mappings merge key by key",
			layers: []map[string]any{
				{"db": map[string]any{"type": "sqlite", "path": "a.db"}},
				{"db": map[string]any{"path": "b.db"}},
			},
			want: map[string]any{"db": map[string]any{"type": "sqlite", "path": "b.db"}},
		},
		{
			name: "sequences are replaced",
			layers: []map[string]any{
				{"paths": []any{"a", "b"}},
				{"paths": []any{"c"}},
			},
			want: map[string]any{"paths": []any{"c"}},
		},
		{
			name: "mapping replaces scalar",
			layers: []map[string]any{
				{"x": "flat"},
				{"x": map[string]any{"y": 1}},
			},
			want: map[string]any{"x": map[string]any{"y": 1}},
		},
		{
			name: "scalar replaces mapping",
			layers: []map[string]any{
				{"x": map[string]any{"y": 1}},
				{"x": "flat"},
			},
			want: map[string]any{"x": "flat"},
		},
		{
			name:   "nil layers are skipped",
			layers: []map[string]any{nil, {"a": 1}, nil},
			want:   map[string]any{"a": 1},
		},
		{
			name:   "no layers",
			layers: nil,
			want:   map[string]any{},
		},
		{
			name: "typed maps are converted",
			layers: []map[string]any{
				{"opts": map[string]string{"a": "1"}},
				{"opts": map[string]any{"b": "2"}},
			},
			want: map[string]any{"opts": map[string]any{"a": "1", "b": "2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.layers...))
		})
	}
}

func TestMerge_Associative(t *testing.T) {
	a := map[string]any{"db": map[string]any{"type": "sqlite", "path": "a"}, "list": []any{1}}
	b := map[string]any{"db": map[string]any{"path": "b"}, "flag": true}
	c := map[string]any{"db": "replaced", "list": []any{2, 3}}

	assert.Equal(t, Merge(a, b, c), Merge(Merge(a, b), c))
	assert.Equal(t, Merge(a, b, c), Merge(a, Merge(b, c)))
}

func TestMerge_Idempotent(t *testing.T) {
	a := map[string]any{"db": map[string]any{"type": "sqlite"}}
	b := map[string]any{"db": map[string]any{"path": "x"}, "list": []any{"q"}}

	assert.Equal(t, Merge(a, b), Merge(a, b, b))
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	inner := map[string]any{"path": "a.db"}
	list := []any{"one"}
	a := map[string]any{"db": inner, "list": list}

	out := Merge(a)
	out["db"].(map[string]any)["path"] = "changed"
	out["list"].([]any)[0] = "changed"

	assert.Equal(t, "a.db", inner["path"])
	assert.Equal(t, "one", list[0])
}

func TestLookup(t *testing.T) {
	tree := map[string]any{
		"database": map[string]any{
			"type":       "sqlite",
			"queryPaths": []any{"q1", "q2"},
			"nothing":    nil,
		},
	}

	t.Run("whole tree", func(t *testing.T) {
		got, err := Lookup(tree, ParsePath(WholeTree))
		require.NoError(t, err)
		assert.Equal(t, tree, got)
	})

	t.Run("sub tree", func(t *testing.T) {
		got, err := Lookup(tree, ParsePath("database"))
		require.NoError(t, err)
		assert.Equal(t, tree["database"], got)
	})

	t.Run("sequence index", func(t *testing.T) {
		got, err := Lookup(tree, ParsePath("database.queryPaths.1"))
		require.NoError(t, err)
		assert.Equal(t, "q2", got)
	})

	errCases := []struct {
		path   string
		reason string
		depth  int
	}{
		{"database.missing", "key not found", 1},
		{"database.nothing.deeper", "parent is null", 2},
		{"database.type.deeper", "cannot traverse into string", 2},
		{"database.queryPaths.9", "index out of range", 2},
	}
	for _, tc := range errCases {
		t.Run(tc.path, func(t *testing.T) {
			_, err := Lookup(tree, ParsePath(tc.path))
			var pe *PathError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.reason, pe.Reason)
			assert.Equal(t, tc.depth, pe.Depth)
		})
	}
}

func TestParsePath(t *testing.T) {
	assert.True(t, ParsePath("*").IsWhole())
	assert.True(t, ParsePath("").IsWhole())
	assert.Equal(t, Path{"a", "b"}, ParsePath("a.b"))
	assert.Equal(t, "a.b", ParsePath("a.b").String())
	assert.Equal(t, "*", ParsePath("").String())
}
