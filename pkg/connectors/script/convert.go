package script

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/leapstack-labs/starkey/pkg/connector"
	"go.starlark.net/starlark"
)

// GoToStarlark converts a Go value to a Starlark value.
// Supported types: string, []byte, integers, float64, bool, time.Time,
// []string, []any, map[string]any and []map[string]any.
func GoToStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case string:
		return starlark.String(val), nil

	case []byte:
		return starlark.String(val), nil

	case int:
		return starlark.MakeInt(val), nil

	case int32:
		return starlark.MakeInt64(int64(val)), nil

	case int64:
		return starlark.MakeInt64(val), nil

	case uint64:
		return starlark.MakeUint64(val), nil

	case float32:
		return starlark.Float(val), nil

	case float64:
		return starlark.Float(val), nil

	case bool:
		return starlark.Bool(val), nil

	case time.Time:
		return starlark.String(val.Format(time.RFC3339Nano)), nil

	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil

	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case []map[string]any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		dict := starlark.NewDict(len(val))
		for _, k := range keys {
			sv, err := GoToStarlark(val[k])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return dict, nil

	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToGo converts a Starlark value back to a Go value.
// Returns: string, int64, float64, bool, []any, map[string]any, or nil
func ToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil

	case starlark.String:
		return string(val), nil

	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			// Fallback for very large integers - convert to string
			return val.String(), nil
		}
		return i64, nil

	case starlark.Float:
		return float64(val), nil

	case starlark.Bool:
		return bool(val), nil

	case *starlark.List:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	case starlark.Tuple:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("tuple index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	case *starlark.Dict:
		result := make(map[string]any)
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			gv, err := ToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", key, err)
			}
			result[string(key)] = gv
		}
		return result, nil

	default:
		// Try to get a string representation
		return val.String(), nil
	}
}

// argsToStarlark converts statement arguments to the values list handed to
// plugin functions. sql.Named arguments become a dict.
func argsToStarlark(args []any) (starlark.Value, error) {
	named := make(map[string]any)
	positional := make([]any, 0, len(args))
	for _, a := range args {
		if n, ok := a.(sql.NamedArg); ok {
			named[n.Name] = n.Value
			continue
		}
		positional = append(positional, a)
	}

	if len(named) > 0 {
		if len(positional) > 0 {
			return nil, fmt.Errorf("cannot mix named and positional arguments")
		}
		return GoToStarlark(named)
	}
	return GoToStarlark(positional)
}

// argsFromStarlark converts the values passed to exec() into statement
// arguments. A dict yields sql.Named arguments in key order.
func argsFromStarlark(v starlark.Value) ([]any, error) {
	if v == nil || v == starlark.None {
		return nil, nil
	}

	goVal, err := ToGo(v)
	if err != nil {
		return nil, err
	}

	switch val := goVal.(type) {
	case []any:
		return val, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = sql.Named(k, val[k])
		}
		return out, nil
	default:
		return []any{val}, nil
	}
}

// resultToStarlark exposes a connector result to plugin code.
func resultToStarlark(r *connector.Result) (starlark.Value, error) {
	if r == nil {
		r = &connector.Result{}
	}
	rows := r.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	return GoToStarlark(map[string]any{
		"rows":           rows,
		"rows_affected":  r.RowsAffected,
		"last_insert_id": r.LastInsertID,
	})
}

// resultFromStarlark interprets a plugin function's return value. A dict
// shaped like exec()'s result is read field by field, a list is taken as
// rows, and None is an empty result.
func resultFromStarlark(v starlark.Value) (*connector.Result, error) {
	goVal, err := ToGo(v)
	if err != nil {
		return nil, err
	}

	out := &connector.Result{}
	switch val := goVal.(type) {
	case nil:
		return out, nil
	case []any:
		rows, err := toRows(val)
		if err != nil {
			return nil, err
		}
		out.Rows = rows
		return out, nil
	case map[string]any:
		if raw, ok := val["rows"]; ok && raw != nil {
			list, isList := raw.([]any)
			if !isList {
				return nil, fmt.Errorf("rows must be a list, got %T", raw)
			}
			rows, err := toRows(list)
			if err != nil {
				return nil, err
			}
			out.Rows = rows
		}
		out.RowsAffected = toInt64(val["rows_affected"])
		out.LastInsertID = toInt64(val["last_insert_id"])
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported result type %s", v.Type())
	}
}

func toRows(list []any) ([]map[string]any, error) {
	rows := make([]map[string]any, len(list))
	for i, item := range list {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("row %d must be a dict, got %T", i, item)
		}
		rows[i] = row
	}
	return rows, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}
