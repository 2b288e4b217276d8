package config

import (
	"reflect"
)

// Merge deep-merges layers into a new tree. Later layers take precedence.
// Nested mappings present in every defining layer are merged key by key;
// any other value, including sequences and mappings that collide with a
// scalar, is taken from the last layer defining the key. Inputs are never
// modified and the result shares no maps or slices with them. Nil layers are
// skipped.
func Merge(layers ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, layer := range layers {
		mergeInto(out, layer)
	}
	return out
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := asMap(v)
		if !srcIsMap {
			dst[k] = copyValue(v)
			continue
		}

		if dstMap, ok := dst[k].(map[string]any); ok {
			mergeInto(dstMap, srcMap)
			continue
		}

		fresh := make(map[string]any, len(srcMap))
		mergeInto(fresh, srcMap)
		dst[k] = fresh
	}
}

// Copy returns a deep copy of tree.
func Copy(tree map[string]any) map[string]any {
	if tree == nil {
		return nil
	}
	return Merge(tree)
}

func copyValue(v any) any {
	if m, ok := asMap(v); ok {
		return Merge(m)
	}
	if items, ok := asSlice(v); ok {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = copyValue(item)
		}
		return out
	}
	return v
}

// asMap returns v as a string-keyed mapping. Mappings of other value types
// (map[string]string and the like) are converted.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// asSlice returns v as a sequence. []byte is treated as a scalar.
func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []byte, nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
