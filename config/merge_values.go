package config

import (
	"reflect"
	"sort"
)

// indexPatch is a list built from an index path such as "servers[2]".
// Merged over an existing list it only writes the slots it holds; stored
// anywhere else it becomes a plain list with Absent in the unset slots.
type indexPatch []any

// mergeInto deep merges src into dst.
//
// Map into map recurses and an indexPatch updates the list already in
// dst. Any other collision is a replacement, and a replacement at a
// level copies every key of src at that level over dst, not only the
// colliding one.
func mergeInto(dst, src map[string]any) {
	if hasConflict(dst, src) {
		for k, v := range src {
			dst[k] = materialize(v)
		}
		return
	}

	for k, v := range src {
		existing, ok := dst[k]
		if !ok {
			dst[k] = materialize(v)
			continue
		}

		switch incoming := v.(type) {
		case map[string]any:
			mergeInto(existing.(map[string]any), incoming)
		case indexPatch:
			dst[k] = patchList(existing.([]any), incoming)
		}
	}
}

func hasConflict(dst, src map[string]any) bool {
	for k, v := range src {
		existing, ok := dst[k]
		if !ok {
			continue
		}
		if !mergeable(existing, v) {
			return true
		}
	}
	return false
}

func mergeable(existing, incoming any) bool {
	switch incoming.(type) {
	case map[string]any:
		_, ok := existing.(map[string]any)
		return ok
	case indexPatch:
		_, ok := existing.([]any)
		return ok
	}
	return false
}

func patchList(dst []any, src indexPatch) []any {
	if len(src) > len(dst) {
		grown := make([]any, len(src))
		copy(grown, dst)
		for i := len(dst); i < len(src); i++ {
			grown[i] = Absent
		}
		dst = grown
	}

	for i, v := range src {
		if IsAbsent(v) {
			continue
		}
		switch existing := dst[i].(type) {
		case map[string]any:
			if vm, ok := v.(map[string]any); ok {
				mergeInto(existing, vm)
				continue
			}
		case []any:
			if vp, ok := v.(indexPatch); ok {
				dst[i] = patchList(existing, vp)
				continue
			}
		}
		dst[i] = materialize(v)
	}
	return dst
}

// materialize turns any indexPatch inside v into a plain list.
func materialize(v any) any {
	switch node := v.(type) {
	case indexPatch:
		out := make([]any, len(node))
		for i, item := range node {
			out[i] = materialize(item)
		}
		return out
	case map[string]any:
		for k, item := range node {
			node[k] = materialize(item)
		}
		return node
	}
	return v
}

// normalizeMap returns a fresh tree where dotted and bracketed keys are
// expanded into nested levels. Plain keys are applied first, then dotted
// keys in sorted order, so the result does not depend on map iteration.
func normalizeMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	var dotted []string

	for k, v := range in {
		if isDotted(k) {
			dotted = append(dotted, k)
			continue
		}
		out[k] = normalizeValue(v)
	}

	sort.Strings(dotted)
	for _, k := range dotted {
		mergeInto(out, pathTree(SplitPath(k), normalizeValue(in[k])))
	}

	return out
}

// normalizeValue converts arbitrary maps and slices into the tree's
// map[string]any and []any shapes. Scalars are returned unchanged.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return normalizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case *Configuration:
		return normalizeMap(val.Raw())
	case string, bool, float64, int, int64:
		return val
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return normalizeMap(m)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = normalizeValue(rv.Index(i).Interface())
		}
		return out
	}

	return v
}
