package config

import (
	"regexp"
	"strconv"
	"strings"
)

// PathDelimiter separates tree levels in a path.
const PathDelimiter = "."

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// NormalizePath rewrites bracket indices so that "servers[1].host"
// becomes "servers.1.host". Normalizing twice is a no-op.
func NormalizePath(path string) string {
	if !strings.Contains(path, "[") {
		return path
	}
	return bracketIndex.ReplaceAllString(path, PathDelimiter+"$1")
}

// SplitPath returns the ordered segments of path after normalization.
func SplitPath(path string) []string {
	return strings.Split(NormalizePath(path), PathDelimiter)
}

// listIndex reports whether seg addresses a list slot. Only canonical
// non negative integers qualify, "01" and "+1" are plain keys.
func listIndex(seg string) (int, bool) {
	if seg == "" || (len(seg) > 1 && seg[0] == '0') {
		return 0, false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isDotted(key string) bool {
	return strings.Contains(key, PathDelimiter) || strings.Contains(key, "[")
}

// walk resolves path against root, returning false when any segment is
// missing, lands on a hole or tries to descend into a scalar.
func walk(root map[string]any, path string) (any, bool) {
	if root == nil {
		return nil, false
	}

	if v, ok := root[path]; ok {
		return v, !IsAbsent(v)
	}

	var current any = root
	for _, seg := range SplitPath(path) {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			idx, ok := listIndex(seg)
			if !ok || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}

		if IsAbsent(current) {
			return nil, false
		}
	}

	return current, true
}

// pathTree builds the singleton tree holding value at the given segments.
// Segments after the first become lists when they are list indices.
func pathTree(segments []string, value any) map[string]any {
	node := value
	for i := len(segments) - 1; i > 0; i-- {
		node = wrapSegment(segments[i], node)
	}
	return map[string]any{segments[0]: node}
}

func wrapSegment(seg string, value any) any {
	if idx, ok := listIndex(seg); ok {
		list := make(indexPatch, idx+1)
		for i := 0; i < idx; i++ {
			list[i] = Absent
		}
		list[idx] = value
		return list
	}
	return map[string]any{seg: value}
}
