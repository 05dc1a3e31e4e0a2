package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/goliatone/go-errors"
)

// variableRef matches ${NAME} and ${NAME:-default} unless the dollar is
// escaped with a backslash.
var variableRef = regexp2.MustCompile(`(?<!\\)\$\{([A-Za-z_][A-Za-z0-9_.-]*)(?::-([^{}]*))?\}`, regexp2.None)

// Interpolator expands variable references in string leaves.
//
// A reference resolves, in order, against the accumulated configuration,
// the map holding the leaf, the tree being expanded, its default, or the
// empty string. Values found along the way are expanded recursively. A
// value that refers to its own key is left untouched, a longer loop fails
// with ErrCyclicReference.
type Interpolator struct {
	coerce bool
}

// leaf is the expansion state of one string value.
type leaf struct {
	path  string
	key   string
	scope Lookuper
	local Lookuper
	acc   Lookuper
}

// NewInterpolator returns an Interpolator. With coerce set, expanded
// leaves are passed through Coerce.
func NewInterpolator(coerce bool) *Interpolator {
	return &Interpolator{coerce: coerce}
}

// Expand returns a new tree with every string leaf of raw expanded.
// References are looked up in acc first, then among the siblings of the
// leaf and finally from the root of the unexpanded raw tree, so the
// result does not depend on traversal order.
func (i *Interpolator) Expand(raw map[string]any, acc Lookuper) (map[string]any, error) {
	if acc == nil {
		acc = New(nil)
	}
	out, err := i.expandMap(raw, "", New(raw), acc)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExpandValue expands a single leaf stored at path of local.
func (i *Interpolator) ExpandValue(path, value string, local, acc Lookuper) (any, error) {
	if local == nil {
		local = New(nil)
	}
	if acc == nil {
		acc = New(nil)
	}
	return i.expandLeaf(value, &leaf{path: path, key: path, scope: local, local: local, acc: acc})
}

// Unescape turns every \$ into a literal $.
func Unescape(s string) string {
	return strings.ReplaceAll(s, `\$`, "$")
}

func (i *Interpolator) expandLeaf(value string, l *leaf) (any, error) {
	s, err := i.substitute(value, nil, l)
	if err != nil {
		return nil, err
	}

	s = Unescape(s)
	if i.coerce {
		return Coerce(s), nil
	}
	return s, nil
}

func (i *Interpolator) expandMap(in map[string]any, prefix string, local, acc Lookuper) (map[string]any, error) {
	scope := New(in)
	out := make(map[string]any, len(in))
	for k, v := range in {
		ev, err := i.expandNode(v, k, joinPath(prefix, k), scope, local, acc)
		if err != nil {
			return nil, err
		}
		out[k] = ev
	}
	return out, nil
}

func (i *Interpolator) expandNode(v any, key, path string, scope, local, acc Lookuper) (any, error) {
	switch node := v.(type) {
	case string:
		return i.expandLeaf(node, &leaf{path: path, key: key, scope: scope, local: local, acc: acc})
	case map[string]any:
		return i.expandMap(node, path, local, acc)
	case []any:
		items := New(sectionRoot(node))
		out := make([]any, len(node))
		for idx, item := range node {
			k := strconv.Itoa(idx)
			ev, err := i.expandNode(item, k, joinPath(path, k), items, local, acc)
			if err != nil {
				return nil, err
			}
			out[idx] = ev
		}
		return out, nil
	}
	return v, nil
}

// substitute replaces every reference in value. chain holds the names
// being resolved above this call.
func (i *Interpolator) substitute(value string, chain []string, l *leaf) (string, error) {
	if !strings.Contains(value, "${") {
		return value, nil
	}

	var resolveErr error
	out, err := variableRef.ReplaceFunc(value, func(m regexp2.Match) string {
		if resolveErr != nil {
			return m.String()
		}

		name := m.GroupByNumber(1).String()
		var def string
		if g := m.GroupByNumber(2); len(g.Captures) > 0 {
			def = g.String()
		}

		s, err := i.resolve(name, def, m.String(), value, chain, l)
		if err != nil {
			resolveErr = err
			return m.String()
		}
		return s
	}, -1, -1)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryOperation, "variable expansion failed").
			WithTextCode("EXPANSION_FAILED").
			WithMetadata(map[string]any{"path": l.path})
	}
	if resolveErr != nil {
		return "", resolveErr
	}
	return out, nil
}

// lookup finds name among the siblings of the leaf first and from the
// root of the source second. sibling reports a hit in the first.
func (l *leaf) lookup(name string) (any, bool, bool) {
	if v, ok := l.scope.Lookup(name); ok {
		return v, true, true
	}
	v, ok := l.local.Lookup(name)
	return v, ok, false
}

func (i *Interpolator) resolve(name, def, match, current string, chain []string, l *leaf) (string, error) {
	if slices.Contains(chain, name) {
		return "", errors.Wrap(ErrCyclicReference, errors.CategoryValidation, "cyclic variable reference to "+name).
			WithTextCode("CYCLIC_REFERENCE").
			WithMetadata(map[string]any{
				"path":  l.path,
				"chain": append(slices.Clone(chain), name),
			})
	}

	next := append(slices.Clone(chain), name)
	lv, lok, sibling := l.lookup(name)

	if av, ok := l.acc.Lookup(name); ok {
		if lok && sameValue(av, lv) {
			return stringify(av), nil
		}
		s, isString := av.(string)
		if !isString {
			return stringify(av), nil
		}
		if s == match {
			return s, nil
		}
		return i.substitute(s, next, l)
	}

	if lok {
		s, isString := lv.(string)
		if !isString {
			return stringify(lv), nil
		}
		own := name == l.path || (sibling && name == l.key)
		if s == current || s == match || (len(chain) == 0 && own) {
			return match, nil
		}
		return i.substitute(s, next, l)
	}

	if def != "" {
		if strings.HasPrefix(def, "$") {
			return i.substitute(def, chain, l)
		}
		return def, nil
	}

	return "", nil
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + PathDelimiter + key
}

func sameValue(a, b any) bool {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	return reflect.DeepEqual(a, b)
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatNumber(val)
	case float32:
		return formatNumber(float64(val))
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprint(v)
}
