package env

import (
	"os"
	"sort"
	"strings"

	"github.com/dymexjs/config/logger"
	"github.com/knadh/koanf/parsers/json"
	"github.com/tidwall/sjson"
)

// Env reads a snapshot of the process environment.
type Env struct {
	prefixes []string
	delim    string
	cb       func(key string, value string) (string, any)
	environ  func() []string
	logger   logger.Logger
}

// Provider returns an environment provider whose output nests keys on
// delim, with support for arrays:
//
//	APP_DATABASE__0__PASSWORD=password_1
//	APP_DATABASE__1__PASSWORD=password_2
//
// becomes {"APP_DATABASE":[{"PASSWORD":"password_1"},{"PASSWORD":"password_2"}]}
// with delim "__".
//
// Only variables starting with prefix (case sensitive) are read; an
// empty prefix reads everything. cb may rename keys, for instance to
// strip the prefix or lower case them. A key renamed to "" is skipped.
func Provider(prefix, delim string, cb func(s string) string) *Env {
	e := &Env{
		prefixes: []string{prefix},
		delim:    delim,
		environ:  os.Environ,
		logger:   logger.Nop(),
	}
	if cb != nil {
		e.cb = func(key string, value string) (string, any) {
			return cb(key), value
		}
	}
	return e
}

// ProviderWithValue is Provider with a callback that may also replace
// the value, e.g. to split it into a list.
func ProviderWithValue(prefix, delim string, cb func(key string, value string) (string, any)) *Env {
	return &Env{
		prefixes: []string{prefix},
		delim:    delim,
		cb:       cb,
		environ:  os.Environ,
		logger:   logger.Nop(),
	}
}

// WithPrefixes replaces the prefix filter. A variable is read when it
// matches any prefix.
func (e *Env) WithPrefixes(prefixes ...string) *Env {
	e.prefixes = prefixes
	return e
}

// WithEnviron replaces os.Environ as the variable source.
func (e *Env) WithEnviron(fn func() []string) *Env {
	if fn != nil {
		e.environ = fn
	}
	return e
}

func (e *Env) SetLogger(l logger.Logger) {
	if l != nil {
		e.logger = l
	}
}

// ReadBytes returns the matching variables encoded as a JSON object.
func (e *Env) ReadBytes() ([]byte, error) {
	out := "{}"
	vars := Snapshot(e.environ(), e.prefixes...)

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var (
			key   = k
			value any = vars[k]
		)
		if e.cb != nil {
			key, value = e.cb(k, vars[k])
			if key == "" {
				continue
			}
		}

		next, err := sjson.Set(out, e.path(key), value)
		if err != nil {
			e.logger.Error("failed to set environment variable", "key", k, "error", err)
			return []byte{}, err
		}
		out = next
	}

	e.logger.Debug("read environment", "variables", len(keys))
	return []byte(out), nil
}

// Read returns the nested map ReadBytes encodes.
func (e *Env) Read() (map[string]any, error) {
	b, err := e.ReadBytes()
	if err != nil {
		return nil, err
	}
	return json.Parser().Unmarshal(b)
}

// path turns a key into an sjson path, escaping characters sjson would
// otherwise treat as syntax.
func (e *Env) path(key string) string {
	if e.delim == "" {
		return escape(key)
	}
	parts := strings.Split(key, e.delim)
	for i, p := range parts {
		parts[i] = escape(p)
	}
	return strings.Join(parts, ".")
}

var pathEscaper = strings.NewReplacer(`\`, `\\`, `.`, `\.`, `*`, `\*`, `?`, `\?`)

func escape(s string) string {
	return pathEscaper.Replace(s)
}

// Snapshot filters environ ("KEY=value" pairs) by prefix. With no
// prefixes, or an empty one, every variable is returned.
func Snapshot(environ []string, prefixes ...string) map[string]string {
	out := make(map[string]string)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		if matches(key, prefixes) {
			out[key] = value
		}
	}
	return out
}

func matches(key string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if p == "" || strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
