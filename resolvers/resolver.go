// Package resolvers rewrites values of an already merged configuration.
//
// Resolvers run on a koanf view of the tree after every source has been
// merged. Two are provided: URI references such as "@file://secret.txt"
// and full match expressions such as "{{ app.port + 1 }}".
package resolvers

import (
	"io/fs"
	"os"
	"sort"

	opts "github.com/goliatone/go-options"
	"github.com/knadh/koanf/v2"
)

type Resolver interface {
	Resolve(k *koanf.Koanf) *koanf.Koanf
}

// ErrorHandler is called when a value cannot be resolved.
type ErrorHandler func(key, value string, err error, k *koanf.Koanf)

// LeaveUnchanged keeps the original value.
func LeaveUnchanged() ErrorHandler {
	return func(string, string, error, *koanf.Koanf) {}
}

// Remove deletes the key.
func Remove() ErrorHandler {
	return func(key, _ string, _ error, k *koanf.Koanf) {
		if k != nil {
			k.Delete(key)
		}
	}
}

// Panic panics with the resolution error.
func Panic() ErrorHandler {
	return func(_ string, _ string, err error, _ *koanf.Koanf) {
		panic(err)
	}
}

type settings struct {
	fsys      fs.FS
	evaluator opts.Evaluator
	onError   ErrorHandler
	protocols map[string]ProtocolFunc
}

type Option func(*settings)

// WithFS sets the file system used by the file protocol.
func WithFS(fsys fs.FS) Option {
	return func(s *settings) {
		if fsys != nil {
			s.fsys = fsys
		}
	}
}

// WithErrorHandler replaces the default LeaveUnchanged handler.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(s *settings) {
		if fn != nil {
			s.onError = fn
		}
	}
}

// WithEvaluator replaces the expr evaluator used by the expression resolver.
func WithEvaluator(e opts.Evaluator) Option {
	return func(s *settings) {
		if e != nil {
			s.evaluator = e
		}
	}
}

// WithProtocol registers or overrides a URI protocol.
func WithProtocol(name string, fn ProtocolFunc) Option {
	return func(s *settings) {
		if name != "" && fn != nil {
			s.protocols[name] = fn
		}
	}
}

func newSettings(options []Option) *settings {
	s := &settings{
		fsys:    os.DirFS("."),
		onError: LeaveUnchanged(),
		protocols: map[string]ProtocolFunc{
			"file":   FileProtocol,
			"base64": Base64Protocol,
			"env":    EnvProtocol,
		},
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type delimiters struct {
	Start string
	End   string
}

// stringLeaves returns the flattened string values of k in key order.
func stringLeaves(k *koanf.Koanf) ([]string, map[string]string) {
	all := k.All()
	keys := make([]string, 0, len(all))
	values := make(map[string]string, len(all))
	for key, val := range all {
		s, ok := val.(string)
		if !ok {
			continue
		}
		keys = append(keys, key)
		values[key] = s
	}
	sort.Strings(keys)
	return keys, values
}
