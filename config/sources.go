package config

import (
	"context"
	goerrors "errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dymexjs/config/bind"
	"github.com/dymexjs/config/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/copystructure"
	"github.com/spf13/pflag"
)

type SourceType string

func (s SourceType) String() string {
	return string(s)
}

const (
	SourceTypeMemory        SourceType = "memory"
	SourceTypeConfiguration SourceType = "configuration"
	SourceTypeJSONFile      SourceType = "json"
	SourceTypeFile          SourceType = "file"
	SourceTypeModule        SourceType = "module"
	SourceTypeEnvFile       SourceType = "envfile"
	SourceTypeEnv           SourceType = "env"
	SourceTypeNestedEnv     SourceType = "nestedenv"
	SourceTypeSecrets       SourceType = "secrets"
	SourceTypeFlags         SourceType = "flags"
	SourceTypeStruct        SourceType = "struct"
)

var (
	DefaultNestedEnvDelimiter = "__"
	DefaultSecretsFilename    = "secrets.json"
	DefaultExport             = "default"
)

// Loader is a Source backed by a load function. All the adapters in
// this package are Loaders.
type Loader struct {
	BaseSource
	sourceType SourceType
	pre        func(ctx context.Context) error
	load       func(ctx context.Context) (map[string]any, error)
}

// NewLoader builds a Source of type t from load. The name is used in
// logs and error metadata.
func NewLoader(t SourceType, name string, load func(ctx context.Context) (map[string]any, error), opts ...SourceOption) *Loader {
	return &Loader{
		BaseSource: NewBaseSource(name, opts...),
		sourceType: t,
		load:       load,
	}
}

func (l *Loader) Type() SourceType {
	return l.sourceType
}

func (l *Loader) PreBuild(ctx context.Context) error {
	if l.pre == nil {
		return nil
	}
	return l.pre(ctx)
}

func (l *Loader) Build(ctx context.Context) (map[string]any, error) {
	if l.load == nil {
		return map[string]any{}, nil
	}
	return l.load(ctx)
}

// NewMemorySource serves a copy of values on every build.
func NewMemorySource(values map[string]any, opts ...SourceOption) *Loader {
	name := string(SourceTypeMemory)
	return NewLoader(SourceTypeMemory, name, func(context.Context) (map[string]any, error) {
		return cloneTree(name, values)
	}, opts...)
}

// NewConfigurationSource serves the current tree of another
// Configuration, so one configuration can be layered into the next.
func NewConfigurationSource(cfg *Configuration, opts ...SourceOption) *Loader {
	name := string(SourceTypeConfiguration)
	return NewLoader(SourceTypeConfiguration, name, func(context.Context) (map[string]any, error) {
		if cfg == nil {
			return nil, invalidArgument("configuration cannot be nil", map[string]any{"source": name})
		}
		return cloneTree(name, cfg.Raw())
	}, opts...)
}

// NewJSONFileSource reads a JSON object from path.
func NewJSONFileSource(path string, opts ...SourceOption) *Loader {
	l := NewFileSource(path, FileTypeJSON, opts...)
	l.sourceType = SourceTypeJSONFile
	return l
}

// NewFileSource reads a JSON, YAML or TOML document from path. An empty
// fileType is inferred from the extension.
func NewFileSource(path string, fileType FileType, opts ...SourceOption) *Loader {
	if fileType == "" {
		fileType = InferFileType(path)
	}
	name := string(fileType) + ":" + path
	return NewLoader(SourceTypeFile, name, func(ctx context.Context) (map[string]any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parser, err := fileType.Parser()
		if err != nil {
			return nil, err
		}
		b, err := file.Provider(path).ReadBytes()
		if err != nil {
			return nil, sourceReadError(err, name, "failed to read configuration file", map[string]any{
				"path": path,
			})
		}
		out, err := parser.Unmarshal(b)
		if err != nil {
			return nil, sourceReadError(err, name, "failed to parse configuration file", map[string]any{
				"path":      path,
				"file_type": string(fileType),
			})
		}
		return out, nil
	}, opts...)
}

// Module is the set of named bindings exported by a code module.
type Module map[string]any

// ModuleLoader produces a Module, typically by evaluating Go code that
// returns configuration values.
type ModuleLoader func(ctx context.Context) (Module, error)

// NewModuleSource seeds the tree with the DefaultExport binding and then
// sets every other binding under its own name. Zero argument functions
// anywhere in the exports are called and replaced by their result.
func NewModuleSource(name string, load ModuleLoader, opts ...SourceOption) *Loader {
	srcName := string(SourceTypeModule) + ":" + name
	return NewLoader(SourceTypeModule, srcName, func(ctx context.Context) (map[string]any, error) {
		if load == nil {
			return nil, invalidArgument("module loader cannot be nil", map[string]any{"source": srcName})
		}
		exports, err := load(ctx)
		if err != nil {
			return nil, sourceReadError(err, srcName, "failed to load module", nil)
		}
		return moduleTree(srcName, exports)
	}, opts...)
}

func moduleTree(name string, exports Module) (map[string]any, error) {
	out := map[string]any{}

	if def, ok := exports[DefaultExport]; ok {
		value, err := exportValue(name, DefaultExport, def)
		if err != nil {
			return nil, err
		}
		if m, ok := value.(map[string]any); ok {
			out = m
		} else if value != nil {
			out[DefaultExport] = value
		}
	}

	for key, v := range exports {
		if key == DefaultExport {
			continue
		}
		value, err := exportValue(name, key, v)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func exportValue(name, key string, v any) (any, error) {
	evaluated, err := bind.EvalFuncs(v)
	if err != nil {
		return nil, sourceReadError(err, name, "failed to evaluate module export", map[string]any{
			"export": key,
		})
	}
	cloned, err := copystructure.Copy(evaluated)
	if err != nil {
		return nil, sourceReadError(err, name, "failed to copy module export", map[string]any{
			"export": key,
		})
	}
	return cloned, nil
}

// NewEnvFileSource reads KEY=value lines from path. See ParseEnvFile.
func NewEnvFileSource(path string, opts ...SourceOption) *Loader {
	name := string(SourceTypeEnvFile) + ":" + path
	return NewLoader(SourceTypeEnvFile, name, func(ctx context.Context) (map[string]any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := file.Provider(path).ReadBytes()
		if err != nil {
			return nil, sourceReadError(err, name, "failed to read env file", map[string]any{
				"path": path,
			})
		}
		out, err := ParseEnvFile(string(b))
		if err != nil {
			return nil, sourceReadError(err, name, "failed to parse env file", map[string]any{
				"path": path,
			})
		}
		return out, nil
	}, opts...)
}

// NewEnvVariablesSource serves a snapshot of the process environment
// taken at build time. Only variables starting with one of prefixes are
// kept; no prefixes, or an empty one, keeps everything. Keys are not
// rewritten, so dotted names such as "DB.HOST" nest.
func NewEnvVariablesSource(prefixes []string, opts ...SourceOption) *Loader {
	name := string(SourceTypeEnv)
	if len(prefixes) > 0 {
		name += ":" + strings.Join(prefixes, ",")
	}
	return NewLoader(SourceTypeEnv, name, func(context.Context) (map[string]any, error) {
		vars := env.Snapshot(os.Environ(), prefixes...)
		out := make(map[string]any, len(vars))
		for k, v := range vars {
			out[k] = v
		}
		return out, nil
	}, opts...)
}

// NewNestedEnvSource reads variables starting with prefix, strips the
// prefix, lower cases the rest and nests on delim:
//
//	APP_DATABASE__HOST=db  ->  {"database": {"host": "db"}}
//
// with prefix "APP_" and delim "__". An empty delim defaults to
// DefaultNestedEnvDelimiter.
func NewNestedEnvSource(prefix, delim string, opts ...SourceOption) *Loader {
	if delim == "" {
		delim = DefaultNestedEnvDelimiter
	}
	name := string(SourceTypeNestedEnv) + ":" + prefix
	return NewLoader(SourceTypeNestedEnv, name, func(context.Context) (map[string]any, error) {
		kprov := env.Provider(prefix, delim, func(s string) string {
			return strings.ToLower(strings.TrimPrefix(s, prefix))
		})
		out, err := kprov.Read()
		if err != nil {
			return nil, sourceReadError(err, name, "failed to read environment variables", map[string]any{
				"prefix":    prefix,
				"delimiter": delim,
			})
		}
		return out, nil
	}, opts...)
}

// UserSecretsPath returns <home>/.config/<id>/secrets.json where home is
// the first of HOME, APPDATA or USERPROFILE that is set.
func UserSecretsPath(id string) (string, error) {
	if id == "" {
		return "", invalidArgument("user secrets id cannot be empty", nil)
	}
	for _, key := range []string{"HOME", "home", "APPDATA", "appdata", "USERPROFILE", "userprofile"} {
		if home := os.Getenv(key); home != "" {
			return filepath.Join(home, ".config", id, DefaultSecretsFilename), nil
		}
	}
	return "", invalidArgument("could not determine the user secrets directory", map[string]any{
		"id": id,
	})
}

// NewUserSecretsSource reads the JSON secrets file for id. An empty path
// is resolved with UserSecretsPath.
func NewUserSecretsSource(id, path string, opts ...SourceOption) (*Loader, error) {
	if id == "" {
		return nil, invalidArgument("user secrets id cannot be empty", nil)
	}
	if path == "" {
		p, err := UserSecretsPath(id)
		if err != nil {
			return nil, err
		}
		path = p
	}
	l := NewJSONFileSource(path, opts...)
	l.name = string(SourceTypeSecrets) + ":" + id
	l.sourceType = SourceTypeSecrets
	return l, nil
}

// NewFlagsSource serves the flags of flagset that were set on the
// command line. Unchanged flags only contribute their defaults when
// includeDefaults is set.
func NewFlagsSource(flagset *pflag.FlagSet, includeDefaults bool, opts ...SourceOption) *Loader {
	name := string(SourceTypeFlags)
	return NewLoader(SourceTypeFlags, name, func(context.Context) (map[string]any, error) {
		if flagset == nil {
			return nil, invalidArgument("flagset cannot be nil", map[string]any{"source": name})
		}
		k := koanf.New(PathDelimiter)
		if err := k.Load(posflag.Provider(flagset, PathDelimiter, koanf.New(PathDelimiter)), nil); err != nil {
			return nil, sourceReadError(err, name, "failed to read flags", nil)
		}
		if !includeDefaults {
			flagset.VisitAll(func(f *pflag.Flag) {
				if !f.Changed {
					k.Delete(f.Name)
				}
			})
		}
		return k.Raw(), nil
	}, opts...)
}

// NewStructSource serves the fields of v, keyed by their koanf tag.
func NewStructSource(v any, opts ...SourceOption) *Loader {
	name := string(SourceTypeStruct)
	return NewLoader(SourceTypeStruct, name, func(context.Context) (map[string]any, error) {
		if v == nil {
			return nil, invalidArgument("struct cannot be nil", map[string]any{"source": name})
		}
		out, err := structs.Provider(v, "koanf").Read()
		if err != nil {
			return nil, sourceReadError(err, name, "failed to read struct", nil)
		}
		return out, nil
	}, opts...)
}

// ErrorFilter reports whether a build error should be ignored.
type ErrorFilter func(err error) bool

// DefaultErrorFilter ignores the allowed errors, or missing files when
// none are given.
func DefaultErrorFilter(allowed ...error) ErrorFilter {
	return func(err error) bool {
		if err == nil {
			return false
		}
		if len(allowed) == 0 {
			return goerrors.Is(err, os.ErrNotExist) || goerrors.Is(err, syscall.ENOENT)
		}
		for _, a := range allowed {
			if goerrors.Is(err, a) {
				return true
			}
		}
		return false
	}
}

// Optional wraps src so that build errors accepted by filter, missing
// files by default, produce an empty layer instead.
func Optional(src *Loader, filter ...ErrorFilter) *Loader {
	ignore := DefaultErrorFilter()
	if len(filter) > 0 && filter[0] != nil {
		ignore = filter[0]
	}
	load := src.load
	src.load = func(ctx context.Context) (map[string]any, error) {
		out, err := load(ctx)
		if ignore(err) {
			return map[string]any{}, nil
		}
		return out, err
	}
	return src
}

func cloneTree(name string, values map[string]any) (map[string]any, error) {
	if values == nil {
		return map[string]any{}, nil
	}
	cloned, err := copystructure.Copy(values)
	if err != nil {
		return nil, sourceReadError(err, name, "failed to copy values", nil)
	}
	return cloned.(map[string]any), nil
}

// WithMemorySource adds NewMemorySource(values) to b.
func WithMemorySource(b *Builder, values map[string]any, opts ...SourceOption) error {
	if values == nil {
		return invalidArgument("values cannot be nil", nil)
	}
	return b.Add(NewMemorySource(values, opts...))
}

// WithConfiguration adds NewConfigurationSource(cfg) to b.
func WithConfiguration(b *Builder, cfg *Configuration, opts ...SourceOption) error {
	if cfg == nil {
		return invalidArgument("configuration cannot be nil", nil)
	}
	return b.Add(NewConfigurationSource(cfg, opts...))
}

// WithJSONFile adds NewJSONFileSource(path) to b.
func WithJSONFile(b *Builder, path string, opts ...SourceOption) error {
	if path == "" {
		return invalidArgument("path cannot be empty", nil)
	}
	return b.Add(NewJSONFileSource(path, opts...))
}

// WithFile adds NewFileSource(path) to b, inferring the format.
func WithFile(b *Builder, path string, opts ...SourceOption) error {
	if path == "" {
		return invalidArgument("path cannot be empty", nil)
	}
	return b.Add(NewFileSource(path, "", opts...))
}

// WithModule adds NewModuleSource to b.
func WithModule(b *Builder, name string, load ModuleLoader, opts ...SourceOption) error {
	if load == nil {
		return invalidArgument("module loader cannot be nil", map[string]any{"module": name})
	}
	return b.Add(NewModuleSource(name, load, opts...))
}

// WithEnvFile adds NewEnvFileSource(path) to b.
func WithEnvFile(b *Builder, path string, opts ...SourceOption) error {
	if path == "" {
		return invalidArgument("path cannot be empty", nil)
	}
	return b.Add(NewEnvFileSource(path, opts...))
}

// WithEnvVariables adds NewEnvVariablesSource(prefixes) to b.
func WithEnvVariables(b *Builder, prefixes []string, opts ...SourceOption) error {
	return b.Add(NewEnvVariablesSource(prefixes, opts...))
}

// WithNestedEnv adds NewNestedEnvSource(prefix, delim) to b.
func WithNestedEnv(b *Builder, prefix, delim string, opts ...SourceOption) error {
	return b.Add(NewNestedEnvSource(prefix, delim, opts...))
}

// WithUserSecrets adds NewUserSecretsSource(id, path) to b.
func WithUserSecrets(b *Builder, id, path string, opts ...SourceOption) error {
	src, err := NewUserSecretsSource(id, path, opts...)
	if err != nil {
		return err
	}
	return b.Add(src)
}

// WithFlags adds NewFlagsSource(flagset) to b. Only flags set on the
// command line are read.
func WithFlags(b *Builder, flagset *pflag.FlagSet, opts ...SourceOption) error {
	if flagset == nil {
		return invalidArgument("flagset cannot be nil", nil)
	}
	return b.Add(NewFlagsSource(flagset, false, opts...))
}

// WithStruct adds NewStructSource(v) to b.
func WithStruct(b *Builder, v any, opts ...SourceOption) error {
	if v == nil {
		return invalidArgument("struct cannot be nil", nil)
	}
	return b.Add(NewStructSource(v, opts...))
}
