package config

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/dymexjs/config/logger"
	"github.com/dymexjs/config/resolvers"
	"github.com/goliatone/go-errors"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// Builder composes an ordered list of sources into one Configuration.
//
// Sources are built in the order they were added. Each one sees the
// configuration merged from the sources before it, and its own tree is
// merged over that, so later sources win on conflicting keys.
type Builder struct {
	sources   []Source
	validator ValidatorFunc
	resolvers []resolvers.Resolver
	logger    logger.Logger
	timeout   time.Duration
}

func NewBuilder() *Builder {
	return &Builder{
		logger: logger.Nop(),
	}
}

// WithValidator sets the whole configuration validator run after the
// last source. Its result replaces the built tree.
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	b.validator = fn
	return b
}

func (b *Builder) WithLogger(l logger.Logger) *Builder {
	if l != nil {
		b.logger = l
	}
	return b
}

// WithTimeout bounds Build. Zero means no limit.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	return b
}

// WithResolvers appends resolvers run on the merged tree before the
// validator.
func (b *Builder) WithResolvers(rs ...resolvers.Resolver) *Builder {
	for _, r := range rs {
		if r != nil {
			b.resolvers = append(b.resolvers, r)
		}
	}
	return b
}

// Add appends src. Adding a source that is already registered is a
// no-op; a nil source fails with ErrInvalidArgument.
func (b *Builder) Add(src Source) error {
	if isNil(src) {
		return invalidArgument("source cannot be nil", nil)
	}
	for _, existing := range b.sources {
		if sameSource(existing, src) {
			b.logger.Debug("source already registered", "source", src.Name())
			return nil
		}
	}
	b.sources = append(b.sources, src)
	return nil
}

// Sources returns the registered sources in build order.
func (b *Builder) Sources() []Source {
	out := make([]Source, len(b.sources))
	copy(out, b.sources)
	return out
}

// Build runs every source and returns the merged configuration. The
// first failure aborts the build.
func (b *Builder) Build(ctx context.Context) (*Configuration, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	acc := New(nil)
	total := len(b.sources)

	for i, src := range b.sources {
		meta := map[string]any{
			"source":        src.Name(),
			"source_index":  i,
			"total_sources": total,
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CategoryOperation, "configuration build cancelled").
				WithTextCode("BUILD_CANCELLED").
				WithMetadata(meta)
		}

		b.logger.Debug("building source", "source", src.Name(), "index", i)

		if err := src.PreBuild(ctx); err != nil {
			return nil, wrapStage(err, "failed to prepare configuration source", "SOURCE_PREBUILD_FAILED", meta)
		}

		raw, err := src.Build(ctx)
		if err != nil {
			return nil, wrapStage(err, "failed to build configuration source", "SOURCE_BUILD_FAILED", meta)
		}
		if raw == nil {
			raw = map[string]any{}
		}

		values, err := src.PostBuild(ctx, raw, acc)
		if err != nil {
			return nil, wrapStage(err, "failed to post-process configuration source", "SOURCE_POSTBUILD_FAILED", meta)
		}

		acc.Merge(values)
		b.logger.Debug("merged source", "source", src.Name(), "keys", len(values))
	}

	if len(b.resolvers) > 0 {
		resolved, err := b.resolve(acc)
		if err != nil {
			return nil, err
		}
		acc = resolved
	}

	if b.validator == nil {
		return acc, nil
	}

	result, err := b.validator(ctx, acc.Raw())
	if err != nil {
		return nil, validationError(err, "CONFIG_VALIDATION_FAILED", "configuration validation failed", map[string]any{
			"total_sources": total,
		})
	}
	switch out := result.(type) {
	case *Configuration:
		if out != nil {
			return out, nil
		}
	case map[string]any:
		return New(out), nil
	}
	return nil, invalidArgument("validator must return a map or a *Configuration", map[string]any{
		"result_type":   typeName(result),
		"total_sources": total,
	})
}

// MustBuild is Build that panics on error.
func (b *Builder) MustBuild(ctx context.Context) *Configuration {
	cfg, err := b.Build(ctx)
	if err != nil {
		panic(fmt.Sprintf("failed to build configuration: %v", err))
	}
	return cfg
}

func (b *Builder) resolve(acc *Configuration) (cfg *Configuration, err error) {
	k := koanf.New(PathDelimiter)
	if err := k.Load(confmap.Provider(acc.Plain(), ""), nil); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to load configuration for resolvers").
			WithTextCode("RESOLVER_FAILED")
	}

	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			cfg = nil
			err = errors.Wrap(cause, errors.CategoryOperation, "resolver failed").
				WithTextCode("RESOLVER_FAILED")
		}
	}()

	for i, r := range b.resolvers {
		b.logger.Debug("running resolver", "index", i)
		k = r.Resolve(k)
	}
	return New(k.Raw()), nil
}

func wrapStage(err error, msg, code string, meta map[string]any) error {
	return errors.Wrap(err, errors.CategoryOperation, msg).
		WithTextCode(code).
		WithMetadata(meta)
}

func isNil(src Source) bool {
	if src == nil {
		return true
	}
	v := reflect.ValueOf(src)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func sameSource(a, b Source) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
