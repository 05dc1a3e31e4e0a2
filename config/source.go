package config

import (
	"context"
)

// Source contributes one layer of configuration to a Builder.
//
// A Builder calls PreBuild, Build and PostBuild in that order, once per
// Builder.Build call. PostBuild receives the tree returned by Build and
// the configuration accumulated from the sources added before this one.
type Source interface {
	Name() string
	PreBuild(ctx context.Context) error
	Build(ctx context.Context) (map[string]any, error)
	PostBuild(ctx context.Context, raw map[string]any, acc *Configuration) (map[string]any, error)
}

// ValidatorFunc checks, and may replace, a tree. The result must be a
// map[string]any or a *Configuration.
type ValidatorFunc func(ctx context.Context, values map[string]any) (any, error)

// SourceOptions holds the per source settings.
type SourceOptions struct {
	// ExpandVariables turns on ${NAME} expansion in PostBuild.
	ExpandVariables bool
	// Coerce converts expanded strings with Coerce. It has no effect
	// when ExpandVariables is off.
	Coerce bool
	// Validation runs after expansion.
	Validation ValidatorFunc
}

// SourceOption mutates SourceOptions.
type SourceOption func(*SourceOptions)

// DefaultSourceOptions expands and coerces with no validation.
func DefaultSourceOptions() SourceOptions {
	return SourceOptions{
		ExpandVariables: true,
		Coerce:          true,
	}
}

func WithExpansion(enabled bool) SourceOption {
	return func(o *SourceOptions) {
		o.ExpandVariables = enabled
	}
}

func WithoutExpansion() SourceOption {
	return WithExpansion(false)
}

func WithCoercion(enabled bool) SourceOption {
	return func(o *SourceOptions) {
		o.Coerce = enabled
	}
}

func WithoutCoercion() SourceOption {
	return WithCoercion(false)
}

// WithSourceValidation sets the validator run at the end of PostBuild.
func WithSourceValidation(fn ValidatorFunc) SourceOption {
	return func(o *SourceOptions) {
		o.Validation = fn
	}
}

// BaseSource implements the optional parts of Source. Embed it and
// provide Build.
type BaseSource struct {
	name    string
	options SourceOptions
}

func NewBaseSource(name string, opts ...SourceOption) BaseSource {
	options := DefaultSourceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return BaseSource{name: name, options: options}
}

func (b *BaseSource) Name() string {
	return b.name
}

func (b *BaseSource) Options() SourceOptions {
	return b.options
}

func (b *BaseSource) PreBuild(context.Context) error {
	return nil
}

// PostBuild expands raw against itself and acc, then validates.
func (b *BaseSource) PostBuild(ctx context.Context, raw map[string]any, acc *Configuration) (map[string]any, error) {
	values := raw
	if b.options.ExpandVariables {
		expanded, err := NewInterpolator(b.options.Coerce).Expand(raw, acc)
		if err != nil {
			return nil, err
		}
		values = expanded
	}

	return runValidator(ctx, b.options.Validation, values, "SOURCE_VALIDATION_FAILED", map[string]any{
		"source": b.name,
	})
}

func runValidator(ctx context.Context, fn ValidatorFunc, values map[string]any, code string, meta map[string]any) (map[string]any, error) {
	if fn == nil {
		return values, nil
	}

	result, err := fn(ctx, values)
	if err != nil {
		return nil, validationError(err, code, "configuration validation failed", meta)
	}

	switch out := result.(type) {
	case map[string]any:
		return out, nil
	case *Configuration:
		if out != nil {
			return out.Raw(), nil
		}
	}

	md := map[string]any{"result_type": typeName(result)}
	for k, v := range meta {
		md[k] = v
	}
	return nil, invalidArgument("validator must return a map or a *Configuration", md)
}
