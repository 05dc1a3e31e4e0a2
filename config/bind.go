package config

import (
	"context"

	"github.com/dymexjs/config/bind"
	"github.com/goliatone/go-errors"
)

// Bind decodes the section at path into a T. An empty path binds the
// whole tree. Absent placeholders are decoded as zero values.
func Bind[T any](cfg *Configuration, path string, opts ...bind.Option[T]) (T, error) {
	var zero T
	if cfg == nil {
		return zero, invalidArgument("configuration cannot be nil", nil)
	}

	section := cfg
	if path != "" {
		section = cfg.Section(path)
	}

	out, err := bind.Decode[T](section.Plain(), opts...)
	if err != nil {
		return zero, errors.Wrap(err, errors.CategoryOperation, "failed to bind configuration").
			WithTextCode("BIND_FAILED").
			WithMetadata(map[string]any{
				"path": path,
				"type": typeName(zero),
			})
	}
	return out, nil
}

// StructValidator returns a ValidatorFunc that decodes the tree into a T
// with struct tag validation on, and rejects the tree when decoding or
// validation fails. The tree itself is returned unchanged.
func StructValidator[T any](opts ...bind.Option[T]) ValidatorFunc {
	opts = append([]bind.Option[T]{bind.WithStructValidation[T]()}, opts...)
	return func(_ context.Context, values map[string]any) (any, error) {
		if _, err := bind.Decode[T](New(values).Plain(), opts...); err != nil {
			return nil, err
		}
		return values, nil
	}
}
