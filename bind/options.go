package bind

// Option adjusts a single Decode call.
type Option[T any] func(*decoder[T])

// Validator checks a decoded value.
type Validator[T any] func(*T) error

// Validable is implemented by values that know how to check themselves.
type Validable interface {
	Validate() error
}

// WithDefaults starts decoding from a deep copy of value. Keys missing
// from the input keep the default.
func WithDefaults[T any](value T) Option[T] {
	return WithDefaultFunc(func() (T, error) { return value, nil })
}

// WithDefaultFunc calls fn for the starting value of each decode.
func WithDefaultFunc[T any](fn func() (T, error)) Option[T] {
	return func(d *decoder[T]) {
		d.defaults = fn
	}
}

// WithPreprocess adds input rewrites. They run in the order given.
func WithPreprocess[T any](steps ...Preprocessor) Option[T] {
	return func(d *decoder[T]) {
		for _, step := range steps {
			if step != nil {
				d.preprocessors = append(d.preprocessors, step)
			}
		}
	}
}

func WithPreprocessFunc[T any](fn func(any) (any, error)) Option[T] {
	if fn == nil {
		return WithPreprocess[T]()
	}
	return WithPreprocess[T](fn)
}

// WithPreprocessEvalFuncs replaces functions in the input by what they
// return, see EvalFuncs.
func WithPreprocessEvalFuncs[T any]() Option[T] {
	return WithPreprocess[T](PreprocessEvalFuncs())
}

// WithStrictKeys rejects input keys without a matching field and clears
// fields the defaults filled before decoding.
func WithStrictKeys[T any]() Option[T] {
	return func(d *decoder[T]) {
		d.config.ErrorUnused = true
		d.config.ZeroFields = true
	}
}

// WithTagName matches keys with tag instead of `mapstructure`.
func WithTagName[T any](tag string) Option[T] {
	return func(d *decoder[T]) {
		if tag != "" {
			d.config.TagName = tag
		}
	}
}

// WithValidator sets the final check. Registering a second one makes
// Decode fail with ErrOption.
func WithValidator[T any](fn Validator[T]) Option[T] {
	return func(d *decoder[T]) {
		switch {
		case fn == nil:
		case d.validator != nil:
			d.reject("validator already registered")
		default:
			d.validator = fn
		}
	}
}

// WithValidatorFunc is WithValidator for checks that take the value.
func WithValidatorFunc[T any](fn func(T) error) Option[T] {
	if fn == nil {
		return WithValidator[T](nil)
	}
	return WithValidator(func(v *T) error {
		var value T
		if v != nil {
			value = *v
		}
		return fn(value)
	})
}

func WithStructValidation[T any]() Option[T] {
	return func(d *decoder[T]) {
		d.structTags = true
	}
}

func WithoutSelfValidation[T any]() Option[T] {
	return func(d *decoder[T]) {
		d.skipSelf = true
	}
}

// WithoutDefaultHooks leaves out DefaultDecodeHooks, so durations and
// times must already have their Go types.
func WithoutDefaultHooks[T any]() Option[T] {
	return func(d *decoder[T]) {
		d.skipHooks = true
	}
}
