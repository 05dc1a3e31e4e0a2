package bind

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mitchellh/copystructure"
)

var (
	ErrDefaults   = errors.New("bind: defaults stage failed")
	ErrPreprocess = errors.New("bind: preprocess stage failed")
	ErrDecode     = errors.New("bind: decode stage failed")
	ErrValidate   = errors.New("bind: validate stage failed")
	// ErrOption is returned before any stage runs when the options
	// contradict each other.
	ErrOption = errors.New("bind: option configuration failed")
)

// StageError names the step of Decode that failed. Stage is one of
// "defaults", "preprocess", "decode" or "validate".
type StageError struct {
	Stage string
	Base  error
	Err   error
	Meta  map[string]any
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return []error{e.Base, e.Err}
}

func failed(stage string, base, err error, meta map[string]any) *StageError {
	return &StageError{Stage: stage, Base: base, Err: err, Meta: meta}
}

type decoder[T any] struct {
	defaults      func() (T, error)
	preprocessors []Preprocessor
	config        mapstructure.DecoderConfig
	validator     Validator[T]
	structTags    bool
	skipSelf      bool
	skipHooks     bool
	err           error
}

func (d *decoder[T]) reject(msg string) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s", ErrOption, msg)
	}
}

// Decode copies input into a new T. Plain maps, as returned by
// Configuration.Plain, are the usual input. Numbers arriving as strings
// or float64 are converted to the field type.
func Decode[T any](input any, opts ...Option[T]) (T, error) {
	var zero T

	d := &decoder[T]{
		config: mapstructure.DecoderConfig{
			TagName:          "mapstructure",
			WeaklyTypedInput: true,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if d.err != nil {
		return zero, d.err
	}

	out, err := d.start()
	if err != nil {
		return zero, err
	}

	data := input
	for idx, step := range d.preprocessors {
		next, err := step(data)
		if err != nil {
			return zero, failed("preprocess", ErrPreprocess, err, map[string]any{"preprocessor_index": idx})
		}
		data = next
	}
	if data == nil {
		data = input
	}

	if err := d.decode(data, &out); err != nil {
		return zero, err
	}
	if err := d.check(&out); err != nil {
		return zero, err
	}
	return out, nil
}

// start returns a private copy of the default value.
func (d *decoder[T]) start() (T, error) {
	var zero T
	if d.defaults == nil {
		return zero, nil
	}

	value, err := d.defaults()
	if err != nil {
		return zero, failed("defaults", ErrDefaults, err, nil)
	}
	copied, err := copystructure.Copy(value)
	if err != nil {
		return zero, failed("defaults", ErrDefaults, err, map[string]any{"reason": "clone"})
	}
	out, ok := copied.(T)
	if !ok {
		return zero, failed("defaults", ErrDefaults, fmt.Errorf("copy of %T has type %T", value, copied), map[string]any{"reason": "clone"})
	}
	return out, nil
}

func (d *decoder[T]) decode(data any, out *T) error {
	conf := d.config
	conf.Result = target(out)
	if !d.skipHooks {
		conf.DecodeHook = mapstructure.ComposeDecodeHookFunc(DefaultDecodeHooks()...)
	}

	dec, err := mapstructure.NewDecoder(&conf)
	if err != nil {
		return failed("decode", ErrDecode, err, map[string]any{"reason": "decoder_config"})
	}
	if err := dec.Decode(data); err != nil {
		return failed("decode", ErrDecode, err, nil)
	}
	return nil
}

// target is the pointer mapstructure writes through. A pointer T is
// allocated so the caller gets a usable value back.
func target[T any](out *T) any {
	v := reflect.ValueOf(out).Elem()
	if v.Kind() != reflect.Pointer {
		return out
	}
	if v.IsNil() {
		v.Set(reflect.New(v.Type().Elem()))
	}
	return v.Interface()
}

func (d *decoder[T]) check(out *T) error {
	if d.structTags {
		if err := Struct(out); err != nil {
			return failed("validate", ErrValidate, err, map[string]any{"validator": "struct_tags"})
		}
	}

	if !d.skipSelf {
		if err := selfValidate(out); err != nil {
			return failed("validate", ErrValidate, err, map[string]any{"validator": "self"})
		}
	}

	if d.validator != nil {
		if err := d.validator(out); err != nil {
			return failed("validate", ErrValidate, err, nil)
		}
	}
	return nil
}

// selfValidate calls Validate on the value or, failing that, on its
// address. Nil pointers are skipped.
func selfValidate[T any](out *T) error {
	if v, ok := any(*out).(Validable); ok {
		if rv := reflect.ValueOf(*out); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil
		}
		return v.Validate()
	}
	if v, ok := any(out).(Validable); ok {
		return v.Validate()
	}
	return nil
}
