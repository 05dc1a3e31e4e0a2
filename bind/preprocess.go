package bind

import (
	"fmt"
	"reflect"
	"strings"
)

// Preprocessor rewrites the decode input. When the last one returns nil
// Decode falls back to the original input.
type Preprocessor func(any) (any, error)

// PreprocessEvalFuncs runs EvalFuncs over the input.
func PreprocessEvalFuncs() Preprocessor {
	return func(input any) (any, error) {
		return EvalFuncs(input)
	}
}

// EvalFuncs returns a copy of input where every function taking no
// arguments is replaced by its result, walking into maps, slices and
// exported struct fields. Structs come back as map[string]any keyed by
// their mapstructure tag, then json tag, then field name. A function
// with a trailing error result, or one that panics, stops the walk.
func EvalFuncs(input any) (any, error) {
	if input == nil {
		return nil, nil
	}
	val := reflect.ValueOf(input)
	switch val.Kind() {
	case reflect.Map:
		return evalMap(val)
	case reflect.Struct:
		if isOpaqueStruct(val.Type()) {
			return input, nil
		}
		return evalStruct(val)
	case reflect.Slice, reflect.Array:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			return input, nil
		}
		return evalSlice(val)
	case reflect.Pointer, reflect.Interface:
		if val.IsNil() {
			return nil, nil
		}
		return EvalFuncs(val.Elem().Interface())
	case reflect.Func:
		out, err := callFunc(val)
		if err != nil {
			return nil, err
		}
		if reflect.ValueOf(out).Kind() == reflect.Func {
			return out, nil
		}
		return EvalFuncs(out)
	default:
		return input, nil
	}
}

// isOpaqueStruct reports structs without exported fields, such as
// time.Time. They are kept whole.
func isOpaqueStruct(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).PkgPath == "" {
			return false
		}
	}
	return true
}

func evalMap(val reflect.Value) (any, error) {
	result := make(map[string]any, val.Len())
	iter := val.MapRange()
	for iter.Next() {
		key := iter.Key()
		if key.Kind() != reflect.String {
			return nil, fmt.Errorf("bind: expected string map key, got %T", key.Interface())
		}
		evaluated, err := EvalFuncs(iter.Value().Interface())
		if err != nil {
			return nil, err
		}
		result[key.String()] = evaluated
	}
	return result, nil
}

func evalStruct(val reflect.Value) (any, error) {
	result := make(map[string]any, val.NumField())
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" {
			continue
		}
		key := tagName(field)
		if key == "-" {
			continue
		}
		evaluated, err := EvalFuncs(val.Field(i).Interface())
		if err != nil {
			return nil, err
		}
		result[key] = evaluated
	}
	return result, nil
}

func tagName(field reflect.StructField) string {
	for _, tag := range []string{"mapstructure", "json"} {
		if name, _, _ := strings.Cut(field.Tag.Get(tag), ","); name != "" {
			return name
		}
	}
	return strings.TrimSpace(field.Name)
}

func evalSlice(val reflect.Value) (any, error) {
	result := make([]any, val.Len())
	for i := 0; i < val.Len(); i++ {
		evaluated, err := EvalFuncs(val.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		result[i] = evaluated
	}
	return result, nil
}

func callFunc(val reflect.Value) (result any, err error) {
	if val.IsNil() || val.Type().NumIn() != 0 || val.Type().NumOut() == 0 {
		return val.Interface(), nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bind: eval func panic: %v", r)
		}
	}()

	outputs := val.Call(nil)
	switch len(outputs) {
	case 1:
		return outputs[0].Interface(), nil
	case 2:
		if e, ok := outputs[1].Interface().(error); ok && e != nil {
			return nil, e
		}
		return outputs[0].Interface(), nil
	}
	return val.Interface(), nil
}
