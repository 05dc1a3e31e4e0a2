package bind

import (
	"encoding"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// DefaultDecodeHooks returns the hooks Decode installs unless
// WithoutDefaultHooks is given.
func DefaultDecodeHooks() []mapstructure.DecodeHookFunc {
	return []mapstructure.DecodeHookFunc{
		DurationHook(),
		TimeHook(),
		TextUnmarshalerHook(),
	}
}

// DurationHook converts strings such as "5s" into time.Duration.
func DurationHook() mapstructure.DecodeHookFunc {
	return mapstructure.StringToTimeDurationHookFunc()
}

var timeType = reflect.TypeOf(time.Time{})

// TimeHook fills time.Time fields from RFC 3339 strings. time.Time values,
// as produced by coercion, pass through untouched.
func TimeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != timeType {
			return data, nil
		}
		switch v := data.(type) {
		case time.Time:
			return v, nil
		case string:
			return time.Parse(time.RFC3339Nano, v)
		}
		return data, nil
	}
}

// TextUnmarshalerHook decodes strings into encoding.TextUnmarshaler targets.
func TextUnmarshalerHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to == timeType {
			return data, nil
		}
		result := reflect.New(to).Interface()
		unmarshaller, ok := result.(encoding.TextUnmarshaler)
		if !ok {
			return data, nil
		}

		dataVal := reflect.ValueOf(data)
		text := []byte(dataVal.String())
		if from.Kind() == to.Kind() {
			ptrVal := reflect.New(dataVal.Type())
			if ptrVal.Elem().CanSet() {
				ptrVal.Elem().Set(dataVal)
			}
			for _, candidate := range []reflect.Value{dataVal, ptrVal} {
				if marshaller, ok := candidate.Interface().(encoding.TextMarshaler); ok {
					marshaled, err := marshaller.MarshalText()
					if err != nil {
						return nil, err
					}
					text = marshaled
					break
				}
			}
		}

		if err := unmarshaller.UnmarshalText(text); err != nil {
			return nil, err
		}
		return result, nil
	}
}
