// Package bind turns a configuration tree into a typed value.
//
// Decode fills a T in four steps. Defaults seed the value, preprocessors
// rewrite the input, mapstructure copies it into the value and the
// validators check the outcome. Any failing step returns a *StageError
// that errors.Is matches against ErrDefaults, ErrPreprocess, ErrDecode or
// ErrValidate.
//
// Struct tags named `validate` are checked with go-playground/validator
// when WithStructValidation is given. A result implementing Validable is
// asked to Validate itself unless WithoutSelfValidation is given.
package bind
