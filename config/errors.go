package config

import (
	goerrors "errors"
	"fmt"

	"github.com/goliatone/go-errors"
)

var (
	// ErrInvalidArgument is returned for nil or wrongly typed arguments.
	ErrInvalidArgument = goerrors.New("invalid argument")
	// ErrInvalidKey is returned by Assign when the key is neither a string nor a map.
	ErrInvalidKey = fmt.Errorf("%w: invalid key", ErrInvalidArgument)
	// ErrSectionNotFound is returned by RequiredSection when the path is absent.
	ErrSectionNotFound = goerrors.New("section not found")
	// ErrSourceRead wraps adapter level read and parse failures.
	ErrSourceRead = goerrors.New("source read failed")
	// ErrValidationFailure wraps errors raised by source or builder validators.
	ErrValidationFailure = goerrors.New("validation failed")
	// ErrCyclicReference is returned when variable references form a loop.
	ErrCyclicReference = goerrors.New("cyclic variable reference")
)

func invalidArgument(msg string, meta map[string]any) error {
	err := errors.Wrap(ErrInvalidArgument, errors.CategoryBadInput, msg).
		WithTextCode("INVALID_ARGUMENT")
	if meta != nil {
		err = err.WithMetadata(meta)
	}
	return err
}

func sourceReadError(err error, name, msg string, meta map[string]any) error {
	md := map[string]any{"source": name}
	for k, v := range meta {
		md[k] = v
	}
	return errors.Wrap(joinSentinel(ErrSourceRead, err), errors.CategoryOperation, msg).
		WithTextCode("SOURCE_READ_FAILED").
		WithMetadata(md)
}

func validationError(err error, code, msg string, meta map[string]any) error {
	e := errors.Wrap(joinSentinel(ErrValidationFailure, err), errors.CategoryValidation, msg).
		WithTextCode(code)
	if meta != nil {
		e = e.WithMetadata(meta)
	}
	return e
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

// joinSentinel keeps both the sentinel and the cause reachable through errors.Is.
func joinSentinel(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	if goerrors.Is(cause, sentinel) {
		return cause
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
