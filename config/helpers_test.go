package config

import (
	"context"
	goerrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/require"
)

// textCode returns the text code of the outermost go-errors error in err.
func textCode(err error) string {
	var e *errors.Error
	if goerrors.As(err, &e) {
		return e.TextCode
	}
	return ""
}

func createTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func build(t *testing.T, b *Builder) *Configuration {
	t.Helper()
	cfg, err := b.Build(context.Background())
	require.NoError(t, err)
	return cfg
}

// staticSource is a minimal Source used to observe the builder protocol.
type staticSource struct {
	BaseSource
	values  map[string]any
	calls   []string
	preErr  error
	buildFn func() (map[string]any, error)
}

func newStaticSource(name string, values map[string]any, opts ...SourceOption) *staticSource {
	return &staticSource{BaseSource: NewBaseSource(name, opts...), values: values}
}

func (s *staticSource) PreBuild(context.Context) error {
	s.calls = append(s.calls, "pre")
	return s.preErr
}

func (s *staticSource) Build(context.Context) (map[string]any, error) {
	s.calls = append(s.calls, "build")
	if s.buildFn != nil {
		return s.buildFn()
	}
	return s.values, nil
}

func (s *staticSource) PostBuild(ctx context.Context, raw map[string]any, acc *Configuration) (map[string]any, error) {
	s.calls = append(s.calls, "post")
	return s.BaseSource.PostBuild(ctx, raw, acc)
}
