package bind

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalFuncs_Map(t *testing.T) {
	input := map[string]any{
		"name": func() string { return "dynamic" },
		"count": func() (int, error) {
			return 42, nil
		},
		"nested": map[string]any{
			"value": func() int { return 7 },
		},
	}

	result, err := EvalFuncs(input)
	require.NoError(t, err)

	output := result.(map[string]any)
	assert.Equal(t, "dynamic", output["name"])
	assert.Equal(t, 42, output["count"])
	assert.Equal(t, 7, output["nested"].(map[string]any)["value"])
}

func TestEvalFuncs_Struct(t *testing.T) {
	input := struct {
		Name    func() string `mapstructure:"name"`
		Count   func() int    `json:"count,omitempty"`
		Skipped string        `json:"-"`
		Plain   bool
		hidden  int
	}{
		Name:  func() string { return "struct" },
		Count: func() int { return 10 },
		Plain: true,
	}

	result, err := EvalFuncs(input)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "struct", "count": 10, "Plain": true}, result)
}

func TestEvalFuncs_KeepsOpaqueValues(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	result, err := EvalFuncs(map[string]any{
		"at":    at,
		"bytes": []byte("raw"),
		"list":  []string{"a", "b"},
	})
	require.NoError(t, err)

	output := result.(map[string]any)
	assert.Equal(t, at, output["at"])
	assert.Equal(t, []byte("raw"), output["bytes"])
	assert.Equal(t, []any{"a", "b"}, output["list"])
}

func TestEvalFuncs_Errors(t *testing.T) {
	_, err := EvalFuncs(map[string]any{
		"value": func() (int, error) { return 0, errors.New("boom") },
	})
	assert.EqualError(t, err, "boom")

	_, err = EvalFuncs(map[string]any{
		"value": func() any { panic("nope") },
	})
	assert.ErrorContains(t, err, "eval func panic")

	_, err = EvalFuncs(map[int]any{1: "bad"})
	assert.Error(t, err)
}

func TestWithPreprocessEvalFuncs(t *testing.T) {
	input := struct {
		Name func() string `mapstructure:"name"`
	}{
		Name: func() string { return "dynamic" },
	}

	cfg, err := Decode[sampleConfig](input, WithPreprocessEvalFuncs[sampleConfig]())
	require.NoError(t, err)
	assert.Equal(t, "dynamic", cfg.Name)
}
