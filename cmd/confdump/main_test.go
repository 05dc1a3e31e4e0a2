package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (map[string]any, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	var result map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	return result, nil
}

func TestConfdump(t *testing.T) {
	dir := t.TempDir()
	jsonPath := writeFile(t, dir, "config.json", `{"app":{"name":"${APP_NAME:-demo}","port":"8080"}}`)
	envPath := writeFile(t, dir, "app.env", "APP_NAME=from-env-file\nTOKEN=@base64://c2VjcmV0\n")
	t.Setenv("CONFDUMP_DB__HOST", "db")

	tests := []struct {
		name     string
		args     []string
		expected map[string]any
	}{
		{
			name: "json file",
			args: []string{"--source", "json:" + jsonPath},
			expected: map[string]any{
				"app": map[string]any{"name": "demo", "port": 8080.0},
			},
		},
		{
			name: "earlier sources feed later defaults",
			args: []string{"-s", "envfile:" + envPath, "-s", "json:" + jsonPath, "--section", "app"},
			expected: map[string]any{
				"name": "from-env-file",
				"port": 8080.0,
			},
		},
		{
			name: "no coercion",
			args: []string{"--source", "file:" + jsonPath, "--no-coerce", "--section", "app"},
			expected: map[string]any{
				"name": "demo",
				"port": "8080",
			},
		},
		{
			name: "no expansion",
			args: []string{"--source", "json:" + jsonPath, "--no-expand", "--section", "app"},
			expected: map[string]any{
				"name": "${APP_NAME:-demo}",
				"port": "8080",
			},
		},
		{
			name: "nested env",
			args: []string{"--source", "nestedenv:CONFDUMP_"},
			expected: map[string]any{
				"db": map[string]any{"host": "db"},
			},
		},
		{
			name: "resolvers",
			args: []string{"--source", "envfile:" + envPath, "--resolve"},
			expected: map[string]any{
				"APP_NAME": "from-env-file",
				"TOKEN":    "secret",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConfdumpSecrets(t *testing.T) {
	home := t.TempDir()
	for _, key := range []string{"home", "APPDATA", "appdata", "USERPROFILE", "userprofile"} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "confdump-test")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	writeFile(t, dir, "secrets.json", `{"api":{"key":"s3cr3t"}}`)

	result, err := execute(t, "--secrets-id", "confdump-test", "--section", "api")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"key": "s3cr3t"}, result)
}

func TestConfdumpErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown kind", []string{"--source", "redis:localhost"}},
		{"missing file", []string{"--source", "json:" + filepath.Join(t.TempDir(), "missing.json")}},
		{"empty path", []string{"--source", "json:"}},
		{"missing section", []string{"--section", "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}
