package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationGet(t *testing.T) {
	cfg := New(map[string]any{
		"app": map[string]any{
			"name":    "demo",
			"enabled": false,
			"retries": 0.0,
			"empty":   "",
		},
		"servers": []any{
			map[string]any{"host": "alpha"},
			map[string]any{"host": "beta"},
		},
		"flat.key": "literal",
	})

	tests := []struct {
		path     string
		expected any
		present  bool
	}{
		{"app.name", "demo", true},
		{"app.enabled", false, true},
		{"app.retries", 0.0, true},
		{"app.empty", "", true},
		{"servers[1].host", "beta", true},
		{"servers.0.host", "alpha", true},
		{"flat.key", "literal", true},
		{"servers[2].host", nil, false},
		{"app.name.first", nil, false},
		{"missing", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v, ok := cfg.Lookup(tt.path)
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.expected, v)
			assert.Equal(t, tt.present, cfg.Has(tt.path))
		})
	}

	assert.Equal(t, "fallback", cfg.Get("missing", "fallback"))
	assert.Nil(t, cfg.Get("missing"))
	assert.Equal(t, "demo", cfg.GetString("app.name"))
	assert.Equal(t, "x", cfg.GetString("app.enabled", "x"))
}

func TestConfigurationStoredNilIsPresent(t *testing.T) {
	cfg := New(map[string]any{"value": nil})
	assert.True(t, cfg.Has("value"))
	assert.Equal(t, "def", cfg.Get("other", "def"))
	assert.Nil(t, cfg.Get("value", "def"))
}

func TestConfigurationSet(t *testing.T) {
	t.Run("nested path", func(t *testing.T) {
		cfg := New(nil)
		cfg.Set("db.primary.host", "localhost")
		cfg.Set("db.primary.port", 5432)

		assert.Equal(t, map[string]any{
			"db": map[string]any{
				"primary": map[string]any{"host": "localhost", "port": 5432},
			},
		}, cfg.Raw())
	})

	t.Run("index path leaves holes", func(t *testing.T) {
		cfg := New(nil)
		cfg.Set("servers[2].host", "gamma")

		list, ok := cfg.Get("servers").([]any)
		require.True(t, ok)
		require.Len(t, list, 3)
		assert.True(t, IsAbsent(list[0]))
		assert.True(t, IsAbsent(list[1]))
		assert.False(t, cfg.Has("servers[0]"))
		assert.Equal(t, "gamma", cfg.Get("servers[2].host"))
	})

	t.Run("index path patches existing list", func(t *testing.T) {
		cfg := New(map[string]any{
			"servers": []any{
				map[string]any{"host": "alpha", "port": 1.0},
				map[string]any{"host": "beta"},
			},
		})
		cfg.Set("servers[0].host", "omega")
		cfg.Set("servers[3]", "tail")

		assert.Equal(t, "omega", cfg.Get("servers[0].host"))
		assert.Equal(t, 1.0, cfg.Get("servers[0].port"))
		assert.Equal(t, "beta", cfg.Get("servers[1].host"))
		assert.False(t, cfg.Has("servers[2]"))
		assert.Equal(t, "tail", cfg.Get("servers[3]"))
	})

	t.Run("single key", func(t *testing.T) {
		cfg := New(nil)
		cfg.Set("name", "demo")
		assert.Equal(t, "demo", cfg.Get("name"))
	})

	t.Run("absent is a no-op", func(t *testing.T) {
		cfg := New(map[string]any{"name": "demo"})
		cfg.Set("name", Absent)
		assert.Equal(t, "demo", cfg.Get("name"))
	})

	t.Run("typed maps are normalized", func(t *testing.T) {
		cfg := New(nil)
		cfg.Set("labels", map[string]string{"team": "core"})
		cfg.Set("ports", []int{80, 443})

		assert.Equal(t, "core", cfg.Get("labels.team"))
		assert.Equal(t, []any{80, 443}, cfg.Get("ports"))
	})
}

func TestConfigurationMerge(t *testing.T) {
	t.Run("maps recurse", func(t *testing.T) {
		cfg := New(map[string]any{
			"db": map[string]any{"host": "localhost", "port": 5432},
		})
		cfg.Merge(map[string]any{
			"db":   map[string]any{"user": "admin"},
			"name": "demo",
		})

		assert.Equal(t, "localhost", cfg.Get("db.host"))
		assert.Equal(t, "admin", cfg.Get("db.user"))
		assert.Equal(t, "demo", cfg.Get("name"))
	})

	t.Run("scalar replaces subtree", func(t *testing.T) {
		cfg := New(map[string]any{
			"db": map[string]any{"host": "localhost"},
		})
		cfg.Merge(map[string]any{"db": "postgres://db"})
		assert.Equal(t, "postgres://db", cfg.Get("db"))
		assert.False(t, cfg.Has("db.host"))
	})

	t.Run("subtree replaces scalar", func(t *testing.T) {
		cfg := New(map[string]any{"db": "postgres://db"})
		cfg.Merge(map[string]any{"db": map[string]any{"host": "localhost"}})
		assert.Equal(t, "localhost", cfg.Get("db.host"))
	})

	t.Run("replacement copies the whole level", func(t *testing.T) {
		cfg := New(map[string]any{
			"db":   map[string]any{"host": "localhost", "port": 5432},
			"port": 80,
		})
		cfg.Merge(map[string]any{
			"db":   map[string]any{"port": 6543},
			"port": 8080,
		})

		assert.Equal(t, 8080, cfg.Get("port"))
		assert.Equal(t, 6543, cfg.Get("db.port"))
		assert.False(t, cfg.Has("db.host"))
	})

	t.Run("lists replace", func(t *testing.T) {
		cfg := New(map[string]any{"tags": []any{"a", "b", "c"}})
		cfg.Merge(map[string]any{"tags": []any{"x"}})
		assert.Equal(t, []any{"x"}, cfg.Get("tags"))
	})

	t.Run("dotted keys nest", func(t *testing.T) {
		cfg := New(nil)
		cfg.Merge(map[string]any{
			"DB.HOST":         "localhost",
			"DB.PORT":         5432,
			"servers[1].name": "beta",
		})

		assert.Equal(t, "localhost", cfg.Get("DB.HOST"))
		assert.Equal(t, 5432, cfg.Get("DB.PORT"))
		assert.Equal(t, "beta", cfg.Get("servers[1].name"))
		assert.Equal(t, []string{"DB", "servers"}, cfg.Keys())
	})
}

func TestConfigurationAssign(t *testing.T) {
	cfg := New(nil)

	require.NoError(t, cfg.Assign("name", "demo"))
	require.NoError(t, cfg.Assign("ignored"))
	require.NoError(t, cfg.Assign(map[string]any{"db": map[string]any{"host": "localhost"}}))
	require.NoError(t, cfg.Assign(New(map[string]any{"db": map[string]any{"port": 5432}})))

	assert.Equal(t, "demo", cfg.Get("name"))
	assert.False(t, cfg.Has("ignored"))
	assert.Equal(t, "localhost", cfg.Get("db.host"))
	assert.Equal(t, 5432, cfg.Get("db.port"))

	for _, key := range []any{42, nil, []string{"a"}, true} {
		err := cfg.Assign(key, "value")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidKey)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.Equal(t, "INVALID_KEY", textCode(err))
	}

	err := cfg.Assign(map[string]any{"a": 1}, "value")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestConfigurationSection(t *testing.T) {
	cfg := New(map[string]any{
		"db": map[string]any{
			"primary": map[string]any{"host": "localhost"},
		},
		"servers": []any{"alpha", "beta"},
		"name":    "demo",
	})

	section := cfg.Section("db.primary")
	assert.Equal(t, "localhost", section.Get("host"))

	section.Set("port", 5432)
	assert.Equal(t, 5432, cfg.Get("db.primary.port"))

	list := cfg.Section("servers")
	assert.Equal(t, []string{"0", "1"}, list.Keys())
	assert.Equal(t, "beta", list.Get("1"))

	assert.Empty(t, cfg.Section("missing").Keys())
	assert.Empty(t, cfg.Section("name").Keys())
}

func TestConfigurationRequiredSection(t *testing.T) {
	cfg := New(map[string]any{"db": map[string]any{"host": "localhost"}})

	section, err := cfg.RequiredSection("db")
	require.NoError(t, err)
	assert.Equal(t, "localhost", section.Get("host"))

	_, err = cfg.RequiredSection("cache.redis")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSectionNotFound)
	assert.Contains(t, err.Error(), "cache.redis")
	assert.Equal(t, "SECTION_NOT_FOUND", textCode(err))
}

func TestConfigurationCloneAndPlain(t *testing.T) {
	cfg := New(nil)
	cfg.Set("servers[1]", "beta")
	cfg.Set("db.host", "localhost")

	clone, err := cfg.Clone()
	require.NoError(t, err)
	clone.Set("db.host", "remote")
	assert.Equal(t, "localhost", cfg.Get("db.host"))

	plain := cfg.Plain()
	assert.Equal(t, []any{nil, "beta"}, plain["servers"])

	b, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"db":{"host":"localhost"},"servers":[null,"beta"]}`, string(b))
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"servers[0].host":  "servers.0.host",
		"a[1][2]":          "a.1.2",
		"plain":            "plain",
		"servers.0.host":   "servers.0.host",
		"matrix[10].cells": "matrix.10.cells",
	}
	for in, expected := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, expected, NormalizePath(in))
			assert.Equal(t, expected, NormalizePath(NormalizePath(in)))
		})
	}

	assert.Equal(t, []string{"a", "1", "b"}, SplitPath("a[1].b"))
}

func TestListIndexOnlyAcceptsCanonicalIntegers(t *testing.T) {
	cfg := New(nil)
	cfg.Set("items.01", "padded")
	cfg.Set("other.1", "indexed")

	assert.Equal(t, map[string]any{"01": "padded"}, cfg.Get("items"))
	assert.Equal(t, []any{Absent, "indexed"}, cfg.Get("other"))
}
