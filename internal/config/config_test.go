package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	data, err := os.ReadFile("testdata/custom.yaml")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), data, 0o644))

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, []string{".h", ".hpp"}, cfg.Extensions)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.CrossCheck)
	assert.Equal(t, []string{"MYLIB_EXPORT", "Q_OBJECT"}, cfg.AnnotationMacros)
	assert.True(t, cfg.Parse.Recover)
	assert.Equal(t, "error", cfg.Parse.DuplicateFunctions)
	// Unset keys keep their defaults.
	assert.Equal(t, 1, cfg.Parse.CommentGap)
	assert.Equal(t, 1024, cfg.CacheSize)

	patterns, err := cfg.IgnorePatterns()
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.True(t, patterns[0].MatchString("ignored #pragma pack"))
}

func TestLoadExplicitFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(t.TempDir(), "testdata/custom.yaml")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)

	_, err = Load(t.TempDir(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("HEADERDOC_FORMAT", "yaml")
	t.Setenv("HEADERDOC_PARSE_COMMENT_GAP", "3")

	cfg, err := Load(t.TempDir(), "testdata/custom.yaml")
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, 3, cfg.Parse.CommentGap)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()

	_, err := Load(t.TempDir(), "testdata/invalid.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidFormat))
	assert.True(t, errors.Is(err, ErrInvalidDuplicatePolicy))
	assert.True(t, errors.Is(err, ErrInvalidPattern))
	assert.True(t, errors.Is(err, ErrInvalidValue))
	assert.Contains(t, err.Error(), "cache_size=-1")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"defaults", func(*Config) {}, nil},
		{"format", func(c *Config) { c.Format = "xml" }, ErrInvalidFormat},
		{"policy", func(c *Config) { c.Parse.DuplicateFunctions = "" }, ErrInvalidDuplicatePolicy},
		{"extension without dot", func(c *Config) { c.Extensions = []string{"h"} }, ErrInvalidValue},
		{"empty macro", func(c *Config) { c.AnnotationMacros = []string{""} }, ErrInvalidValue},
		{"negative gap", func(c *Config) { c.Parse.CommentGap = -2 }, ErrInvalidValue},
		{"bad pattern", func(c *Config) { c.IgnoreDiagnostics = []string{"[a"} }, ErrInvalidPattern},
		{"bad include", func(c *Config) { c.Include = []string{"include/[a"} }, ErrInvalidPattern},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := Default().YAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "duplicate_functions: merge")

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), data, 0o644))
	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
