package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/headerdoc/internal/config"
)

func TestApplySection(t *testing.T) {
	t.Parallel()

	section := sentinelStart + "\nnew: true\n" + sentinelEnd
	tests := []struct {
		name     string
		existing string
		want     string
	}{
		{"create", "", section + "\n"},
		{"append", "workers: 2\n", "workers: 2\n\n" + section + "\n"},
		{"append without newline", "workers: 2", "workers: 2\n\n" + section + "\n"},
		{
			"update",
			"# mine\n" + sentinelStart + "\nold: true\n" + sentinelEnd + "\n# after\n",
			"# mine\n" + section + "\n# after\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, applySection(tt.existing, section))
		})
	}
}

func TestInitCreatesLoadableConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"init", path}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "wrote headerdoc settings")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), sentinelStart+"\n"))
	assert.Contains(t, string(data), "duplicate_functions: merge")

	cfg, err := config.Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestInitDryRun(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), config.FileName)
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"init", "--dry-run", path}, &stdout, &stderr))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "dry run must not write the file")
	assert.Contains(t, stdout.String(), sentinelEnd)
}

func TestInitDryRunNoPath(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"init", "--dry-run"}, &stdout, &stderr))

	section, err := generateSection()
	require.NoError(t, err)
	assert.Equal(t, section+"\n", stdout.String())
}

func TestInitIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(path, []byte("# project settings\n"), 0o644))

	var buf bytes.Buffer
	require.NoError(t, run([]string{"init", path}, &buf, &buf))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, run([]string{"init", path}, &buf, &buf))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.True(t, strings.HasPrefix(string(second), "# project settings\n"))
	assert.Equal(t, 1, strings.Count(string(second), sentinelStart))
}
