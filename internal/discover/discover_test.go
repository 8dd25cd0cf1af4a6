package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(entries []FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func TestDiscoverHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "include/lib.h", "int f();")
	writeFile(t, dir, "include/detail/impl.hpp", "int g();")
	writeFile(t, dir, "src/lib.cpp", "int f() { return 0; }")
	writeFile(t, dir, "README.md", "hello")
	writeFile(t, dir, ".hidden.h", "secret")

	res, err := Files(dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("include", "detail", "impl.hpp"),
		filepath.Join("include", "lib.h"),
	}, paths(res.Files))
	assert.Equal(t, int64(len("int f();")), res.Files[1].Size)
}

func TestDiscoverSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "main.h", "")
	writeFile(t, dir, "build/generated.h", "")
	writeFile(t, dir, "cmake-build-debug/config.h", "")
	writeFile(t, dir, ".cache/x.h", "")

	res, err := Files(dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.h"}, paths(res.Files))
}

func TestSkipDir(t *testing.T) {
	t.Parallel()

	for _, name := range []string{".git", "build", "cmake-build-release", ".vscode", "node_modules"} {
		assert.True(t, SkipDir(name), name)
	}
	for _, name := range []string{"include", "src", "detail"} {
		assert.False(t, SkipDir(name), name)
	}
}

func TestDiscoverGitignoreAndExclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "vendor/\n")
	writeFile(t, dir, "a.h", "")
	writeFile(t, dir, "vendor/dep.h", "")
	writeFile(t, dir, "third_party/x.h", "")

	res, err := Files(dir, Options{Exclude: []string{"third_party/"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.h"}, paths(res.Files))
}

func TestDiscoverInclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "top.h", "")
	writeFile(t, dir, "include/lib.h", "")
	writeFile(t, dir, "include/detail/impl.h", "")
	writeFile(t, dir, "tests/fixture.h", "")

	res, err := Files(dir, Options{Include: []string{"include/**", "*.h"}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("include", "detail", "impl.h"),
		filepath.Join("include", "lib.h"),
		"top.h",
	}, paths(res.Files))

	_, err = Files(dir, Options{Include: []string{"include/[a"}})
	assert.Error(t, err)
}

func TestDiscoverExtensionsAndSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.h", "small")
	writeFile(t, dir, "b.hpp", "small")
	writeFile(t, dir, "big.h", "this one is too large")

	res, err := Files(dir, Options{Extensions: []string{".H"}, MaxFileSize: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.h"}, paths(res.Files))
	assert.Equal(t, []string{"big.h"}, paths(res.TooLarge))
}

func TestDiscoverSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "real.h", "")

	if err := os.Symlink(filepath.Join(dir, "real.h"), filepath.Join(dir, "link.h")); err != nil {
		t.Skip("symlinks not supported")
	}

	res, err := Files(dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"real.h"}, paths(res.Files))
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
