package batch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/headerdoc/internal/extract"
	"github.com/phobologic/headerdoc/internal/model"
)

func inputs() []Input {
	return []Input{
		{Path: "a.h", Src: []byte("/// A.\nclass A {};\n")},
		{Path: "b.h", Src: []byte("class B {\n")},
		{Path: "c.h", Src: []byte("void c(int);\n")},
	}
}

func TestRunKeepsOrderAndIsolatesFailures(t *testing.T) {
	t.Parallel()

	results, stats, err := Run(context.Background(), inputs(), Options{Workers: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a.h", results[0].Path)
	assert.True(t, results[0].OK())
	assert.Equal(t, "b.h", results[1].Path)
	assert.False(t, results[1].OK())
	assert.Nil(t, results[1].Table)
	assert.True(t, results[2].OK())

	assert.Equal(t, Stats{Parsed: 3, Failed: 1}, stats)
	assert.Len(t, Tables(results), 2)

	diags := Diagnostics(results)
	require.Len(t, diags, 1)
	assert.Equal(t, "b.h", diags[0].File)
	assert.Equal(t, model.SeverityError, diags[0].Severity)
}

func TestRunReportsProgress(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		done []string
	)
	_, _, err := Run(context.Background(), inputs(), Options{
		Workers: 3,
		Progress: func(path string) {
			mu.Lock()
			defer mu.Unlock()
			done = append(done, path)
		},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.h", "b.h", "c.h"}, done)
}

func TestRunReadsFromRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "x.h"), []byte("enum E { A, B };\n"), 0o644))

	results, _, err := Run(context.Background(), []Input{{Path: "x.h"}, {Path: "missing.h"}}, Options{Root: root})
	require.NoError(t, err)
	require.True(t, results[0].OK())
	assert.Equal(t, []string{"A", "B"}, results[0].Table.Enum(nil, "E").EnumeratorNames())

	assert.False(t, results[1].OK())
	require.Len(t, results[1].Diagnostics, 1)
	assert.Equal(t, model.CodeIO, results[1].Diagnostics[0].Code)
}

func TestRunUsesCache(t *testing.T) {
	t.Parallel()

	cache, err := NewCache(100)
	require.NoError(t, err)
	defer cache.Close()

	opts := Options{Cache: cache}
	first, stats, err := Run(context.Background(), inputs(), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Parsed)
	assert.Equal(t, 3, cache.Len())

	second, stats, err := Run(context.Background(), inputs(), opts)
	require.NoError(t, err)
	assert.Equal(t, Stats{Cached: 3, Failed: 0}, stats)
	for i := range first {
		assert.Same(t, first[i], second[i])
	}

	opts.Extract = extract.Options{Recover: true}
	_, stats, err = Run(context.Background(), inputs(), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Parsed, "different options miss the cache")
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Run(ctx, inputs(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKey(t *testing.T) {
	t.Parallel()

	base := Key("a.h", []byte("int x;"), "fp")
	assert.Len(t, base, 64)
	assert.Equal(t, base, Key("a.h", []byte("int x;"), "fp"))
	assert.NotEqual(t, base, Key("b.h", []byte("int x;"), "fp"))
	assert.NotEqual(t, base, Key("a.h", []byte("int y;"), "fp"))
	assert.NotEqual(t, base, Key("a.h", []byte("int x;"), "fp2"))
}
