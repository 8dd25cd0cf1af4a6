package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const debounce = 100 * time.Millisecond

func start(t *testing.T, root string) (<-chan []string, func() error) {
	t.Helper()
	w, err := New(root, Options{Debounce: debounce})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	batches := make(chan []string, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, changed []string) error {
			batches <- changed
			return nil
		})
	}()
	return batches, func() error {
		cancel()
		return <-done
	}
}

func next(t *testing.T, batches <-chan []string) []string {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for changes")
		return nil
	}
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := New(filepath.Join(t.TempDir(), "missing"), Options{})
	assert.Error(t, err)
}

func TestRunCoalescesChanges(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	batches, stop := start(t, root)

	write(t, root, "a.h", "int a;")
	write(t, root, "b.hpp", "int b;")
	write(t, root, "a.h", "int a2;")
	write(t, root, "notes.txt", "ignored")

	assert.Equal(t, []string{"a.h", "b.hpp"}, next(t, batches))
	require.NoError(t, stop())
}

func TestRunWatchesNewDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	batches, stop := start(t, root)

	require.NoError(t, os.Mkdir(filepath.Join(root, "include"), 0o755))
	// Give the watcher time to pick up the new directory.
	time.Sleep(2 * debounce)
	write(t, root, "include/lib.h", "int f();")

	assert.Equal(t, []string{filepath.Join("include", "lib.h")}, next(t, batches))
	require.NoError(t, stop())
}

func TestRunSkipsBuildDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "build"), 0o755))
	batches, stop := start(t, root)

	write(t, root, "build/generated.h", "int g;")
	write(t, root, "main.h", "int m;")

	assert.Equal(t, []string{"main.h"}, next(t, batches))
	require.NoError(t, stop())
}

func TestRunReturnsCallbackError(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, err := New(root, Options{Debounce: debounce})
	require.NoError(t, err)
	defer w.Close()

	boom := errors.New("boom")
	done := make(chan error, 1)
	go func() {
		done <- w.Run(context.Background(), func(context.Context, []string) error { return boom })
	}()
	write(t, root, "a.h", "int a;")

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	_, stop := start(t, t.TempDir())
	assert.NoError(t, stop())
}
