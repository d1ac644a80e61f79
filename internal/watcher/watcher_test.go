package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, paths []string, calls *atomic.Int32) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	w := New(paths, func() { calls.Add(1) }).WithDebounce(50 * time.Millisecond)
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	t.Cleanup(func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})

	// let the watcher register before the test writes
	time.Sleep(100 * time.Millisecond)
}

func TestWatchDirectoryDebounces(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, []string{dir}, &calls)

	for _, name := range []string{"a.json", "b.yaml", "c.xml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644))
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatchIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, []string{dir}, &calls)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".scan.json.swp"), []byte("x"), 0644))

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatchNewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, []string{dir}, &calls)

	sub := filepath.Join(dir, "site-b")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "scan.json"), []byte("{}"), 0644))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatchExplicitFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "core_v3.json")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0644))

	var calls atomic.Int32
	startWatcher(t, []string{target}, &calls)

	// a sibling snapshot is not a watched source
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, os.WriteFile(target, []byte(`{"devices": {}}`), 0644))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatchMissingPath(t *testing.T) {
	w := New([]string{filepath.Join(t.TempDir(), "missing")}, func() {})
	assert.Error(t, w.Watch(context.Background()))
}

func TestRelevant(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(t.TempDir(), "pinned.json")
	files := map[string]bool{file: true}
	roots := []string{root}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write in root", fsnotify.Event{Name: filepath.Join(root, "a.json"), Op: fsnotify.Write}, true},
		{"remove in root", fsnotify.Event{Name: filepath.Join(root, "sub", "a.yml"), Op: fsnotify.Remove}, true},
		{"chmod ignored", fsnotify.Event{Name: filepath.Join(root, "a.json"), Op: fsnotify.Chmod}, false},
		{"unknown extension", fsnotify.Event{Name: filepath.Join(root, "a.csv"), Op: fsnotify.Write}, false},
		{"pinned file", fsnotify.Event{Name: file, Op: fsnotify.Rename}, true},
		{"outside roots", fsnotify.Event{Name: filepath.Join(filepath.Dir(file), "b.json"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.event, files, roots))
		})
	}
}
