package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesAndFilters(t *testing.T) {
	dir := t.TempDir()
	got := make(chan string, 10)

	w, err := New(dir, []string{".csv", ".JSON"}, 50*time.Millisecond, func(_ context.Context, path string) {
		got <- path
	}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	csvPath := filepath.Join(dir, "acme.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$lock.csv"), []byte("x"), 0o644))

	f, err := os.OpenFile(csvPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("1,2\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case p := <-got:
		assert.Equal(t, csvPath, p)
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called")
	}

	select {
	case p := <-got:
		t.Fatalf("unexpected second call for %s", p)
	case <-time.After(200 * time.Millisecond):
	}

	assert.Equal(t, 1, w.Stats().FilesHandled)
}

func TestWatcher_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(t.TempDir(), []string{".csv"}, time.Second, func(context.Context, string) {}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))

	cancel()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("event loop still running")
	}
	w.Stop()
}

func TestSettled(t *testing.T) {
	w := &Watcher{debounce: time.Second, pending: map[string]time.Time{}}
	now := time.Now()
	w.pending["b.csv"] = now.Add(-2 * time.Second)
	w.pending["a.csv"] = now.Add(-time.Second)
	w.pending["c.csv"] = now

	assert.Equal(t, []string{"a.csv", "b.csv"}, w.settled(now))
	assert.Len(t, w.pending, 1)
}
