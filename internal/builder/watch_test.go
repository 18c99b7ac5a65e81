package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDeliversDebouncedBatchOnChange(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(target, []byte("package a"), 0o644))

	w, err := NewWatcher(root, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	batches := make(chan ChangeBatch, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(b ChangeBatch) { batches <- b })
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(target, []byte("package a\n// changed\n"), 0o644))

	select {
	case b := <-batches:
		assert.NotEmpty(t, b.Changed)
	case <-time.After(1500 * time.Millisecond):
		t.Fatal("timed out waiting for a change batch")
	}

	cancel()
	<-done
}
