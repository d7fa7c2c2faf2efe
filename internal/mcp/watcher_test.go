package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopReindexer struct{}

func (nopReindexer) Reindex(ctx context.Context, rootPath string) error { return nil }

func TestFileWatcherStopWithoutStart(t *testing.T) {
	t.Parallel()

	fw, err := NewFileWatcher(nopReindexer{}, t.TempDir())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		fw.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return for a watcher that was never started")
	}
}

func TestFileWatcherStartStop(t *testing.T) {
	t.Parallel()

	fw, err := NewFileWatcher(nopReindexer{}, t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fw.Start(ctx)
	fw.Stop()

	// Stop is idempotent.
	assert.NotPanics(t, fw.Stop)
}
