package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHotReloaderDetectsNewerBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colorizer")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o755))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	h := newHotReloader(path, 5*time.Millisecond, nil, os.Stat)
	require.NotNil(t, h)
	assert.False(t, h.changed())

	require.NoError(t, os.Chtimes(path, time.Now(), time.Now()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fired := make(chan struct{})
	go h.Watch(ctx, func() { close(fired) })

	select {
	case <-fired:
	case <-ctx.Done():
		t.Fatal("new binary not detected")
	}

	h.ResetBaseline()
	assert.False(t, h.changed())
}

func TestHotReloaderMissingBinary(t *testing.T) {
	assert.Nil(t, newHotReloader(filepath.Join(t.TempDir(), "absent"), time.Second, nil, os.Stat))
}
