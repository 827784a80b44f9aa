package server

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidly/internal/errors"
)

func TestFileWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	prompt := filepath.Join(dir, "interview.txt")
	require.NoError(t, os.WriteFile(prompt, []byte("v1"), 0o600))

	var calls atomic.Int32
	fw := NewFileWatcher("prompts", []string{prompt, "", prompt}, 20*time.Millisecond,
		func() { calls.Add(1) }, errors.NewDiscardLogger())
	assert.Equal(t, []string{prompt}, fw.WatchedFiles())

	require.NoError(t, fw.Start())
	t.Cleanup(func() { _ = fw.Stop() })
	assert.True(t, fw.IsRunning())
	assert.Error(t, fw.Start())

	// Push the mod time forward so coarse filesystem clocks still register a change.
	require.NoError(t, os.WriteFile(prompt, []byte("v2"), 0o600))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(prompt, future, future))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestFileWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "cert.pem")
	require.NoError(t, os.WriteFile(watched, []byte("a"), 0o600))

	var calls atomic.Int32
	fw := NewFileWatcher("tls", []string{watched}, 10*time.Millisecond,
		func() { calls.Add(1) }, errors.NewDiscardLogger())
	require.NoError(t, fw.Start())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("b"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, calls.Load())

	require.NoError(t, fw.Stop())
	assert.False(t, fw.IsRunning())
	assert.NoError(t, fw.Stop())
}

func TestFileWatcherRequiresFiles(t *testing.T) {
	fw := NewFileWatcher("empty", nil, 0, func() {}, errors.NewDiscardLogger())
	assert.Error(t, fw.Start())
}
