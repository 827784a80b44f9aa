package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTranscriptStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "transcripts")
	store, err := NewFileTranscriptStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := store.Save(ctx, "42", "Interviewer: hi\n\nCandidate: hello")
	require.NoError(t, err)
	assert.Equal(t, "candidate_42_transcript.txt", ref)

	onDisk, err := os.ReadFile(filepath.Join(dir, ref))
	require.NoError(t, err)
	assert.Contains(t, string(onDisk), "Candidate: hello")

	text, err := store.Open(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, string(onDisk), text)

	ref, err = store.Save(ctx, "../../etc/passwd", "x")
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(ref), ref)

	_, err = store.Open(ctx, "../outside.txt")
	assert.True(t, IsNotFound(err))
	_, err = store.Open(ctx, "candidate_missing_transcript.txt")
	assert.True(t, IsNotFound(err))
}
