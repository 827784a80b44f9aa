package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// TranscriptStore persists rendered interview transcripts
type TranscriptStore interface {
	Save(ctx context.Context, candidateID, transcript string) (string, error)
	Open(ctx context.Context, ref string) (string, error)
}

// FileTranscriptStore writes one text file per candidate under a base directory.
type FileTranscriptStore struct {
	baseDir string
}

var _ TranscriptStore = (*FileTranscriptStore)(nil)

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// NewFileTranscriptStore creates the base directory if it does not exist.
func NewFileTranscriptStore(baseDir string) (*FileTranscriptStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, storageFailed("failed to create transcript directory", err)
	}
	return &FileTranscriptStore{baseDir: baseDir}, nil
}

// Save writes candidate_<id>_transcript.txt and returns its path relative to the base directory.
func (f *FileTranscriptStore) Save(_ context.Context, candidateID, transcript string) (string, error) {
	name := fmt.Sprintf("candidate_%s_transcript.txt", unsafeIDChars.ReplaceAllString(candidateID, "_"))
	if err := os.WriteFile(filepath.Join(f.baseDir, name), []byte(transcript), 0o600); err != nil {
		return "", storageFailed("failed to write transcript", err)
	}
	return name, nil
}

// Open reads a transcript previously returned by Save. References that
// escape the base directory are rejected.
func (f *FileTranscriptStore) Open(_ context.Context, ref string) (string, error) {
	if ref == "" || filepath.Base(ref) != ref {
		return "", notFound("transcript", ref)
	}
	data, err := os.ReadFile(filepath.Join(f.baseDir, ref))
	if os.IsNotExist(err) {
		return "", notFound("transcript", ref)
	}
	if err != nil {
		return "", storageFailed("failed to read transcript", err)
	}
	return string(data), nil
}
