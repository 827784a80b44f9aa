// Package storage holds the persistence collaborators: interview sessions,
// candidate and recruitment records, and transcript files.
package storage

import (
	"context"
	stderrors "errors"
	"io"

	"candidly/internal/config"
	"candidly/internal/errors"
)

// Stores bundles the collaborators selected by configuration.
type Stores struct {
	Sessions     SessionStore
	Candidates   CandidateRepository
	Recruitments RecruitmentRepository
	Transcripts  TranscriptStore

	closers []io.Closer
}

// Open builds every store named by cfg. Close releases whatever was opened.
func Open(ctx context.Context, cfg config.StorageConfig, logger *errors.Logger) (*Stores, error) {
	s := &Stores{}

	switch cfg.Driver {
	case "sqlite":
		repo, err := OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		s.Candidates, s.Recruitments = repo, repo.Recruitments()
		s.closers = append(s.closers, repo)
	case "postgres":
		repo, err := OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		s.Candidates, s.Recruitments = repo, repo.Recruitments()
		s.closers = append(s.closers, repo)
	default:
		repo := NewMemoryRepository()
		s.Candidates, s.Recruitments = repo, repo.Recruitments()
	}

	switch cfg.Sessions.Driver {
	case "redis":
		sessions, err := NewRedisSessionStore(ctx, cfg.Sessions.Redis, cfg.Sessions.TTL)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Sessions = sessions
		s.closers = append(s.closers, sessions)
	default:
		s.Sessions = NewMemorySessionStore(cfg.Sessions.TTL)
	}

	transcripts, err := NewFileTranscriptStore(cfg.TranscriptDir)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.Transcripts = transcripts

	logger.Info("Storage initialized",
		"driver", cfg.Driver,
		"sessions", cfg.Sessions.Driver,
		"transcript_dir", cfg.TranscriptDir)
	return s, nil
}

// Close closes opened connections in reverse order
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return stderrors.Join(errs...)
}
