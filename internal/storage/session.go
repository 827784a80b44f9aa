package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"candidly/internal/errors"
	"candidly/internal/types"
)

// SessionRecord is everything the interview needs between requests.
type SessionRecord struct {
	State         types.SessionState     `json:"state"`
	CandidateID   string                 `json:"candidate_id"`
	CandidateName string                 `json:"candidate_name"`
	Requirements  types.JobRequirements  `json:"requirements"`
	Signals       types.IntegritySignals `json:"signals"`
	Transcript    types.Transcript       `json:"transcript"`
}

// SessionStore keeps one record per session token. Get and Update report
// InvalidSession for tokens that are unknown, expired or deleted.
type SessionStore interface {
	Create(ctx context.Context, rec SessionRecord) error
	Get(ctx context.Context, token string) (SessionRecord, error)
	Update(ctx context.Context, rec SessionRecord) error
	Delete(ctx context.Context, token string) error
}

func unknownSession() error {
	return errors.InvalidSession("invalid or expired session token")
}

type memorySession struct {
	rec       SessionRecord
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
	ttl      time.Duration
	now      func() time.Time

	lastSweep time.Time
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates an in-memory store. A zero ttl never expires.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemorySessionStore) Create(_ context.Context, rec SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	if s, ok := m.sessions[rec.State.Token]; ok && !m.expired(s) {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "session token already exists", nil)
	}
	s := memorySession{rec: cloneRecord(rec)}
	if m.ttl > 0 {
		s.expiresAt = m.now().Add(m.ttl)
	}
	m.sessions[rec.State.Token] = s
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, token string) (SessionRecord, error) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return SessionRecord{}, unknownSession()
	}
	if m.expired(s) {
		m.mu.Lock()
		if cur, ok := m.sessions[token]; ok && m.expired(cur) {
			delete(m.sessions, token)
		}
		m.mu.Unlock()
		return SessionRecord{}, unknownSession()
	}
	return cloneRecord(s.rec), nil
}

func (m *MemorySessionStore) Update(_ context.Context, rec SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	s, ok := m.sessions[rec.State.Token]
	if !ok {
		return unknownSession()
	}
	if m.expired(s) {
		delete(m.sessions, rec.State.Token)
		return unknownSession()
	}
	s.rec = cloneRecord(rec)
	m.sessions[rec.State.Token] = s
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored sessions. Expired ones count until the
// next sweep.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemorySessionStore) expired(s memorySession) bool {
	return !s.expiresAt.IsZero() && m.now().After(s.expiresAt)
}

// sweepLocked drops expired sessions at most once per ttl. m.mu must be held.
func (m *MemorySessionStore) sweepLocked() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	if now.Sub(m.lastSweep) < m.ttl {
		return
	}
	m.lastSweep = now
	for token, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, token)
		}
	}
}

func cloneRecord(rec SessionRecord) SessionRecord {
	rec.Transcript = slices.Clone(rec.Transcript)
	return rec
}
