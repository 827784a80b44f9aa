package storage

import (
	"context"
	"sync"
	"time"

	"candidly/internal/types"
)

// MemoryRepository implements both repositories in process memory.
type MemoryRepository struct {
	mu           sync.RWMutex
	candidates   map[string]types.CandidateRecord
	recruitments map[string]types.Recruitment
}

var (
	_ CandidateRepository   = (*MemoryRepository)(nil)
	_ RecruitmentRepository = (*MemoryRecruitments)(nil)
)

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		candidates:   make(map[string]types.CandidateRecord),
		recruitments: make(map[string]types.Recruitment),
	}
}

func (m *MemoryRepository) Save(_ context.Context, rec *types.CandidateRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates[rec.ID] = *rec
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*types.CandidateRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.candidates[id]
	if !ok {
		return nil, notFound("candidate", id)
	}
	return &rec, nil
}

func (m *MemoryRepository) UpdateEvaluation(_ context.Context, id string, upd EvaluationUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.candidates[id]
	if !ok {
		return notFound("candidate", id)
	}
	applyEvaluation(&rec, upd)
	m.candidates[id] = rec
	return nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.candidates[id]
	if !ok {
		return notFound("candidate", id)
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	m.candidates[id] = rec
	return nil
}

func (m *MemoryRepository) List(_ context.Context, filter CandidateFilter) ([]types.CandidateRecord, error) {
	m.mu.RLock()
	out := make([]types.CandidateRecord, 0, len(m.candidates))
	for _, rec := range m.candidates {
		if matchesFilter(rec, filter) {
			out = append(out, rec)
		}
	}
	m.mu.RUnlock()
	sortCandidates(out, filter.SortBy)
	return out, nil
}

func (m *MemoryRepository) Stats(_ context.Context, recruitmentID string) (types.RecruitmentStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats types.RecruitmentStats
	for _, rec := range m.candidates {
		if rec.RecruitmentID == recruitmentID {
			tally(&stats, rec.Status)
		}
	}
	return stats, nil
}

// Recruitments returns the recruitment view of the same store.
func (m *MemoryRepository) Recruitments() *MemoryRecruitments {
	return (*MemoryRecruitments)(m)
}

// MemoryRecruitments is the RecruitmentRepository face of MemoryRepository.
type MemoryRecruitments MemoryRepository

func (m *MemoryRecruitments) Create(_ context.Context, r *types.Recruitment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.recruitments {
		if existing.InterviewCode == r.InterviewCode {
			return storageFailed("interview code already in use", nil)
		}
	}
	m.recruitments[r.ID] = *r
	return nil
}

func (m *MemoryRecruitments) Get(_ context.Context, id string) (*types.Recruitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recruitments[id]
	if !ok {
		return nil, notFound("recruitment", id)
	}
	return &r, nil
}

func (m *MemoryRecruitments) GetByCode(_ context.Context, code string) (*types.Recruitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.recruitments {
		if r.InterviewCode == code {
			return &r, nil
		}
	}
	return nil, notFound("recruitment", code)
}

func (m *MemoryRecruitments) UpdateCode(_ context.Context, id, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recruitments[id]
	if !ok {
		return notFound("recruitment", id)
	}
	r.InterviewCode = code
	m.recruitments[id] = r
	return nil
}
