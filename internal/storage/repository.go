package storage

import (
	"context"
	"slices"
	"strings"

	"candidly/internal/errors"
	"candidly/internal/types"
)

// Candidate list orderings
const (
	SortByDate           = "date"
	SortByName           = "name"
	SortByATSScore       = "atsScore"
	SortByInterviewScore = "interviewScore"
)

// CandidateFilter narrows a candidate listing. Empty fields match everything.
type CandidateFilter struct {
	Search        string // case-insensitive match on name or email
	Status        string
	RecruitmentID string
	SortBy        string
}

// EvaluationUpdate is what the interview writes back on submission.
type EvaluationUpdate struct {
	Outcome        types.EvaluationOutcome
	Signals        types.IntegritySignals
	TranscriptPath string
}

// CandidateRepository persists screened candidates. The stored ATS score is
// for recruiters only.
type CandidateRepository interface {
	Save(ctx context.Context, rec *types.CandidateRecord) error
	Get(ctx context.Context, id string) (*types.CandidateRecord, error)
	UpdateEvaluation(ctx context.Context, id string, upd EvaluationUpdate) error
	UpdateStatus(ctx context.Context, id, status string) error
	List(ctx context.Context, filter CandidateFilter) ([]types.CandidateRecord, error)
	Stats(ctx context.Context, recruitmentID string) (types.RecruitmentStats, error)
}

// RecruitmentRepository persists open positions and their interview codes.
type RecruitmentRepository interface {
	Create(ctx context.Context, r *types.Recruitment) error
	Get(ctx context.Context, id string) (*types.Recruitment, error)
	GetByCode(ctx context.Context, code string) (*types.Recruitment, error)
	UpdateCode(ctx context.Context, id, code string) error
}

func notFound(kind, id string) error {
	return errors.NewStorageError(errors.ErrCodeNotFound, kind+" not found", nil).WithContext("id", id)
}

// IsNotFound reports whether err is a missing-row error from a repository.
func IsNotFound(err error) bool {
	return errors.HasCode(err, errors.ErrCodeNotFound)
}

func storageFailed(message string, err error) error {
	return errors.NewStorageError(errors.ErrCodeStorageFailed, message, err)
}

func matchesFilter(rec types.CandidateRecord, f CandidateFilter) bool {
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if f.RecruitmentID != "" && rec.RecruitmentID != f.RecruitmentID {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		return strings.Contains(strings.ToLower(rec.Profile.Name), q) ||
			strings.Contains(strings.ToLower(rec.Profile.Email), q)
	}
	return true
}

// sortCandidates orders scores high to low and dates newest first.
func sortCandidates(recs []types.CandidateRecord, sortBy string) {
	slices.SortStableFunc(recs, func(a, b types.CandidateRecord) int {
		switch sortBy {
		case SortByName:
			return strings.Compare(strings.ToLower(a.Profile.Name), strings.ToLower(b.Profile.Name))
		case SortByATSScore:
			return b.ATSScore() - a.ATSScore()
		case SortByInterviewScore:
			return b.InterviewScore() - a.InterviewScore()
		default:
			return b.CreatedAt.Compare(a.CreatedAt)
		}
	})
}

func tally(stats *types.RecruitmentStats, status string) {
	stats.TotalApplicants++
	switch status {
	case types.CandidateShortlisted:
		stats.Shortlisted++
	case types.CandidateInterviewed:
		stats.Interviewed++
	case types.CandidateOffered:
		stats.Offered++
	}
}
