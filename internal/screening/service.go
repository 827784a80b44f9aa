// Package screening ties résumé intake, the interview and recruiter
// workflows together over the storage collaborators.
package screening

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"candidly/internal/ai"
	"candidly/internal/errors"
	"candidly/internal/extract"
	"candidly/internal/interview"
	"candidly/internal/storage"
	"candidly/internal/types"
)

// ResumeAnalyzer is the parse and score capability pair.
type ResumeAnalyzer interface {
	ParseResume(ctx context.Context, text string) ai.Result[types.CandidateProfile]
	ScoreCandidate(ctx context.Context, profile types.CandidateProfile, reqs types.JobRequirements) ai.Result[types.ScoreResult]
}

// Recorder receives screening events for metrics.
type Recorder interface {
	RecordUpload(ctx context.Context, parsedBy, scoredBy string, atsScore int)
	RecordSessionEvent(ctx context.Context, event string)
}

// Session events
const (
	EventCreated   = "created"
	EventStarted   = "started"
	EventTurn      = "turn"
	EventSubmitted = "submitted"
)

// Service implements candidate and recruiter operations.
type Service struct {
	analyzer     ResumeAnalyzer
	machine      *interview.Machine
	candidates   storage.CandidateRepository
	recruitments storage.RecruitmentRepository
	transcripts  storage.TranscriptStore
	logger       *errors.Logger
	recorder     Recorder
	now          func() time.Time
}

// NewService wires the service. recorder may be nil.
func NewService(analyzer ResumeAnalyzer, machine *interview.Machine, stores *storage.Stores, logger *errors.Logger, recorder Recorder) *Service {
	return &Service{
		analyzer:     analyzer,
		machine:      machine,
		candidates:   stores.Candidates,
		recruitments: stores.Recruitments,
		transcripts:  stores.Transcripts,
		logger:       logger,
		recorder:     recorder,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// UploadInput is a résumé submitted by a candidate.
type UploadInput struct {
	Filename      string
	Data          []byte
	Requirements  string // free-text requirements when no recruitment is named
	RecruitmentID string
	InterviewCode string
}

// UploadResult is returned to the candidate. The ATS score is kept out of it.
type UploadResult struct {
	CandidateID  string `json:"candidate_id"`
	SessionToken string `json:"session_token"`
	Message      string `json:"message"`
}

// Upload extracts and analyzes a résumé, stores the candidate and opens an
// interview session.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	text, err := extract.Extract(in.Filename, in.Data)
	if err != nil {
		return nil, err
	}

	reqs, recruitmentID, err := s.requirementsFor(ctx, in)
	if err != nil {
		return nil, err
	}

	parsed := s.analyzer.ParseResume(ctx, text)
	scored := s.analyzer.ScoreCandidate(ctx, parsed.Value, reqs)

	now := s.now()
	ats := scored.Value
	rec := &types.CandidateRecord{
		ID:            uuid.NewString(),
		RecruitmentID: recruitmentID,
		Status:        types.CandidateNew,
		Profile:       parsed.Value,
		ATS:           &ats,
		Requirements:  reqs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.candidates.Save(ctx, rec); err != nil {
		return nil, err
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, errors.NewInternalError("TOKEN_GENERATION_FAILED", "could not create session token", err)
	}
	if err := s.machine.Open(ctx, token, rec.ID, rec.Profile.Name, reqs); err != nil {
		return nil, err
	}

	s.logger.Info("Resume processed",
		"candidate_id", rec.ID,
		"parsed_by", parsed.Provider,
		"scored_by", scored.Provider,
		"recruitment_id", recruitmentID)
	if s.recorder != nil {
		s.recorder.RecordUpload(ctx, parsed.Provider, scored.Provider, ats.Score)
		s.recorder.RecordSessionEvent(ctx, EventCreated)
	}

	return &UploadResult{
		CandidateID:  rec.ID,
		SessionToken: token,
		Message:      fmt.Sprintf("Resume processed successfully with %s", parsed.Provider),
	}, nil
}

func (s *Service) requirementsFor(ctx context.Context, in UploadInput) (types.JobRequirements, string, error) {
	var (
		r   *types.Recruitment
		err error
	)
	switch {
	case in.RecruitmentID != "":
		r, err = s.recruitments.Get(ctx, in.RecruitmentID)
	case in.InterviewCode != "":
		r, err = s.recruitments.GetByCode(ctx, NormalizeCode(in.InterviewCode))
	default:
		return types.JobRequirements{Requirements: strings.TrimSpace(in.Requirements)}, "", nil
	}
	if err != nil {
		return types.JobRequirements{}, "", err
	}
	if r.Status != types.RecruitmentActive {
		return types.JobRequirements{}, "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "recruitment is not accepting candidates", nil)
	}
	return r.Job, r.ID, nil
}

// StartResult is the candidate-facing start response.
type StartResult struct {
	CandidateID   string `json:"candidate_id"`
	CandidateName string `json:"candidate_name"`
	Message       string `json:"message"`
	Reply         string `json:"reply"`
}

// Start begins the interview for a session token.
func (s *Service) Start(ctx context.Context, token string) (*StartResult, error) {
	turn, err := s.machine.Start(ctx, token)
	if err != nil {
		return nil, err
	}
	s.recordSession(ctx, EventStarted)
	return &StartResult{
		CandidateID:   turn.CandidateID,
		CandidateName: turn.CandidateName,
		Message:       "Interview session started",
		Reply:         turn.Reply,
	}, nil
}

// ChatResult is one interviewer reply.
type ChatResult struct {
	Reply       string `json:"reply"`
	Phase       int    `json:"phase"`
	TotalPhases int    `json:"total_phases"`
}

// Chat advances the interview by one candidate message.
func (s *Service) Chat(ctx context.Context, token, message string, history []types.Message) (*ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "message must not be empty", nil)
	}
	turn, err := s.machine.AdvanceTurn(ctx, token, message, history)
	if err != nil {
		return nil, err
	}
	if !turn.Closed {
		s.recordSession(ctx, EventTurn)
	}
	return &ChatResult{Reply: turn.Reply, Phase: turn.Phase, TotalPhases: turn.TotalPhases}, nil
}

// UpdateFlags records integrity signals reported by the proctoring client.
func (s *Service) UpdateFlags(ctx context.Context, token string, signals types.IntegritySignals) (types.IntegritySignals, error) {
	return s.machine.UpdateSignals(ctx, token, signals)
}

// SubmitResult is the candidate-facing submit response.
type SubmitResult struct {
	Message        string `json:"message"`
	CandidateID    string `json:"candidate_id"`
	InterviewScore int    `json:"interview_score"`
}

// Submit finishes the interview, stores the transcript and evaluation.
// A storage failure is returned and leaves the session open for a retry.
func (s *Service) Submit(ctx context.Context, token string, responses []string) (*SubmitResult, error) {
	sub, err := s.machine.Submit(ctx, token, responses, s.persistSubmission)
	if err != nil {
		return nil, err
	}
	s.recordSession(ctx, EventSubmitted)

	return &SubmitResult{
		Message:        "Interview submitted successfully",
		CandidateID:    sub.CandidateID,
		InterviewScore: sub.Outcome.Score,
	}, nil
}

func (s *Service) persistSubmission(ctx context.Context, sub *interview.Submission) error {
	ref, err := s.transcripts.Save(ctx, sub.CandidateID, sub.Transcript)
	if err != nil {
		s.logger.LogError(err, "Failed to store transcript", "candidate_id", sub.CandidateID)
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to store transcript", err)
	}
	err = s.candidates.UpdateEvaluation(ctx, sub.CandidateID, storage.EvaluationUpdate{
		Outcome:        sub.Outcome,
		Signals:        sub.Signals,
		TranscriptPath: ref,
	})
	if err != nil {
		s.logger.LogError(err, "Failed to store evaluation", "candidate_id", sub.CandidateID)
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to store evaluation", err)
	}
	return nil
}

// StatusResult describes a live session.
type StatusResult struct {
	Status      types.SessionStatus `json:"status"`
	CandidateID string              `json:"candidate_id"`
	Phase       int                 `json:"phase"`
	TotalPhases int                 `json:"total_phases"`
}

// Status reports a session's progress. Submitted sessions are gone and
// report InvalidSession.
func (s *Service) Status(ctx context.Context, token string) (*StatusResult, error) {
	rec, err := s.machine.Status(ctx, token)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		Status:      rec.State.Status,
		CandidateID: rec.CandidateID,
		Phase:       rec.State.Phase,
		TotalPhases: rec.State.TotalPhases,
	}, nil
}

func (s *Service) recordSession(ctx context.Context, event string) {
	if s.recorder != nil {
		s.recorder.RecordSessionEvent(ctx, event)
	}
}

// CreateRecruitment opens a position with a fresh interview code.
func (s *Service) CreateRecruitment(ctx context.Context, job types.JobRequirements) (*types.Recruitment, error) {
	if strings.TrimSpace(job.Title) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "job title is required", nil)
	}
	code, err := uniqueInterviewCode(ctx, s.recruitments)
	if err != nil {
		return nil, err
	}
	r := &types.Recruitment{
		ID:            uuid.NewString(),
		InterviewCode: code,
		Status:        types.RecruitmentActive,
		Job:           job,
		CreatedAt:     s.now(),
	}
	if err := s.recruitments.Create(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info("Recruitment created", "recruitment_id", r.ID, "title", job.Title)
	return r, nil
}

// GetRecruitment looks up a recruitment by ID
func (s *Service) GetRecruitment(ctx context.Context, id string) (*types.Recruitment, error) {
	return s.recruitments.Get(ctx, id)
}

// ValidateCode resolves an interview code to an active recruitment.
func (s *Service) ValidateCode(ctx context.Context, code string) (*types.Recruitment, error) {
	code = NormalizeCode(code)
	if !ValidCodeFormat(code) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid interview code format", nil)
	}
	r, err := s.recruitments.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if r.Status != types.RecruitmentActive {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "recruitment is not accepting candidates", nil)
	}
	return r, nil
}

// RegenerateCode replaces a recruitment's interview code.
func (s *Service) RegenerateCode(ctx context.Context, id string) (*types.Recruitment, error) {
	if _, err := s.recruitments.Get(ctx, id); err != nil {
		return nil, err
	}
	code, err := uniqueInterviewCode(ctx, s.recruitments)
	if err != nil {
		return nil, err
	}
	if err := s.recruitments.UpdateCode(ctx, id, code); err != nil {
		return nil, err
	}
	return s.recruitments.Get(ctx, id)
}

// RecruitmentStats counts a recruitment's candidates by stage.
func (s *Service) RecruitmentStats(ctx context.Context, id string) (types.RecruitmentStats, error) {
	if _, err := s.recruitments.Get(ctx, id); err != nil {
		return types.RecruitmentStats{}, err
	}
	return s.candidates.Stats(ctx, id)
}

// ListCandidates returns candidates matching filter.
func (s *Service) ListCandidates(ctx context.Context, filter storage.CandidateFilter) ([]types.CandidateRecord, error) {
	switch filter.SortBy {
	case "", storage.SortByDate, storage.SortByName, storage.SortByATSScore, storage.SortByInterviewScore:
	default:
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid sort_by value", nil).
			WithContext("sort_by", filter.SortBy)
	}
	return s.candidates.List(ctx, filter)
}

// GetCandidate returns one candidate record.
func (s *Service) GetCandidate(ctx context.Context, id string) (*types.CandidateRecord, error) {
	return s.candidates.Get(ctx, id)
}

// UpdateCandidateStatus moves a candidate through the recruiter pipeline.
func (s *Service) UpdateCandidateStatus(ctx context.Context, id, status string) (*types.CandidateRecord, error) {
	if !slices.Contains(types.CandidateStatuses, status) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid candidate status", nil).
			WithContext("status", status)
	}
	if err := s.candidates.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.candidates.Get(ctx, id)
}

// Transcript returns the stored interview transcript for a candidate.
func (s *Service) Transcript(ctx context.Context, id string) (string, error) {
	rec, err := s.candidates.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.TranscriptPath == "" {
		return "", errors.NewStorageError(errors.ErrCodeNotFound, "candidate has no transcript yet", nil).WithContext("id", id)
	}
	return s.transcripts.Open(ctx, rec.TranscriptPath)
}
