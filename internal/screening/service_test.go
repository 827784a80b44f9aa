package screening

import (
	"archive/zip"
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidly/internal/ai"
	"candidly/internal/config"
	"candidly/internal/errors"
	"candidly/internal/evaluation"
	"candidly/internal/interview"
	"candidly/internal/storage"
	"candidly/internal/types"
)

func docx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>" + p + "</w:t></w:r></w:p>")
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type staticGenerator string

func (s staticGenerator) Generate(context.Context, ai.Request) (string, error) {
	return string(s), nil
}

type countingRecorder struct {
	uploads int
	events  []string
}

func (c *countingRecorder) RecordUpload(context.Context, string, string, int) { c.uploads++ }
func (c *countingRecorder) RecordSessionEvent(_ context.Context, e string) {
	c.events = append(c.events, e)
}

// newTestService runs every capability on its deterministic fallback.
func newTestService(t *testing.T, reply string) (*Service, *storage.Stores, *countingRecorder) {
	t.Helper()
	return newTestServiceWith(t, reply, nil)
}

// newTestServiceWith lets a test wrap the candidate repository.
func newTestServiceWith(t *testing.T, reply string, wrap func(storage.CandidateRepository) storage.CandidateRepository) (*Service, *storage.Stores, *countingRecorder) {
	t.Helper()
	logger := errors.NewDiscardLogger()
	cfg := &config.Config{}
	caps := ai.NewCapabilities(ai.NewRegistry(), cfg, nil, logger, nil)

	mem := storage.NewMemoryRepository()
	transcripts, err := storage.NewFileTranscriptStore(t.TempDir())
	require.NoError(t, err)
	stores := &storage.Stores{
		Sessions:     storage.NewMemorySessionStore(0),
		Candidates:   mem,
		Recruitments: mem.Recruitments(),
		Transcripts:  transcripts,
	}
	if wrap != nil {
		stores.Candidates = wrap(stores.Candidates)
	}

	gen := staticGenerator(reply)
	pipeline := evaluation.NewPipeline(gen, config.EvaluationConfig{}, nil, logger, nil)
	machine := interview.NewMachine(gen, pipeline, stores.Sessions, logger, interview.Options{})
	rec := &countingRecorder{}
	return NewService(caps, machine, stores, logger, rec), stores, rec
}

func TestInterviewFlow(t *testing.T) {
	svc, stores, rec := newTestService(t, "SCORE: 58\nSUMMARY: Competent answers with limited depth on distributed systems topics.")
	ctx := context.Background()

	up, err := svc.Upload(ctx, UploadInput{
		Filename:     "resume.docx",
		Data:         docx(t, "Grace Hopper", "grace@navy.mil", "Skills: COBOL, compilers"),
		Requirements: "Compiler experience",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, up.CandidateID)
	assert.Len(t, up.SessionToken, 43)
	assert.Equal(t, "Resume processed successfully with regex", up.Message)

	stored, err := stores.Candidates.Get(ctx, up.CandidateID)
	require.NoError(t, err)
	assert.Equal(t, "grace@navy.mil", stored.Profile.Email)
	require.NotNil(t, stored.ATS)
	assert.Equal(t, ai.FallbackSimple, stored.ATS.Provider)
	assert.Equal(t, types.CandidateNew, stored.Status)

	start, err := svc.Start(ctx, up.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, up.CandidateID, start.CandidateID)
	assert.Equal(t, stored.Profile.Name, start.CandidateName)

	chat, err := svc.Chat(ctx, up.SessionToken, "I wrote the first compiler", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, chat.Phase)
	assert.Equal(t, 2, chat.TotalPhases)

	_, err = svc.Chat(ctx, up.SessionToken, "   ", nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))

	_, err = svc.UpdateFlags(ctx, up.SessionToken, types.IntegritySignals{BackgroundNoise: true})
	require.NoError(t, err)

	status, err := svc.Status(ctx, up.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, status.Status)

	sub, err := svc.Submit(ctx, up.SessionToken, nil)
	require.NoError(t, err)
	assert.Equal(t, 58, sub.InterviewScore)

	_, err = svc.Submit(ctx, up.SessionToken, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSession))
	_, err = svc.Status(ctx, up.SessionToken)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSession))

	final, err := stores.Candidates.Get(ctx, up.CandidateID)
	require.NoError(t, err)
	assert.Equal(t, types.CandidateInterviewed, final.Status)
	require.NotNil(t, final.Evaluation)
	assert.Equal(t, 58, final.Evaluation.Score)
	assert.True(t, final.Signals.BackgroundNoise)
	require.Len(t, final.Evaluation.Flags, 1)
	assert.Equal(t, "sound", final.Evaluation.Flags[0].Kind)

	transcript, err := svc.Transcript(ctx, up.CandidateID)
	require.NoError(t, err)
	assert.Contains(t, transcript, "Candidate: I wrote the first compiler")

	assert.Equal(t, 1, rec.uploads)
	assert.Equal(t, []string{EventCreated, EventStarted, EventTurn, EventSubmitted}, rec.events)
}

func TestUploadFailures(t *testing.T) {
	svc, _, _ := newTestService(t, "")
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{Filename: "resume.txt", Data: []byte("hello")})
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnsupportedFormat))

	_, err = svc.Upload(ctx, UploadInput{Filename: "resume.pdf", Data: []byte("%PDF-1.4 garbage")})
	assert.True(t, errors.HasCode(err, errors.ErrCodeExtractionFailed))

	_, err = svc.Upload(ctx, UploadInput{Filename: "resume.docx", Data: docx(t, "Ann"), RecruitmentID: "missing"})
	assert.True(t, storage.IsNotFound(err))
}

func TestUploadWithoutEmailUsesPlaceholder(t *testing.T) {
	svc, stores, _ := newTestService(t, "")
	ctx := context.Background()

	up, err := svc.Upload(ctx, UploadInput{Filename: "cv.docx", Data: docx(t, "Nobody Special", "Lives somewhere")})
	require.NoError(t, err)
	rec, err := stores.Candidates.Get(ctx, up.CandidateID)
	require.NoError(t, err)
	assert.Equal(t, types.PlaceholderEmail, rec.Profile.Email)
}

func TestRecruitmentWorkflow(t *testing.T) {
	svc, _, _ := newTestService(t, "")
	ctx := context.Background()

	_, err := svc.CreateRecruitment(ctx, types.JobRequirements{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))

	r, err := svc.CreateRecruitment(ctx, types.JobRequirements{Title: "Platform Engineer", Requirements: "Go, Kubernetes"})
	require.NoError(t, err)
	assert.True(t, ValidCodeFormat(r.InterviewCode), r.InterviewCode)

	valid, err := svc.ValidateCode(ctx, strings.ToLower(r.InterviewCode))
	require.NoError(t, err)
	assert.Equal(t, r.ID, valid.ID)

	_, err = svc.ValidateCode(ctx, "nope")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))

	up, err := svc.Upload(ctx, UploadInput{
		Filename:      "cv.docx",
		Data:          docx(t, "Linus T", "linus@example.org", "Skills: C, Git"),
		InterviewCode: r.InterviewCode,
	})
	require.NoError(t, err)

	rotated, err := svc.RegenerateCode(ctx, r.ID)
	require.NoError(t, err)
	assert.NotEqual(t, r.InterviewCode, rotated.InterviewCode)
	_, err = svc.ValidateCode(ctx, r.InterviewCode)
	assert.True(t, storage.IsNotFound(err))

	updated, err := svc.UpdateCandidateStatus(ctx, up.CandidateID, types.CandidateShortlisted)
	require.NoError(t, err)
	assert.Equal(t, types.CandidateShortlisted, updated.Status)
	_, err = svc.UpdateCandidateStatus(ctx, up.CandidateID, "Hired?")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))

	stats, err := svc.RecruitmentStats(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RecruitmentStats{TotalApplicants: 1, Shortlisted: 1}, stats)

	list, err := svc.ListCandidates(ctx, storage.CandidateFilter{RecruitmentID: r.ID, SortBy: storage.SortByATSScore})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Platform Engineer", list[0].Requirements.Title)

	_, err = svc.ListCandidates(ctx, storage.CandidateFilter{SortBy: "salary"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))

	_, err = svc.Transcript(ctx, up.CandidateID)
	assert.True(t, storage.IsNotFound(err))
}

func TestInterviewCodes(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		code, err := newInterviewCode()
		require.NoError(t, err)
		assert.True(t, ValidCodeFormat(code), code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 95)

	token, err := newSessionToken()
	require.NoError(t, err)
	assert.Len(t, token, 43)
	assert.NotContains(t, token, "=")
}

// failingEvaluations rejects evaluation writes while fail is set.
type failingEvaluations struct {
	storage.CandidateRepository
	fail bool
}

func (f *failingEvaluations) UpdateEvaluation(ctx context.Context, id string, upd storage.EvaluationUpdate) error {
	if f.fail {
		return stderrors.New("disk full")
	}
	return f.CandidateRepository.UpdateEvaluation(ctx, id, upd)
}

func TestSubmitKeepsSessionWhenEvaluationCannotBeStored(t *testing.T) {
	repo := &failingEvaluations{fail: true}
	svc, stores, rec := newTestServiceWith(t, "SCORE: 71\nSUMMARY: Solid answers on compiler design with concrete trade-offs.",
		func(inner storage.CandidateRepository) storage.CandidateRepository {
			repo.CandidateRepository = inner
			return repo
		})
	ctx := context.Background()

	up, err := svc.Upload(ctx, UploadInput{
		Filename: "resume.docx",
		Data:     docx(t, "Grace Hopper", "grace@navy.mil", "Skills: COBOL"),
	})
	require.NoError(t, err)
	_, err = svc.Start(ctx, up.SessionToken)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, up.SessionToken, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeStorageFailed))
	assert.NotContains(t, rec.events, EventSubmitted)

	status, err := svc.Status(ctx, up.SessionToken)
	require.NoError(t, err, "session survives a failed submit")
	assert.Equal(t, types.StatusInProgress, status.Status)

	repo.fail = false
	sub, err := svc.Submit(ctx, up.SessionToken, nil)
	require.NoError(t, err)
	assert.Equal(t, 71, sub.InterviewScore)

	stored, err := stores.Candidates.Get(ctx, up.CandidateID)
	require.NoError(t, err)
	require.NotNil(t, stored.Evaluation)
	assert.Equal(t, 71, stored.Evaluation.Score)
	assert.NotEmpty(t, stored.TranscriptPath)

	_, err = svc.Status(ctx, up.SessionToken)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSession))
}
