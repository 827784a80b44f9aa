package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidly/internal/types"
)

type repoPair struct {
	candidates   CandidateRepository
	recruitments RecruitmentRepository
}

func repositories(t *testing.T) map[string]repoPair {
	t.Helper()
	mem := NewMemoryRepository()

	lite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "candidly.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })

	return map[string]repoPair{
		"memory": {mem, mem.Recruitments()},
		"sqlite": {lite, lite.Recruitments()},
	}
}

func candidate(id, name, status string, ats int, age time.Duration) *types.CandidateRecord {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).Add(-age)
	return &types.CandidateRecord{
		ID:            id,
		RecruitmentID: "rec-1",
		Status:        status,
		Profile:       types.CandidateProfile{Name: name, Email: id + "@example.com"},
		ATS:           &types.ScoreResult{Score: ats, Strengths: []string{}, Gaps: []string{}},
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestCandidateRepositories(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.candidates.Save(ctx, candidate("a", "Alice Smith", types.CandidateNew, 60, time.Hour)))
			require.NoError(t, repo.candidates.Save(ctx, candidate("b", "bob jones", types.CandidateShortlisted, 90, 2*time.Hour)))
			require.NoError(t, repo.candidates.Save(ctx, candidate("c", "Carol White", types.CandidateOffered, 75, 3*time.Hour)))

			got, err := repo.candidates.Get(ctx, "b")
			require.NoError(t, err)
			assert.Equal(t, "bob jones", got.Profile.Name)
			assert.Equal(t, 90, got.ATS.Score)

			_, err = repo.candidates.Get(ctx, "missing")
			assert.True(t, IsNotFound(err))

			ids := func(recs []types.CandidateRecord) []string {
				out := []string{}
				for _, r := range recs {
					out = append(out, r.ID)
				}
				return out
			}

			byDate, err := repo.candidates.List(ctx, CandidateFilter{})
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b", "c"}, ids(byDate))

			byATS, err := repo.candidates.List(ctx, CandidateFilter{SortBy: SortByATSScore})
			require.NoError(t, err)
			assert.Equal(t, []string{"b", "c", "a"}, ids(byATS))

			byName, err := repo.candidates.List(ctx, CandidateFilter{SortBy: SortByName})
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b", "c"}, ids(byName))

			search, err := repo.candidates.List(ctx, CandidateFilter{Search: "JONES"})
			require.NoError(t, err)
			assert.Equal(t, []string{"b"}, ids(search))

			byStatus, err := repo.candidates.List(ctx, CandidateFilter{Status: types.CandidateOffered})
			require.NoError(t, err)
			assert.Equal(t, []string{"c"}, ids(byStatus))

			require.NoError(t, repo.candidates.UpdateEvaluation(ctx, "a", EvaluationUpdate{
				Outcome:        types.EvaluationOutcome{Score: 42, Summary: "ok", Flags: []types.Flag{}},
				Signals:        types.IntegritySignals{BackgroundNoise: true},
				TranscriptPath: "candidate_a_transcript.txt",
			}))
			evaluated, err := repo.candidates.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, types.CandidateInterviewed, evaluated.Status)
			assert.Equal(t, 42, evaluated.Evaluation.Score)
			assert.True(t, evaluated.Signals.BackgroundNoise)
			assert.Equal(t, "candidate_a_transcript.txt", evaluated.TranscriptPath)

			byInterview, err := repo.candidates.List(ctx, CandidateFilter{SortBy: SortByInterviewScore})
			require.NoError(t, err)
			assert.Equal(t, "a", byInterview[0].ID)

			require.NoError(t, repo.candidates.UpdateStatus(ctx, "b", types.CandidateOffered))
			assert.True(t, IsNotFound(repo.candidates.UpdateStatus(ctx, "zzz", types.CandidateOffered)))

			stats, err := repo.candidates.Stats(ctx, "rec-1")
			require.NoError(t, err)
			assert.Equal(t, types.RecruitmentStats{TotalApplicants: 3, Interviewed: 1, Offered: 2}, stats)

			empty, err := repo.candidates.Stats(ctx, "rec-other")
			require.NoError(t, err)
			assert.Zero(t, empty.TotalApplicants)
		})
	}
}

func TestRecruitmentRepositories(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r := &types.Recruitment{
				ID:            "rec-1",
				InterviewCode: "CNDLY-123-ABCDEF",
				Status:        types.RecruitmentActive,
				Job:           types.JobRequirements{Title: "Backend Engineer", Requirements: "Go"},
				CreatedAt:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			}
			require.NoError(t, repo.recruitments.Create(ctx, r))

			dup := *r
			dup.ID = "rec-2"
			assert.Error(t, repo.recruitments.Create(ctx, &dup), "interview codes are unique")

			byCode, err := repo.recruitments.GetByCode(ctx, "CNDLY-123-ABCDEF")
			require.NoError(t, err)
			assert.Equal(t, "Backend Engineer", byCode.Job.Title)
			assert.True(t, r.CreatedAt.Equal(byCode.CreatedAt))

			require.NoError(t, repo.recruitments.UpdateCode(ctx, "rec-1", "CNDLY-999-ZZZZZZ"))
			_, err = repo.recruitments.GetByCode(ctx, "CNDLY-123-ABCDEF")
			assert.True(t, IsNotFound(err))

			got, err := repo.recruitments.Get(ctx, "rec-1")
			require.NoError(t, err)
			assert.Equal(t, "CNDLY-999-ZZZZZZ", got.InterviewCode)

			assert.True(t, IsNotFound(repo.recruitments.UpdateCode(ctx, "nope", "X")))
		})
	}
}

func TestListCandidatesSQLPlaceholders(t *testing.T) {
	query, args := listCandidatesSQL(CandidateFilter{Status: "New", Search: "Ann", SortBy: SortByATSScore}, dollarNumber)
	assert.Contains(t, query, "status = $1")
	assert.Contains(t, query, "LOWER(name) LIKE $2 OR LOWER(email) LIKE $3")
	assert.Contains(t, query, "ORDER BY ats_score DESC")
	assert.Equal(t, []any{"New", "%ann%", "%ann%"}, args)
}
