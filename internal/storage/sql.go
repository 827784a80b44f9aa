package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"candidly/internal/types"
)

// Both SQL backends share one schema. Scores are denormalized for sorting,
// -1 meaning "not scored yet"; the full record lives in the data column.
const (
	candidateColumns   = "id, recruitment_id, status, name, email, ats_score, interview_score, created_unix, data"
	recruitmentColumns = "id, interview_code, status, job, created_unix"
)

func schemaStatements(jsonType string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS candidates (
			id TEXT PRIMARY KEY,
			recruitment_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			ats_score INTEGER NOT NULL DEFAULT -1,
			interview_score INTEGER NOT NULL DEFAULT -1,
			created_unix BIGINT NOT NULL,
			data ` + jsonType + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_recruitment ON candidates(recruitment_id)`,
		`CREATE TABLE IF NOT EXISTS recruitments (
			id TEXT PRIMARY KEY,
			interview_code TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			job ` + jsonType + ` NOT NULL,
			created_unix BIGINT NOT NULL
		)`,
	}
}

type placeholderFunc func(n int) string

func questionMark(int) string   { return "?" }
func dollarNumber(n int) string { return fmt.Sprintf("$%d", n) }

func upsertCandidateSQL(ph placeholderFunc) string {
	vals := make([]string, 9)
	for i := range vals {
		vals[i] = ph(i + 1)
	}
	return `INSERT INTO candidates (` + candidateColumns + `) VALUES (` + strings.Join(vals, ", ") + `)
		ON CONFLICT (id) DO UPDATE SET
			recruitment_id = excluded.recruitment_id,
			status = excluded.status,
			name = excluded.name,
			email = excluded.email,
			ats_score = excluded.ats_score,
			interview_score = excluded.interview_score,
			data = excluded.data`
}

func candidateArgs(rec *types.CandidateRecord) ([]any, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode candidate: %w", err)
	}
	return []any{
		rec.ID, rec.RecruitmentID, rec.Status, rec.Profile.Name, rec.Profile.Email,
		rec.ATSScore(), rec.InterviewScore(), rec.CreatedAt.UnixNano(), string(data),
	}, nil
}

func decodeCandidate(data []byte) (*types.CandidateRecord, error) {
	var rec types.CandidateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode candidate: %w", err)
	}
	return &rec, nil
}

func listCandidatesSQL(f CandidateFilter, ph placeholderFunc) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, vals ...any) {
		for _, v := range vals {
			args = append(args, v)
			clause = strings.Replace(clause, "?", ph(len(args)), 1)
		}
		where = append(where, clause)
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if f.RecruitmentID != "" {
		add("recruitment_id = ?", f.RecruitmentID)
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		pattern := "%" + q + "%"
		add("(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)", pattern, pattern)
	}

	query := "SELECT data FROM candidates"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY " + orderClause(f.SortBy), args
}

func orderClause(sortBy string) string {
	switch sortBy {
	case SortByName:
		return "LOWER(name) ASC, created_unix DESC"
	case SortByATSScore:
		return "ats_score DESC, created_unix DESC"
	case SortByInterviewScore:
		return "interview_score DESC, created_unix DESC"
	default:
		return "created_unix DESC"
	}
}

func statsSQL(ph placeholderFunc) string {
	return `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status = '` + types.CandidateShortlisted + `' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = '` + types.CandidateInterviewed + `' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = '` + types.CandidateOffered + `' THEN 1 ELSE 0 END), 0)
	FROM candidates WHERE recruitment_id = ` + ph(1)
}

func recruitmentArgs(r *types.Recruitment) ([]any, error) {
	job, err := json.Marshal(r.Job)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	return []any{r.ID, r.InterviewCode, r.Status, string(job), r.CreatedAt.UnixNano()}, nil
}

func decodeRecruitment(id, code, status string, job []byte, createdUnix int64) (*types.Recruitment, error) {
	r := &types.Recruitment{
		ID:            id,
		InterviewCode: code,
		Status:        status,
		CreatedAt:     time.Unix(0, createdUnix).UTC(),
	}
	if err := json.Unmarshal(job, &r.Job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return r, nil
}

// applyEvaluation mutates rec the way every backend records a submission.
func applyEvaluation(rec *types.CandidateRecord, upd EvaluationUpdate) {
	outcome := upd.Outcome
	rec.Evaluation = &outcome
	rec.Signals = upd.Signals
	rec.TranscriptPath = upd.TranscriptPath
	rec.Status = types.CandidateInterviewed
	rec.UpdatedAt = time.Now().UTC()
}
