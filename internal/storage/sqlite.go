package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"candidly/internal/types"
)

// SQLiteRepository stores candidates and recruitments in a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ CandidateRepository   = (*SQLiteRepository)(nil)
	_ RecruitmentRepository = (*SQLiteRecruitments)(nil)
)

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageFailed("failed to create database directory", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageFailed("failed to open sqlite database", err)
	}
	db.SetMaxOpenConns(1) // single writer

	for _, stmt := range schemaStatements("TEXT") {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, storageFailed("failed to apply schema", err)
		}
	}
	return &SQLiteRepository{db: db}, nil
}

// Close closes the database
func (s *SQLiteRepository) Close() error {
	return s.db.Close()
}

func (s *SQLiteRepository) Save(ctx context.Context, rec *types.CandidateRecord) error {
	args, err := candidateArgs(rec)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertCandidateSQL(questionMark), args...); err != nil {
		return storageFailed("failed to save candidate", err)
	}
	return nil
}

func (s *SQLiteRepository) Get(ctx context.Context, id string) (*types.CandidateRecord, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM candidates WHERE id = ?", id).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound("candidate", id)
	}
	if err != nil {
		return nil, storageFailed("failed to load candidate", err)
	}
	return decodeCandidate(data)
}

func (s *SQLiteRepository) UpdateEvaluation(ctx context.Context, id string, upd EvaluationUpdate) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	applyEvaluation(rec, upd)
	return s.Save(ctx, rec)
}

func (s *SQLiteRepository) UpdateStatus(ctx context.Context, id, status string) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rec.Status = status
	return s.Save(ctx, rec)
}

func (s *SQLiteRepository) List(ctx context.Context, filter CandidateFilter) ([]types.CandidateRecord, error) {
	query, args := listCandidatesSQL(filter, questionMark)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageFailed("failed to list candidates", err)
	}
	defer func() { _ = rows.Close() }()

	out := []types.CandidateRecord{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, storageFailed("failed to scan candidate", err)
		}
		rec, err := decodeCandidate(data)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *SQLiteRepository) Stats(ctx context.Context, recruitmentID string) (types.RecruitmentStats, error) {
	var st types.RecruitmentStats
	err := s.db.QueryRowContext(ctx, statsSQL(questionMark), recruitmentID).
		Scan(&st.TotalApplicants, &st.Shortlisted, &st.Interviewed, &st.Offered)
	if err != nil {
		return st, storageFailed("failed to count candidates", err)
	}
	return st, nil
}

// Recruitments returns the recruitment view of the same database.
func (s *SQLiteRepository) Recruitments() *SQLiteRecruitments {
	return (*SQLiteRecruitments)(s)
}

// SQLiteRecruitments is the RecruitmentRepository face of SQLiteRepository.
type SQLiteRecruitments SQLiteRepository

func (s *SQLiteRecruitments) Create(ctx context.Context, r *types.Recruitment) error {
	args, err := recruitmentArgs(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "INSERT INTO recruitments ("+recruitmentColumns+") VALUES (?, ?, ?, ?, ?)", args...)
	if err != nil {
		return storageFailed("failed to create recruitment", err)
	}
	return nil
}

func (s *SQLiteRecruitments) Get(ctx context.Context, id string) (*types.Recruitment, error) {
	return s.queryOne(ctx, "id", id)
}

func (s *SQLiteRecruitments) GetByCode(ctx context.Context, code string) (*types.Recruitment, error) {
	return s.queryOne(ctx, "interview_code", code)
}

func (s *SQLiteRecruitments) queryOne(ctx context.Context, column, value string) (*types.Recruitment, error) {
	var (
		id, code, status string
		job              []byte
		created          int64
	)
	query := fmt.Sprintf("SELECT %s FROM recruitments WHERE %s = ?", recruitmentColumns, column)
	err := s.db.QueryRowContext(ctx, query, value).Scan(&id, &code, &status, &job, &created)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound("recruitment", value)
	}
	if err != nil {
		return nil, storageFailed("failed to load recruitment", err)
	}
	return decodeRecruitment(id, code, status, job, created)
}

func (s *SQLiteRecruitments) UpdateCode(ctx context.Context, id, code string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE recruitments SET interview_code = ? WHERE id = ?", code, id)
	if err != nil {
		return storageFailed("failed to update interview code", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("recruitment", id)
	}
	return nil
}
