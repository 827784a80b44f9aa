package storage

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"candidly/internal/config"
	"candidly/internal/types"
)

// PostgresRepository stores candidates and recruitments in PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var (
	_ CandidateRepository   = (*PostgresRepository)(nil)
	_ RecruitmentRepository = (*PostgresRecruitments)(nil)
)

// OpenPostgres creates the connection pool, pings it and applies the schema.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, storageFailed("failed to parse postgres DSN", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, storageFailed("failed to create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storageFailed("failed to ping database", err)
	}

	for _, stmt := range schemaStatements("JSONB") {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, storageFailed("failed to apply schema", err)
		}
	}
	return &PostgresRepository{pool: pool}, nil
}

// Close closes the connection pool
func (p *PostgresRepository) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresRepository) Save(ctx context.Context, rec *types.CandidateRecord) error {
	args, err := candidateArgs(rec)
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, upsertCandidateSQL(dollarNumber), args...); err != nil {
		return storageFailed("failed to save candidate", err)
	}
	return nil
}

func (p *PostgresRepository) Get(ctx context.Context, id string) (*types.CandidateRecord, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, "SELECT data FROM candidates WHERE id = $1", id).Scan(&data)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("candidate", id)
	}
	if err != nil {
		return nil, storageFailed("failed to load candidate", err)
	}
	return decodeCandidate(data)
}

// UpdateEvaluation rewrites the record inside a transaction holding the row lock.
func (p *PostgresRepository) UpdateEvaluation(ctx context.Context, id string, upd EvaluationUpdate) error {
	return p.mutate(ctx, id, func(rec *types.CandidateRecord) { applyEvaluation(rec, upd) })
}

func (p *PostgresRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return p.mutate(ctx, id, func(rec *types.CandidateRecord) { rec.Status = status })
}

func (p *PostgresRepository) mutate(ctx context.Context, id string, fn func(*types.CandidateRecord)) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return storageFailed("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var data []byte
	err = tx.QueryRow(ctx, "SELECT data FROM candidates WHERE id = $1 FOR UPDATE", id).Scan(&data)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return notFound("candidate", id)
	}
	if err != nil {
		return storageFailed("failed to load candidate", err)
	}
	rec, err := decodeCandidate(data)
	if err != nil {
		return err
	}
	fn(rec)

	args, err := candidateArgs(rec)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, upsertCandidateSQL(dollarNumber), args...); err != nil {
		return storageFailed("failed to save candidate", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storageFailed("failed to commit candidate update", err)
	}
	return nil
}

func (p *PostgresRepository) List(ctx context.Context, filter CandidateFilter) ([]types.CandidateRecord, error) {
	query, args := listCandidatesSQL(filter, dollarNumber)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageFailed("failed to list candidates", err)
	}
	defer rows.Close()

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

func (p *PostgresRepository) Stats(ctx context.Context, recruitmentID string) (types.RecruitmentStats, error) {
	var (
		st                                         types.RecruitmentStats
		total, shortlisted, interviewed, offered int64
	)
	err := p.pool.QueryRow(ctx, statsSQL(dollarNumber), recruitmentID).
		Scan(&total, &shortlisted, &interviewed, &offered)
	if err != nil {
		return st, storageFailed("failed to count candidates", err)
	}
	st.TotalApplicants = int(total)
	st.Shortlisted = int(shortlisted)
	st.Interviewed = int(interviewed)
	st.Offered = int(offered)
	return st, nil
}

// Recruitments returns the recruitment view of the same pool.
func (p *PostgresRepository) Recruitments() *PostgresRecruitments {
	return (*PostgresRecruitments)(p)
}

// PostgresRecruitments is the RecruitmentRepository face of PostgresRepository.
type PostgresRecruitments PostgresRepository

func (p *PostgresRecruitments) Create(ctx context.Context, r *types.Recruitment) error {
	args, err := recruitmentArgs(r)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, "INSERT INTO recruitments ("+recruitmentColumns+") VALUES ($1, $2, $3, $4, $5)", args...)
	if err != nil {
		return storageFailed("failed to create recruitment", err)
	}
	return nil
}

func (p *PostgresRecruitments) Get(ctx context.Context, id string) (*types.Recruitment, error) {
	return p.queryOne(ctx, "id", id)
}

func (p *PostgresRecruitments) GetByCode(ctx context.Context, code string) (*types.Recruitment, error) {
	return p.queryOne(ctx, "interview_code", code)
}

func (p *PostgresRecruitments) queryOne(ctx context.Context, column, value string) (*types.Recruitment, error) {
	var (
		id, code, status string
		job              []byte
		created          int64
	)
	query := fmt.Sprintf("SELECT %s FROM recruitments WHERE %s = $1", recruitmentColumns, column)
	err := p.pool.QueryRow(ctx, query, value).Scan(&id, &code, &status, &job, &created)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("recruitment", value)
	}
	if err != nil {
		return nil, storageFailed("failed to load recruitment", err)
	}
	return decodeRecruitment(id, code, status, job, created)
}

func (p *PostgresRecruitments) UpdateCode(ctx context.Context, id, code string) error {
	tag, err := p.pool.Exec(ctx, "UPDATE recruitments SET interview_code = $1 WHERE id = $2", code, id)
	if err != nil {
		return storageFailed("failed to update interview code", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("recruitment", id)
	}
	return nil
}
