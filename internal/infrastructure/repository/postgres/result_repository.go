package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nsmelov/exam-insights/internal/core/domain"
)

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS analysis_results (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	question_count INTEGER NOT NULL,
	first_question_id TEXT NOT NULL,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_fingerprint ON analysis_results(question_count, first_question_id);
CREATE INDEX IF NOT EXISTS idx_results_created_at ON analysis_results(created_at DESC);

CREATE TABLE IF NOT EXISTS analysis_sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	result_id TEXT NOT NULL REFERENCES analysis_results(id) ON DELETE CASCADE,
	session_name TEXT NOT NULL,
	question_count INTEGER NOT NULL,
	year TEXT,
	subject TEXT,
	last_accessed TIMESTAMPTZ NOT NULL,
	UNIQUE(user_id, result_id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON analysis_sessions(user_id, last_accessed DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ResultRepository) Create(ctx context.Context, rec *domain.RecentResult) error {
	dataJSON, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("marshal result data: %w", err)
	}

	fp := rec.Data.Fingerprint()
	_, err = r.db.ExecContext(ctx, `
INSERT INTO analysis_results (id, filename, question_count, first_question_id, data, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, rec.ID, rec.Filename, rec.QuestionCount, fp.FirstID, dataJSON, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (r *ResultRepository) GetByID(ctx context.Context, id string) (*domain.RecentResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, question_count, data, created_at
FROM analysis_results
WHERE id = $1
`, id)
	return scanResult(row, "id="+id)
}

func (r *ResultRepository) FindByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.RecentResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, question_count, data, created_at
FROM analysis_results
WHERE question_count = $1 AND first_question_id = $2
ORDER BY created_at ASC
LIMIT 1
`, fp.Count, fp.FirstID)
	return scanResult(row, fmt.Sprintf("fingerprint=(%d,%s)", fp.Count, fp.FirstID))
}

func (r *ResultRepository) Rename(ctx context.Context, id, newName string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE analysis_results
SET filename = $2
WHERE id = $1
`, id, newName)
	if err != nil {
		return fmt.Errorf("rename result: %w", err)
	}
	return requireRowAffected(res, "rename result", id)
}

func (r *ResultRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analysis_results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	return requireRowAffected(res, "delete result", id)
}

func (r *ResultRepository) List(ctx context.Context) ([]domain.RecentResult, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, filename, question_count, data, created_at
FROM analysis_results
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []domain.RecentResult
	for rows.Next() {
		var rec domain.RecentResult
		var dataRaw []byte
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.QuestionCount, &dataRaw, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		if err := json.Unmarshal(dataRaw, &rec.Data); err != nil {
			return nil, fmt.Errorf("unmarshal result data: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner, ident string) (*domain.RecentResult, error) {
	var rec domain.RecentResult
	var dataRaw []byte

	err := row.Scan(&rec.ID, &rec.Filename, &rec.QuestionCount, &dataRaw, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrResultNotFound, "load result", errors.New(ident))
		}
		return nil, fmt.Errorf("scan result: %w", err)
	}
	if err := json.Unmarshal(dataRaw, &rec.Data); err != nil {
		return nil, fmt.Errorf("unmarshal result data: %w", err)
	}
	return &rec, nil
}

func requireRowAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrResultNotFound, operation, errors.New("id="+id))
	}
	return nil
}
