package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nsmelov/exam-insights/internal/core/domain"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) FindLink(ctx context.Context, userID, resultID string) (*domain.AnalysisSession, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, result_id, session_name, question_count, COALESCE(year, ''), COALESCE(subject, ''), last_accessed
FROM analysis_sessions
WHERE user_id = $1 AND result_id = $2
`, userID, resultID)

	var sess domain.AnalysisSession
	err := row.Scan(&sess.ID, &sess.UserID, &sess.ResultID, &sess.SessionName,
		&sess.QuestionCount, &sess.Year, &sess.Subject, &sess.LastAccessed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "load session",
				fmt.Errorf("user=%s result=%s", userID, resultID))
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &sess, nil
}

func (r *SessionRepository) CreateLink(ctx context.Context, sess *domain.AnalysisSession) error {
	// The unique (user_id, result_id) constraint makes link creation
	// idempotent even if two writers race.
	_, err := r.db.ExecContext(ctx, `
INSERT INTO analysis_sessions (id, user_id, result_id, session_name, question_count, year, subject, last_accessed)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (user_id, result_id) DO NOTHING
`, sess.ID, sess.UserID, sess.ResultID, sess.SessionName, sess.QuestionCount, sess.Year, sess.Subject, sess.LastAccessed)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.AnalysisSession, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, result_id, session_name, question_count, COALESCE(year, ''), COALESCE(subject, ''), last_accessed
FROM analysis_sessions
WHERE user_id = $1
ORDER BY last_accessed DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.AnalysisSession
	for rows.Next() {
		var sess domain.AnalysisSession
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.ResultID, &sess.SessionName,
			&sess.QuestionCount, &sess.Year, &sess.Subject, &sess.LastAccessed); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

func (r *SessionRepository) Touch(ctx context.Context, userID, resultID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE analysis_sessions
SET last_accessed = $3
WHERE user_id = $1 AND result_id = $2
`, userID, resultID, at)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch session rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrSessionNotFound, "touch session",
			fmt.Errorf("user=%s result=%s", userID, resultID))
	}
	return nil
}
