package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nsmelov/exam-insights/internal/core/domain"
)

func newSessionRepoWithMock(t *testing.T) (*SessionRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &SessionRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestFindLinkReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newSessionRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, user_id, result_id, session_name").
		WithArgs("user-1", "r1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindLink(context.Background(), "user-1", "r1")
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindLinkScansNullableColumns(t *testing.T) {
	repo, mock, done := newSessionRepoWithMock(t)
	defer done()

	accessed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "result_id", "session_name", "question_count", "year", "subject", "last_accessed"}).
		AddRow("s1", "user-1", "r1", "june.pdf", 12, "", "", accessed)
	mock.ExpectQuery("SELECT id, user_id, result_id, session_name").
		WithArgs("user-1", "r1").
		WillReturnRows(rows)

	sess, err := repo.FindLink(context.Background(), "user-1", "r1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if sess.ID != "s1" || sess.Year != "" || sess.QuestionCount != 12 {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestCreateLinkIsIdempotentOnConflict(t *testing.T) {
	repo, mock, done := newSessionRepoWithMock(t)
	defer done()

	sess := &domain.AnalysisSession{
		ID:            "s1",
		UserID:        "user-1",
		ResultID:      "r1",
		SessionName:   "june.pdf",
		QuestionCount: 12,
		LastAccessed:  time.Now().UTC(),
	}
	// Conflicting insert affects zero rows; still not an error.
	mock.ExpectExec("INSERT INTO analysis_sessions").
		WithArgs("s1", "user-1", "r1", "june.pdf", 12, "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.CreateLink(context.Background(), sess); err != nil {
		t.Fatalf("create link: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListByUserOrdersByLastAccessed(t *testing.T) {
	repo, mock, done := newSessionRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "result_id", "session_name", "question_count", "year", "subject", "last_accessed"}).
		AddRow("s2", "user-1", "r2", "latest.pdf", 3, "2025", "Physics", now).
		AddRow("s1", "user-1", "r1", "older.pdf", 5, "2024", "Biology", now.Add(-time.Hour))
	mock.ExpectQuery("SELECT id, user_id, result_id, session_name").
		WithArgs("user-1").
		WillReturnRows(rows)

	sessions, err := repo.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "s2" {
		t.Fatalf("unexpected sessions %+v", sessions)
	}
}

func TestTouchReturnsNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newSessionRepoWithMock(t)
	defer done()

	at := time.Now().UTC()
	mock.ExpectExec("UPDATE analysis_sessions").
		WithArgs("user-1", "missing", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Touch(context.Background(), "user-1", "missing", at)
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
