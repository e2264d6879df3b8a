package ports

import (
	"context"
	"io"
	"time"

	"github.com/nsmelov/exam-insights/internal/core/domain"
)

// TextExtractor turns one staged source file into raw text.
type TextExtractor interface {
	Extract(ctx context.Context, file domain.UploadedFile) (string, error)
}

// QuestionAnalyzer turns extracted text into structured questions.
// onProgress receives 0..100 within this single call and may be nil.
type QuestionAnalyzer interface {
	Analyze(ctx context.Context, text string, onProgress func(percent int)) (domain.AnalysisResult, error)
}

// ResultStore persists completed analysis results.
type ResultStore interface {
	Create(ctx context.Context, rec *domain.RecentResult) error
	GetByID(ctx context.Context, id string) (*domain.RecentResult, error)
	FindByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.RecentResult, error)
	Rename(ctx context.Context, id, newName string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.RecentResult, error)
}

// SessionStore persists per-user links to persisted results.
type SessionStore interface {
	FindLink(ctx context.Context, userID, resultID string) (*domain.AnalysisSession, error)
	CreateLink(ctx context.Context, sess *domain.AnalysisSession) error
	ListByUser(ctx context.Context, userID string) ([]domain.AnalysisSession, error)
	Touch(ctx context.Context, userID, resultID string, at time.Time) error
}

// FileStore stages uploaded source files on local disk for extraction.
type FileStore interface {
	Stage(ctx context.Context, filename string, data io.Reader) (domain.UploadedFile, error)
	Remove(ctx context.Context, file domain.UploadedFile) error
}

// EventPublisher announces persisted results to downstream consumers.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, event domain.CompletedEvent) error
}

// CredentialSource reports whether an analysis API key is configured.
// Consulted before any state transition on job start.
type CredentialSource interface {
	HasAnalysisKey() bool
}

// PipelineObserver receives pipeline lifecycle measurements.
type PipelineObserver interface {
	JobStarted(totalFiles int)
	JobFinished(outcome string, duration time.Duration)
	StageCompleted(stage string, duration time.Duration)
}
