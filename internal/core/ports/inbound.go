package ports

import (
	"context"

	"github.com/nsmelov/exam-insights/internal/core/domain"
)

// AnalysisController is the inbound contract of the job pipeline.
// Start returns the number of files rejected before job start.
type AnalysisController interface {
	Start(ctx context.Context, userID string, files []domain.UploadedFile) (rejected int, err error)
	Pause() error
	Resume() error
	Cancel() error
	Reset() error
	Snapshot() domain.Snapshot
	FilteredView(filters domain.Filters) domain.AnalysisResult
}

// ResultBrowser is the inbound read/maintenance surface over persisted results.
type ResultBrowser interface {
	List(ctx context.Context) ([]domain.RecentResult, error)
	GetByID(ctx context.Context, userID, id string) (*domain.RecentResult, error)
	Rename(ctx context.Context, id, newName string) error
	Delete(ctx context.Context, id string) error
}

// SessionBrowser lists analysis sessions of one local user.
type SessionBrowser interface {
	ListForUser(ctx context.Context, userID string) ([]domain.AnalysisSession, error)
}
