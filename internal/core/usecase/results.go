package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nsmelov/exam-insights/internal/core/domain"
	"github.com/nsmelov/exam-insights/internal/core/ports"
)

// ResultsUseCase is the dedup-aware cache over the persistent result
// store. It never touches the in-memory result held by the controller.
type ResultsUseCase struct {
	store    ports.ResultStore
	sessions *SessionsUseCase
	logger   *slog.Logger
}

func NewResultsUseCase(store ports.ResultStore, sessions *SessionsUseCase, logger *slog.Logger) *ResultsUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultsUseCase{store: store, sessions: sessions, logger: logger}
}

// Save persists a result unless a record with the same content
// fingerprint already exists, in which case the existing id is
// returned and nothing is written.
func (uc *ResultsUseCase) Save(ctx context.Context, filename string, result domain.AnalysisResult) (string, error) {
	if len(result.Questions) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "save result", errors.New("result has no questions"))
	}

	fp := result.Fingerprint()
	existing, err := uc.store.FindByFingerprint(ctx, fp)
	switch {
	case err == nil:
		uc.logger.Debug("result already cached", "result_id", existing.ID, "fingerprint_count", fp.Count)
		return existing.ID, nil
	case !domain.IsKind(err, domain.ErrResultNotFound):
		return "", fmt.Errorf("fingerprint lookup: %w", err)
	}

	rec := &domain.RecentResult{
		ID:            uuid.NewString(),
		Filename:      filename,
		QuestionCount: len(result.Questions),
		Data:          result,
		CreatedAt:     time.Now().UTC(),
	}
	if err := uc.store.Create(ctx, rec); err != nil {
		return "", fmt.Errorf("create result record: %w", err)
	}
	return rec.ID, nil
}

func (uc *ResultsUseCase) List(ctx context.Context) ([]domain.RecentResult, error) {
	return uc.store.List(ctx)
}

// GetByID loads a persisted record; when the caller has an active local
// session linked to it, the link's lastAccessed is refreshed.
func (uc *ResultsUseCase) GetByID(ctx context.Context, userID, id string) (*domain.RecentResult, error) {
	rec, err := uc.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != "" && uc.sessions != nil {
		if err := uc.sessions.Touch(ctx, userID, id); err != nil {
			uc.logger.Warn("touch session failed", "result_id", id, "error", err)
		}
	}
	return rec, nil
}

func (uc *ResultsUseCase) Rename(ctx context.Context, id, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return domain.WrapError(domain.ErrInvalidInput, "rename result", errors.New("empty name"))
	}
	return uc.store.Rename(ctx, id, newName)
}

func (uc *ResultsUseCase) Delete(ctx context.Context, id string) error {
	return uc.store.Delete(ctx, id)
}
