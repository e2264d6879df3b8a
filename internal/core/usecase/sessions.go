package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nsmelov/exam-insights/internal/core/domain"
	"github.com/nsmelov/exam-insights/internal/core/ports"
)

// SessionsUseCase links persisted results to local user sessions.
type SessionsUseCase struct {
	store  ports.SessionStore
	logger *slog.Logger
}

func NewSessionsUseCase(store ports.SessionStore, logger *slog.Logger) *SessionsUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionsUseCase{store: store, logger: logger}
}

// LinkIfActive creates the (user, result) link once. A no-op when no
// local session is active (empty user id) or the link already exists.
func (uc *SessionsUseCase) LinkIfActive(ctx context.Context, userID, resultID, filename string, questions []domain.Question) error {
	if userID == "" {
		return nil
	}

	existing, err := uc.store.FindLink(ctx, userID, resultID)
	switch {
	case err == nil:
		uc.logger.Debug("session already linked", "session_id", existing.ID, "result_id", resultID)
		return nil
	case !domain.IsKind(err, domain.ErrSessionNotFound):
		return fmt.Errorf("session lookup: %w", err)
	}

	sess := &domain.AnalysisSession{
		ID:            uuid.NewString(),
		UserID:        userID,
		ResultID:      resultID,
		SessionName:   sessionName(filename),
		QuestionCount: len(questions),
		LastAccessed:  time.Now().UTC(),
	}
	// First question stands in as representative metadata.
	if len(questions) > 0 {
		sess.Year = questions[0].Year
		sess.Subject = questions[0].Subject
	}
	if err := uc.store.CreateLink(ctx, sess); err != nil {
		return fmt.Errorf("create session link: %w", err)
	}
	return nil
}

func (uc *SessionsUseCase) ListForUser(ctx context.Context, userID string) ([]domain.AnalysisSession, error) {
	if userID == "" {
		return nil, nil
	}
	return uc.store.ListByUser(ctx, userID)
}

// Touch refreshes lastAccessed for an existing link; a missing link is
// not an error.
func (uc *SessionsUseCase) Touch(ctx context.Context, userID, resultID string) error {
	err := uc.store.Touch(ctx, userID, resultID, time.Now().UTC())
	if err != nil && domain.IsKind(err, domain.ErrSessionNotFound) {
		return nil
	}
	return err
}

func sessionName(filename string) string {
	name := strings.TrimSpace(filename)
	if name == "" {
		return "Analysis " + time.Now().UTC().Format("2006-01-02")
	}
	return name
}
