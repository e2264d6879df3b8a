package httpadapter

import (
	"net/http"

	"github.com/nsmelov/exam-insights/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrMissingCredential):
		return http.StatusPreconditionRequired
	case domain.IsKind(err, domain.ErrJobActive),
		domain.IsKind(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrOversizedFile):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrResultNotFound),
		domain.IsKind(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
