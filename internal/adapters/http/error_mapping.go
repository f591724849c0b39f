package httpadapter

import (
	"net/http"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound), domain.IsKind(err, domain.ErrTemplateNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrDuplicate):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrReference):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrConfiguration):
		return http.StatusInternalServerError
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
