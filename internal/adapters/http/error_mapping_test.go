package httpadapter

import (
	"errors"
	"net/http"
	"testing"

	"github.com/launchdeck/launchdeck/internal/core/domain"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		kind error
		want int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrTemplateNotFound, http.StatusNotFound},
		{domain.ErrDuplicate, http.StatusConflict},
		{domain.ErrReference, http.StatusUnprocessableEntity},
		{domain.ErrConfiguration, http.StatusInternalServerError},
		{domain.ErrTemporary, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		err := domain.WrapError(tc.kind, "operation", errors.New("detail"))
		if got := mapErrorToHTTPStatus(err); got != tc.want {
			t.Fatalf("mapErrorToHTTPStatus(%v) = %d, want %d", tc.kind, got, tc.want)
		}
	}

	if got := mapErrorToHTTPStatus(errors.New("unknown")); got != http.StatusInternalServerError {
		t.Fatalf("unknown error mapped to %d", got)
	}
}
