package handlers

import (
	"errors"
	"net/http"

	"github.com/alexbespwalker/walker-brain-portal/internal/models"
	pkghttp "github.com/alexbespwalker/walker-brain-portal/pkg/http"
)

// withRetry runs fn, retrying exactly once when the backend reports a
// transient failure. The portal survives brief database blips without
// surfacing them to every dashboard.
func withRetry(fn func() error) error {
	err := fn()
	if errors.Is(err, models.ErrBackendUnavailable) || errors.Is(err, models.ErrQueryTimeout) {
		return fn()
	}
	return err
}

// writeQueryError maps a query-path error to its HTTP response.
func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Not found")
	case errors.Is(err, models.ErrBadRequest),
		errors.Is(err, models.ErrBadFilter),
		errors.Is(err, models.ErrFilterOutOfRange),
		errors.Is(err, models.ErrEmptyMembership):
		pkghttp.WriteBadRequest(w, "Invalid query parameters")
	case errors.Is(err, models.ErrBackendUnavailable):
		pkghttp.WriteServiceUnavailable(w, "Backend temporarily unavailable")
	case errors.Is(err, models.ErrQueryTimeout):
		pkghttp.WriteGatewayTimeout(w, "Query timed out")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
