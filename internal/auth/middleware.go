package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/alexbespwalker/walker-brain-portal/internal/models"
	pkghttp "github.com/alexbespwalker/walker-brain-portal/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// SessionContextKey is the key for storing the session view in context
	SessionContextKey contextKey = "session"

	// SessionQueryParam carries the token for clients that cannot set
	// headers, matching the portal's historical `?_session=` links.
	SessionQueryParam = "_session"
)

// SessionValidator resolves an opaque token to the session view captured
// at login.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*models.SessionView, error)
}

// SessionMiddleware resolves the session token and injects the session
// view into the request context. The token is read from the Authorization
// header first, then from the `_session` query parameter.
func SessionMiddleware(sessions SessionValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				pkghttp.WriteUnauthorized(w, "missing session token")
				return
			}

			view, err := sessions.Validate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, models.ErrSessionExpired),
					errors.Is(err, models.ErrSessionNotFound):
					// One message for both; the client learns nothing
					// about which tokens exist.
					pkghttp.WriteUnauthorized(w, "invalid or expired session")
				case errors.Is(err, models.ErrBackendUnavailable):
					pkghttp.WriteServiceUnavailable(w, "session store unavailable")
				default:
					pkghttp.WriteInternalError(w, "session validation failed")
				}
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, view)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a route to admin sessions. Must run after
// SessionMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		view := GetSessionFromContext(r)
		if view == nil {
			pkghttp.WriteUnauthorized(w, "missing session")
			return
		}
		if !view.IsAdmin {
			pkghttp.WriteForbidden(w, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractToken pulls the session token out of a request without
// validating it. Used by the middleware and by logout.
func ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get(SessionQueryParam)
}

// GetSessionFromContext extracts the session view from request context
func GetSessionFromContext(r *http.Request) *models.SessionView {
	view, ok := r.Context().Value(SessionContextKey).(*models.SessionView)
	if !ok {
		return nil
	}
	return view
}
