package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Auth errors. Wrong email and wrong password both surface as
	// ErrInvalidCredentials so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrDomainRestricted   = errors.New("registration restricted to company email addresses")

	// Session errors
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionNotFound = errors.New("session not found")

	// Query errors. Never swallowed into an empty result set.
	ErrBackendUnavailable = errors.New("analysis store unavailable")
	ErrQueryTimeout       = errors.New("query timed out")
	ErrBadFilter          = errors.New("invalid filter")

	// Filter errors
	ErrFilterOutOfRange = errors.New("filter range is inverted")
	ErrEmptyMembership  = errors.New("membership filter has no values")
)
