package models

import (
	"time"
)

type User struct {
	ID           string
	Email        string // unique, restricted to the company domain
	PasswordHash string
	DisplayName  string
	IsAdmin      bool // mutated only out-of-band, never through the API
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is a DB-backed opaque-token session row.
type Session struct {
	Token       string // 32 bytes of entropy, base64url, carried as URL-safe state
	UserID      string
	DisplayName string // snapshot at creation; does not track later profile edits
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// SessionView is what a validated token resolves to. IsAdmin is the role
// flag as of validation time; a role change takes effect only after the
// session expires or the user re-authenticates.
type SessionView struct {
	Token       string
	UserID      string
	Email       string
	DisplayName string
	IsAdmin     bool
	ExpiresAt   time.Time
}
