package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexbespwalker/walker-brain-portal/internal/auth"
	"github.com/alexbespwalker/walker-brain-portal/internal/models"
	pkghttp "github.com/alexbespwalker/walker-brain-portal/pkg/http"
)

// AuthServiceInterface defines the interface for credential operations
type AuthServiceInterface interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, email, password, displayName string) (*models.User, error)
}

// SessionServiceInterface defines the interface for session lifecycle
type SessionServiceInterface interface {
	Create(ctx context.Context, user *models.User) (*models.Session, error)
	Validate(ctx context.Context, token string) (*models.SessionView, error)
	Delete(ctx context.Context, token string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService    AuthServiceInterface
	sessionService SessionServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService AuthServiceInterface, sessionService SessionServiceInterface) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
}

// UserResponse represents a user in HTTP responses
type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	IsAdmin     bool   `json:"is_admin"`
}

// LoginResponse carries the opaque session token and the logged-in user
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// SessionResponse describes the current session for GET /auth/session
type SessionResponse struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	IsAdmin     bool   `json:"is_admin"`
	ExpiresAt   string `json:"expires_at"`
}

// Login authenticates a user and mints a session token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.authService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		case errors.Is(err, models.ErrBackendUnavailable):
			pkghttp.WriteServiceUnavailable(w, "Service temporarily unavailable")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	session, err := h.sessionService.Create(r.Context(), user)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		User: UserResponse{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			IsAdmin:     user.IsAdmin,
		},
	})
}

// Register creates a new account. No session is minted; the client logs
// in afterwards.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)

	user, err := h.authService.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDomainRestricted):
			pkghttp.WriteForbidden(w, "Registration is limited to company accounts")
		case errors.Is(err, models.ErrDuplicateAccount):
			pkghttp.WriteConflict(w, "An account with this email already exists")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid registration details")
		case errors.Is(err, models.ErrBackendUnavailable):
			pkghttp.WriteServiceUnavailable(w, "Service temporarily unavailable")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		IsAdmin:     user.IsAdmin,
	})
}

// Logout deletes the presented session. Always succeeds from the client's
// point of view; an unknown token is already logged out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractToken(r)
	if token == "" {
		pkghttp.WriteUnauthorized(w, "missing session token")
		return
	}

	if err := h.sessionService.Delete(r.Context(), token); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Session returns the current session view. Runs behind SessionMiddleware.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	view := auth.GetSessionFromContext(r)
	if view == nil {
		pkghttp.WriteUnauthorized(w, "missing session")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		UserID:      view.UserID,
		Email:       view.Email,
		DisplayName: view.DisplayName,
		IsAdmin:     view.IsAdmin,
		ExpiresAt:   view.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
