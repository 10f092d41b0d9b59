package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/alexbespwalker/walker-brain-portal/internal/models"
	"github.com/alexbespwalker/walker-brain-portal/internal/store"
	pkgauth "github.com/alexbespwalker/walker-brain-portal/pkg/auth"
	pkglogger "github.com/alexbespwalker/walker-brain-portal/pkg/logger"
)

// dummyHash is compared against when the email is unknown so that
// "no such user" and "wrong password" take similar time.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// AuthService handles credential verification and account creation.
// Password hashes never leave this layer; callers receive the user
// record with PasswordHash cleared.
type AuthService struct {
	store         store.Store
	allowedDomain string
	logger        *slog.Logger
	auditLogger   *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(st store.Store, allowedDomain string, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		store:         st,
		allowedDomain: strings.ToLower(strings.TrimSpace(allowedDomain)),
		logger:        logger,
		auditLogger:   auditLogger,
	}
}

// Authenticate verifies an email/password pair. Unknown accounts and bad
// passwords collapse into the same ErrInvalidCredentials so responses do
// not reveal which half was wrong.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.ErrInvalidCredentials
	}

	rows, err := s.store.CallProcedure(ctx, "wb_user_for_auth", email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to look up user for auth", slog.Any("error", err))
		return nil, err
	}
	if errors.Is(err, models.ErrNotFound) || len(rows) == 0 {
		// Burn a bcrypt comparison anyway.
		_ = pkgauth.ComparePassword(dummyHash, password)
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return nil, models.ErrInvalidCredentials
	}

	user := userFromRow(rows[0])
	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return nil, models.ErrInvalidCredentials
	}

	s.logger.Info("user authenticated", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		Success:   true,
	})

	user.PasswordHash = ""
	return user, nil
}

// Register creates a new account. The email-domain restriction is checked
// before the uniqueness lookup, so an off-domain address learns nothing
// about which accounts exist.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)

	if email == "" || displayName == "" {
		return nil, models.ErrBadRequest
	}
	if !s.emailAllowed(email) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "registration_failed",
			FailureReason: "domain_restricted",
			Success:       false,
		})
		return nil, models.ErrDomainRestricted
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrBadRequest, err)
	}

	existing, err := s.store.CallProcedure(ctx, "wb_user_for_auth", email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check existing account", slog.Any("error", err))
		return nil, err
	}
	if len(existing) > 0 {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "registration_failed",
			FailureReason: "duplicate_account",
			Success:       false,
		})
		return nil, models.ErrDuplicateAccount
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	id := uuid.New().String()
	rows, err := s.store.CallProcedure(ctx, "wb_register_user", id, email, hash, displayName)
	if err != nil {
		// Two concurrent registrations can both pass the lookup above;
		// the unique index breaks the tie.
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrDuplicateAccount
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", id))
	s.auditLogger.LogAccountAction("user_registered", id, nil)

	if len(rows) > 0 {
		user := userFromRow(rows[0])
		user.PasswordHash = ""
		return user, nil
	}
	return &models.User{ID: id, Email: email, DisplayName: displayName}, nil
}

func (s *AuthService) emailAllowed(email string) bool {
	if s.allowedDomain == "" {
		return true
	}
	return strings.HasSuffix(email, "@"+s.allowedDomain)
}

func userFromRow(row store.Row) *models.User {
	return &models.User{
		ID:           row.String("id"),
		Email:        row.String("email"),
		PasswordHash: row.String("password_hash"),
		DisplayName:  row.String("display_name"),
		IsAdmin:      row.Bool("is_admin"),
		CreatedAt:    row.Time("created_at"),
		UpdatedAt:    row.Time("updated_at"),
	}
}
