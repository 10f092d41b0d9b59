package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alexbespwalker/walker-brain-portal/internal/clock"
	"github.com/alexbespwalker/walker-brain-portal/internal/models"
	"github.com/alexbespwalker/walker-brain-portal/internal/store"
	pkgauth "github.com/alexbespwalker/walker-brain-portal/pkg/auth"
	pkglogger "github.com/alexbespwalker/walker-brain-portal/pkg/logger"
)

// SessionService manages opaque session tokens backed by the wb_sessions
// table. All reads and writes go through stored procedures; expiry is
// enforced in Go against the injected clock so tests can steer time.
type SessionService struct {
	store       store.Store
	clk         clock.Clock
	ttl         time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewSessionService creates a new SessionService
func NewSessionService(st store.Store, clk clock.Clock, ttl time.Duration, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *SessionService {
	return &SessionService{
		store:       st,
		clk:         clk,
		ttl:         ttl,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Create mints a new session for the user and persists it. The returned
// token is the only handle the client ever sees; it carries no claims.
func (s *SessionService) Create(ctx context.Context, user *models.User) (*models.Session, error) {
	token, err := pkgauth.GenerateSessionToken()
	if err != nil {
		s.logger.Error("failed to generate session token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := s.clk.Now()
	expiresAt := now.Add(s.ttl)

	if _, err := s.store.CallProcedure(ctx, "wb_create_session", token, user.ID, user.DisplayName, expiresAt); err != nil {
		s.logger.Error("failed to persist session",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, err
	}

	s.auditLogger.LogSessionEvent("session_created", user.ID)

	return &models.Session{
		Token:       token,
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}, nil
}

// Validate resolves a token to the user view captured at login time.
// Expired sessions are deleted lazily here rather than waiting for the
// background sweep, so a stale token stops working the moment it is tried.
func (s *SessionService) Validate(ctx context.Context, token string) (*models.SessionView, error) {
	if token == "" {
		return nil, models.ErrSessionNotFound
	}

	rows, err := s.store.CallProcedure(ctx, "wb_validate_session", token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrSessionNotFound
		}
		s.logger.Error("session lookup failed", slog.Any("error", err))
		return nil, err
	}
	if len(rows) == 0 {
		return nil, models.ErrSessionNotFound
	}

	row := rows[0]
	expiresAt := row.Time("expires_at")
	if !expiresAt.After(s.clk.Now()) {
		if err := s.Delete(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired session",
				slog.String("token", pkglogger.SanitizedToken(token)),
				slog.Any("error", err))
		}
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "session_rejected",
			UserID:        row.String("user_id"),
			FailureReason: "expired",
			Success:       false,
		})
		return nil, models.ErrSessionExpired
	}

	return &models.SessionView{
		Token:       token,
		UserID:      row.String("user_id"),
		Email:       row.String("user_email"),
		DisplayName: row.String("user_display_name"),
		IsAdmin:     row.Bool("user_is_admin"),
		ExpiresAt:   expiresAt,
	}, nil
}

// Delete removes a session regardless of its expiry state. Deleting a
// token that does not exist is not an error; logout is idempotent.
func (s *SessionService) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.store.CallProcedure(ctx, "wb_delete_session", token); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// SweepExpired deletes every session whose expiry is at or before now.
// Called periodically by the background cleanup manager.
func (s *SessionService) SweepExpired(ctx context.Context) (int, error) {
	rows, err := s.store.CallProcedure(ctx, "wb_sweep_sessions", s.clk.Now())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	removed := rows[0].Int("removed")
	if removed > 0 {
		s.logger.Info("expired sessions removed", slog.Int("count", removed))
	}
	return removed, nil
}
