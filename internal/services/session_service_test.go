package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexbespwalker/walker-brain-portal/internal/clock"
	"github.com/alexbespwalker/walker-brain-portal/internal/models"
	"github.com/alexbespwalker/walker-brain-portal/internal/store"
	pkglogger "github.com/alexbespwalker/walker-brain-portal/pkg/logger"
)

func discardLoggers() (*slog.Logger, *pkglogger.AuditLogger) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return logger, pkglogger.NewAuditLogger(logger)
}

func newSessionService(st store.Store, clk clock.Clock) *SessionService {
	logger, audit := discardLoggers()
	return NewSessionService(st, clk, 7*24*time.Hour, logger, audit)
}

func TestSessionService_Create(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	var gotArgs []any
	mock := &MockStore{
		CallProcedureFunc: func(_ context.Context, name string, args ...any) ([]store.Row, error) {
			require.Equal(t, "wb_create_session", name)
			gotArgs = args
			return nil, nil
		},
	}
	svc := newSessionService(mock, clk)

	session, err := svc.Create(context.Background(), &models.User{ID: "u-1", DisplayName: "Jane"})
	require.NoError(t, err)

	assert.NotEmpty(t, session.Token)
	assert.GreaterOrEqual(t, len(session.Token), 43, "32 bytes base64url without padding")
	assert.Equal(t, "u-1", session.UserID)
	assert.True(t, session.ExpiresAt.Equal(clk.Now().Add(7*24*time.Hour)))

	require.Len(t, gotArgs, 4)
	assert.Equal(t, session.Token, gotArgs[0])
	assert.Equal(t, "u-1", gotArgs[1])
	assert.Equal(t, "Jane", gotArgs[2])
}

func TestSessionService_CreateTokensUnique(t *testing.T) {
	clk := clock.NewFake(time.Now())
	svc := newSessionService(&MockStore{}, clk)

	a, err := svc.Create(context.Background(), &models.User{ID: "u-1"})
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), &models.User{ID: "u-1"})
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
}

func TestSessionService_Validate(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	mock := &MockStore{
		CallProcedureFunc: func(_ context.Context, name string, args ...any) ([]store.Row, error) {
			require.Equal(t, "wb_validate_session", name)
			return []store.Row{{
				"user_id":           "u-1",
				"user_email":        "jane@walkeradvertising.com",
				"user_display_name": "Jane",
				"user_is_admin":     true,
				"expires_at":        clk.Now().Add(time.Hour),
			}}, nil
		},
	}
	svc := newSessionService(mock, clk)

	view, err := svc.Validate(context.Background(), "token-abc")
	require.NoError(t, err)
	assert.Equal(t, "u-1", view.UserID)
	assert.Equal(t, "jane@walkeradvertising.com", view.Email)
	assert.True(t, view.IsAdmin)
}

func TestSessionService_ValidateEmptyToken(t *testing.T) {
	mock := &MockStore{}
	svc := newSessionService(mock, clock.NewFake(time.Now()))

	_, err := svc.Validate(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	assert.Empty(t, mock.Calls, "empty token must not hit the store")
}

func TestSessionService_ValidateUnknownToken(t *testing.T) {
	mock := &MockStore{
		CallProcedureFunc: func(context.Context, string, ...any) ([]store.Row, error) {
			return []store.Row{}, nil
		},
	}
	svc := newSessionService(mock, clock.NewFake(time.Now()))

	_, err := svc.Validate(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestSessionService_ValidateExpiredDeletesLazily(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	mock := &MockStore{
		CallProcedureFunc: func(_ context.Context, name string, _ ...any) ([]store.Row, error) {
			if name == "wb_validate_session" {
				return []store.Row{{
					"user_id":    "u-1",
					"expires_at": clk.Now().Add(-time.Minute),
				}}, nil
			}
			return nil, nil
		},
	}
	svc := newSessionService(mock, clk)

	_, err := svc.Validate(context.Background(), "stale-token")
	assert.ErrorIs(t, err, models.ErrSessionExpired)
	assert.Contains(t, mock.Calls, "proc:wb_delete_session", "expired session must be removed on sight")
}

func TestSessionService_ValidateExpiryBoundary(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	mock := &MockStore{
		CallProcedureFunc: func(_ context.Context, name string, _ ...any) ([]store.Row, error) {
			if name == "wb_validate_session" {
				// expires_at exactly now: already invalid.
				return []store.Row{{"user_id": "u-1", "expires_at": clk.Now()}}, nil
			}
			return nil, nil
		},
	}
	svc := newSessionService(mock, clk)

	_, err := svc.Validate(context.Background(), "boundary-token")
	assert.ErrorIs(t, err, models.ErrSessionExpired)
}

func TestSessionService_DeleteIdempotent(t *testing.T) {
	mock := &MockStore{
		CallProcedureFunc: func(context.Context, string, ...any) ([]store.Row, error) {
			return nil, models.ErrNotFound
		},
	}
	svc := newSessionService(mock, clock.NewFake(time.Now()))

	assert.NoError(t, svc.Delete(context.Background(), "already-gone"))
	assert.NoError(t, svc.Delete(context.Background(), ""))
}

func TestSessionService_SweepExpired(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	mock := &MockStore{
		CallProcedureFunc: func(_ context.Context, name string, args ...any) ([]store.Row, error) {
			require.Equal(t, "wb_sweep_sessions", name)
			require.Len(t, args, 1)
			assert.Equal(t, clk.Now(), args[0])
			return []store.Row{{"removed": int64(3)}}, nil
		},
	}
	svc := newSessionService(mock, clk)

	removed, err := svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
}
