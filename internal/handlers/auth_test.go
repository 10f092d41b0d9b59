package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexbespwalker/walker-brain-portal/internal/models"
)

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAuthHandler_Login(t *testing.T) {
	user := &models.User{ID: "u-1", Email: "jane@walkeradvertising.com", DisplayName: "Jane"}
	expires := time.Date(2026, 8, 8, 12, 0, 0, 0, time.UTC)

	h := NewAuthHandler(
		&mockAuthService{
			AuthenticateFunc: func(_ context.Context, email, password string) (*models.User, error) {
				assert.Equal(t, "jane@walkeradvertising.com", email)
				return user, nil
			},
		},
		&mockSessionService{
			CreateFunc: func(_ context.Context, u *models.User) (*models.Session, error) {
				return &models.Session{Token: "tok-123", UserID: u.ID, ExpiresAt: expires}, nil
			},
		},
	)

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Email:    "Jane@WalkerAdvertising.com",
		Password: "pw123456",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tok-123", resp.Token)
	assert.Equal(t, "2026-08-08T12:00:00Z", resp.ExpiresAt)
	assert.Equal(t, "u-1", resp.User.ID)
}

func TestAuthHandler_LoginInvalidCredentials(t *testing.T) {
	h := NewAuthHandler(
		&mockAuthService{
			AuthenticateFunc: func(context.Context, string, string) (*models.User, error) {
				return nil, models.ErrInvalidCredentials
			},
		},
		&mockSessionService{},
	)

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Email:    "jane@walkeradvertising.com",
		Password: "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// The body must not say whether the email or the password was wrong.
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "email")
}

func TestAuthHandler_LoginBackendDown(t *testing.T) {
	h := NewAuthHandler(
		&mockAuthService{
			AuthenticateFunc: func(context.Context, string, string) (*models.User, error) {
				return nil, models.ErrBackendUnavailable
			},
		},
		&mockSessionService{},
	)

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{
		Email:    "jane@walkeradvertising.com",
		Password: "pw123456",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthHandler_LoginValidation(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockSessionService{})

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Email: "not-an-email", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.Login, "/auth/login", LoginRequest{Email: "jane@walkeradvertising.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_Register(t *testing.T) {
	h := NewAuthHandler(
		&mockAuthService{
			RegisterFunc: func(_ context.Context, email, _, displayName string) (*models.User, error) {
				return &models.User{ID: "u-2", Email: email, DisplayName: displayName}, nil
			},
		},
		&mockSessionService{},
	)

	rec := postJSON(t, h.Register, "/auth/register", RegisterRequest{
		Email:       "new@walkeradvertising.com",
		Password:    "pw123456",
		DisplayName: "New Hire",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "u-2", resp.ID)
}

func TestAuthHandler_RegisterErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"off domain", models.ErrDomainRestricted, http.StatusForbidden},
		{"duplicate", models.ErrDuplicateAccount, http.StatusConflict},
		{"weak password", models.ErrBadRequest, http.StatusBadRequest},
		{"backend down", models.ErrBackendUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(
				&mockAuthService{
					RegisterFunc: func(context.Context, string, string, string) (*models.User, error) {
						return nil, tt.err
					},
				},
				&mockSessionService{},
			)
			rec := postJSON(t, h.Register, "/auth/register", RegisterRequest{
				Email:       "someone@walkeradvertising.com",
				Password:    "pw123456",
				DisplayName: "Someone",
			})
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	var deleted string
	h := NewAuthHandler(&mockAuthService{}, &mockSessionService{
		DeleteFunc: func(_ context.Context, token string) error {
			deleted = token
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer tok-123")
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "tok-123", deleted)
}

func TestAuthHandler_LogoutMissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockSessionService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
