package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alexbespwalker/walker-brain-portal/internal/models"
)

func TestWithRetry_SuccessFirstTry(t *testing.T) {
	calls := 0
	err := withRetry(func() error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_TransientFailureRetriesOnce(t *testing.T) {
	calls := 0
	err := withRetry(func() error {
		calls++
		if calls == 1 {
			return models.ErrBackendUnavailable
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_PersistentFailureStopsAfterTwo(t *testing.T) {
	calls := 0
	err := withRetry(func() error {
		calls++
		return models.ErrQueryTimeout
	})
	assert.ErrorIs(t, err, models.ErrQueryTimeout)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_NonTransientNotRetried(t *testing.T) {
	calls := 0
	err := withRetry(func() error {
		calls++
		return models.ErrNotFound
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestWriteQueryError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", models.ErrNotFound, http.StatusNotFound},
		{"bad request", models.ErrBadRequest, http.StatusBadRequest},
		{"bad filter", models.ErrBadFilter, http.StatusBadRequest},
		{"inverted range", models.ErrFilterOutOfRange, http.StatusBadRequest},
		{"empty membership", models.ErrEmptyMembership, http.StatusBadRequest},
		{"backend unavailable", models.ErrBackendUnavailable, http.StatusServiceUnavailable},
		{"query timeout", models.ErrQueryTimeout, http.StatusGatewayTimeout},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeQueryError(rec, tt.err)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
		})
	}
}
