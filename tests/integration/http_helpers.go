package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/alexbespwalker/walker-brain-portal/internal/cache"
	"github.com/alexbespwalker/walker-brain-portal/internal/clock"
	"github.com/alexbespwalker/walker-brain-portal/internal/handlers"
	"github.com/alexbespwalker/walker-brain-portal/internal/query"
	"github.com/alexbespwalker/walker-brain-portal/internal/routes"
	"github.com/alexbespwalker/walker-brain-portal/internal/services"
	"github.com/alexbespwalker/walker-brain-portal/internal/store"
	pkglogger "github.com/alexbespwalker/walker-brain-portal/pkg/logger"
)

// TestServer wraps httptest.Server with the full portal wiring on top of
// a real database. The clock is a fake so session expiry and cache TTLs
// can be driven from tests.
type TestServer struct {
	Server   *httptest.Server
	Clock    *clock.Fake
	Cache    *cache.Cache
	Sessions *services.SessionService
	Queries  *services.QueryService
	logger   *slog.Logger
}

// NewTestServer wires the portal against the given test database.
func NewTestServer(testDB *TestDB) *TestServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if os.Getenv("TEST_VERBOSE") != "" {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	clk := clock.NewFake(time.Now())
	st := store.NewPostgres(testDB.SQL, 10*time.Second)
	queryCache := cache.New(clk)
	executor := query.NewExecutor(st, queryCache, query.DefaultTTLs(), logger)

	auditLogger := pkglogger.NewAuditLogger(logger)
	authService := services.NewAuthService(st, "walkeradvertising.com", logger, auditLogger)
	sessionService := services.NewSessionService(st, clk, 7*24*time.Hour, logger, auditLogger)
	queryService := services.NewQueryService(executor, st, clk, services.DefaultPageSize, logger)

	authHandler := handlers.NewAuthHandler(authService, sessionService)
	queryHandler := handlers.NewQueryHandler(queryService)
	dashboardHandler := handlers.NewDashboardHandler(queryService)
	testimonialHandler := handlers.NewTestimonialHandler(queryService)
	adminHandler := handlers.NewAdminHandler(queryService)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Recoverer)
	routes.RegisterRoutes(router, authHandler, queryHandler, dashboardHandler, testimonialHandler, adminHandler, sessionService)

	return &TestServer{
		Server:   httptest.NewServer(router),
		Clock:    clk,
		Cache:    queryCache,
		Sessions: sessionService,
		Queries:  queryService,
		logger:   logger,
	}
}

// Close shuts down the HTTP server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// PostJSON sends a JSON POST and returns the response
func (ts *TestServer) PostJSON(path string, body any, token string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}

// PatchJSON sends a JSON PATCH and returns the response
func (ts *TestServer) PatchJSON(path string, body any, token string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPatch, ts.Server.URL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}

// Get sends a GET with an optional bearer token
func (ts *TestServer) Get(path, token string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, ts.Server.URL+path, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}

// DecodeJSON reads and decodes a JSON response body
func DecodeJSON(resp *http.Response, dest any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(dest)
}

// Login performs a login request and returns the session token
func (ts *TestServer) Login(email, password string) (string, error) {
	resp, err := ts.PostJSON("/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := DecodeJSON(resp, &body); err != nil {
		return "", err
	}
	return body.Token, nil
}
