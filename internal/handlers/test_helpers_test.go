package handlers

import (
	"context"

	"github.com/alexbespwalker/walker-brain-portal/internal/models"
	"github.com/alexbespwalker/walker-brain-portal/internal/query"
	"github.com/alexbespwalker/walker-brain-portal/internal/services"
	"github.com/alexbespwalker/walker-brain-portal/internal/store"
)

// mockAuthService implements AuthServiceInterface with function fields.
type mockAuthService struct {
	AuthenticateFunc func(ctx context.Context, email, password string) (*models.User, error)
	RegisterFunc     func(ctx context.Context, email, password, displayName string) (*models.User, error)
}

func (m *mockAuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	return m.AuthenticateFunc(ctx, email, password)
}

func (m *mockAuthService) Register(ctx context.Context, email, password, displayName string) (*models.User, error) {
	return m.RegisterFunc(ctx, email, password, displayName)
}

// mockSessionService implements SessionServiceInterface.
type mockSessionService struct {
	CreateFunc   func(ctx context.Context, user *models.User) (*models.Session, error)
	ValidateFunc func(ctx context.Context, token string) (*models.SessionView, error)
	DeleteFunc   func(ctx context.Context, token string) error
}

func (m *mockSessionService) Create(ctx context.Context, user *models.User) (*models.Session, error) {
	return m.CreateFunc(ctx, user)
}

func (m *mockSessionService) Validate(ctx context.Context, token string) (*models.SessionView, error) {
	return m.ValidateFunc(ctx, token)
}

func (m *mockSessionService) Delete(ctx context.Context, token string) error {
	return m.DeleteFunc(ctx, token)
}

// mockQueryReader implements QueryReader. Only the funcs a test wires are
// reachable; the rest panic loudly if hit.
type mockQueryReader struct {
	FilterOptionsFunc func(ctx context.Context) (*services.FilterOptions, bool, error)
	FetchQuotesFunc   func(ctx context.Context, f services.AnalysisFilters, page int) ([]store.Row, query.Page, bool, error)
	SearchCallsFunc   func(ctx context.Context, f services.AnalysisFilters, page int) ([]store.Row, query.Page, bool, error)
	CallDetailFunc    func(ctx context.Context, transcriptID string) (store.Row, bool, error)
	TranscriptFunc    func(ctx context.Context, transcriptID string) (string, error)
	ExplorerFunc      func(ctx context.Context, f services.AnalysisFilters, page int) ([]store.Row, query.Page, bool, error)
}

func (m *mockQueryReader) FilterOptions(ctx context.Context) (*services.FilterOptions, bool, error) {
	return m.FilterOptionsFunc(ctx)
}

func (m *mockQueryReader) FetchQuotes(ctx context.Context, f services.AnalysisFilters, page int) ([]store.Row, query.Page, bool, error) {
	return m.FetchQuotesFunc(ctx, f, page)
}

func (m *mockQueryReader) SearchCalls(ctx context.Context, f services.AnalysisFilters, page int) ([]store.Row, query.Page, bool, error) {
	return m.SearchCallsFunc(ctx, f, page)
}

func (m *mockQueryReader) CallDetail(ctx context.Context, transcriptID string) (store.Row, bool, error) {
	return m.CallDetailFunc(ctx, transcriptID)
}

func (m *mockQueryReader) Transcript(ctx context.Context, transcriptID string) (string, error) {
	return m.TranscriptFunc(ctx, transcriptID)
}

func (m *mockQueryReader) Explorer(ctx context.Context, f services.AnalysisFilters, page int) ([]store.Row, query.Page, bool, error) {
	return m.ExplorerFunc(ctx, f, page)
}
