package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexbespwalker/walker-brain-portal/internal/models"
	"github.com/alexbespwalker/walker-brain-portal/internal/query"
	"github.com/alexbespwalker/walker-brain-portal/internal/services"
	"github.com/alexbespwalker/walker-brain-portal/internal/store"
)

func TestParseFilters(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/quotes?case_type=personal_injury,workers_comp&tone=relieved&min_quality=80&testimonial_only=true&q=slip", nil)

	f := parseFilters(req)
	assert.Equal(t, []string{"personal_injury", "workers_comp"}, f.CaseTypes)
	assert.Equal(t, []string{"relieved"}, f.Tones)
	assert.Equal(t, 80, f.MinQuality)
	assert.True(t, f.TestimonialOnly)
	assert.False(t, f.ContentWorthy)
	assert.Equal(t, "slip", f.Search)
}

func TestParseFilters_BadNumericsFallBack(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/quotes?min_quality=abc&page=xyz", nil)
	f := parseFilters(req)
	assert.Equal(t, 0, f.MinQuality)
	assert.Equal(t, 0, parsePage(req))
}

func TestQueryHandler_Quotes(t *testing.T) {
	h := NewQueryHandler(&mockQueryReader{
		FetchQuotesFunc: func(_ context.Context, f services.AnalysisFilters, page int) ([]store.Row, query.Page, bool, error) {
			assert.Equal(t, 2, page)
			assert.Equal(t, []string{"personal_injury"}, f.CaseTypes)
			return []store.Row{{"source_transcript_id": "call-001"}},
				query.Page{Index: 2, Offset: 50, Total: 60, TotalPages: 3, HasPrevious: true},
				true, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/quotes?case_type=personal_injury&page=2", nil)
	rec := httptest.NewRecorder()
	h.Quotes(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, 60, resp.Page.Total)
	assert.True(t, resp.CacheHit)
}

func TestQueryHandler_QuotesRetriesTransientFailure(t *testing.T) {
	calls := 0
	h := NewQueryHandler(&mockQueryReader{
		FetchQuotesFunc: func(context.Context, services.AnalysisFilters, int) ([]store.Row, query.Page, bool, error) {
			calls++
			if calls == 1 {
				return nil, query.Page{}, false, models.ErrBackendUnavailable
			}
			return []store.Row{}, query.Page{}, false, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/quotes", nil)
	rec := httptest.NewRecorder()
	h.Quotes(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestQueryHandler_QuotesEmptyMultiselectRejected(t *testing.T) {
	calls := 0
	h := NewQueryHandler(&mockQueryReader{
		FetchQuotesFunc: func(context.Context, services.AnalysisFilters, int) ([]store.Row, query.Page, bool, error) {
			calls++
			return nil, query.Page{}, false, nil
		},
	})

	// A present-but-empty multiselect means "show nothing"; serving every
	// row instead would be wrong, so the request is rejected outright.
	for _, target := range []string{"/quotes?case_type=", "/quotes?tone=,,"} {
		rec := httptest.NewRecorder()
		h.Quotes(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "target %s", target)
	}
	assert.Equal(t, 0, calls, "rejected requests must not reach the service")
}

func TestQueryHandler_QuotesInvertedQualityRangeRejectedUpFront(t *testing.T) {
	calls := 0
	h := NewQueryHandler(&mockQueryReader{
		FetchQuotesFunc: func(context.Context, services.AnalysisFilters, int) ([]store.Row, query.Page, bool, error) {
			calls++
			return nil, query.Page{}, false, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Quotes(rec, httptest.NewRequest(http.MethodGet, "/quotes?min_quality=90&max_quality=10", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, calls)
}

func TestQueryHandler_QuotesBadFilter(t *testing.T) {
	h := NewQueryHandler(&mockQueryReader{
		FetchQuotesFunc: func(context.Context, services.AnalysisFilters, int) ([]store.Row, query.Page, bool, error) {
			return nil, query.Page{}, false, models.ErrFilterOutOfRange
		},
	})

	// The range survives the boundary check; the service still reports
	// the compile failure and the handler maps it to 400.
	req := httptest.NewRequest(http.MethodGet, "/quotes?min_quality=90", nil)
	rec := httptest.NewRecorder()
	h.Quotes(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryHandler_FilterOptions(t *testing.T) {
	h := NewQueryHandler(&mockQueryReader{
		FilterOptionsFunc: func(context.Context) (*services.FilterOptions, bool, error) {
			return &services.FilterOptions{CaseTypes: []string{"personal_injury"}}, true, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/filters/options", nil)
	rec := httptest.NewRecorder()
	h.FilterOptions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DictionaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"personal_injury"}, resp.Options.CaseTypes)
	assert.True(t, resp.CacheHit)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestQueryHandler_CallDetail(t *testing.T) {
	h := NewQueryHandler(&mockQueryReader{
		CallDetailFunc: func(_ context.Context, id string) (store.Row, bool, error) {
			assert.Equal(t, "call-001", id)
			return store.Row{"source_transcript_id": "call-001", "quality_score": float64(92)}, false, nil
		},
	})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/calls/call-001", nil), "id", "call-001")
	rec := httptest.NewRecorder()
	h.CallDetail(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CallDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "call-001", resp.Call["source_transcript_id"])
}

func TestQueryHandler_CallDetailNotFound(t *testing.T) {
	h := NewQueryHandler(&mockQueryReader{
		CallDetailFunc: func(context.Context, string) (store.Row, bool, error) {
			return nil, false, models.ErrNotFound
		},
	})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/calls/call-999", nil), "id", "call-999")
	rec := httptest.NewRecorder()
	h.CallDetail(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryHandler_Transcript(t *testing.T) {
	h := NewQueryHandler(&mockQueryReader{
		TranscriptFunc: func(_ context.Context, id string) (string, error) {
			return "caller: hello ...", nil
		},
	})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/calls/call-001/transcript", nil), "id", "call-001")
	rec := httptest.NewRecorder()
	h.Transcript(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "call-001", resp["transcript_id"])
	assert.Equal(t, "caller: hello ...", resp["content"])
}
