package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alexbespwalker/walker-brain-portal/internal/query"
	"github.com/alexbespwalker/walker-brain-portal/internal/services"
	"github.com/alexbespwalker/walker-brain-portal/internal/store"
	pkghttp "github.com/alexbespwalker/walker-brain-portal/pkg/http"
)

// QueryReader is the slice of QueryService the listing handlers use.
type QueryReader interface {
	FilterOptions(ctx context.Context) (*services.FilterOptions, bool, error)
	FetchQuotes(ctx context.Context, f services.AnalysisFilters, page int) ([]store.Row, query.Page, bool, error)
	SearchCalls(ctx context.Context, f services.AnalysisFilters, page int) ([]store.Row, query.Page, bool, error)
	CallDetail(ctx context.Context, transcriptID string) (store.Row, bool, error)
	Transcript(ctx context.Context, transcriptID string) (string, error)
	Explorer(ctx context.Context, f services.AnalysisFilters, page int) ([]store.Row, query.Page, bool, error)
}

// QueryHandler serves the filtered listing endpoints.
type QueryHandler struct {
	service QueryReader
}

// NewQueryHandler creates a new QueryHandler
func NewQueryHandler(service QueryReader) *QueryHandler {
	return &QueryHandler{service: service}
}

// ListResponse is the envelope for every paginated listing. CacheHit tells
// the UI whether it is looking at cached data.
type ListResponse struct {
	Data     []store.Row `json:"data"`
	Page     query.Page  `json:"pagination"`
	CacheHit bool        `json:"cache_hit"`
}

// DictionaryResponse wraps the filter dictionaries.
type DictionaryResponse struct {
	Options  *services.FilterOptions `json:"options"`
	CacheHit bool                    `json:"cache_hit"`
}

// FilterOptions serves GET /filters/options
func (h *QueryHandler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	var (
		opts *services.FilterOptions
		hit  bool
	)
	err := withRetry(func() error {
		var err error
		opts, hit, err = h.service.FilterOptions(r.Context())
		return err
	})
	if err != nil {
		writeQueryError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, DictionaryResponse{Options: opts, CacheHit: hit})
}

// Quotes serves GET /quotes
func (h *QueryHandler) Quotes(w http.ResponseWriter, r *http.Request) {
	h.listing(w, r, h.service.FetchQuotes)
}

// SearchCalls serves GET /calls/search
func (h *QueryHandler) SearchCalls(w http.ResponseWriter, r *http.Request) {
	h.listing(w, r, h.service.SearchCalls)
}

// Explorer serves GET /explorer
func (h *QueryHandler) Explorer(w http.ResponseWriter, r *http.Request) {
	h.listing(w, r, h.service.Explorer)
}

func (h *QueryHandler) listing(
	w http.ResponseWriter,
	r *http.Request,
	fetch func(context.Context, services.AnalysisFilters, int) ([]store.Row, query.Page, bool, error),
) {
	if err := query.Validate(boundarySpecs(r)); err != nil {
		writeQueryError(w, err)
		return
	}

	filters := parseFilters(r)
	page := parsePage(r)

	var (
		rows []store.Row
		pg   query.Page
		hit  bool
	)
	err := withRetry(func() error {
		var err error
		rows, pg, hit, err = fetch(r.Context(), filters, page)
		return err
	})
	if err != nil {
		writeQueryError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, ListResponse{Data: rows, Page: pg, CacheHit: hit})
}

// CallDetailResponse wraps one analysis record.
type CallDetailResponse struct {
	Call     store.Row `json:"call"`
	CacheHit bool      `json:"cache_hit"`
}

// CallDetail serves GET /calls/{id}
func (h *QueryHandler) CallDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "missing call id")
		return
	}

	var (
		row store.Row
		hit bool
	)
	err := withRetry(func() error {
		var err error
		row, hit, err = h.service.CallDetail(r.Context(), id)
		return err
	})
	if err != nil {
		writeQueryError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, CallDetailResponse{Call: row, CacheHit: hit})
}

// Transcript serves GET /calls/{id}/transcript. Never cached.
func (h *QueryHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "missing call id")
		return
	}

	var content string
	err := withRetry(func() error {
		var err error
		content, err = h.service.Transcript(r.Context(), id)
		return err
	})
	if err != nil {
		writeQueryError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"transcript_id": id,
		"content":       content,
	})
}

// multiselectParams maps listing query parameters to the columns they
// filter.
var multiselectParams = []struct{ param, field string }{
	{"case_type", "case_type"},
	{"tone", "emotional_tone"},
	{"outcome", "outcome"},
	{"language", "original_language"},
}

// boundarySpecs rebuilds the request's filters as raw specs, keeping
// multiselect params that are present but empty, so strict validation can
// reject them up front. parseFilters drops empties, which would turn
// "show nothing" into "show everything".
func boundarySpecs(r *http.Request) []query.FilterSpec {
	q := r.URL.Query()
	var specs []query.FilterSpec
	for _, m := range multiselectParams {
		if !q.Has(m.param) {
			continue
		}
		specs = append(specs, query.Membership(m.field, splitParam(q.Get(m.param))))
	}
	min := intParam(q.Get("min_quality"), 0)
	max := intParam(q.Get("max_quality"), 0)
	if min > 0 || max > 0 {
		if max == 0 {
			max = 100
		}
		specs = append(specs, query.QualityRange(min, max))
	}
	return specs
}

// parseFilters builds the filter state from listing query parameters.
// Unknown parameters are ignored; bad numerics fall back to defaults so a
// mangled link still renders something.
func parseFilters(r *http.Request) services.AnalysisFilters {
	q := r.URL.Query()
	return services.AnalysisFilters{
		CaseTypes:       splitParam(q.Get("case_type")),
		Tones:           splitParam(q.Get("tone")),
		Outcomes:        splitParam(q.Get("outcome")),
		Languages:       splitParam(q.Get("language")),
		MinQuality:      intParam(q.Get("min_quality"), 0),
		MaxQuality:      intParam(q.Get("max_quality"), 0),
		TestimonialOnly: boolParam(q.Get("testimonial_only")),
		ContentWorthy:   boolParam(q.Get("content_worthy")),
		Search:          q.Get("q"),
	}
}

func parsePage(r *http.Request) int {
	return intParam(r.URL.Query().Get("page"), 0)
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func boolParam(raw string) bool {
	return raw == "true" || raw == "1"
}
