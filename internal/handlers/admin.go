package handlers

import (
	"context"
	"net/http"

	"github.com/alexbespwalker/walker-brain-portal/internal/store"
	pkghttp "github.com/alexbespwalker/walker-brain-portal/pkg/http"
)

// AdminReader is the slice of QueryService behind the admin-only pages.
type AdminReader interface {
	SystemStatus(ctx context.Context) ([]store.Row, bool, error)
	CostTracking(ctx context.Context, days int) ([]store.Row, bool, error)
	DriftAlerts(ctx context.Context) ([]store.Row, bool, error)
	PromptLibrary(ctx context.Context) ([]store.Row, bool, error)
}

// AdminHandler serves pipeline-operations endpoints. All routes sit
// behind RequireAdmin.
type AdminHandler struct {
	service AdminReader
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(service AdminReader) *AdminHandler {
	return &AdminHandler{service: service}
}

// RowsResponse is the envelope for unpaginated admin tables.
type RowsResponse struct {
	Data     []store.Row `json:"data"`
	CacheHit bool        `json:"cache_hit"`
}

// SystemStatus serves GET /system/status
func (h *AdminHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	h.rows(w, r, func(ctx context.Context) ([]store.Row, bool, error) {
		return h.service.SystemStatus(ctx)
	})
}

// CostTracking serves GET /system/costs
func (h *AdminHandler) CostTracking(w http.ResponseWriter, r *http.Request) {
	days := intParam(r.URL.Query().Get("days"), 30)
	h.rows(w, r, func(ctx context.Context) ([]store.Row, bool, error) {
		return h.service.CostTracking(ctx, days)
	})
}

// DriftAlerts serves GET /system/drift
func (h *AdminHandler) DriftAlerts(w http.ResponseWriter, r *http.Request) {
	h.rows(w, r, func(ctx context.Context) ([]store.Row, bool, error) {
		return h.service.DriftAlerts(ctx)
	})
}

// PromptLibrary serves GET /system/prompts
func (h *AdminHandler) PromptLibrary(w http.ResponseWriter, r *http.Request) {
	h.rows(w, r, func(ctx context.Context) ([]store.Row, bool, error) {
		return h.service.PromptLibrary(ctx)
	})
}

func (h *AdminHandler) rows(w http.ResponseWriter, r *http.Request, fetch func(context.Context) ([]store.Row, bool, error)) {
	var (
		rows []store.Row
		hit  bool
	)
	err := withRetry(func() error {
		var err error
		rows, hit, err = fetch(r.Context())
		return err
	})
	if err != nil {
		writeQueryError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, RowsResponse{Data: rows, CacheHit: hit})
}
