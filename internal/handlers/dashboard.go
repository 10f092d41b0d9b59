package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/alexbespwalker/walker-brain-portal/internal/models"
	"github.com/alexbespwalker/walker-brain-portal/internal/store"
	pkghttp "github.com/alexbespwalker/walker-brain-portal/pkg/http"
)

// DashboardReader is the slice of QueryService the dashboard uses.
type DashboardReader interface {
	WeeklyMetrics(ctx context.Context) (*models.MetricCounts, bool, error)
	PriorPeriodMetrics(ctx context.Context) (*models.MetricCounts, bool, error)
	TopQuotes(ctx context.Context, limit int) ([]store.Row, bool, error)
	DailyVolume(ctx context.Context, days int) ([]models.DailyVolume, bool, error)
	LastUpdated(ctx context.Context) (time.Time, bool, error)
	PipelineStats(ctx context.Context) (*models.PipelineStats, bool, error)
}

// DashboardHandler serves the aggregate metric endpoints.
type DashboardHandler struct {
	service DashboardReader
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(service DashboardReader) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// MetricsResponse carries the current week next to the prior week so the
// UI can draw deltas from one response.
type MetricsResponse struct {
	Current     *models.MetricCounts  `json:"current"`
	Prior       *models.MetricCounts  `json:"prior"`
	TopQuotes   []store.Row           `json:"top_quotes"`
	DailyVolume []models.DailyVolume  `json:"daily_volume"`
	Pipeline    *models.PipelineStats `json:"pipeline"`
	LastUpdated string                `json:"last_updated,omitempty"`
	CacheHit    bool                  `json:"cache_hit"`
}

// Metrics serves GET /dashboard/metrics
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	resp := MetricsResponse{CacheHit: true}

	err := withRetry(func() error {
		current, hit, err := h.service.WeeklyMetrics(r.Context())
		if err != nil {
			return err
		}
		resp.Current = current
		resp.CacheHit = resp.CacheHit && hit

		prior, hit, err := h.service.PriorPeriodMetrics(r.Context())
		if err != nil {
			return err
		}
		resp.Prior = prior
		resp.CacheHit = resp.CacheHit && hit

		quotes, hit, err := h.service.TopQuotes(r.Context(), 5)
		if err != nil {
			return err
		}
		resp.TopQuotes = quotes
		resp.CacheHit = resp.CacheHit && hit

		volume, hit, err := h.service.DailyVolume(r.Context(), 30)
		if err != nil {
			return err
		}
		resp.DailyVolume = volume
		resp.CacheHit = resp.CacheHit && hit

		pipeline, hit, err := h.service.PipelineStats(r.Context())
		if err != nil {
			return err
		}
		resp.Pipeline = pipeline
		resp.CacheHit = resp.CacheHit && hit

		last, hit, err := h.service.LastUpdated(r.Context())
		if err != nil {
			return err
		}
		if !last.IsZero() {
			resp.LastUpdated = last.UTC().Format(time.RFC3339)
		}
		resp.CacheHit = resp.CacheHit && hit
		return nil
	})
	if err != nil {
		writeQueryError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
