package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alexbespwalker/walker-brain-portal/internal/auth"
	"github.com/alexbespwalker/walker-brain-portal/internal/models"
	"github.com/alexbespwalker/walker-brain-portal/internal/query"
	"github.com/alexbespwalker/walker-brain-portal/internal/store"
	pkghttp "github.com/alexbespwalker/walker-brain-portal/pkg/http"
)

// TestimonialService is the slice of QueryService the pipeline UI uses.
type TestimonialService interface {
	TestimonialPipeline(ctx context.Context, statuses []string, page int) ([]store.Row, query.Page, bool, error)
	UpdateTestimonialStatus(ctx context.Context, transcriptID, status, notes, updatedBy string) error
	RecordAngleFeedback(ctx context.Context, transcriptID, userID, angle string, useful bool) error
}

// TestimonialHandler serves the testimonial review pipeline.
type TestimonialHandler struct {
	service TestimonialService
}

// NewTestimonialHandler creates a new TestimonialHandler
func NewTestimonialHandler(service TestimonialService) *TestimonialHandler {
	return &TestimonialHandler{service: service}
}

// UpdateStatusRequest moves a pipeline entry to a new review status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes" validate:"max=2000"`
}

// AngleFeedbackRequest records whether a marketing angle was useful.
type AngleFeedbackRequest struct {
	Angle  string `json:"angle" validate:"required,max=200"`
	Useful bool   `json:"useful"`
}

// List serves GET /testimonials
func (h *TestimonialHandler) List(w http.ResponseWriter, r *http.Request) {
	statuses := splitParam(r.URL.Query().Get("status"))
	page := parsePage(r)

	var (
		rows []store.Row
		pg   query.Page
		hit  bool
	)
	err := withRetry(func() error {
		var err error
		rows, pg, hit, err = h.service.TestimonialPipeline(r.Context(), statuses, page)
		return err
	})
	if err != nil {
		writeQueryError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, ListResponse{Data: rows, Page: pg, CacheHit: hit})
}

// UpdateStatus serves PATCH /testimonials/{id}. Admin-gated in routing.
func (h *TestimonialHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "missing testimonial id")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	if !models.ValidTestimonialStatus(req.Status) {
		pkghttp.WriteBadRequest(w, "unknown testimonial status")
		return
	}

	view := auth.GetSessionFromContext(r)
	if view == nil {
		pkghttp.WriteUnauthorized(w, "missing session")
		return
	}

	err := withRetry(func() error {
		return h.service.UpdateTestimonialStatus(r.Context(), id, req.Status, req.Notes, view.DisplayName)
	})
	if err != nil {
		writeQueryError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AngleFeedback serves POST /calls/{id}/angle-feedback
func (h *TestimonialHandler) AngleFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "missing call id")
		return
	}

	var req AngleFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	view := auth.GetSessionFromContext(r)
	if view == nil {
		pkghttp.WriteUnauthorized(w, "missing session")
		return
	}

	err := withRetry(func() error {
		return h.service.RecordAngleFeedback(r.Context(), id, view.UserID, req.Angle, req.Useful)
	})
	if err != nil {
		writeQueryError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
