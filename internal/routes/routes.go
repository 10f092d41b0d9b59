package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/alexbespwalker/walker-brain-portal/internal/auth"
	"github.com/alexbespwalker/walker-brain-portal/internal/handlers"
	"github.com/alexbespwalker/walker-brain-portal/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	queryHandler *handlers.QueryHandler,
	dashboardHandler *handlers.DashboardHandler,
	testimonialHandler *handlers.TestimonialHandler,
	adminHandler *handlers.AdminHandler,
	sessions auth.SessionValidator,
) {
	authLimit := middleware.DefaultAuthRateLimit()
	queryLimit := middleware.DefaultQueryRateLimit()

	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(authLimit)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(authLimit)).Post("/auth/register", authHandler.Register)

	// Protected routes - valid session required
	router.Group(func(r chi.Router) {
		r.Use(auth.SessionMiddleware(sessions))
		r.Use(middleware.RateLimitBySession(queryLimit))

		// Session endpoints
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/session", authHandler.Session)

		// Cached query surface
		r.Get("/filters/options", queryHandler.FilterOptions)
		r.Get("/quotes", queryHandler.Quotes)
		r.Get("/calls/search", queryHandler.SearchCalls)
		r.Get("/calls/{id}", queryHandler.CallDetail)
		r.Get("/calls/{id}/transcript", queryHandler.Transcript)
		r.Post("/calls/{id}/angle-feedback", testimonialHandler.AngleFeedback)
		r.Get("/explorer", queryHandler.Explorer)
		r.Get("/dashboard/metrics", dashboardHandler.Metrics)
		r.Get("/testimonials", testimonialHandler.List)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Patch("/testimonials/{id}", testimonialHandler.UpdateStatus)
			r.Get("/system/status", adminHandler.SystemStatus)
			r.Get("/system/costs", adminHandler.CostTracking)
			r.Get("/system/drift", adminHandler.DriftAlerts)
			r.Get("/system/prompts", adminHandler.PromptLibrary)
		})
	})
}
