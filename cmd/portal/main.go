package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alexbespwalker/walker-brain-portal/internal/background"
	"github.com/alexbespwalker/walker-brain-portal/internal/cache"
	"github.com/alexbespwalker/walker-brain-portal/internal/clock"
	"github.com/alexbespwalker/walker-brain-portal/internal/config"
	"github.com/alexbespwalker/walker-brain-portal/internal/database"
	"github.com/alexbespwalker/walker-brain-portal/internal/handlers"
	middlewareCustom "github.com/alexbespwalker/walker-brain-portal/internal/middleware"
	"github.com/alexbespwalker/walker-brain-portal/internal/models"
	"github.com/alexbespwalker/walker-brain-portal/internal/query"
	"github.com/alexbespwalker/walker-brain-portal/internal/routes"
	"github.com/alexbespwalker/walker-brain-portal/internal/services"
	"github.com/alexbespwalker/walker-brain-portal/internal/store"
	pkglogger "github.com/alexbespwalker/walker-brain-portal/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := database.Migrate(migrateCtx, db.SQL); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Store, cache, executor
	clk := clock.System()
	st := store.NewPostgres(db.SQL, cfg.Database.QueryTimeout)
	queryCache := cache.New(clk)
	ttls := query.TTLConfig{
		Dictionary: cfg.Cache.DictionaryTTL,
		Listing:    cfg.Cache.ListingTTL,
		Aggregate:  cfg.Cache.AggregateTTL,
	}
	executor := query.NewExecutor(st, queryCache, ttls, logger)

	// Initialize services
	auditLogger := pkglogger.NewAuditLogger(logger)
	authService := services.NewAuthService(st, cfg.Auth.AllowedEmailDomain, logger, auditLogger)
	sessionService := services.NewSessionService(st, clk, cfg.Auth.SessionTTL, logger, auditLogger)
	queryService := services.NewQueryService(executor, st, clk, services.DefaultPageSize, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, sessionService)
	queryHandler := handlers.NewQueryHandler(queryService)
	dashboardHandler := handlers.NewDashboardHandler(queryService)
	testimonialHandler := handlers.NewTestimonialHandler(queryService)
	adminHandler := handlers.NewAdminHandler(queryService)

	// Bootstrap first admin user if configured
	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(bootstrapCtx, authService, st, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	bootstrapCancel()

	// Background sweeps for sessions and cache
	cleanupManager := background.NewCleanupManager(
		sessionService,
		queryCache,
		logger,
		cfg.Auth.SweepInterval,
		cfg.Cache.SweepInterval,
	)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, queryHandler, dashboardHandler, testimonialHandler, adminHandler, sessionService)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and
// ADMIN_PASSWORD are set. The registration path never grants admin, so
// the flag is flipped directly after the account exists.
func ensureAdminUser(ctx context.Context, authService *services.AuthService, st store.Store, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	user, err := authService.Register(ctx, adminEmail, adminPassword, "Admin")
	if err != nil {
		if errors.Is(err, models.ErrDuplicateAccount) {
			logger.Info("admin user already exists")
			return nil
		}
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	if _, err := st.Update(ctx, "wb_users",
		map[string]any{"is_admin": true},
		map[string]any{"id": user.ID},
	); err != nil {
		return fmt.Errorf("failed to promote admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
