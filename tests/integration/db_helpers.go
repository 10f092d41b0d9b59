package integration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/alexbespwalker/walker-brain-portal/internal/database"
	"github.com/alexbespwalker/walker-brain-portal/migrations"
	pkgauth "github.com/alexbespwalker/walker-brain-portal/pkg/auth"
)

// TestDB manages the PostgreSQL testcontainer and database handles
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	SQL        *sql.DB
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("walker_brain"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		SQL:        db,
		DB:         &database.DB{SQL: db},
	}, nil
}

// runMigrations executes all goose migrations from the embedded FS
func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Teardown stops the container and closes the database
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.SQL != nil {
		db.SQL.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"angle_feedback",
		"drift_alerts",
		"cost_tracking",
		"prompt_library",
		"system_status",
		"testimonial_pipeline",
		"call_transcripts",
		"analysis_results",
		"wb_sessions",
		"wb_users",
	}

	for _, table := range tables {
		if _, err := db.SQL.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	return nil
}

// SeedUser inserts a test user with hashed password
func (db *TestDB) SeedUser(ctx context.Context, id, email, password string, isAdmin bool) error {
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = db.SQL.ExecContext(ctx, `
		INSERT INTO wb_users (id, email, password_hash, display_name, is_admin)
		VALUES ($1, $2, $3, $4, $5)
	`, id, email, hash, "Test User", isAdmin)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// SeedAnalysisResult inserts one analysis row for query tests
func (db *TestDB) SeedAnalysisResult(ctx context.Context, transcriptID, caseType string, quality int, keyQuote string, analyzedAt time.Time) error {
	_, err := db.SQL.ExecContext(ctx, `
		INSERT INTO analysis_results
			(source_transcript_id, case_type, quality_score, emotional_tone,
			 outcome, original_language, key_quote, summary, primary_topic,
			 testimonial_candidate, analyzed_at)
		VALUES ($1, $2, $3, 'relieved', 'retained', 'en', $4, 'summary text', 'intake', $5, $6)
	`, transcriptID, caseType, quality, keyQuote, quality >= 80, analyzedAt)
	if err != nil {
		return fmt.Errorf("failed to insert analysis result: %w", err)
	}
	return nil
}

// SeedTestimonialEntry inserts one pipeline row
func (db *TestDB) SeedTestimonialEntry(ctx context.Context, transcriptID, status string, quality int) error {
	_, err := db.SQL.ExecContext(ctx, `
		INSERT INTO testimonial_pipeline (source_transcript_id, status, quality_score, key_quote)
		VALUES ($1, $2, $3, 'a great quote')
	`, transcriptID, status, quality)
	if err != nil {
		return fmt.Errorf("failed to insert testimonial entry: %w", err)
	}
	return nil
}
