package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Cache    CacheConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	QueryTimeout    time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type AuthConfig struct {
	// SessionTTL is how long an issued session token stays valid.
	SessionTTL time.Duration
	// SweepInterval is how often expired sessions are purged in the
	// background; expired tokens are also rejected lazily on use.
	SweepInterval time.Duration
	// AllowedEmailDomain restricts registration to one email domain.
	// Empty disables the check.
	AllowedEmailDomain string
}

type CacheConfig struct {
	// DictionaryTTL covers filter-dropdown dictionaries, which change
	// only when the analysis pipeline discovers a new value.
	DictionaryTTL time.Duration
	// ListingTTL covers paginated row listings.
	ListingTTL time.Duration
	// AggregateTTL covers dashboard metric aggregations.
	AggregateTTL time.Duration
	// SweepInterval is how often fully expired entries are evicted in
	// the background.
	SweepInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "walker_brain"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			QueryTimeout:    getEnvAsDuration("DB_QUERY_TIMEOUT", 10*time.Second),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
		},
		Auth: AuthConfig{
			SessionTTL:         getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
			SweepInterval:      getEnvAsDuration("SESSION_SWEEP_INTERVAL", 1*time.Hour),
			AllowedEmailDomain: getEnv("ALLOWED_EMAIL_DOMAIN", "walkeradvertising.com"),
		},
		Cache: CacheConfig{
			DictionaryTTL: getEnvAsDuration("CACHE_DICTIONARY_TTL", 1*time.Hour),
			ListingTTL:    getEnvAsDuration("CACHE_LISTING_TTL", 5*time.Minute),
			AggregateTTL:  getEnvAsDuration("CACHE_AGGREGATE_TTL", 10*time.Minute),
			SweepInterval: getEnvAsDuration("CACHE_SWEEP_INTERVAL", 15*time.Minute),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.Auth.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
